package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/controllers"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

func setupUserRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	userCtrl := controllers.NewUserController(db)
	router := gin.New()
	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)
	return router
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	w := doJSON(t, router, "POST", "/register", map[string]interface{}{
		"restaurant_name": "Cantina da Praca",
		"slug":            "Cantina",
		"name":            "Dono",
		"email":           "dono@cantina.com",
		"password":        "super-secret",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Slug is normalized to lowercase.
	var restaurant models.Restaurant
	assert.NoError(t, db.First(&restaurant).Error)
	assert.Equal(t, "cantina", restaurant.Slug)

	var user models.User
	assert.NoError(t, db.First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, restaurant.ID, user.RestaurantID)
	assert.NotEqual(t, "super-secret", user.Password)

	w = doJSON(t, router, "POST", "/login", map[string]interface{}{
		"email":    "dono@cantina.com",
		"password": "super-secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "admin", data["user_role"])

	// The token carries the tenant scope.
	claims, err := utils.ParseToken(data["token"].(string))
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, restaurant.ID, claims.RestaurantID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	// Login stamps last_login_at.
	assert.NoError(t, db.First(&user, user.ID).Error)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	w := doJSON(t, router, "POST", "/register", map[string]interface{}{
		"restaurant_name": "Cantina da Praca",
		"slug":            "cantina",
		"name":            "Dono",
		"email":           "dono@cantina.com",
		"password":        "super-secret",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/login", map[string]interface{}{
		"email":    "dono@cantina.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/login", map[string]interface{}{
		"email":    "nobody@cantina.com",
		"password": "super-secret",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsDuplicateSlug(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	payload := map[string]interface{}{
		"restaurant_name": "Cantina da Praca",
		"slug":            "cantina",
		"name":            "Dono",
		"email":           "dono@cantina.com",
		"password":        "super-secret",
	}
	w := doJSON(t, router, "POST", "/register", payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	payload["email"] = "outro@cantina.com"
	w = doJSON(t, router, "POST", "/register", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The failed registration leaves no orphan user behind.
	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(1), users)
}

func TestCreateUserValidatesRole(t *testing.T) {
	db := setupTestDB(t)
	restaurant, _ := seedMenu(t, db)

	gin.SetMode(gin.TestMode)
	userCtrl := controllers.NewUserController(db)
	router := gin.New()
	admin := router.Group("/admin", asStaff(restaurant.ID, 1, models.RoleAdmin))
	admin.POST("/users", userCtrl.CreateUser)

	w := doJSON(t, router, "POST", "/admin/users", map[string]interface{}{
		"name":     "Garcom",
		"email":    "garcom@cantina.com",
		"password": "super-secret",
		"role":     "waiter",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/admin/users", map[string]interface{}{
		"name":     "Garcom",
		"email":    "garcom@cantina.com",
		"password": "super-secret",
		"role":     models.RoleStaff,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	assert.NoError(t, db.Where("email = ?", "garcom@cantina.com").First(&user).Error)
	assert.Equal(t, restaurant.ID, user.RestaurantID)
	assert.Equal(t, models.RoleStaff, user.Role)
}
