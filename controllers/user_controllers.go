package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

// Register -> bootstraps a new tenant: the restaurant plus its first admin
// account, in one transaction.
func (uc *UserController) Register(c *gin.Context) {
	type request struct {
		RestaurantName string `json:"restaurant_name" binding:"required"`
		Slug           string `json:"slug" binding:"required"`
		Name           string `json:"name" binding:"required"`
		Email          string `json:"email" binding:"required,email"`
		Password       string `json:"password" binding:"required,min=8"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	restaurant := models.Restaurant{
		Slug:     strings.ToLower(req.Slug),
		Name:     req.RestaurantName,
		IsActive: true,
		IsOpen:   true,
	}
	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
		IsActive: true,
	}

	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&restaurant).Error; err != nil {
			return err
		}
		user.RestaurantID = restaurant.ID
		return tx.Create(&user).Error
	})
	if err != nil {
		utils.RespondAppError(c, utils.NewValidationError("could not register: %v", err))
		return
	}

	utils.InfoLogger.Printf("New restaurant registered: %s (admin %s)", restaurant.Slug, user.Email)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant registered", gin.H{
		"restaurant_id": restaurant.ID,
		"user_id":       user.ID,
	})
}

// Login -> return JWT scoped to the user's restaurant.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := uc.DB.Where("email = ? AND is_active = ?", input.Email, true).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.RestaurantID, user.Role)
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	now := time.Now()
	uc.DB.Model(&user).Update("last_login_at", &now)

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"user_role": strings.ToLower(user.Role),
	})
}

// GetProfile -> the user behind the JWT.
func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("user not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}

// GetAllUsers -> staff accounts of the caller's restaurant.
func (uc *UserController) GetAllUsers(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var users []models.User
	if err := uc.DB.Where("restaurant_id = ?", restaurantID).Find(&users).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

// CreateUser -> admin/manager adds a staff account to their restaurant.
func (uc *UserController) CreateUser(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Role != models.RoleAdmin && req.Role != models.RoleManager && req.Role != models.RoleStaff {
		utils.RespondAppError(c, utils.NewValidationError("unknown role %q", req.Role))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	user := models.User{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Email:        req.Email,
		Password:     string(hashed),
		Role:         req.Role,
		IsActive:     true,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		utils.RespondAppError(c, utils.NewValidationError("could not create user: %v", err))
		return
	}

	utils.InfoLogger.Printf("New user %s (role=%s) added to restaurant %d", user.Email, user.Role, restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "User created", gin.H{"user_id": user.ID})
}
