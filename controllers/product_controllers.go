package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

type ProductController struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

func NewProductController(db *gorm.DB, c *cache.Cache) *ProductController {
	return &ProductController{DB: db, Cache: c}
}

// GetAllProducts -> products of the caller's restaurant.
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	query := pc.DB.Where("restaurant_id = ?", restaurantID)
	if catID := c.Query("category_id"); catID != "" {
		query = query.Where("category_id = ?", catID)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All products", products)
}

// GetProductByID
func (pc *ProductController) GetProductByID(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	id, _ := strconv.Atoi(c.Param("product_id"))

	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("product %d not found", id))
		return
	}
	if product.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("product belongs to another restaurant"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

// CreateProduct
func (pc *ProductController) CreateProduct(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var body struct {
		CategoryID  uint     `json:"category_id" binding:"required"`
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Price       float64  `json:"price" binding:"required"`
		ImageURL    string   `json:"image_url"`
		Ingredients []string `json:"ingredients"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Price <= 0 {
		utils.RespondAppError(c, utils.NewValidationError("price must be greater than 0"))
		return
	}

	var category models.MenuCategory
	if err := pc.DB.First(&category, body.CategoryID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("category %d not found", body.CategoryID))
		return
	}
	if category.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("category belongs to another restaurant"))
		return
	}

	product := models.Product{
		RestaurantID: restaurantID,
		CategoryID:   body.CategoryID,
		Name:         body.Name,
		Description:  body.Description,
		Price:        body.Price,
		ImageURL:     body.ImageURL,
		// A product under an inactive category starts inactive too.
		IsActive: category.IsActive,
	}
	product.SetIngredientList(body.Ingredients)

	if err := pc.DB.Create(&product).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	pc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

// UpdateProduct -> partial update. Changing the price only affects future
// orders; existing line items keep their snapshot.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	id, _ := strconv.Atoi(c.Param("product_id"))

	var body struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Price       *float64  `json:"price"`
		ImageURL    *string   `json:"image_url"`
		Ingredients *[]string `json:"ingredients"`
		IsActive    *bool     `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("product %d not found", id))
		return
	}
	if product.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("product belongs to another restaurant"))
		return
	}

	if body.Name != nil {
		product.Name = *body.Name
	}
	if body.Description != nil {
		product.Description = *body.Description
	}
	if body.Price != nil {
		if *body.Price <= 0 {
			utils.RespondAppError(c, utils.NewValidationError("price must be greater than 0"))
			return
		}
		product.Price = *body.Price
	}
	if body.ImageURL != nil {
		product.ImageURL = *body.ImageURL
	}
	if body.Ingredients != nil {
		product.SetIngredientList(*body.Ingredients)
	}
	if body.IsActive != nil {
		if *body.IsActive {
			// A product cannot be active under an inactive category.
			var category models.MenuCategory
			if err := pc.DB.First(&category, product.CategoryID).Error; err == nil && !category.IsActive {
				utils.RespondAppError(c, utils.NewValidationError("cannot activate product: category %d is inactive", category.ID))
				return
			}
		}
		product.IsActive = *body.IsActive
	}

	if err := pc.DB.Save(&product).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	pc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct -> uniform delete policy: a product referenced by any order
// line is never hard-deleted (the lines are historical records); it is
// deactivated instead. Unreferenced products are removed outright.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	id, _ := strconv.Atoi(c.Param("product_id"))

	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("product %d not found", id))
		return
	}
	if product.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("product belongs to another restaurant"))
		return
	}

	var refs int64
	if err := pc.DB.Model(&models.OrderProduct{}).
		Where("product_id = ?", product.ID).
		Count(&refs).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	if refs > 0 {
		product.IsActive = false
		if err := pc.DB.Save(&product).Error; err != nil {
			utils.RespondAppError(c, utils.NewInternalError(err))
			return
		}
		pc.invalidateStorefront(c, restaurantID)
		utils.RespondJSON(c, http.StatusOK, "Product deactivated (referenced by orders)", product)
		return
	}

	if err := pc.DB.Delete(&product).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	pc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"product_id": id})
}

func (pc *ProductController) invalidateStorefront(c *gin.Context, restaurantID uint) {
	var restaurant models.Restaurant
	if err := pc.DB.First(&restaurant, restaurantID).Error; err != nil {
		return
	}
	pc.Cache.Invalidate(c.Request.Context(), cache.StorefrontKey(restaurant.Slug))
}
