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

type MenuCategoryController struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

func NewMenuCategoryController(db *gorm.DB, c *cache.Cache) *MenuCategoryController {
	return &MenuCategoryController{DB: db, Cache: c}
}

// GetAllCategories -> categories of the caller's restaurant, with products.
func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var categories []models.MenuCategory
	if err := mcc.DB.Preload("Products").
		Where("restaurant_id = ?", restaurantID).
		Find(&categories).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All menu categories", categories)
}

// CreateCategory
func (mcc *MenuCategoryController) CreateCategory(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var body struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category := models.MenuCategory{
		RestaurantID: restaurantID,
		Name:         body.Name,
		Description:  body.Description,
		IsActive:     true,
	}
	if err := mcc.DB.Create(&category).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	mcc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

// UpdateCategory -> edits fields; turning IsActive off cascades deactivation
// to every product in the category, in the same transaction, so no active
// product can sit under an inactive category.
func (mcc *MenuCategoryController) UpdateCategory(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	idStr := c.Param("cat_id")
	id, _ := strconv.Atoi(idStr)

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var category models.MenuCategory
	if err := mcc.DB.First(&category, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("category %d not found", id))
		return
	}
	if category.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("category belongs to another restaurant"))
		return
	}

	if body.Name != nil {
		category.Name = *body.Name
	}
	if body.Description != nil {
		category.Description = *body.Description
	}

	deactivating := body.IsActive != nil && !*body.IsActive && category.IsActive
	if body.IsActive != nil {
		category.IsActive = *body.IsActive
	}

	err := mcc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&category).Error; err != nil {
			return err
		}
		if deactivating {
			return tx.Model(&models.Product{}).
				Where("category_id = ?", category.ID).
				Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	mcc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory -> removes the category; its product rows go with it via
// the cascading foreign key.
func (mcc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	idStr := c.Param("cat_id")
	id, _ := strconv.Atoi(idStr)

	var category models.MenuCategory
	if err := mcc.DB.First(&category, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("category %d not found", id))
		return
	}
	if category.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("category belongs to another restaurant"))
		return
	}

	if err := mcc.DB.Select("Products").Delete(&category).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	mcc.invalidateStorefront(c, restaurantID)
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"category_id": id})
}

func (mcc *MenuCategoryController) invalidateStorefront(c *gin.Context, restaurantID uint) {
	var restaurant models.Restaurant
	if err := mcc.DB.First(&restaurant, restaurantID).Error; err != nil {
		return
	}
	mcc.Cache.Invalidate(c.Request.Context(), cache.StorefrontKey(restaurant.Slug))
}
