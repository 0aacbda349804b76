package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

type RestaurantController struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

func NewRestaurantController(db *gorm.DB, c *cache.Cache) *RestaurantController {
	return &RestaurantController{DB: db, Cache: c}
}

// GetStorefront -> the public page for one restaurant slug: restaurant plus
// its active categories and their active products. Cached per slug until a
// menu edit or status change drops it.
func (rc *RestaurantController) GetStorefront(c *gin.Context) {
	slug := c.Param("slug")
	key := cache.StorefrontKey(slug)

	var cached models.Restaurant
	if rc.Cache.GetJSON(c.Request.Context(), key, &cached) {
		utils.RespondJSON(c, http.StatusOK, "Storefront", cached)
		return
	}

	var restaurant models.Restaurant
	err := rc.DB.
		Preload("MenuCategories", "is_active = ?", true).
		Preload("MenuCategories.Products", "is_active = ?", true).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&restaurant).Error
	if err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant %q not found", slug))
		return
	}

	rc.Cache.SetJSON(c.Request.Context(), key, restaurant)
	utils.RespondJSON(c, http.StatusOK, "Storefront", restaurant)
}

// GetMenu -> just the active menu for a slug, for refreshing the menu
// without re-fetching the whole storefront.
func (rc *RestaurantController) GetMenu(c *gin.Context) {
	slug := c.Param("slug")

	var restaurant models.Restaurant
	if err := rc.DB.Where("slug = ? AND is_active = ?", slug, true).First(&restaurant).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant %q not found", slug))
		return
	}

	var categories []models.MenuCategory
	if err := rc.DB.
		Preload("Products", "is_active = ?", true).
		Where("restaurant_id = ? AND is_active = ?", restaurant.ID, true).
		Find(&categories).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu", categories)
}

// GetRestaurant -> the caller's own restaurant for the back-office.
func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant detail", restaurant)
}

// UpdateRestaurant -> partial update of storefront fields and the open flag.
func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var body struct {
		Name           *string `json:"name"`
		Description    *string `json:"description"`
		AvatarImageURL *string `json:"avatar_image_url"`
		CoverImageURL  *string `json:"cover_image_url"`
		IsOpen         *bool   `json:"is_open"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant not found"))
		return
	}

	if body.Name != nil {
		restaurant.Name = *body.Name
	}
	if body.Description != nil {
		restaurant.Description = *body.Description
	}
	if body.AvatarImageURL != nil {
		restaurant.AvatarImageURL = *body.AvatarImageURL
	}
	if body.CoverImageURL != nil {
		restaurant.CoverImageURL = *body.CoverImageURL
	}
	if body.IsOpen != nil {
		restaurant.IsOpen = *body.IsOpen
	}

	if err := rc.DB.Save(&restaurant).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	rc.Cache.Invalidate(c.Request.Context(), cache.StorefrontKey(restaurant.Slug))
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}
