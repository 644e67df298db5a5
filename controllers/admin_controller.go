package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/utils"
)

// CatalogController serves categories and locations, publicly and to operators.
type CatalogController struct {
	store *queries.Store
}

// NewCatalogController creates a CatalogController.
func NewCatalogController(store *queries.Store) *CatalogController {
	return &CatalogController{store: store}
}

type categoryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	IsPublished *bool   `json:"is_published"`
}

func (r categoryRequest) input() queries.CategoryInput {
	in := queries.CategoryInput{Slug: r.Slug, IsPublished: r.IsPublished}
	if r.Title != nil {
		t := utils.StripTags(*r.Title)
		in.Title = &t
	}
	if r.Description != nil {
		d := utils.Sanitize(*r.Description)
		in.Description = &d
	}
	return in
}

type locationRequest struct {
	Name        *string `json:"name"`
	IsPublished *bool   `json:"is_published"`
}

func (r locationRequest) input() queries.LocationInput {
	in := queries.LocationInput{IsPublished: r.IsPublished}
	if r.Name != nil {
		n := utils.StripTags(*r.Name)
		in.Name = &n
	}
	return in
}

// ListCategories returns the published categories.
func (c *CatalogController) ListCategories(ctx *gin.Context) {
	list, err := c.store.PublishedCategories(ctx.Request.Context())
	if err != nil {
		storeError(ctx, err, 40430, "category")
		return
	}
	utils.Success(ctx, gin.H{"items": list})
}

// ListLocations returns the published locations.
func (c *CatalogController) ListLocations(ctx *gin.Context) {
	list, err := c.store.PublishedLocations(ctx.Request.Context())
	if err != nil {
		storeError(ctx, err, 40431, "location")
		return
	}
	utils.Success(ctx, gin.H{"items": list})
}

func (c *CatalogController) CreateCategory(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}
	category, err := c.store.CreateCategory(ctx.Request.Context(), req.input())
	if err != nil {
		storeError(ctx, err, 40430, "category")
		return
	}
	utils.Created(ctx, category)
}

func (c *CatalogController) UpdateCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40430, "category not found")
		return
	}
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}
	category, err := c.store.UpdateCategory(ctx.Request.Context(), id, req.input())
	if err != nil {
		storeError(ctx, err, 40430, "category")
		return
	}
	utils.Success(ctx, category)
}

// DeleteCategory removes a category; its posts become uncategorised.
func (c *CatalogController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40430, "category not found")
		return
	}
	if err := c.store.DeleteCategory(ctx.Request.Context(), id); err != nil {
		storeError(ctx, err, 40430, "category")
		return
	}
	utils.Sugar.Infow("category deleted", "category_id", id, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"id": id})
}

func (c *CatalogController) CreateLocation(ctx *gin.Context) {
	var req locationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid request payload")
		return
	}
	location, err := c.store.CreateLocation(ctx.Request.Context(), req.input())
	if err != nil {
		storeError(ctx, err, 40431, "location")
		return
	}
	utils.Created(ctx, location)
}

func (c *CatalogController) UpdateLocation(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40431, "location not found")
		return
	}
	var req locationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid request payload")
		return
	}
	location, err := c.store.UpdateLocation(ctx.Request.Context(), id, req.input())
	if err != nil {
		storeError(ctx, err, 40431, "location")
		return
	}
	utils.Success(ctx, location)
}

// DeleteLocation removes a location; its posts lose their location.
func (c *CatalogController) DeleteLocation(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40431, "location not found")
		return
	}
	if err := c.store.DeleteLocation(ctx.Request.Context(), id); err != nil {
		storeError(ctx, err, 40431, "location")
		return
	}
	utils.Sugar.Infow("location deleted", "location_id", id, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"id": id})
}

// DeleteUser removes an account together with its posts and comments.
func (c *CatalogController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40432, "user not found")
		return
	}
	if err := c.store.DeleteUser(ctx.Request.Context(), id); err != nil {
		storeError(ctx, err, 40432, "user")
		return
	}
	utils.InvalidateByPrefix("user:card:")
	utils.Sugar.Infow("user deleted", "user_id", id, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"id": id})
}
