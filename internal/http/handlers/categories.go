package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/domain/category"
	"github.com/gin-gonic/gin"
)

type CategoryStore interface {
	Create(ctx context.Context, c category.Category) error
	GetByID(ctx context.Context, id string) (category.Category, error)
	List(ctx context.Context) ([]category.Category, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type CategoriesHandler struct {
	repo  CategoryStore
	cache *ReadCache
}

func NewCategoriesHandler(repo CategoryStore, rc *ReadCache) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, cache: rc}
}

func respondCategoryError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		RespondNotFound(ctx, "Category not found")
	case errors.Is(err, category.ErrNameTaken):
		RespondConflict(ctx, "name_taken", "A category with this name already exists.")
	case errors.Is(err, category.ErrInUse):
		RespondConflict(ctx, "category_in_use", "Move or delete its events first.")
	default:
		RespondInternal(ctx, "Could not save category")
	}
}

func (h *CategoriesHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	list, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": list, "count": len(list)})
}

func (h *CategoriesHandler) Create(ctx *gin.Context) {
	var req category.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c := category.NewFromCreateRequest(req)
	if err := c.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.repo.Create(cctx, c); err != nil {
		respondCategoryError(ctx, err)
		return
	}
	h.cache.Invalidate()

	ctx.JSON(http.StatusCreated, c)
}

// Update renames a category. The slug keeps its original value so links stay valid.
func (h *CategoriesHandler) Update(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "category")
	if !ok {
		return
	}

	var req category.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	var probe category.Category
	probe.Rename(req.Name)
	if err := probe.Validate(); err != nil {
		RespondValidation(ctx, err)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.repo.Rename(cctx, id, probe.Name); err != nil {
		respondCategoryError(ctx, err)
		return
	}

	c, err := h.repo.GetByID(cctx, id)
	if err != nil {
		respondCategoryError(ctx, err)
		return
	}
	h.cache.Invalidate()

	ctx.JSON(http.StatusOK, c)
}

func (h *CategoriesHandler) Delete(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id", "category")
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		respondCategoryError(ctx, err)
		return
	}
	h.cache.Invalidate()

	ctx.Status(http.StatusNoContent)
}
