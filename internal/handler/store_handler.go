package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-fee-api/internal/middleware"
	"github.com/noah-isme/library-fee-api/internal/models"
	"github.com/noah-isme/library-fee-api/internal/service"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
	"github.com/noah-isme/library-fee-api/pkg/response"
)

type storeService interface {
	Catalog(ctx context.Context, role models.UserRole) ([]models.StoreItem, error)
	Get(ctx context.Context, id string) (*models.StoreItem, error)
	Create(ctx context.Context, req service.StoreItemRequest) (*models.StoreItem, error)
	Update(ctx context.Context, id string, req service.StoreItemRequest) (*models.StoreItem, error)
	Delete(ctx context.Context, id string) error
}

// StoreHandler exposes the study material catalog.
type StoreHandler struct {
	store storeService
}

// NewStoreHandler constructs StoreHandler.
func NewStoreHandler(store storeService) *StoreHandler {
	return &StoreHandler{store: store}
}

// Catalog godoc
// @Summary Store catalog
// @Description Students see active items only
// @Tags Store
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /store [get]
func (h *StoreHandler) Catalog(c *gin.Context) {
	role := models.RoleStudent
	if claims := middleware.CurrentClaims(c); claims != nil {
		role = claims.Role
	}
	items, err := h.store.Catalog(c.Request.Context(), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Store item detail
// @Tags Store
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /admin/store/{id} [get]
func (h *StoreHandler) Get(c *gin.Context) {
	item, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Add store item
// @Tags Store
// @Accept json
// @Produce json
// @Param payload body service.StoreItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /admin/store [post]
func (h *StoreHandler) Create(c *gin.Context) {
	var req service.StoreItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	item, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update store item
// @Tags Store
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.StoreItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /admin/store/{id} [put]
func (h *StoreHandler) Update(c *gin.Context) {
	var req service.StoreItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	item, err := h.store.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Remove store item
// @Tags Store
// @Param id path string true "Item ID"
// @Success 204
// @Router /admin/store/{id} [delete]
func (h *StoreHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
