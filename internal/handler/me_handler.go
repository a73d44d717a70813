package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/middleware"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
	"github.com/noah-isme/library-fee-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, id string) (*models.Student, error)
	UpdatePhoto(ctx context.Context, id, photoURL string) error
}

type feeStatusService interface {
	ForStudent(ctx context.Context, studentID string) (*dto.FeeStatusResponse, error)
}

type paymentHistoryService interface {
	History(ctx context.Context, studentID string) ([]models.Payment, error)
}

// MeHandler serves the signed-in student's own records.
type MeHandler struct {
	profiles profileService
	fees     feeStatusService
	payments paymentHistoryService
}

// NewMeHandler constructs MeHandler.
func NewMeHandler(profiles profileService, fees feeStatusService, payments paymentHistoryService) *MeHandler {
	return &MeHandler{profiles: profiles, fees: fees, payments: payments}
}

// Profile godoc
// @Summary Own profile
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *MeHandler) Profile(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, err := h.profiles.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Fees godoc
// @Summary Own fee status
// @Description Unpaid months, total due and next due date reconciled as of now
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/fees [get]
func (h *MeHandler) Fees(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.fees.ForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAsOf(c, status.AsOf)
	response.JSON(c, http.StatusOK, status, nil, middleware.ExtractMeta(c))
}

// Payments godoc
// @Summary Own payment history
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/payments [get]
func (h *MeHandler) Payments(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payments, err := h.payments.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// UpdatePhoto godoc
// @Summary Replace own photo
// @Tags Me
// @Accept json
// @Produce json
// @Param payload body dto.UpdatePhotoRequest true "Photo payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /me/photo [put]
func (h *MeHandler) UpdatePhoto(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	if err := h.profiles.UpdatePhoto(c.Request.Context(), claims.UserID, req.PhotoURL); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
