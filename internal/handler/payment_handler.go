package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/middleware"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
	"github.com/noah-isme/library-fee-api/pkg/response"
)

const maxApprovals = 200

type paymentService interface {
	MarkCurrentMonthPaid(ctx context.Context, studentID, adminID string) (*models.Payment, error)
	ApprovePayment(ctx context.Context, studentID, adminID string, req dto.ApprovePaymentRequest) (*models.Payment, error)
	History(ctx context.Context, studentID string) ([]models.Payment, error)
	Approvals(ctx context.Context, limit int) ([]models.Approval, error)
}

// PaymentHandler exposes admin fee and payment endpoints.
type PaymentHandler struct {
	payments paymentService
	fees     feeStatusService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService, fees feeStatusService) *PaymentHandler {
	return &PaymentHandler{payments: payments, fees: fees}
}

// Fees godoc
// @Summary Student fee status
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/fees [get]
func (h *PaymentHandler) Fees(c *gin.Context) {
	status, err := h.fees.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAsOf(c, status.AsOf)
	response.JSON(c, http.StatusOK, status, nil, middleware.ExtractMeta(c))
}

// History godoc
// @Summary Student payment history
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	payments, err := h.payments.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Approve godoc
// @Summary Mark a month as paid
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.ApprovePaymentRequest true "Month to settle"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *PaymentHandler) Approve(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return
	}
	payment, err := h.payments.ApprovePayment(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// MarkCurrent godoc
// @Summary Mark the current month as paid
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/payments/current [post]
func (h *PaymentHandler) MarkCurrent(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payment, err := h.payments.MarkCurrentMonthPaid(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Approvals godoc
// @Summary Recent payment approvals
// @Tags Payments
// @Produce json
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *PaymentHandler) Approvals(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > maxApprovals {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 200"))
		return
	}
	approvals, err := h.payments.Approvals(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approvals, nil)
}
