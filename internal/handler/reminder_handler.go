package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/pkg/response"
)

type reminderService interface {
	Batch(ctx context.Context) (*dto.ReminderBatchResponse, error)
}

// ReminderHandler serves prepared fee reminders.
type ReminderHandler struct {
	reminders reminderService
}

// NewReminderHandler constructs ReminderHandler.
func NewReminderHandler(reminders reminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// Batch godoc
// @Summary Fee reminders for unpaid students
// @Description One message and WhatsApp link per unpaid student plus a combined broadcast text
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders [get]
func (h *ReminderHandler) Batch(c *gin.Context) {
	batch, err := h.reminders.Batch(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil, map[string]interface{}{"count": len(batch.Reminders)})
}
