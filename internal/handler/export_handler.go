package handler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/service"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
	"github.com/noah-isme/library-fee-api/pkg/response"
)

type exportService interface {
	GenerateFeeReport(ctx context.Context, format service.ExportFormat) (*dto.ExportResponse, error)
	Resolve(token string) (*os.File, string, error)
}

// ExportHandler generates fee reports and serves signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// FeeReport godoc
// @Summary Generate fee report
// @Tags Exports
// @Produce json
// @Param format query string false "csv (default) or pdf"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports/fees [post]
func (h *ExportHandler) FeeReport(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	res, err := h.exports.GenerateFeeReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Download godoc
// @Summary Download generated report
// @Description Public endpoint guarded by the signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, contentType, err := h.exports.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read report"))
		return
	}
	response.Attachment(c, filepath.Base(file.Name()), contentType, info.Size(), file)
}
