package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/service"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/response"
)

type exportRenderer interface {
	Render(ctx context.Context, session *models.Session, format string) (*service.ExportResult, error)
}

// ExportHandler streams the outpass history as a download.
type ExportHandler struct {
	exporter exportRenderer
}

// NewExportHandler builds an export handler.
func NewExportHandler(exporter exportRenderer) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Download godoc
// @Summary Export the caller's outpass history
// @Tags Outpasses
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /outpasses/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	session := sessionFromContext(c)
	format := c.DefaultQuery("format", service.ExportFormatCSV)

	result, err := h.exporter.Render(c.Request.Context(), session, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
