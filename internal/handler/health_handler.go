package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
)

type upstreamPinger interface {
	Ping(ctx context.Context) (hostelcore.PingResult, error)
}

// HealthHandler exposes liveness plus an upstream reachability probe that
// grounds the degraded-mode decision for operators.
type HealthHandler struct {
	upstream upstreamPinger
}

// NewHealthHandler builds a health handler.
func NewHealthHandler(upstream upstreamPinger) *HealthHandler {
	return &HealthHandler{upstream: upstream}
}

// Health responds with a generic OK payload for liveness usage.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready responds once the service is wired and accepting traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Upstream godoc
// @Summary Probe hostel-core reachability
// @Tags Health
// @Produce json
// @Success 200 {object} hostelcore.PingResult
// @Router /health/upstream [get]
func (h *HealthHandler) Upstream(c *gin.Context) {
	result, err := h.upstream.Ping(c.Request.Context())
	status := http.StatusOK
	if err != nil || !result.Reachable {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}
