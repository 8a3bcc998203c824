package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/response"
)

type submissionService interface {
	Create(ctx context.Context, session *models.Session, form dto.OutpassForm) (*dto.OutpassItem, error)
	Edit(ctx context.Context, session *models.Session, id string, form dto.OutpassForm) (*dto.OutpassItem, error)
	Extend(ctx context.Context, session *models.Session, id string, form dto.ExtendOutpassForm) (*dto.OutpassItem, error)
	Cancel(ctx context.Context, session *models.Session, id string) (*dto.OutpassItem, error)
}

type historyService interface {
	List(ctx context.Context, session *models.Session) (*dto.HistoryResponse, error)
}

type quotaService interface {
	Snapshot(ctx context.Context, session *models.Session) *models.WeeklyQuota
}

type eligibilityService interface {
	Resolve(ctx context.Context, session *models.Session) models.EligibilityState
}

// OutpassHandler exposes the outpass lifecycle endpoints.
type OutpassHandler struct {
	submissions submissionService
	history     historyService
	quota       quotaService
	eligibility eligibilityService
}

// NewOutpassHandler builds a new handler.
func NewOutpassHandler(submissions submissionService, history historyService, quota quotaService, eligibility eligibilityService) *OutpassHandler {
	return &OutpassHandler{
		submissions: submissions,
		history:     history,
		quota:       quota,
		eligibility: eligibility,
	}
}

// Create godoc
// @Summary Submit a new outpass request
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param payload body dto.OutpassForm true "Outpass payload"
// @Success 201 {object} response.Envelope
// @Router /outpasses [post]
func (h *OutpassHandler) Create(c *gin.Context) {
	session := sessionFromContext(c)
	var form dto.OutpassForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid outpass payload"))
		return
	}
	item, err := h.submissions.Create(c.Request.Context(), session, form)
	if err != nil {
		respondSubmissionError(c, err)
		return
	}
	response.Created(c, item)
}

// Edit godoc
// @Summary Edit a pending request or resubmit a rejected one
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param id path string true "Outpass ID"
// @Param payload body dto.OutpassForm true "Outpass payload"
// @Success 200 {object} response.Envelope
// @Router /outpasses/{id} [put]
func (h *OutpassHandler) Edit(c *gin.Context) {
	session := sessionFromContext(c)
	var form dto.OutpassForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid outpass payload"))
		return
	}
	item, err := h.submissions.Edit(c.Request.Context(), session, c.Param("id"), form)
	if err != nil {
		respondSubmissionError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Extend godoc
// @Summary Extend an approved outpass with a new end window
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param id path string true "Outpass ID"
// @Param payload body dto.ExtendOutpassForm true "New end window"
// @Success 201 {object} response.Envelope
// @Router /outpasses/{id}/extend [post]
func (h *OutpassHandler) Extend(c *gin.Context) {
	session := sessionFromContext(c)
	var form dto.ExtendOutpassForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extension payload"))
		return
	}
	item, err := h.submissions.Extend(c.Request.Context(), session, c.Param("id"), form)
	if err != nil {
		respondSubmissionError(c, err)
		return
	}
	response.Created(c, item)
}

// Cancel godoc
// @Summary Cancel a pending outpass
// @Tags Outpasses
// @Produce json
// @Param id path string true "Outpass ID"
// @Success 200 {object} response.Envelope
// @Router /outpasses/{id}/cancel [put]
func (h *OutpassHandler) Cancel(c *gin.Context) {
	session := sessionFromContext(c)
	item, err := h.submissions.Cancel(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondSubmissionError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// List godoc
// @Summary List the caller's outpass history with the quota snapshot
// @Tags Outpasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /outpasses [get]
func (h *OutpassHandler) List(c *gin.Context) {
	session := sessionFromContext(c)
	history, err := h.history.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if history.Degraded {
		meta = map[string]interface{}{"degraded": true}
	}
	response.JSON(c, http.StatusOK, history, nil, meta)
}

// Quota godoc
// @Summary Current weekly quota snapshot
// @Tags Outpasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /outpasses/quota [get]
func (h *OutpassHandler) Quota(c *gin.Context) {
	session := sessionFromContext(c)
	if !session.Authenticated() {
		response.Error(c, appErrors.ErrNotAuthenticated)
		return
	}
	quota := h.quota.Snapshot(c.Request.Context(), session)
	response.JSON(c, http.StatusOK, quota, nil)
}

// Eligibility godoc
// @Summary Room-allocation eligibility gate state
// @Tags Outpasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /outpasses/eligibility [get]
func (h *OutpassHandler) Eligibility(c *gin.Context) {
	session := sessionFromContext(c)
	if !session.Authenticated() {
		response.Error(c, appErrors.ErrNotAuthenticated)
		return
	}
	state := h.eligibility.Resolve(c.Request.Context(), session)
	response.JSON(c, http.StatusOK, state, nil)
}

// respondSubmissionError surfaces validation detail inline so the UI can
// render the failure next to the offending field.
func respondSubmissionError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	envelope := response.Envelope{Error: appErr}
	if fields := dto.FieldErrors(appErr.Err); len(fields) > 0 {
		envelope.Meta = map[string]interface{}{"fields": fields}
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, envelope)
}
