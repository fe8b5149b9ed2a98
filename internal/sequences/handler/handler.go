// Package handler exposes operator endpoints for email sequences.
package handler

import (
	"net/http"
	"time"

	"leadlift_backend/internal/sequences/domain"
	"leadlift_backend/internal/sequences/service"
	"leadlift_backend/platform/httpkit"
	"leadlift_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes mounts the sequence operator endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("/leads/:leadId", h.ListForLead)
	rg.POST("/:id/pause", h.Pause)
	rg.POST("/:id/resume", h.Resume)
	rg.POST("/:id/cancel", h.Cancel)
}

type startSequenceRequest struct {
	LeadID       string `json:"leadId" validate:"required,uuid"`
	SequenceName string `json:"sequenceName" validate:"required,oneof=welcome nurture qualification proposal follow_up reengagement"`
}

type pauseSequenceRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// Start manually begins a campaign for a lead.
func (h *Handler) Start(c *gin.Context) {
	var req startSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid input", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid lead id", nil)
		return
	}

	seq, err := h.svc.Start(c.Request.Context(), leadID, req.SequenceName)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, toSequenceResponse(seq))
}

// ListForLead returns every sequence for a lead.
func (h *Handler) ListForLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid lead id", nil)
		return
	}

	sequences, err := h.svc.ListForLead(c.Request.Context(), leadID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]sequenceResponse, 0, len(sequences))
	for _, seq := range sequences {
		out = append(out, toSequenceResponse(seq))
	}
	httpkit.OK(c, out)
}

// Pause suspends an active sequence.
func (h *Handler) Pause(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid sequence id", nil)
		return
	}

	var req pauseSequenceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "Invalid input", nil)
			return
		}
	}

	seq, err := h.svc.Pause(c.Request.Context(), id, req.Reason)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, toSequenceResponse(seq))
}

// Resume reactivates a paused sequence.
func (h *Handler) Resume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid sequence id", nil)
		return
	}

	seq, err := h.svc.Resume(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, toSequenceResponse(seq))
}

// Cancel terminates a sequence.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid sequence id", nil)
		return
	}

	seq, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, toSequenceResponse(seq))
}

type sequenceResponse struct {
	ID              string     `json:"id"`
	LeadID          string     `json:"leadId"`
	SequenceName    string     `json:"sequenceName"`
	CurrentStep     int        `json:"currentStep"`
	MaxSteps        int        `json:"maxSteps"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	LastEmailSentAt *time.Time `json:"lastEmailSentAt,omitempty"`
	NextEmailAt     *time.Time `json:"nextEmailAt,omitempty"`
	PauseReason     *string    `json:"pauseReason,omitempty"`
}

func toSequenceResponse(seq domain.Sequence) sequenceResponse {
	return sequenceResponse{
		ID:              seq.ID.String(),
		LeadID:          seq.LeadID.String(),
		SequenceName:    seq.SequenceName,
		CurrentStep:     seq.CurrentStep,
		MaxSteps:        domain.MaxStepsFor(seq.SequenceName),
		Status:          string(seq.Status),
		StartedAt:       seq.StartedAt,
		CompletedAt:     seq.CompletedAt,
		LastEmailSentAt: seq.LastEmailSentAt,
		NextEmailAt:     seq.NextEmailAt,
		PauseReason:     seq.PauseReason,
	}
}
