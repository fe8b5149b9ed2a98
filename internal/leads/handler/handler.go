package handler

import (
	"net/http"

	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/internal/leads/service"
	"leadlift_backend/internal/leads/transport"
	"leadlift_backend/platform/httpkit"
	"leadlift_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidInput  = "Invalid input"
	msgInvalidLeadID = "Invalid lead id"
)

// Handler serves the lead intake and admin lifecycle endpoints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts the public intake endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
}

// RegisterAdminRoutes mounts the operator endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/rescore", h.Rescore)
	rg.DELETE("/:id", h.Delete)
}

// Create ingests a new sales inquiry.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	if req.PreferredContactMethod == "" {
		req.PreferredContactMethod = "email"
	}

	lead, err := h.svc.Intake(c.Request.Context(), service.IntakeParams{
		FirstName:              req.FirstName,
		LastName:               req.LastName,
		Email:                  req.Email,
		Phone:                  req.Phone,
		Company:                req.Company,
		Website:                req.Website,
		ProjectType:            req.ProjectType,
		Budget:                 req.Budget,
		Timeline:               req.Timeline,
		ProjectDescription:     req.ProjectDescription,
		Source:                 req.Source,
		PreferredContactMethod: req.PreferredContactMethod,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

// Get returns a single lead.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// UpdateStatus transitions a lead's lifecycle status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	status, err := domain.ParseLeadStatus(req.Status)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidInput, err.Error())
		return
	}

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Rescore recomputes and persists the lead's score from its current fields.
func (h *Handler) Rescore(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	result, err := h.svc.Rescore(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{
		"score":           result.Total,
		"budgetScore":     result.Budget,
		"timelineScore":   result.Timeline,
		"complexityScore": result.Complexity,
		"qualityScore":    result.Quality,
	})
}

// Delete removes a lead and its lifecycle children.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
