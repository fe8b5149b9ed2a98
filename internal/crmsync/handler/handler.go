// Package handler exposes the operator endpoints for the CRM sync state
// machine.
package handler

import (
	"net/http"
	"time"

	"leadlift_backend/internal/crmsync/domain"
	"leadlift_backend/internal/crmsync/service"
	"leadlift_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the sync operator endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Stats)
	rg.GET("/leads/:leadId", h.ListForLead)
	rg.POST("/:id/retry", h.Retry)
	rg.POST("/retry-failed", h.RetryFailed)
	rg.POST("/run-pending", h.RunPending)
}

// Stats returns sync record counts per status.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{
		"pending": stats.Pending,
		"syncing": stats.Syncing,
		"synced":  stats.Synced,
		"failed":  stats.Failed,
	})
}

// ListForLead returns every sync record for a lead.
func (h *Handler) ListForLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid lead id", nil)
		return
	}

	records, err := h.svc.ListForLead(c.Request.Context(), leadID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	httpkit.OK(c, out)
}

// Retry requeues a single failed sync record.
func (h *Handler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid sync record id", nil)
		return
	}

	record, err := h.svc.RetrySync(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, toRecordResponse(record))
}

// RetryFailed requeues all stale failed records still under the retry budget.
func (h *Handler) RetryFailed(c *gin.Context) {
	count, err := h.svc.RetryAllFailed(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"requeued": count})
}

// RunPending enqueues a sync job for every pending record.
func (h *Handler) RunPending(c *gin.Context) {
	count, err := h.svc.SyncPending(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"enqueued": count})
}

type recordResponse struct {
	ID           string     `json:"id"`
	LeadID       string     `json:"leadId"`
	CrmSystem    string     `json:"crmSystem"`
	Status       string     `json:"status"`
	CrmID        *string    `json:"crmId,omitempty"`
	DealID       *string    `json:"dealId,omitempty"`
	CurrentStage *string    `json:"currentStage,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	SyncError    *string    `json:"syncError,omitempty"`
	RetryCount   int        `json:"retryCount"`
	CanRetry     bool       `json:"canRetry"`
	NeedsResync  bool       `json:"needsResync"`
	SyncAgeSecs  *int64     `json:"syncAgeSeconds,omitempty"`
}

func toRecordResponse(record domain.Record) recordResponse {
	now := time.Now()
	var ageSecs *int64
	if age, ok := record.SyncAge(now); ok {
		secs := int64(age.Seconds())
		ageSecs = &secs
	}
	return recordResponse{
		ID:           record.ID.String(),
		LeadID:       record.LeadID.String(),
		CrmSystem:    record.CrmSystem,
		Status:       string(record.Status),
		CrmID:        record.CrmID,
		DealID:       record.DealID,
		CurrentStage: record.CurrentStage,
		LastSyncedAt: record.LastSyncedAt,
		SyncError:    record.SyncError,
		RetryCount:   record.RetryCount,
		CanRetry:     record.CanRetry(),
		NeedsResync:  record.NeedsResync(now),
		SyncAgeSecs:  ageSecs,
	}
}
