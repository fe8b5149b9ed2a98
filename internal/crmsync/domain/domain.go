// Package domain holds the CRM sync record model and its state machine rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the state of a per-system sync record.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
)

// MaxRetries bounds operator-driven retries per record. Independent of the
// queue's own delivery retry budget.
const MaxRetries = 3

// ResyncAfter is the staleness horizon after which a synced record is
// considered due for a refresh.
const ResyncAfter = 24 * time.Hour

// Record tracks synchronization of one lead into one CRM system. One row per
// (lead, system) pair. A worker claims the record by moving it to syncing,
// which every other state allows: pending jobs, failed records redelivered by
// the queue, and synced records re-enqueued after a lead status change. The
// claim resolves to synced or failed; failed -> pending also happens via an
// explicit operator retry.
type Record struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	CrmSystem        string
	Status           SyncStatus
	CrmID            *string
	DealID           *string
	CurrentStage     *string
	StageUpdatedAt   *time.Time
	LastSyncedAt     *time.Time
	SyncError        *string
	RetryCount       int
	FailedAt         *time.Time
	RetryRequestedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanRetry reports whether an operator retry is allowed: only failed records
// below the retry budget.
func (r Record) CanRetry() bool {
	return r.Status == StatusFailed && r.RetryCount < MaxRetries
}

// NeedsResync is the advisory staleness check used by the resync sweeper:
// pending and failed records always qualify, synced records qualify once
// their last sync is older than ResyncAfter.
func (r Record) NeedsResync(now time.Time) bool {
	if r.Status == StatusPending || r.Status == StatusFailed {
		return true
	}
	if r.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*r.LastSyncedAt) > ResyncAfter
}

// SyncAge returns the time since the last successful sync, or zero and false
// if the record has never synced.
func (r Record) SyncAge(now time.Time) (time.Duration, bool) {
	if r.LastSyncedAt == nil {
		return 0, false
	}
	return now.Sub(*r.LastSyncedAt), true
}
