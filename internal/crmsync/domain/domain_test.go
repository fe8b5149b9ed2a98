package domain

import (
	"testing"
	"time"
)

func TestCanRetryOnlyFailedUnderBudget(t *testing.T) {
	tests := []struct {
		name       string
		status     SyncStatus
		retryCount int
		want       bool
	}{
		{"failed under budget", StatusFailed, 0, true},
		{"failed at last attempt", StatusFailed, 2, true},
		{"failed budget exhausted", StatusFailed, 3, false},
		{"pending", StatusPending, 0, false},
		{"syncing", StatusSyncing, 0, false},
		{"synced", StatusSynced, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Status: tt.status, RetryCount: tt.retryCount}
			if got := r.CanRetry(); got != tt.want {
				t.Fatalf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsResync(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)
	stale := now.Add(-25 * time.Hour)

	tests := []struct {
		name   string
		record Record
		want   bool
	}{
		{"pending always", Record{Status: StatusPending}, true},
		{"failed always", Record{Status: StatusFailed, LastSyncedAt: &fresh}, true},
		{"synced never synced", Record{Status: StatusSynced}, true},
		{"synced fresh", Record{Status: StatusSynced, LastSyncedAt: &fresh}, false},
		{"synced stale", Record{Status: StatusSynced, LastSyncedAt: &stale}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.NeedsResync(now); got != tt.want {
				t.Fatalf("NeedsResync() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok := (Record{}).SyncAge(now); ok {
		t.Fatal("never-synced record should have no sync age")
	}

	syncedAt := now.Add(-3 * time.Hour)
	age, ok := (Record{LastSyncedAt: &syncedAt}).SyncAge(now)
	if !ok || age != 3*time.Hour {
		t.Fatalf("SyncAge() = %v, %v; want 3h, true", age, ok)
	}
}
