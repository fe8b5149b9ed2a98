// Package scheduler owns the background job plumbing: task definitions, the
// enqueue client, the worker server, and the recovery sweeper.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TaskCrmSync      = "crm:sync"
	TaskSequenceStep = "sequences:step"
)

// maxQueueRetries caps queue-level delivery retries (exponential backoff).
// The sync record keeps its own, independent retry budget.
const maxQueueRetries = 3

type crmSyncPayload struct {
	SyncRecordID string `json:"syncRecordId"`
}

type sequenceStepPayload struct {
	SequenceID string `json:"sequenceId"`
}

// NewCrmSyncTask builds a sync job for one sync record.
func NewCrmSyncTask(recordID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(crmSyncPayload{SyncRecordID: recordID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal crm sync payload: %w", err)
	}
	return asynq.NewTask(TaskCrmSync, payload), nil
}

// ParseCrmSyncTask extracts the sync record id from a task payload.
func ParseCrmSyncTask(t *asynq.Task) (uuid.UUID, error) {
	var payload crmSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal crm sync payload: %w", err)
	}
	id, err := uuid.Parse(payload.SyncRecordID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sync record id %q: %w", payload.SyncRecordID, err)
	}
	return id, nil
}

// NewSequenceStepTask builds a step job for one sequence.
func NewSequenceStepTask(sequenceID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(sequenceStepPayload{SequenceID: sequenceID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal sequence step payload: %w", err)
	}
	return asynq.NewTask(TaskSequenceStep, payload), nil
}

// ParseSequenceStepTask extracts the sequence id from a task payload.
func ParseSequenceStepTask(t *asynq.Task) (uuid.UUID, error) {
	var payload sequenceStepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal sequence step payload: %w", err)
	}
	id, err := uuid.Parse(payload.SequenceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sequence id %q: %w", payload.SequenceID, err)
	}
	return id, nil
}
