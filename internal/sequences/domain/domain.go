// Package domain holds the email sequence model: a named, stepped nurture
// campaign bound to one lead.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SequenceStatus is the lifecycle state of a sequence. Completed and
// cancelled are terminal.
type SequenceStatus string

const (
	StatusActive    SequenceStatus = "active"
	StatusPaused    SequenceStatus = "paused"
	StatusCompleted SequenceStatus = "completed"
	StatusCancelled SequenceStatus = "cancelled"
)

// Campaign names.
const (
	SequenceWelcome       = "welcome"
	SequenceNurture       = "nurture"
	SequenceQualification = "qualification"
	SequenceProposal      = "proposal"
	SequenceFollowUp      = "follow_up"
	SequenceReengagement  = "reengagement"
)

type campaign struct {
	MaxSteps    int
	DaysBetween int
}

var campaigns = map[string]campaign{
	SequenceWelcome:       {MaxSteps: 5, DaysBetween: 1},
	SequenceNurture:       {MaxSteps: 10, DaysBetween: 3},
	SequenceQualification: {MaxSteps: 6, DaysBetween: 2},
	SequenceProposal:      {MaxSteps: 7, DaysBetween: 1},
	SequenceFollowUp:      {MaxSteps: 4, DaysBetween: 7},
	SequenceReengagement:  {MaxSteps: 3, DaysBetween: 14},
}

// KnownSequence reports whether the name maps to a configured campaign.
func KnownSequence(name string) bool {
	_, ok := campaigns[name]
	return ok
}

// MaxStepsFor returns the number of steps in a campaign. Unknown campaigns
// get a single step so a stray sequence completes immediately instead of
// running forever.
func MaxStepsFor(name string) int {
	if c, ok := campaigns[name]; ok {
		return c.MaxSteps
	}
	return 1
}

// DaysBetweenFor returns the campaign's cadence in days between steps.
func DaysBetweenFor(name string) int {
	if c, ok := campaigns[name]; ok {
		return c.DaysBetween
	}
	return 7
}

// Sequence is one lead's progress through a campaign. CurrentStep counts
// emails already handled: step N's send is attempted while CurrentStep == N.
type Sequence struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	SequenceName    string
	CurrentStep     int
	Status          SequenceStatus
	StartedAt       time.Time
	CompletedAt     *time.Time
	LastEmailSentAt *time.Time
	NextEmailAt     *time.Time
	PausedAt        *time.Time
	PauseReason     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether no further transitions are allowed.
func (s Sequence) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// AdvanceDecision is the pure outcome of advancing a sequence one step.
type AdvanceDecision struct {
	Advanced  bool
	NewStep   int
	Completed bool
}

// Advance computes the step transition without mutating the sequence:
// terminal sequences do not move; otherwise the step increments, and the
// sequence completes once the new step reaches the campaign's max.
func (s Sequence) Advance() AdvanceDecision {
	if s.IsTerminal() {
		return AdvanceDecision{NewStep: s.CurrentStep}
	}
	newStep := s.CurrentStep + 1
	return AdvanceDecision{
		Advanced:  true,
		NewStep:   newStep,
		Completed: newStep >= MaxStepsFor(s.SequenceName),
	}
}

// NextEmailDate returns when the given step's email is due: the start time
// plus the campaign cadence once per step.
func (s Sequence) NextEmailDate(step int) time.Time {
	return s.StartedAt.AddDate(0, 0, step*DaysBetweenFor(s.SequenceName))
}
