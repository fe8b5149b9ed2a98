package domain

import (
	"testing"
	"time"
)

func TestWelcomeCompletesExactlyOnFifthAdvance(t *testing.T) {
	seq := Sequence{SequenceName: SequenceWelcome, Status: StatusActive}

	for i := 1; i <= 5; i++ {
		decision := seq.Advance()
		if !decision.Advanced {
			t.Fatalf("advance %d should move the step", i)
		}
		seq.CurrentStep = decision.NewStep

		wantCompleted := i == 5
		if decision.Completed != wantCompleted {
			t.Fatalf("advance %d: completed = %v, want %v", i, decision.Completed, wantCompleted)
		}
		if decision.Completed {
			seq.Status = StatusCompleted
		}
	}

	if seq.CurrentStep != 5 {
		t.Fatalf("final step = %d, want 5", seq.CurrentStep)
	}
}

func TestAdvanceIsNoOpWhenTerminal(t *testing.T) {
	for _, status := range []SequenceStatus{StatusCompleted, StatusCancelled} {
		seq := Sequence{SequenceName: SequenceNurture, Status: status, CurrentStep: 2}
		decision := seq.Advance()
		if decision.Advanced {
			t.Fatalf("terminal sequence %s should not advance", status)
		}
		if decision.NewStep != 2 {
			t.Fatalf("terminal sequence step moved to %d", decision.NewStep)
		}
	}
}

func TestNextEmailDateFollowsCadence(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seq := Sequence{SequenceName: SequenceFollowUp, Status: StatusActive, StartedAt: started}

	// follow_up sends every 7 days.
	if got := seq.NextEmailDate(0); !got.Equal(started) {
		t.Fatalf("step 0 due at %v, want start time", got)
	}
	if got := seq.NextEmailDate(2); !got.Equal(started.AddDate(0, 0, 14)) {
		t.Fatalf("step 2 due at %v, want start + 14d", got)
	}
}

func TestCampaignTables(t *testing.T) {
	tests := []struct {
		name     string
		maxSteps int
		cadence  int
	}{
		{SequenceWelcome, 5, 1},
		{SequenceNurture, 10, 3},
		{SequenceQualification, 6, 2},
		{SequenceProposal, 7, 1},
		{SequenceFollowUp, 4, 7},
		{SequenceReengagement, 3, 14},
	}

	for _, tt := range tests {
		if got := MaxStepsFor(tt.name); got != tt.maxSteps {
			t.Errorf("MaxStepsFor(%s) = %d, want %d", tt.name, got, tt.maxSteps)
		}
		if got := DaysBetweenFor(tt.name); got != tt.cadence {
			t.Errorf("DaysBetweenFor(%s) = %d, want %d", tt.name, got, tt.cadence)
		}
	}

	if KnownSequence("mystery") {
		t.Error("unknown campaign should not be known")
	}
	if MaxStepsFor("mystery") != 1 {
		t.Error("unknown campaign should complete after one step")
	}
}
