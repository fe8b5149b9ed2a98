package email

import (
	"strings"
	"testing"

	"leadlift_backend/internal/leads/domain"
	seqdomain "leadlift_backend/internal/sequences/domain"
)

func sampleLead() domain.Lead {
	return domain.Lead{
		FirstName:          "Dana",
		LastName:           "Reyes",
		Email:              "dana@acme-analytics.com",
		ProjectType:        domain.ProjectDataEngineering,
		Budget:             domain.Budget100K250K,
		Timeline:           domain.TimelineASAP,
		ProjectDescription: "Streaming pipeline consolidation",
		Source:             "referral",
		Score:              91.25,
	}
}

func TestRenderSequenceEmailGreetsLead(t *testing.T) {
	body, err := renderSequenceEmail(sampleLead(), seqdomain.SequenceWelcome, 0)
	if err != nil {
		t.Fatalf("renderSequenceEmail: %v", err)
	}
	if !strings.Contains(body, "Hi Dana,") {
		t.Fatal("body should greet the lead by first name")
	}
	if !strings.Contains(body, "Data Engineering") {
		t.Fatal("body should mention the project type")
	}
}

func TestSubjectForPersonalizesAndFallsBack(t *testing.T) {
	lead := sampleLead()

	if got := subjectFor(lead, seqdomain.SequenceWelcome, 0); got != "Thanks for reaching out, Dana" {
		t.Fatalf("welcome step 0 subject = %q", got)
	}
	if got := subjectFor(lead, seqdomain.SequenceFollowUp, 2); got != "A quick check-in" {
		t.Fatalf("follow_up step 2 subject = %q", got)
	}

	// Out-of-range steps and unknown campaigns use the generic subject.
	fallback := "An update on your Data Engineering inquiry"
	if got := subjectFor(lead, seqdomain.SequenceWelcome, 99); got != fallback {
		t.Fatalf("out-of-range subject = %q", got)
	}
	if got := subjectFor(lead, "mystery", 0); got != fallback {
		t.Fatalf("unknown campaign subject = %q", got)
	}
}

func TestSubjectForNeverLeaksFormatVerbs(t *testing.T) {
	lead := sampleLead()

	for name, subjects := range sequenceSubjects {
		for step := range subjects {
			got := subjectFor(lead, name, step)
			if strings.Contains(got, "%s") {
				t.Errorf("%s step %d subject %q left the format verb unexpanded", name, step, got)
			}
			if strings.Contains(subjects[step], "%s") && !strings.Contains(got, "Dana") {
				t.Errorf("%s step %d subject %q should include the first name", name, step, got)
			}
		}
	}
}

func TestRenderNewLeadNotificationIncludesScore(t *testing.T) {
	body, err := renderNewLeadNotification(sampleLead())
	if err != nil {
		t.Fatalf("renderNewLeadNotification: %v", err)
	}
	if !strings.Contains(body, "91.25") {
		t.Fatal("notification should include the score")
	}
	if !strings.Contains(body, "priority-high") {
		t.Fatal("notification should mark the priority tier")
	}
	if !strings.Contains(body, "Dana Reyes") {
		t.Fatal("notification should name the lead")
	}
}
