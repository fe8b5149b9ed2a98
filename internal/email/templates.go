package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"leadlift_backend/internal/leads/domain"
	seqdomain "leadlift_backend/internal/sequences/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Per-campaign subject lines, indexed by step.
var sequenceSubjects = map[string][]string{
	seqdomain.SequenceWelcome: {
		"Thanks for reaching out, %s",
		"How we approach projects like yours",
		"A few results from similar work",
		"Questions about your project?",
		"Ready when you are",
	},
	seqdomain.SequenceNurture: {
		"A practical guide to scoping your project",
		"How teams like yours phase delivery",
		"Build vs. buy: the questions that matter",
		"What a discovery sprint uncovers",
		"Case study: cutting time-to-launch in half",
		"The hidden costs of waiting",
		"How we de-risk fixed-scope work",
		"Picking the right engagement model",
		"What our clients wish they knew earlier",
		"Where to go from here",
	},
	seqdomain.SequenceQualification: {
		"Next steps for your project",
		"What a typical engagement looks like",
		"Scoping your requirements",
		"Budget and timeline planning",
		"Let's schedule a call",
		"Wrapping up our intro series",
	},
	seqdomain.SequenceProposal: {
		"Your proposal is on its way",
		"Walking through the proposal",
		"Common questions at this stage",
		"References from past clients",
		"Flexible engagement options",
		"Checking in on the proposal",
		"Last call on this proposal",
	},
	seqdomain.SequenceFollowUp: {
		"Following up on your inquiry",
		"Still interested in moving forward?",
		"A quick check-in",
		"Closing the loop",
	},
	seqdomain.SequenceReengagement: {
		"It's been a while, %s",
		"New capabilities since we last spoke",
		"One last note from us",
	},
}

// subjectFor returns the subject for (sequence, step). Unknown campaigns and
// out-of-range steps fall back to a generic line so a send never fails on
// content lookup.
func subjectFor(lead domain.Lead, sequenceName string, step int) string {
	subjects, ok := sequenceSubjects[sequenceName]
	if !ok || step < 0 || step >= len(subjects) {
		return fmt.Sprintf("An update on your %s inquiry", domain.ProjectTypeDisplay(lead.ProjectType))
	}
	subject := subjects[step]
	if strings.Contains(subject, "%s") {
		return fmt.Sprintf(subject, lead.FirstName)
	}
	return subject
}

type sequenceEmailData struct {
	FirstName    string
	SequenceName string
	Step         int
	ProjectType  string
}

func renderSequenceEmail(lead domain.Lead, sequenceName string, step int) (string, error) {
	data := sequenceEmailData{
		FirstName:    lead.FirstName,
		SequenceName: sequenceName,
		Step:         step,
		ProjectType:  domain.ProjectTypeDisplay(lead.ProjectType),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "sequence_step.html", data); err != nil {
		return "", fmt.Errorf("render sequence email: %w", err)
	}
	return buf.String(), nil
}

type notificationData struct {
	FullName    string
	Email       string
	Phone       string
	Company     string
	ProjectType string
	Budget      string
	Timeline    string
	Description string
	Source      string
	Score       float64
	Priority    string
}

func renderNewLeadNotification(lead domain.Lead) (string, error) {
	data := notificationData{
		FullName:    lead.FullName(),
		Email:       lead.Email,
		ProjectType: domain.ProjectTypeDisplay(lead.ProjectType),
		Budget:      domain.BudgetDisplay(lead.Budget),
		Timeline:    domain.TimelineDisplay(lead.Timeline),
		Description: lead.ProjectDescription,
		Source:      lead.Source,
		Score:       lead.Score,
		Priority:    lead.PriorityTier(),
	}
	if lead.Phone != nil {
		data.Phone = *lead.Phone
	}
	if lead.Company != nil {
		data.Company = *lead.Company
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "new_lead_notification.html", data); err != nil {
		return "", fmt.Errorf("render lead notification: %w", err)
	}
	return buf.String(), nil
}
