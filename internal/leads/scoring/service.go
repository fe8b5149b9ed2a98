// Package scoring computes lead priority scores. The engine is a pure
// function over a lead snapshot: no I/O, no clock, no randomness. The same
// snapshot always yields the same scores.
package scoring

import (
	"math"
	"strings"

	"leadlift_backend/internal/leads/domain"
)

// Scoring weights. Budget carries the most signal, followed by timeline
// urgency, then project complexity and lead quality equally.
const (
	budgetWeight     = 0.35
	timelineWeight   = 0.25
	complexityWeight = 0.20
	qualityWeight    = 0.20
)

// Result holds the total score and the four persisted sub-scores.
// All values lie in [0, 100]; Total is rounded to 2 decimals.
type Result struct {
	Total      float64
	Budget     float64
	Timeline   float64
	Complexity float64
	Quality    float64
}

// Score computes the weighted lead score from the snapshot.
func Score(lead domain.Lead) Result {
	r := Result{
		Budget:     budgetScore(lead.Budget),
		Timeline:   timelineScore(lead.Timeline),
		Complexity: complexityScore(lead.ProjectType, lead.ProjectDescription),
		Quality:    qualityScore(lead),
	}

	total := r.Budget*budgetWeight +
		r.Timeline*timelineWeight +
		r.Complexity*complexityWeight +
		r.Quality*qualityWeight

	r.Total = round2(total)
	return r
}

var budgetScores = map[string]float64{
	domain.Budget250KPlus: 100.0,
	domain.Budget100K250K: 85.0,
	domain.Budget50K100K:  70.0,
	domain.Budget25K50K:   55.0,
	domain.Budget10K25K:   35.0,
	domain.BudgetUnder10K: 15.0,
}

func budgetScore(budget string) float64 {
	return budgetScores[budget]
}

var timelineScores = map[string]float64{
	domain.TimelineASAP:     100.0,
	domain.TimelineOneMonth: 85.0,
	domain.TimelineQuarter:  70.0,
	domain.TimelineHalfYear: 50.0,
	domain.TimelineYear:     30.0,
	domain.TimelineFlexible: 20.0,
}

func timelineScore(timeline string) float64 {
	return timelineScores[timeline]
}

var projectComplexityBase = map[string]float64{
	domain.ProjectDataEngineering:     100.0,
	domain.ProjectAnalyticsPlatform:   90.0,
	domain.ProjectTechnicalConsulting: 85.0,
	domain.ProjectMobileDevelopment:   75.0,
	domain.ProjectWebDevelopment:      70.0,
	domain.ProjectOther:               50.0,
}

func complexityScore(projectType, description string) float64 {
	base, ok := projectComplexityBase[projectType]
	if !ok {
		base = 50.0
	}

	return math.Min(base+descriptionComplexityBonus(description), 100.0)
}

// Keyword classes scanned in the free-text description. Each class has its
// own bonus rate and cap; the caps stack additively onto the project-type
// base with only the final min(100, base+bonus) clamp.
var (
	technicalTerms = []string{
		"api", "integration", "machine learning", "ai", "automation",
		"microservices", "cloud", "aws", "azure", "gcp", "kubernetes",
		"real-time", "scalability", "performance", "security",
		"compliance", "analytics", "dashboard", "reporting",
		"database", "data warehouse", "etl", "pipeline",
	}
	urgencyTerms = []string{"urgent", "asap", "immediately", "critical", "priority"}
	scaleTerms   = []string{"enterprise", "large scale", "million", "thousand users", "global"}
)

func descriptionComplexityBonus(description string) float64 {
	if strings.TrimSpace(description) == "" {
		return 0.0
	}

	lower := strings.ToLower(description)

	bonus := math.Min(float64(countMentions(lower, technicalTerms))*3, 15)
	bonus += math.Min(float64(countMentions(lower, urgencyTerms))*2, 8)
	bonus += math.Min(float64(countMentions(lower, scaleTerms))*4, 12)

	return bonus
}

func countMentions(lower string, terms []string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}

func qualityScore(lead domain.Lead) float64 {
	score := 0.0

	if lead.Company != nil && len(strings.TrimSpace(*lead.Company)) > 2 {
		score += 20.0
	}
	if lead.Phone != nil && strings.TrimSpace(*lead.Phone) != "" {
		score += 15.0
	}
	if lead.Website != nil && strings.TrimSpace(*lead.Website) != "" {
		score += 10.0
	}
	if professionalEmailDomain(lead.Email) {
		score += 15.0
	}
	if detailedDescription(lead.ProjectDescription) {
		score += 20.0
	}

	switch lead.PreferredContactMethod {
	case "both":
		score += 10.0
	case "phone":
		score += 5.0
	}

	score += sourceQualityBonus(lead.Source)

	return math.Min(score, 100.0)
}

var personalEmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"aol.com":     true,
	"icloud.com":  true,
	"me.com":      true,
	"live.com":    true,
	"msn.com":     true,
}

func professionalEmailDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}

	domainPart := strings.ToLower(email[at+1:])
	return !personalEmailDomains[domainPart]
}

// detailIndicators mark descriptions that mention concrete requirements,
// features, or technical specifics.
var detailIndicators = []string{
	"requirement", "feature", "functionality", "user", "system",
	"platform", "technology", "framework", "tool", "integrate",
	"connect", "sync", "automate", "custom", "specific",
}

// detailedDescription is true for descriptions of at least 30 words that
// mention at least one specificity keyword.
func detailedDescription(description string) bool {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return false
	}

	if len(strings.Fields(trimmed)) < 30 {
		return false
	}

	return countMentions(strings.ToLower(trimmed), detailIndicators) > 0
}

var sourceQualityBonuses = map[string]float64{
	"referral":       15.0,
	"linkedin":       10.0,
	"google_organic": 8.0,
	"direct":         5.0,
	"social_media":   3.0,
	"website":        0.0,
}

func sourceQualityBonus(source string) float64 {
	return sourceQualityBonuses[source]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
