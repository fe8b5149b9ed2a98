package scoring

import (
	"testing"

	"leadlift_backend/internal/leads/domain"
)

func strPtr(s string) *string { return &s }

func TestScoreIsDeterministic(t *testing.T) {
	lead := domain.Lead{
		FirstName:          "Dana",
		LastName:           "Reyes",
		Email:              "dana@acme-analytics.com",
		Phone:              strPtr("+15125550100"),
		Company:            strPtr("Acme Analytics"),
		ProjectType:        domain.ProjectAnalyticsPlatform,
		Budget:             domain.Budget50K100K,
		Timeline:           domain.TimelineQuarter,
		ProjectDescription: "We need a real-time analytics dashboard with etl pipeline integration",
		Source:             "linkedin",
	}

	first := Score(lead)
	for i := 0; i < 100; i++ {
		if got := Score(lead); got != first {
			t.Fatalf("iteration %d: Score() = %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	budgets := []string{domain.BudgetUnder10K, domain.Budget25K50K, domain.Budget250KPlus, "garbage"}
	timelines := []string{domain.TimelineASAP, domain.TimelineFlexible, "garbage"}
	projectTypes := []string{domain.ProjectDataEngineering, domain.ProjectOther, "garbage"}
	descriptions := []string{
		"",
		"short",
		"kubernetes aws gcp azure cloud api integration automation microservices security compliance analytics dashboard reporting database etl pipeline urgent asap critical priority immediately enterprise global million large scale thousand users machine learning performance scalability real-time data warehouse",
	}

	for _, budget := range budgets {
		for _, timeline := range timelines {
			for _, projectType := range projectTypes {
				for _, description := range descriptions {
					lead := domain.Lead{
						Email:              "lead@example.com",
						Budget:             budget,
						Timeline:           timeline,
						ProjectType:        projectType,
						ProjectDescription: description,
						Source:             "referral",
						Company:            strPtr("Example Co"),
						Phone:              strPtr("+15125550100"),
						Website:            strPtr("https://example.com"),
					}
					r := Score(lead)
					for name, v := range map[string]float64{
						"total": r.Total, "budget": r.Budget, "timeline": r.Timeline,
						"complexity": r.Complexity, "quality": r.Quality,
					} {
						if v < 0 || v > 100 {
							t.Fatalf("%s score %v out of [0,100] for %s/%s/%s", name, v, budget, timeline, projectType)
						}
					}
				}
			}
		}
	}
}

func TestPriorityTierBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{80.00, domain.PriorityHigh},
		{79.99, domain.PriorityMedium},
		{60.00, domain.PriorityMedium},
		{59.99, domain.PriorityLow},
	}
	for _, tt := range tests {
		if got := domain.PriorityTier(tt.score); got != tt.want {
			t.Errorf("PriorityTier(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestComplexityBonusClampsAtHundred(t *testing.T) {
	r := Score(domain.Lead{
		Email:              "lead@bigco.com",
		Budget:             domain.Budget250KPlus,
		Timeline:           domain.TimelineASAP,
		ProjectType:        domain.ProjectDataEngineering,
		ProjectDescription: "We run kubernetes at enterprise scale and this is urgent",
		Source:             "referral",
	})

	// Base 100 plus keyword bonuses still clamps to 100.
	if r.Complexity != 100.0 {
		t.Fatalf("complexity = %v, want 100", r.Complexity)
	}
}

func TestHighValueLeadScenario(t *testing.T) {
	lead := domain.Lead{
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dana@acme-analytics.com",
		Phone:     strPtr("+15125550100"),
		Company:   strPtr("Acme Analytics"),
		Website:   strPtr("https://acme-analytics.com"),
		Budget:    domain.Budget250KPlus,
		Timeline:  domain.TimelineASAP,
		ProjectType: domain.ProjectDataEngineering,
		ProjectDescription: "We operate an enterprise kubernetes platform and have an urgent requirement " +
			"to consolidate three data warehouses into a single governed system with streaming " +
			"ingestion, strict latency targets, and audited access for several hundred internal " +
			"users across our global business units",
		Source:                 "referral",
		PreferredContactMethod: "both",
	}

	r := Score(lead)
	if r.Budget != 100 || r.Timeline != 100 || r.Complexity != 100 {
		t.Fatalf("sub-scores = %+v, want 100/100/100 for budget/timeline/complexity", r)
	}
	if r.Total < 95 {
		t.Fatalf("total = %v, want >= 95", r.Total)
	}
	if domain.PriorityTier(r.Total) != domain.PriorityHigh {
		t.Fatalf("tier = %q, want high", domain.PriorityTier(r.Total))
	}
}

func TestLowValueLeadScenario(t *testing.T) {
	lead := domain.Lead{
		FirstName:              "Sam",
		LastName:               "Poole",
		Email:                  "sam.poole@gmail.com",
		Budget:                 domain.BudgetUnder10K,
		Timeline:               domain.TimelineFlexible,
		ProjectType:            domain.ProjectOther,
		ProjectDescription:     "Just need something simple done",
		Source:                 "website",
		PreferredContactMethod: "email",
	}

	r := Score(lead)
	if r.Total >= 40 {
		t.Fatalf("total = %v, want < 40", r.Total)
	}
	if domain.PriorityTier(r.Total) != domain.PriorityLow {
		t.Fatalf("tier = %q, want low", domain.PriorityTier(r.Total))
	}
}

func TestQualitySignals(t *testing.T) {
	base := domain.Lead{
		Email:              "lead@gmail.com",
		Budget:             domain.Budget25K50K,
		Timeline:           domain.TimelineQuarter,
		ProjectType:        domain.ProjectWebDevelopment,
		ProjectDescription: "short",
		Source:             "website",
	}

	bare := Score(base).Quality
	if bare != 0 {
		t.Fatalf("bare quality = %v, want 0", bare)
	}

	withCompany := base
	withCompany.Company = strPtr("Acme")
	if got := Score(withCompany).Quality; got != 20 {
		t.Fatalf("company quality = %v, want 20", got)
	}

	professional := base
	professional.Email = "lead@acme.io"
	if got := Score(professional).Quality; got != 15 {
		t.Fatalf("professional email quality = %v, want 15", got)
	}

	referred := base
	referred.Source = "referral"
	if got := Score(referred).Quality; got != 15 {
		t.Fatalf("referral quality = %v, want 15", got)
	}

	phonePreference := base
	phonePreference.PreferredContactMethod = "phone"
	if got := Score(phonePreference).Quality; got != 5 {
		t.Fatalf("phone preference quality = %v, want 5", got)
	}
}
