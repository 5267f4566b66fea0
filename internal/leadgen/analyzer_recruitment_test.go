package leadgen

import (
	"context"
	"testing"
)

func TestRecruitmentAnalyzerScenario(t *testing.T) {
	analyzer := NewRecruitmentAnalyzer(staticSectorProvider{})

	text := "vacature vacature vacature vacature vacature vacature we're hiring expanding our team"
	out, err := analyzer.Analyze(context.Background(), AnalyzeInput{
		Text:   text,
		URL:    "https://acme.nl",
		Emails: []string{"jobs@acme.nl"},
		ExtraData: map[string]interface{}{
			"vacancyPageFound": true,
			"rawHTML":          `<script src="https://app.teamtailor.com/widget.js"></script>`,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Score != 87 {
		t.Fatalf("expected score 87, got %d", out.Score)
	}

	breakdown := out.AnalysisData["breakdown"].(map[string]interface{})
	if breakdown["vacancyPresence"].(map[string]interface{})["score"] != 35 {
		t.Fatalf("expected vacancyPresence score 35")
	}
	if breakdown["vacancyCount"].(map[string]interface{})["score"] != 18 {
		t.Fatalf("expected vacancyCount score 18 for 6 hits")
	}
	if breakdown["growthSignals"].(map[string]interface{})["score"] != 14 {
		t.Fatalf("expected growthSignals score 14 for 2 hits")
	}
	if breakdown["hrContact"].(map[string]interface{})["score"] != 10 {
		t.Fatalf("expected hrContact score 10")
	}
	if breakdown["atsDetected"].(map[string]interface{})["score"] != 10 {
		t.Fatalf("expected atsDetected score 10")
	}
}

func TestVacancyCountTierBoundaries(t *testing.T) {
	cases := []struct{ count, expected int }{
		{0, 0}, {1, 5}, {2, 10}, {5, 18}, {10, 25}, {20, 25},
	}
	for _, c := range cases {
		if got := vacancyCountTier(c.count); got != c.expected {
			t.Fatalf("vacancyCountTier(%d) = %d, want %d", c.count, got, c.expected)
		}
	}
}

func TestGrowthTierBoundaries(t *testing.T) {
	cases := []struct{ hits, expected int }{
		{0, 0}, {1, 8}, {2, 14}, {3, 20}, {5, 20},
	}
	for _, c := range cases {
		if got := growthTier(c.hits); got != c.expected {
			t.Fatalf("growthTier(%d) = %d, want %d", c.hits, got, c.expected)
		}
	}
}
