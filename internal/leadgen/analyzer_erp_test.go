package leadgen

import (
	"context"
	"testing"
)

type staticSectorProvider map[string][]Sector

func (s staticSectorProvider) Sectors(useCase string) []Sector { return s[useCase] }

func TestERPAnalyzerScenario(t *testing.T) {
	analyzer := NewERPAnalyzer(staticSectorProvider{})
	out, err := analyzer.Analyze(context.Background(), AnalyzeInput{
		Text: "warehouse inventory logistics",
		URL:  "https://x.nl",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Score != 32 {
		t.Fatalf("expected score 32, got %d", out.Score)
	}
	breakdown := out.AnalysisData["breakdown"].(map[string]interface{})
	logistics := breakdown["logistics"].(map[string]interface{})
	if logistics["score"] != 30 {
		t.Fatalf("expected logistics score 30, got %v", logistics["score"])
	}
	b2bBonus := breakdown["b2bBonus"].(map[string]interface{})
	if b2bBonus["applied"] != true {
		t.Fatalf("expected .nl bonus to apply when b2b score is zero")
	}
}

func TestERPDimensionScoreBoundaries(t *testing.T) {
	cases := []struct {
		hits     int
		weight   int
		expected int
	}{
		{0, 30, 0},
		{1, 30, 12}, // 40% of 30
		{2, 30, 21}, // 70% of 30
		{3, 30, 30},
		{5, 30, 30},
	}
	for _, c := range cases {
		got := dimensionScore(c.hits, c.weight)
		if got != c.expected {
			t.Fatalf("dimensionScore(%d, %d) = %d, want %d", c.hits, c.weight, got, c.expected)
		}
	}
}

func TestERPBonusOnlyWhenB2BZero(t *testing.T) {
	analyzer := NewERPAnalyzer(staticSectorProvider{})
	out, _ := analyzer.Analyze(context.Background(), AnalyzeInput{
		Text: "b2b wholesale distributor reseller",
		URL:  "https://x.nl",
	})
	breakdown := out.AnalysisData["breakdown"].(map[string]interface{})
	b2bBonus := breakdown["b2bBonus"].(map[string]interface{})
	if b2bBonus["applied"] != false {
		t.Fatalf("bonus must not apply when b2b dimension already scored")
	}
}
