package leadgen

import (
	"context"
	"strings"
)

// erpDimension is one of the four weighted scoring categories.
type erpDimension struct {
	name     string
	weight   int
	keywords []string
}

var erpDimensions = []erpDimension{
	{
		name:   "logistics",
		weight: 30,
		keywords: []string{
			"warehouse", "inventory", "logistics", "supply chain", "fulfillment",
			"distribution center", "shipping", "freight",
		},
	},
	{
		name:   "manufacturing",
		weight: 25,
		keywords: []string{
			"manufacturing", "production line", "factory", "assembly",
			"machining", "fabrication", "quality control",
		},
	},
	{
		name:   "b2b",
		weight: 25,
		keywords: []string{
			"wholesale", "b2b", "business to business", "distributor",
			"reseller", "bulk order", "trade account",
		},
	},
	{
		name:   "finance",
		weight: 20,
		keywords: []string{
			"invoicing", "accounting", "procurement", "purchase order",
			"erp", "finance department",
		},
	},
}

// ERPAnalyzer scores ERP-readiness against four keyword dimensions
// (spec.md §4.5). It generalizes the teacher's llm.LLMProvider registry
// shape without the LLM call.
type ERPAnalyzer struct {
	noExtraFetch
	sectors SectorProvider
}

// NewERPAnalyzer builds an ERP analyzer backed by the given sector source.
func NewERPAnalyzer(sectors SectorProvider) *ERPAnalyzer {
	return &ERPAnalyzer{sectors: sectors}
}

func (a *ERPAnalyzer) GenerateQueries(ctx context.Context, cfg JobConfig) ([]QuerySpec, error) {
	sectors := selectedSectors(a.sectors.Sectors("erp"), cfg.SectorKeys)
	countries := selectedOrAll(cfg.CountryKeys, defaultCountryKeys())

	var specs []QuerySpec
	for _, sector := range sectors {
		for _, countryKey := range countries {
			countryLabel, suffix := countrySuffix(countryKey)
			for _, template := range sector.Queries {
				specs = append(specs, QuerySpec{
					Query:        template + " " + suffix,
					SectorKey:    sector.Key,
					SectorLabel:  sector.Label,
					CountryKey:   countryKey,
					CountryLabel: countryLabel,
				})
			}
		}
	}
	return specs, nil
}

func (a *ERPAnalyzer) Analyze(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	text := strings.ToLower(input.Text)

	breakdown := make(map[string]interface{}, len(erpDimensions))
	total := 0
	b2bScore := 0

	for _, dim := range erpDimensions {
		hits, signals := countUniqueHits(text, dim.keywords, 5)
		score := dimensionScore(hits, dim.weight)

		breakdown[dim.name] = map[string]interface{}{
			"score":   score,
			"max":     dim.weight,
			"hits":    hits,
			"signals": signals,
		}
		total += score
		if dim.name == "b2b" {
			b2bScore = score
		}
	}

	bonusApplied := false
	if b2bScore == 0 && hasAnySuffix(input.URL, ".nl", ".be", ".de") {
		total += 2
		bonusApplied = true
	}
	breakdown["b2bBonus"] = map[string]interface{}{"applied": bonusApplied, "points": 2}

	if total > 100 {
		total = 100
	}

	return AnalyzeOutput{
		Score: total,
		AnalysisData: map[string]interface{}{
			"score":     total,
			"breakdown": breakdown,
		},
	}, nil
}

// dimensionScore implements spec.md §4.5/§8's tiered weighting:
// 0 hits -> 0, 1 -> 40%, 2 -> 70%, 3+ -> 100% of weight (rounded).
func dimensionScore(hits, weight int) int {
	switch {
	case hits >= 3:
		return weight
	case hits == 2:
		return roundPct(weight, 70)
	case hits == 1:
		return roundPct(weight, 40)
	default:
		return 0
	}
}

func roundPct(weight, pct int) int {
	return (weight*pct + 50) / 100
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// selectedSectors filters the taxonomy to the requested keys, or returns
// all of them when none were requested.
func selectedSectors(all []Sector, keys []string) []Sector {
	if len(keys) == 0 {
		return all
	}
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	var out []Sector
	for _, s := range all {
		if _, ok := wanted[s.Key]; ok {
			out = append(out, s)
		}
	}
	return out
}
