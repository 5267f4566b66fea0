package leadgen

import (
	"context"
	"regexp"
	"strings"
)

const maxVacancyHTMLCapture = 20 * 1024 // spec.md §4.5: cap captured HTML at 20 KB per page

var vacancyIndicatorKeywords = []string{
	"vacature", "functie", "job opening", "we zijn op zoek", "we zoeken",
	"open position", "stellenangebot",
}

var growthSignalKeywords = []string{
	"we're hiring", "we are hiring", "expanding our team", "new office",
	"recently raised", "series a", "series b", "funding round", "scaling up",
	"fast-growing", "rapid growth",
}

var hrLocalPartRe = regexp.MustCompile(`^(hr|jobs?|careers?|recruitment|vacatures?|werk|talent|people)\b`)

// hrContextRe matches HR-related terms near an email mention in page text,
// the alternative half of spec.md §4.5's HR-contact rule for addresses
// whose local part itself gives no hint (e.g. a named person's email).
var hrContextRe = regexp.MustCompile(`(?i)\b(human resources|hr manager|hr department|hr team|recruiter|recruitment team|talent acquisition|hiring manager|personeelszaken)\b`)

// hrContextWindow is how many characters of surrounding text are checked
// for an HR term on either side of an email mention.
const hrContextWindow = 120

var vacancyLinkRe = regexp.MustCompile(`(?i)/(vacatures?|jobs?|careers?|werken-bij|karriere|stellenangebote|join-us)/?`)

// atsPatterns match known applicant-tracking-system signatures embedded in
// a site's raw HTML (script/link hosts, widget markers).
var atsPatterns = []string{
	"teamtailor.com", "greenhouse.io", "lever.co", "workable.com",
	"recruitee.com", "personio.de", "smartrecruiters.com", "bamboohr.com",
	"jobvite.com", "icims.com", "breezy.hr", "homerun.co",
}

// RecruitmentAnalyzer scores recruitment appeal against five weighted
// dimensions (spec.md §4.5).
type RecruitmentAnalyzer struct {
	sectors SectorProvider
}

// NewRecruitmentAnalyzer builds a recruitment analyzer backed by sectors.
func NewRecruitmentAnalyzer(sectors SectorProvider) *RecruitmentAnalyzer {
	return &RecruitmentAnalyzer{sectors: sectors}
}

func (a *RecruitmentAnalyzer) GenerateQueries(ctx context.Context, cfg JobConfig) ([]QuerySpec, error) {
	sectors := selectedSectors(a.sectors.Sectors("recruitment"), cfg.SectorKeys)
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

// FetchExtra crawls up to two same-domain vacancy pages, concatenating
// their text and capturing raw HTML (capped) for ATS detection.
func (a *RecruitmentAnalyzer) FetchExtra(ctx context.Context, baseURL string, fetch FetchFunc) (ExtraResult, error) {
	_, homeHTML, err := fetch(ctx, baseURL)
	if err != nil {
		return ExtraResult{ExtraData: map[string]interface{}{"vacancyPageFound": false}}, nil
	}

	links := findVacancyLinks(baseURL, homeHTML, 2)

	var textBuilder strings.Builder
	var htmlBuilder strings.Builder
	htmlBuilder.WriteString(capHTML(homeHTML))

	for _, link := range links {
		text, html, err := fetch(ctx, link)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString(" ")
		htmlBuilder.WriteString(capHTML(html))
	}

	return ExtraResult{
		ExtraText: textBuilder.String(),
		ExtraData: map[string]interface{}{
			"vacancyPageFound": len(links) > 0,
			"rawHTML":          htmlBuilder.String(),
		},
	}, nil
}

func (a *RecruitmentAnalyzer) Analyze(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	text := strings.ToLower(input.Text)
	breakdown := make(map[string]interface{}, 5)
	total := 0

	vacancyFound, _ := input.ExtraData["vacancyPageFound"].(bool)
	presenceScore := 0
	if vacancyFound {
		presenceScore = 35
	}
	breakdown["vacancyPresence"] = map[string]interface{}{"score": presenceScore, "max": 35, "found": vacancyFound}
	total += presenceScore

	vacancyCount := 0
	for _, kw := range vacancyIndicatorKeywords {
		vacancyCount += strings.Count(text, kw)
	}
	if vacancyCount > 50 {
		vacancyCount = 50
	}
	countScore := vacancyCountTier(vacancyCount)
	breakdown["vacancyCount"] = map[string]interface{}{"score": countScore, "max": 25, "count": vacancyCount}
	total += countScore

	growthHits, growthSignals := countUniqueHits(text, growthSignalKeywords, 5)
	growthScore := growthTier(growthHits)
	breakdown["growthSignals"] = map[string]interface{}{"score": growthScore, "max": 20, "hits": growthHits, "signals": growthSignals}
	total += growthScore

	hrScore := 0
	hrMatch := ""
	for _, email := range input.Emails {
		at := strings.LastIndex(email, "@")
		if at < 0 {
			continue
		}
		local := strings.ToLower(email[:at])
		if hrLocalPartRe.MatchString(local) || emailNearHRContext(input.Text, email) {
			hrScore = 10
			hrMatch = email
			break
		}
	}
	breakdown["hrContact"] = map[string]interface{}{"score": hrScore, "max": 10, "match": hrMatch}
	total += hrScore

	rawHTML, _ := input.ExtraData["rawHTML"].(string)
	atsScore, atsMatch := detectATS(rawHTML)
	breakdown["atsDetected"] = map[string]interface{}{"score": atsScore, "max": 10, "match": atsMatch}
	total += atsScore

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

// vacancyCountTier implements spec.md §8's boundary table:
// 0/1/2/5/10 -> 0/5/10/18/25.
func vacancyCountTier(count int) int {
	switch {
	case count >= 10:
		return 25
	case count >= 5:
		return 18
	case count >= 2:
		return 10
	case count >= 1:
		return 5
	default:
		return 0
	}
}

func growthTier(hits int) int {
	switch {
	case hits >= 3:
		return 20
	case hits == 2:
		return 14
	case hits == 1:
		return 8
	default:
		return 0
	}
}

// emailNearHRContext reports whether an HR-related term appears within
// hrContextWindow characters of any occurrence of email in text.
func emailNearHRContext(text, email string) bool {
	lowerText := strings.ToLower(text)
	lowerEmail := strings.ToLower(email)

	for searchFrom := 0; ; {
		idx := strings.Index(lowerText[searchFrom:], lowerEmail)
		if idx < 0 {
			return false
		}
		pos := searchFrom + idx

		start := pos - hrContextWindow
		if start < 0 {
			start = 0
		}
		end := pos + len(lowerEmail) + hrContextWindow
		if end > len(lowerText) {
			end = len(lowerText)
		}
		if hrContextRe.MatchString(lowerText[start:end]) {
			return true
		}

		searchFrom = pos + len(lowerEmail)
		if searchFrom >= len(lowerText) {
			return false
		}
	}
}

func detectATS(rawHTML string) (int, string) {
	lower := strings.ToLower(rawHTML)
	for _, pattern := range atsPatterns {
		if strings.Contains(lower, pattern) {
			return 10, pattern
		}
	}
	return 0, ""
}

func capHTML(html string) string {
	if len(html) > maxVacancyHTMLCapture {
		return html[:maxVacancyHTMLCapture]
	}
	return html
}

// findVacancyLinks scans rawHTML for same-domain anchors matching
// vacancyLinkRe, returning up to limit absolute URLs.
func findVacancyLinks(baseURL, rawHTML string, limit int) []string {
	hrefRe := regexp.MustCompile(`(?i)href="([^"]+)"`)
	matches := hrefRe.FindAllStringSubmatch(rawHTML, -1)

	base := normalizeDomainOrEmpty(baseURL)
	var links []string
	seen := map[string]struct{}{}

	for _, m := range matches {
		href := m[1]
		if !vacancyLinkRe.MatchString(href) {
			continue
		}
		abs := resolveURL(baseURL, href)
		if abs == "" {
			continue
		}
		if normalizeDomainOrEmpty(abs) != base {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		if len(links) >= limit {
			break
		}
	}
	return links
}
