package leadgen

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"leadgen-pipeline/pkg/utils"
)

// emailRe is the permissive extraction pattern from spec.md §4.4 step 7.
var emailRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[a-zA-Z]{2,}`)

var assetExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js", ".woff", ".woff2"}

var serviceInfraHosts = map[string]struct{}{
	"sentry.io": {}, "wixpress.com": {}, "example.com": {}, "godaddy.com": {},
	"cloudflare.com": {}, "amazonaws.com": {}, "schema.org": {},
}

var preferredLocalParts = []string{"info", "contact", "sales", "office", "admin"}

// phonePatterns tries country-specific shapes before a generic fallback
// (spec.md §4.4 step 7).
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+31[\s.-]?\(?0?\)?[\s.-]?\d{1,3}[\s.-]?\d{3,4}[\s.-]?\d{3,4}`), // NL
	regexp.MustCompile(`\+32[\s.-]?\d{1,3}[\s.-]?\d{2,3}[\s.-]?\d{2,3}[\s.-]?\d{2,3}`),  // BE
	regexp.MustCompile(`\+49[\s.-]?\d{2,4}[\s.-]?\d{3,10}`),                              // DE
	regexp.MustCompile(`\+\d{1,3}[\s.-]?\d{4,14}`),                                       // generic fallback
}

var contactLinkRe = regexp.MustCompile(`(?i)/(contact|over-ons|about|kontakt|kontaktieren|uber-uns|over|info)[/-]?$`)

var titleSplitRe = regexp.MustCompile(`[-–—]`)

// containsFold reports whether text contains substr, case-insensitively.
func containsFold(text, substr string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(substr))
}

func normalizeDomainOrEmpty(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return utils.NormalizeDomain(u.Hostname())
}

// resolveURL joins a possibly-relative href against baseURL; returns "" on
// failure.
func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractEmails finds, filters, and ranks candidate emails from text
// (spec.md §4.4 step 7). The primary email is index 0 after ranking.
func extractEmails(text, domain string) []string {
	raw := emailRe.FindAllString(text, -1)

	seen := make(map[string]struct{})
	var candidates []string
	for _, e := range raw {
		e = strings.TrimSuffix(e, ".")
		if strings.Contains(e, "..") {
			continue
		}
		lower := strings.ToLower(e)
		if hasAnySuffix(lower, assetExtensions...) {
			continue
		}
		at := strings.LastIndex(lower, "@")
		if at < 0 {
			continue
		}
		local, host := lower[:at], lower[at+1:]
		if len(local) > 40 {
			continue
		}
		if _, ok := serviceInfraHosts[host]; ok {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		candidates = append(candidates, lower)
	}

	var domainPreferred, domainOther, external []string
	for _, e := range candidates {
		at := strings.LastIndex(e, "@")
		local, host := e[:at], e[at+1:]
		switch {
		case host == domain && isPreferredLocalPart(local):
			domainPreferred = append(domainPreferred, e)
		case host == domain:
			domainOther = append(domainOther, e)
		default:
			external = append(external, e)
		}
	}

	ranked := append(append(domainPreferred, domainOther...), external...)
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	return ranked
}

func isPreferredLocalPart(local string) bool {
	for _, p := range preferredLocalParts {
		if local == p {
			return true
		}
	}
	return false
}

// extractPhone returns the first phone-number match across the
// country-specific then generic patterns.
func extractPhone(text string) string {
	for _, pattern := range phonePatterns {
		if m := pattern.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// extractCompanyName follows the og:site_name -> <title> -> <h1> -> domain
// fallback ladder (spec.md §4.4 step 7).
func extractCompanyName(doc *goquery.Document, domain string) string {
	if v, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" && len(title) < 80 {
		parts := titleSplitRe.Split(title, 2)
		if first := strings.TrimSpace(parts[0]); first != "" {
			return first
		}
	}

	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if h1 != "" && len(h1) <= 80 {
		return h1
	}

	return domain
}

// extractDescription returns meta description (or og:description), capped
// at 300 characters (spec.md §4.4 step 7).
func extractDescription(doc *goquery.Document) string {
	desc, ok := doc.Find(`meta[name="description"]`).Attr("content")
	if !ok || strings.TrimSpace(desc) == "" {
		desc, ok = doc.Find(`meta[property="og:description"]`).Attr("content")
	}
	desc = strings.TrimSpace(desc)
	if len(desc) > 300 {
		desc = desc[:300]
	}
	return desc
}

var addressSelectors = []string{
	`[itemtype*="PostalAddress"]`, "address", ".address", ".contact-info", `[class*="adres"]`,
}

// extractAddress returns the first matching candidate block whose trimmed
// length falls in [10,200] (spec.md §4.4 step 7) — first match wins, no
// confidence scoring or multi-address disambiguation.
func extractAddress(doc *goquery.Document) string {
	for _, sel := range addressSelectors {
		found := ""
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapseWhitespace(s.Text())
			if len(text) >= 10 && len(text) <= 200 {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// collapseWhitespace replaces runs of whitespace with a single space and
// trims the result.
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// findContactLinks returns up to limit same-domain anchors whose absolute
// URL matches contactLinkRe (spec.md §4.4 step 4).
func findContactLinks(doc *goquery.Document, baseURL, domain string, limit int) []string {
	var links []string
	seen := map[string]struct{}{}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		abs := resolveURL(baseURL, href)
		if abs == "" {
			return true
		}
		if !contactLinkRe.MatchString(abs) {
			return true
		}
		if normalizeDomainOrEmpty(abs) != domain {
			return true
		}
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < limit
	})
	return links
}
