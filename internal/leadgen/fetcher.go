package leadgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// RawFetcher fetches a URL and returns its raw body, satisfied by
// *fetchengine.Chain. Kept as a narrow interface here so SiteFetcher
// never imports the fetchengine package's config wiring directly.
type RawFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

const contactPolitenessDelay = 500 * time.Millisecond

// SiteFetcher visits a candidate homepage, discovers its contact page,
// runs the analyzer's FetchExtra hook, and extracts contact fields
// (spec.md §4.4 steps 1-10).
type SiteFetcher struct {
	raw    RawFetcher
	logger types.Logger
}

// NewSiteFetcher builds a SiteFetcher backed by the given fetch chain.
// Email validation is a separate driver-owned step (spec.md §4.4 step 10).
func NewSiteFetcher(raw RawFetcher) *SiteFetcher {
	return &SiteFetcher{raw: raw, logger: logging.GetGlobalLogger()}
}

// FetchFunc adapts the fetcher for Analyzer.FetchExtra, which wants
// (text, rawHTML) per URL rather than a full Lead.
func (f *SiteFetcher) FetchFunc(ctx context.Context) FetchFunc {
	return func(ctx context.Context, url string) (string, string, error) {
		html, err := f.raw.Fetch(ctx, url)
		if err != nil {
			return "", "", err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return "", html, err
		}
		return doc.Text(), html, nil
	}
}

// Fetch runs the full per-site pipeline: homepage fetch, contact-page
// discovery (up to 2 same-domain links), analyzer extra-fetch, field
// extraction, and scoring. It does not validate email or check
// MinScore/dedup — the driver applies those after Analyze returns.
func (f *SiteFetcher) Fetch(ctx context.Context, siteURL string, analyzer Analyzer, cfg JobConfig) (Lead, AnalyzeOutput, error) {
	domain := normalizeDomainOrEmpty(siteURL)
	if domain == "" {
		return Lead{}, AnalyzeOutput{}, fmt.Errorf("invalid site URL: %s", siteURL)
	}

	homeHTML, err := f.raw.Fetch(ctx, siteURL)
	if err != nil {
		return Lead{}, AnalyzeOutput{}, fmt.Errorf("fetch homepage: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homeHTML))
	if err != nil {
		return Lead{}, AnalyzeOutput{}, fmt.Errorf("parse homepage: %w", err)
	}

	combinedText := doc.Text()

	contactLinks := findContactLinks(doc, siteURL, domain, 2)
	for _, link := range contactLinks {
		select {
		case <-ctx.Done():
			return Lead{}, AnalyzeOutput{}, ctx.Err()
		case <-time.After(contactPolitenessDelay):
		}

		contactHTML, err := f.raw.Fetch(ctx, link)
		if err != nil {
			f.logger.Debug("contact page fetch failed", map[string]interface{}{"url": link, "error": err.Error()})
			continue
		}
		contactDoc, err := goquery.NewDocumentFromReader(strings.NewReader(contactHTML))
		if err != nil {
			continue
		}
		combinedText += " " + contactDoc.Text()
	}

	extra, err := analyzer.FetchExtra(ctx, siteURL, f.FetchFunc(ctx))
	if err != nil {
		f.logger.Debug("analyzer FetchExtra failed", map[string]interface{}{"url": siteURL, "error": err.Error()})
	}
	if extra.ExtraText != "" {
		combinedText += " " + extra.ExtraText
	}
	if extra.ExtraData == nil {
		extra.ExtraData = map[string]interface{}{}
	}

	emails := extractEmails(combinedText, domain)

	analysis, err := analyzer.Analyze(ctx, AnalyzeInput{
		Text:      combinedText,
		URL:       siteURL,
		Domain:    domain,
		ExtraData: extra.ExtraData,
		Emails:    emails,
	})
	if err != nil {
		return Lead{}, AnalyzeOutput{}, fmt.Errorf("analyze: %w", err)
	}

	lead := Lead{
		CompanyName:  extractCompanyName(doc, domain),
		Website:      siteURL,
		Domain:       domain,
		AllEmails:    emails,
		Phone:        extractPhone(combinedText),
		Address:      extractAddress(doc),
		Description:  extractDescription(doc),
		Score:        analysis.Score,
		AnalysisData: analysis.AnalysisData,
		FoundAt:      time.Now(),
	}
	if len(emails) > 0 {
		lead.Email = emails[0]
	}

	return lead, analysis, nil
}
