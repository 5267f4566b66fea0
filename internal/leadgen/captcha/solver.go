// Package captcha provides an optional CAPTCHA-assisted unblock step for
// the search adapter: after two consecutive block detections, try solving
// the challenge once before giving up on the query entirely.
package captcha

import (
	"context"
	"fmt"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
	"leadgen-pipeline/pkg/utils"
)

// Solver solves reCAPTCHA/Turnstile challenges via an external service.
type Solver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
	IsHealthy() bool
}

// TwoCaptchaSolver implements Solver using the 2Captcha service.
type TwoCaptchaSolver struct {
	cfg    *config.Config
	client *api2captcha.Client
	logger types.Logger
}

// NewTwoCaptchaSolver builds a solver from the scraper.captcha config block.
// Returns nil if no API key is configured — callers should treat a nil
// solver as "CAPTCHA solving disabled" rather than erroring.
func NewTwoCaptchaSolver(cfg *config.Config) *TwoCaptchaSolver {
	logger := logging.GetGlobalLogger()
	if cfg.Scraper.Captcha.APIKey == "" {
		return nil
	}

	client := api2captcha.NewClient(cfg.Scraper.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.PollingInterval = 5

	return &TwoCaptchaSolver{cfg: cfg, client: client, logger: logger}
}

func (s *TwoCaptchaSolver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.cfg.Scraper.Captcha.EnableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}

	start := time.Now()
	req := (api2captcha.ReCaptcha{SiteKey: siteKey, Url: pageURL}).ToRequest()
	code, _, err := s.client.Solve(req)
	if err != nil {
		return "", fmt.Errorf("solve recaptcha: %w", err)
	}

	s.logger.Info("solved recaptcha", map[string]interface{}{
		"page_url": pageURL, "solving_time": time.Since(start).String(),
	})
	return code, nil
}

func (s *TwoCaptchaSolver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.cfg.Scraper.Captcha.EnableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}

	start := time.Now()
	req := (api2captcha.CloudflareTurnstile{SiteKey: siteKey, Url: pageURL}).ToRequest()
	code, _, err := s.client.Solve(req)
	if err != nil {
		return "", fmt.Errorf("solve turnstile: %w", err)
	}

	s.logger.Info("solved turnstile", map[string]interface{}{
		"page_url": pageURL, "solving_time": time.Since(start).String(),
	})
	return code, nil
}

// IsHealthy checks the account balance to confirm the API key still works.
func (s *TwoCaptchaSolver) IsHealthy() bool {
	balance, err := s.client.GetBalance()
	if err != nil {
		s.logger.Debug("captcha health check failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return balance >= 0
}

// Detect looks for a reCAPTCHA or Turnstile/Cloudflare challenge in page
// content and returns (found, siteKeyOrProvider).
func Detect(pageContent string) (bool, string) {
	lower := strings.ToLower(pageContent)

	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "recaptcha") {
		if key := extractSiteKey(pageContent, recaptchaKeyPatterns); key != "" {
			return true, key
		}
	}

	if strings.Contains(lower, "turnstile") || strings.Contains(lower, "cf-turnstile") {
		if key := extractSiteKey(pageContent, turnstileKeyPatterns); key != "" {
			return true, "turnstile:" + key
		}
	}

	for _, indicator := range cloudflareIndicators {
		if strings.Contains(lower, indicator) {
			if key := extractSiteKey(pageContent, turnstileKeyPatterns); key != "" {
				return true, "turnstile:" + key
			}
			return true, "cloudflare"
		}
	}

	return false, ""
}

var recaptchaKeyPatterns = []string{
	`data-sitekey="([^"]+)"`,
	`"sitekey"\s*:\s*"([^"]+)"`,
}

var turnstileKeyPatterns = []string{
	`data-sitekey="([^"]+)"[^>]*(?:turnstile|cf-turnstile)`,
	`(?:turnstile|cf-turnstile)[^>]*data-sitekey="([^"]+)"`,
	`turnstile\.render\([^)]*['"]([0-9a-zA-Z_-]{20,})['"]`,
}

var cloudflareIndicators = []string{
	"cf-challenge", "just a moment", "please wait while we verify",
	"checking your browser", "cf-browser-verification", "ray id",
}

func extractSiteKey(html string, patterns []string) string {
	for _, pattern := range patterns {
		if matches := utils.FindRegexMatch(html, pattern); len(matches) > 1 {
			key := strings.TrimSpace(matches[1])
			if len(key) > 10 {
				return key
			}
		}
	}
	return ""
}
