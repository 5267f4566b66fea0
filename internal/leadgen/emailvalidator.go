package leadgen

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"regexp"
	"strings"
	"time"
)

// ValidationResult is the outcome of EmailValidator.Validate (spec.md §4.8).
type ValidationResult struct {
	Valid  bool
	Score  int
	Reason string
}

// emailFormatRe is an explicit, RFC-lite format check (spec.md §4.8 step 1).
var emailFormatRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// disposableDomains is a curated set of known throwaway-mail providers.
var disposableDomains = map[string]struct{}{
	"mailinator.com": {}, "10minutemail.com": {}, "guerrillamail.com": {},
	"tempmail.com": {}, "temp-mail.org": {}, "throwawaymail.com": {},
	"yopmail.com": {}, "trashmail.com": {}, "getnada.com": {},
	"fakeinbox.com": {}, "sharklasers.com": {}, "dispostable.com": {},
	"maildrop.cc": {}, "mintemail.com": {}, "mailnesia.com": {},
	"mohmal.com": {}, "emailondeck.com": {}, "moakt.com": {},
	"tempinbox.com": {}, "spamgourmet.com": {}, "mytemp.email": {},
	"inboxkitten.com": {}, "crazymailing.com": {}, "mailcatch.com": {},
	"discard.email": {},
}

// servicePatterns match infra/tooling domains that are never a company's
// real contact address even though they look well-formed.
var servicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|\.)sentry\.io$`),
	regexp.MustCompile(`(^|\.)amazonaws\.com$`),
	regexp.MustCompile(`(^|\.)cloudflare\.com$`),
	regexp.MustCompile(`(^|\.)googlemail\.com$`),
	regexp.MustCompile(`(^|\.)wixpress\.com$`),
	regexp.MustCompile(`(^|\.)sentinelone\.net$`),
	regexp.MustCompile(`noreply|no-reply|donotreply`),
}

// genericLocalPartRe flags role-style mailboxes (spec.md §4.8 step 4).
var genericLocalPartRe = regexp.MustCompile(`^(info|contact|admin|support|hello|sales|noreply|no-reply|mail|office|service|help|billing|accounts?)$`)

// EmailValidator runs the staged, short-circuiting checks from spec.md §4.8.
// It has no teacher analog — grounded on the teacher's sequential,
// first-failure-wins validation style (internal/api/validation) and on the
// standard library's net/net.smtp packages, since no third-party SMTP-probe
// or MX-lookup library appears anywhere in the example pack.
type EmailValidator struct {
	mxTimeout   time.Duration
	smtpTimeout time.Duration
	resolver    *net.Resolver
	cache       *Cache
}

// NewEmailValidator builds a validator with the given lookup timeouts.
// cache may be nil to disable MX-result caching.
func NewEmailValidator(mxTimeout, smtpTimeout time.Duration, cache *Cache) *EmailValidator {
	if mxTimeout <= 0 {
		mxTimeout = 5 * time.Second
	}
	if smtpTimeout <= 0 {
		smtpTimeout = 8 * time.Second
	}
	return &EmailValidator{mxTimeout: mxTimeout, smtpTimeout: smtpTimeout, resolver: net.DefaultResolver, cache: cache}
}

// Validate never returns an error: any internal failure maps to a Reason
// string and Valid=false (spec.md §7).
func (v *EmailValidator) Validate(ctx context.Context, email string, deep bool) ValidationResult {
	email = strings.TrimSpace(email)

	if !emailFormatRe.MatchString(email) {
		return ValidationResult{Valid: false, Score: 0, Reason: "invalid_format"}
	}

	at := strings.LastIndex(email, "@")
	localPart := strings.ToLower(email[:at])
	domain := strings.ToLower(email[at+1:])

	if _, ok := disposableDomains[domain]; ok {
		return ValidationResult{Valid: false, Score: 0, Reason: "disposable_domain"}
	}

	for _, pattern := range servicePatterns {
		if pattern.MatchString(domain) || pattern.MatchString(localPart) {
			return ValidationResult{Valid: false, Score: 0, Reason: "service_domain"}
		}
	}

	generic := genericLocalPartRe.MatchString(localPart)

	mxRecords, err := v.lookupMX(ctx, domain)
	if err != nil {
		return ValidationResult{Valid: false, Score: 20, Reason: "dns_lookup_failed"}
	}
	if len(mxRecords) == 0 {
		return ValidationResult{Valid: false, Score: 10, Reason: "no_mx_records"}
	}

	if !deep {
		if generic {
			return ValidationResult{Valid: true, Score: 70, Reason: "generic_address"}
		}
		return ValidationResult{Valid: true, Score: 85, Reason: "mx_verified"}
	}

	return v.smtpProbe(ctx, email, mxRecords, generic)
}

// lookupMX resolves domain's MX records, consulting the shared cache first
// (spec.md §4.6) since the same domain's contact/info/sales addresses all
// resolve through the same MX set.
func (v *EmailValidator) lookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	cacheKey := "mx:" + domain
	if v.cache != nil {
		if cached, ok := v.cache.Get(cacheKey); ok {
			return cached.([]*net.MX), nil
		}
	}

	mxCtx, cancel := context.WithTimeout(ctx, v.mxTimeout)
	records, err := v.resolver.LookupMX(mxCtx, domain)
	cancel()
	if err != nil {
		return nil, err
	}

	if v.cache != nil {
		v.cache.Set(cacheKey, records, time.Hour)
	}
	return records, nil
}

// smtpProbe performs the handshake state machine from spec.md §4.8 step 7
// against the lowest-priority (highest Pref value) MX host.
func (v *EmailValidator) smtpProbe(ctx context.Context, email string, mxRecords []*net.MX, generic bool) ValidationResult {
	baseScore := 70
	if !generic {
		baseScore = 85
	}

	lowest := mxRecords[0]
	for _, mx := range mxRecords {
		if mx.Pref > lowest.Pref {
			lowest = mx
		}
	}

	host := strings.TrimSuffix(lowest.Host, ".")

	deadline := time.Now().Add(v.smtpTimeout)
	dialer := &net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:25", host))
	if err != nil {
		return ValidationResult{Valid: true, Score: baseScore, Reason: "smtp_inconclusive"}
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return ValidationResult{Valid: true, Score: baseScore, Reason: "smtp_inconclusive"}
	}
	defer client.Close()

	if err := client.Hello("leadgen-validator.local"); err != nil {
		return ValidationResult{Valid: true, Score: baseScore, Reason: "smtp_inconclusive"}
	}

	if err := client.Mail("verify@leadgen-validator.local"); err != nil {
		return ValidationResult{Valid: true, Score: baseScore, Reason: "smtp_inconclusive"}
	}

	err = client.Rcpt(email)
	if err == nil {
		exists := 95
		if generic {
			exists = 75
		}
		return ValidationResult{Valid: true, Score: exists, Reason: "exists"}
	}

	if isRCPTRejection(err) {
		return ValidationResult{Valid: false, Score: 15, Reason: "rejected"}
	}

	return ValidationResult{Valid: true, Score: baseScore, Reason: "smtp_inconclusive"}
}

// isRCPTRejection reports whether err carries one of the definitive
// rejection codes 550/551/553 from the RCPT TO stage.
func isRCPTRejection(err error) bool {
	msg := err.Error()
	for _, code := range []string{"550", "551", "553"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
