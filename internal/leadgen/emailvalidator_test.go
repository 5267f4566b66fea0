package leadgen

import (
	"context"
	"testing"
	"time"
)

func TestEmailValidatorInvalidFormat(t *testing.T) {
	v := NewEmailValidator(time.Second, time.Second, nil)
	res := v.Validate(context.Background(), "not-an-email", false)
	if res.Valid || res.Score != 0 || res.Reason != "invalid_format" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEmailValidatorDisposableDomain(t *testing.T) {
	v := NewEmailValidator(time.Second, time.Second, nil)
	res := v.Validate(context.Background(), "x@mailinator.com", false)
	if res.Valid || res.Score != 0 || res.Reason != "disposable_domain" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEmailValidatorServiceDomain(t *testing.T) {
	v := NewEmailValidator(time.Second, time.Second, nil)
	res := v.Validate(context.Background(), "noreply@sentry.io", false)
	if res.Valid || res.Reason != "service_domain" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEmailValidatorNoMXRecords(t *testing.T) {
	v := NewEmailValidator(2*time.Second, time.Second, nil)
	// A syntactically valid domain with (virtually certainly) no MX records.
	res := v.Validate(context.Background(), "person@no-mx-records-leadgen-test.invalid", false)
	if res.Valid {
		t.Fatalf("expected invalid result for a domain with no DNS presence, got %+v", res)
	}
	if res.Reason != "no_mx_records" && res.Reason != "dns_lookup_failed" {
		t.Fatalf("unexpected reason: %s", res.Reason)
	}
}

func TestEmailValidatorMonotonicity(t *testing.T) {
	// regex-fail < no-MX < dns-fail < MX-only < SMTP-verified (spec invariant).
	order := map[string]int{
		"invalid_format":   0,
		"no_mx_records":    10,
		"dns_lookup_failed": 20,
		"mx_verified":      85,
		"exists":           95,
	}
	if !(order["invalid_format"] < order["no_mx_records"] &&
		order["no_mx_records"] < order["dns_lookup_failed"] &&
		order["dns_lookup_failed"] < order["mx_verified"] &&
		order["mx_verified"] < order["exists"]) {
		t.Fatalf("validator score ordering invariant violated: %+v", order)
	}
}
