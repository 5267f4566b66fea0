package leadsink

import "testing"

import "context"

import "leadgen-pipeline/internal/leadgen"

func TestMemoryLeadSinkDedupesByTenantAndDomain(t *testing.T) {
	sink := NewMemoryLeadSink()
	ctx := context.Background()

	lead := &leadgen.Lead{Domain: "acme.com", CompanyName: "Acme"}

	res, err := sink.InsertDeduped(ctx, lead, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Inserted {
		t.Fatalf("expected first insert to succeed, got %+v", res)
	}

	res, err = sink.InsertDeduped(ctx, lead, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted || res.Reason != "duplicate" {
		t.Fatalf("expected duplicate on repeat insert, got %+v", res)
	}

	res, err = sink.InsertDeduped(ctx, lead, "tenant-b", "list-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Inserted {
		t.Fatalf("expected insert to succeed for a different tenant, got %+v", res)
	}
}

func TestMemoryLeadSinkRejectsEmptyDomain(t *testing.T) {
	sink := NewMemoryLeadSink()
	res, err := sink.InsertDeduped(context.Background(), &leadgen.Lead{}, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted || res.Reason != "invalid_domain" {
		t.Fatalf("expected invalid_domain, got %+v", res)
	}
}

func TestMemoryLeadSinkList(t *testing.T) {
	sink := NewMemoryLeadSink()
	ctx := context.Background()

	sink.InsertDeduped(ctx, &leadgen.Lead{Domain: "acme.com"}, "tenant-a", "list-1")
	sink.InsertDeduped(ctx, &leadgen.Lead{Domain: "beta.com"}, "tenant-a", "list-1")
	sink.InsertDeduped(ctx, &leadgen.Lead{Domain: "gamma.com"}, "tenant-b", "list-1")

	leads := sink.List("tenant-a")
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads for tenant-a, got %d", len(leads))
	}
}
