package leadgen

import (
	"context"
	"fmt"
	"sync/atomic"
)

// driver runs one job's query->domain->lead loop to completion (spec.md
// §4.2). It generalizes the teacher's TaskManagerImpl.processTask from "one
// function call per task" to "one query at a time, N URLs fanned out per
// query, settle before advancing".
type driver struct {
	job      *Job
	analyzer Analyzer
	queries  []QuerySpec

	search   Searcher
	fetcher  Fetcher
	sink     LeadSink
	sessions SessionStore
	emailVal *EmailValidator
	tracker  *ProgressTracker
	limit    *ConcurrencyLimiter

	completedEvents int64
}

// run executes the full driver loop and always leaves the session in a
// terminal state (error, stopped, or done) before returning.
func (d *driver) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.tracker.Log(LogError, fmt.Sprintf("job panicked: %v", r))
			d.finish(ctx, "error")
		}
	}()

	d.limit = NewConcurrencyLimiter(d.job.Config.Concurrency)

	d.tracker.Start(len(d.queries))
	d.tracker.Broadcast(EventJobStarted)

	for _, query := range d.queries {
		if d.job.isStopRequested() || d.job.counters.snapshot().LeadsFound >= d.job.Config.TargetLeads {
			d.finish(ctx, "stopped")
			return
		}

		d.runQuery(ctx, query)
		d.tracker.CompletedQuery()

		if ctx.Err() != nil {
			d.finish(ctx, "stopped")
			return
		}
	}

	d.finish(ctx, "done")
}

func (d *driver) runQuery(ctx context.Context, query QuerySpec) {
	d.tracker.SetCurrent(query.SectorLabel, query.CountryLabel, "")
	d.tracker.Broadcast(EventQueryStart, map[string]interface{}{"query": query})

	result := d.search.Search(ctx, query.Query, 30, d.job.Config.UsePuppeteer)

	progressPayload := map[string]interface{}{
		"query":        query.Query,
		"resultsFound": len(result.URLs),
		"blocked":      result.Blocked,
		"source":       result.Source,
	}
	if result.Error != nil {
		progressPayload["error"] = result.Error.Error()
	}
	d.tracker.Broadcast(EventSearchProgress, progressPayload)

	if result.Error != nil {
		d.tracker.Log(LogError, fmt.Sprintf("search failed for %q: %v", query.Query, result.Error))
		d.job.counters.addError()
		return
	}
	if result.Blocked {
		d.tracker.Log(LogWarn, fmt.Sprintf("search blocked for %q", query.Query))
	}

	candidates := d.filterCandidates(result.URLs)
	d.tracker.AddDomains(len(candidates))
	d.tracker.Broadcast(EventDomainsFound, map[string]interface{}{"count": len(candidates), "query": query.Query})

	done := make(chan struct{}, len(candidates))
	for _, domainURL := range candidates {
		url := domainURL
		go func() {
			defer func() { done <- struct{}{} }()
			err := d.limit.Run(ctx, func(taskCtx context.Context) {
				if d.job.isStopRequested() {
					return
				}
				d.processCandidate(taskCtx, url, query)
			})
			if err != nil {
				d.tracker.Log(LogError, fmt.Sprintf("task for %s did not run: %v", url, err))
			}
		}()
	}
	for range candidates {
		<-done
	}
}

// filterCandidates applies the valid-TLD / noise-domain / per-job-dedup
// filter to raw search URLs (spec.md §4.2 step 4). It does not mark
// domains processed — that happens per-task just before the fetch so
// retries from parallel queries never duplicate work.
func (d *driver) filterCandidates(urls []string) []string {
	var out []string
	for _, u := range urls {
		domain := normalizeDomainOrEmpty(u)
		if domain == "" || !hasValidTLD(domain) || isNoiseDomain(domain) {
			continue
		}
		d.job.processedMu.Lock()
		_, seen := d.job.processed[domain]
		d.job.processedMu.Unlock()
		if seen {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (d *driver) processCandidate(ctx context.Context, siteURL string, query QuerySpec) {
	domain := normalizeDomainOrEmpty(siteURL)
	if domain == "" || !d.job.markProcessed(domain) {
		return
	}

	d.tracker.SetCurrent("", "", domain)

	lead, _, err := d.fetcher.Fetch(ctx, siteURL, d.analyzer, d.job.Config)
	if err != nil {
		d.tracker.Log(LogError, fmt.Sprintf("fetch failed for %s: %v", domain, err))
		d.job.counters.addError()
		d.tracker.RecordError()
		d.afterEvent(ctx)
		return
	}

	if lead.Score < d.job.Config.MinScore {
		d.tracker.Log(LogInfo, fmt.Sprintf("dropped %s: score %d below minScore %d", domain, lead.Score, d.job.Config.MinScore))
		d.tracker.CompletedDomain(false)
		d.afterEvent(ctx)
		return
	}

	if d.job.Config.EmailValidation {
		if lead.Email != "" && d.emailVal != nil {
			vr := d.emailVal.Validate(ctx, lead.Email, d.job.Config.DeepValidation)
			lead.EmailValid = vr.Valid
			lead.EmailValidationScore = vr.Score
			lead.EmailValidationReason = vr.Reason
		} else if lead.Email == "" {
			lead.EmailValidationReason = "no_email_found"
		}
	}

	insertResult, err := d.sink.InsertDeduped(ctx, &lead, d.job.TenantID, d.job.ListID)
	if err != nil {
		d.tracker.Log(LogError, fmt.Sprintf("persist failed for %s: %v", domain, err))
		d.job.counters.addError()
		d.tracker.RecordError()
		d.afterEvent(ctx)
		return
	}

	switch {
	case insertResult.Inserted:
		d.job.counters.addLeadFound()
		d.tracker.CompletedDomain(true)
		d.tracker.Broadcast(EventLead, map[string]interface{}{"lead": lead, "query": query.Query})
	case insertResult.Reason == "duplicate":
		d.job.counters.addDuplicateSkipped()
		d.tracker.CompletedDomain(false)
	default:
		d.job.counters.addError()
		d.tracker.RecordError()
	}

	d.afterEvent(ctx)
}

// afterEvent flushes session counters every 10 completed events (spec.md
// §4.2 step 6).
func (d *driver) afterEvent(ctx context.Context) {
	if atomic.AddInt64(&d.completedEvents, 1)%10 != 0 {
		return
	}
	snap := d.job.counters.snapshot()
	if err := d.sessions.Update(ctx, d.job.SessionID, snap); err != nil {
		d.tracker.Log(LogError, fmt.Sprintf("flush session counters: %v", err))
	}
}

func (d *driver) finish(ctx context.Context, status string) {
	snap := d.job.counters.snapshot()
	snap.Status = status
	_ = d.sessions.Update(ctx, d.job.SessionID, snap)

	d.tracker.SetStatus(status)

	if status == "error" {
		d.tracker.Broadcast(EventJobError, map[string]interface{}{"sessionId": d.job.SessionID})
	} else {
		d.tracker.Broadcast(EventJobDone, map[string]interface{}{"sessionId": d.job.SessionID, "status": status})
	}
}
