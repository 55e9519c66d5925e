// Package providers implements candidate acquisition backends: stock
// image search, reference footage search, media download and generative
// fallbacks. All network access for a run goes through a RunContext so
// caching and per-backend pacing are enforced in one place.
package providers

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Candidate is one acquirable visual source returned by a backend.
type Candidate struct {
	SourceID      string
	Locator       string
	Title         string
	Provider      string
	QualityRank   float64
	Authoritative bool
}

// Backend is a searchable candidate source. Search returns candidates
// best first and returns nil on any transport or parse failure.
type Backend interface {
	Name() string
	Available() bool
	MinInterval() time.Duration
	Search(ctx context.Context, query string, maxResults int) []Candidate
}

type backendClock struct {
	mu       sync.Mutex
	lastCall time.Time
}

// RunContext scopes the candidate cache and backend pacing to a single
// pipeline run. It must not outlive the run.
type RunContext struct {
	mu     sync.Mutex
	cache  map[string][]Candidate
	clocks map[string]*backendClock
}

func NewRunContext() *RunContext {
	return &RunContext{
		cache:  make(map[string][]Candidate),
		clocks: make(map[string]*backendClock),
	}
}

// Search queries a backend through the run cache. An unavailable
// backend is never invoked. Repeated identical queries are served from
// the cache, including queries that found nothing.
func (rc *RunContext) Search(ctx context.Context, b Backend, query string, maxResults int) []Candidate {
	if b == nil || !b.Available() {
		return nil
	}

	key := b.Name() + "|" + strings.ToLower(strings.TrimSpace(query)) + "|" + strconv.Itoa(maxResults)

	rc.mu.Lock()
	if hit, ok := rc.cache[key]; ok {
		rc.mu.Unlock()
		return hit
	}
	clock, ok := rc.clocks[b.Name()]
	if !ok {
		clock = &backendClock{}
		rc.clocks[b.Name()] = clock
	}
	rc.mu.Unlock()

	// Pace calls per backend, never closer than its minimum interval.
	clock.mu.Lock()
	if wait := b.MinInterval() - time.Since(clock.lastCall); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			clock.mu.Unlock()
			return nil
		}
	}
	clock.lastCall = time.Now()
	clock.mu.Unlock()

	results := b.Search(ctx, query, maxResults)

	rc.mu.Lock()
	rc.cache[key] = results
	rc.mu.Unlock()

	return results
}

// RetryPolicy retries transient failures with linear backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs op until it succeeds, attempts run out or the context ends.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(p.BaseDelay * time.Duration(i+1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
