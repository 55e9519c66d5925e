package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingBackend struct {
	name      string
	available bool
	interval  time.Duration
	calls     int
	results   []Candidate
}

func (b *countingBackend) Name() string               { return b.name }
func (b *countingBackend) Available() bool            { return b.available }
func (b *countingBackend) MinInterval() time.Duration { return b.interval }
func (b *countingBackend) Search(ctx context.Context, query string, maxResults int) []Candidate {
	b.calls++
	return b.results
}

func TestRunContextCachesQueries(t *testing.T) {
	backend := &countingBackend{
		name:      "stock",
		available: true,
		results:   []Candidate{{SourceID: "1", Provider: "stock"}},
	}
	rc := NewRunContext()
	ctx := context.Background()

	first := rc.Search(ctx, backend, "red car", 5)
	second := rc.Search(ctx, backend, "red car", 5)

	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("cached results differ: %v vs %v", first, second)
	}

	rc.Search(ctx, backend, "blue car", 5)
	if backend.calls != 2 {
		t.Errorf("backend called %d times after new query, want 2", backend.calls)
	}
}

func TestRunContextCachesEmptyResults(t *testing.T) {
	backend := &countingBackend{name: "stock", available: true}
	rc := NewRunContext()
	ctx := context.Background()

	rc.Search(ctx, backend, "nothing here", 5)
	rc.Search(ctx, backend, "nothing here", 5)

	if backend.calls != 1 {
		t.Errorf("empty result not cached, backend called %d times", backend.calls)
	}
}

func TestRunContextSkipsUnavailableBackend(t *testing.T) {
	backend := &countingBackend{name: "stock", available: false}
	rc := NewRunContext()

	if got := rc.Search(context.Background(), backend, "anything", 5); got != nil {
		t.Errorf("got %v from unavailable backend", got)
	}
	if backend.calls != 0 {
		t.Errorf("unavailable backend called %d times", backend.calls)
	}
}

func TestRunContextPacesBackendCalls(t *testing.T) {
	backend := &countingBackend{name: "stock", available: true, interval: 50 * time.Millisecond}
	rc := NewRunContext()
	ctx := context.Background()

	start := time.Now()
	rc.Search(ctx, backend, "first", 5)
	rc.Search(ctx, backend, "second", 5)
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("second call not paced, elapsed %v", elapsed)
	}
}

func TestRunContextCacheHitSkipsPacing(t *testing.T) {
	backend := &countingBackend{
		name:      "stock",
		available: true,
		interval:  time.Hour,
		results:   []Candidate{{SourceID: "1", Provider: "stock"}},
	}
	rc := NewRunContext()
	ctx := context.Background()

	rc.Search(ctx, backend, "red car", 5)

	// A repeated query must come straight from the cache without
	// touching the backend's pacing clock.
	start := time.Now()
	got := rc.Search(ctx, backend, "red car", 5)
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("cache hit waited %v on the pacing clock", elapsed)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if len(got) != 1 {
		t.Errorf("cache hit returned %d results, want 1", len(got))
	}
}

func TestBackendIntervalConfigurable(t *testing.T) {
	pexels := NewPexelsBackend("key")
	if pexels.MinInterval() != 500*time.Millisecond {
		t.Errorf("default pexels interval = %v, want 500ms", pexels.MinInterval())
	}
	pexels.Interval = 2 * time.Second
	if pexels.MinInterval() != 2*time.Second {
		t.Errorf("pexels interval = %v, want 2s", pexels.MinInterval())
	}

	unsplash := NewUnsplashBackend("key")
	unsplash.Interval = time.Second
	if unsplash.MinInterval() != time.Second {
		t.Errorf("unsplash interval = %v, want 1s", unsplash.MinInterval())
	}

	footage := NewFootageBackend(3.0)
	footage.Interval = time.Second
	if footage.MinInterval() != time.Second {
		t.Errorf("footage interval = %v, want 1s", footage.MinInterval())
	}
}

func TestRetryPolicyEventualSuccess(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryPolicyGivesUp(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("permanent")
	})

	if err == nil {
		t.Error("expected the final error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	err := policy.Do(ctx, func() error {
		attempts++
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
