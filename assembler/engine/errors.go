package engine

import "errors"

// Error values shared across the pipeline. Wrap them with fmt.Errorf
// and %w so callers can branch with errors.Is.
var (
	// ErrBackendUnavailable marks a provider that is missing its
	// credentials or binary. Such a backend is skipped, never retried.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrCandidateRejected marks a single candidate that failed
	// download or validation. The next candidate is tried.
	ErrCandidateRejected = errors.New("candidate rejected")

	// ErrStrategyExhausted means a strategy ran out of candidates
	// before producing any usable source.
	ErrStrategyExhausted = errors.New("strategy exhausted")

	// ErrSegmentFailed means both the primary and fallback strategies
	// failed for a segment.
	ErrSegmentFailed = errors.New("segment failed")

	// ErrCompositionFailed marks an ffmpeg render that did not produce
	// playable output.
	ErrCompositionFailed = errors.New("composition failed")

	// ErrNoVisualProduced means acquisition finished with zero usable
	// sources for the segment.
	ErrNoVisualProduced = errors.New("no visual produced")

	// ErrGenerationTimeout means a scene generation job exceeded its
	// wall clock budget.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrNothingProduced aborts a run in which every segment failed.
	ErrNothingProduced = errors.New("no segments produced")
)
