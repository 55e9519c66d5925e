package models

import "time"

// Segment processing status values
const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// SegmentResult records what the pipeline did for one segment.
type SegmentResult struct {
	Index        int     `json:"index" bson:"index"`
	Context      string  `json:"context,omitempty" bson:"context,omitempty"`
	Strategy     string  `json:"strategy" bson:"strategy"`
	FallbackUsed bool    `json:"fallback_used" bson:"fallback_used"`
	Confidence   float64 `json:"confidence" bson:"confidence"`
	Duration     float64 `json:"duration" bson:"duration"`
	Status       string  `json:"status" bson:"status"`
	Error        string  `json:"error,omitempty" bson:"error,omitempty"`
	OutputPath   string  `json:"-" bson:"-"`
}

// RunReport summarizes a full assembly run.
type RunReport struct {
	Title        string          `json:"title,omitempty" bson:"title,omitempty"`
	StartedAt    time.Time       `json:"started_at" bson:"started_at"`
	CompletedAt  time.Time       `json:"completed_at" bson:"completed_at"`
	Results      []SegmentResult `json:"results" bson:"results"`
	Produced     int             `json:"produced" bson:"produced"`
	Failed       int             `json:"failed" bson:"failed"`
	OutputPath   string          `json:"output_path,omitempty" bson:"output_path,omitempty"`
	CaptionsPath string          `json:"captions_path,omitempty" bson:"captions_path,omitempty"`
}

// Tally fills the Produced and Failed counters from Results.
func (r *RunReport) Tally() {
	r.Produced = 0
	r.Failed = 0
	for _, res := range r.Results {
		if res.Status == StatusDone {
			r.Produced++
		} else {
			r.Failed++
		}
	}
}
