// Package metrics provides in-memory usage tracking for extraction calls.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Metric is a single recorded extraction call.
type Metric struct {
	// Attribution (for filtering/aggregation)
	JobID   string `json:"job_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	ItemKey string `json:"item_key,omitempty"` // e.g., "chunk_03"

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Tokens
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	// Timing
	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`

	// Status
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ProviderSummary aggregates calls for a single provider.
type ProviderSummary struct {
	Calls            int     `json:"calls"`
	Failures         int     `json:"failures"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	ExecutionSeconds float64 `json:"execution_seconds"`
}

// Summary aggregates all recorded calls.
type Summary struct {
	TotalCalls       int                        `json:"total_calls"`
	Failures         int                        `json:"failures"`
	InputTokens      int                        `json:"input_tokens"`
	OutputTokens     int                        `json:"output_tokens"`
	ExecutionSeconds float64                    `json:"execution_seconds"`
	Providers        map[string]ProviderSummary `json:"providers"`
}

// Recorder collects metrics for the lifetime of the server process.
// All methods are safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	records []Metric
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a metric, stamping CreatedAt if unset.
func (r *Recorder) Record(m Metric) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.mu.Lock()
	r.records = append(r.records, m)
	r.mu.Unlock()
}

// Records returns a copy of all recorded metrics in insertion order.
func (r *Recorder) Records() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metric, len(r.records))
	copy(out, r.records)
	return out
}

// ForJob returns all metrics recorded for a job.
func (r *Recorder) ForJob(jobID string) []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Metric
	for _, m := range r.records {
		if m.JobID == jobID {
			out = append(out, m)
		}
	}
	return out
}

// Summary aggregates all recorded metrics.
func (r *Recorder) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{Providers: make(map[string]ProviderSummary)}
	for _, m := range r.records {
		s.TotalCalls++
		s.InputTokens += m.InputTokens
		s.OutputTokens += m.OutputTokens
		s.ExecutionSeconds += m.ExecutionSeconds
		if !m.Success {
			s.Failures++
		}

		p := s.Providers[m.Provider]
		p.Calls++
		p.InputTokens += m.InputTokens
		p.OutputTokens += m.OutputTokens
		p.ExecutionSeconds += m.ExecutionSeconds
		if !m.Success {
			p.Failures++
		}
		s.Providers[m.Provider] = p
	}
	return s
}

// JobIDs returns the distinct job IDs seen, sorted.
func (r *Recorder) JobIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for _, m := range r.records {
		if m.JobID != "" {
			seen[m.JobID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset discards all recorded metrics.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
