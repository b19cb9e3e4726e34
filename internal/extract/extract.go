// Package extract runs the concurrent AI extraction pass over PDF chunks and
// merges results into a shared File Abstract.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quorumtitle/abstractor/internal/abstract"
	"github.com/quorumtitle/abstractor/internal/chunker"
	"github.com/quorumtitle/abstractor/internal/metrics"
	"github.com/quorumtitle/abstractor/internal/providers"
)

// DefaultConcurrency is the number of chunks extracted in parallel.
const DefaultConcurrency = 3

// Backoff windows after provider pushback. The chunk is dropped either way;
// the pause protects the chunks still in the queue.
const (
	rateLimitBackoff = 60 * time.Second
	overloadBackoff  = 10 * time.Second
)

// ChunkResult records what one chunk contributed to the abstract.
type ChunkResult struct {
	File        string `json:"file"`
	Pages       string `json:"pages"`
	FieldsFound int    `json:"fields_found"`
}

// Orchestrator fans chunks out to a document provider and merges whatever
// comes back. A failed chunk produces a zero-field result, never an error:
// the pipeline degrades to validation findings instead of aborting.
type Orchestrator struct {
	client      providers.DocumentClient
	merger      *abstract.Merger
	limiter     *providers.RateLimiter
	concurrency int
	logger      *slog.Logger

	// OnProgress, if set, is called after each chunk completes.
	OnProgress func(done, total int)

	// Metrics, if set, records every provider call attributed to JobID.
	Metrics *metrics.Recorder
	JobID   string
}

// NewOrchestrator wires an orchestrator around a provider client.
func NewOrchestrator(client providers.DocumentClient, merger *abstract.Merger, concurrency int, logger *slog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:      client,
		merger:      merger,
		limiter:     providers.NewRateLimiter(client.RequestsPerMinute()),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run extracts every chunk with the unified prompt and merges the results
// into a. Results come back in chunk order regardless of completion order.
// The only error returned is context cancellation.
func (o *Orchestrator) Run(ctx context.Context, chunks []chunker.Chunk, a *abstract.FileAbstract) ([]ChunkResult, error) {
	return o.run(ctx, "extract", chunks, func(chunk chunker.Chunk) string {
		return UnifiedExtractionPrompt
	}, func(chunk chunker.Chunk, parsed map[string]any) {
		o.merger.Merge(a, parsed, abstract.IsAuthoritative(chunk.Filename))
	})
}

// RunRepair re-extracts only fieldsToRepair from the given chunks, filtering
// each response down to the requested keys before merging. It returns the
// number of fields whose value changed.
func (o *Orchestrator) RunRepair(ctx context.Context, chunks []chunker.Chunk, a *abstract.FileAbstract, fieldsToRepair []string, validationErrors []string) (int, error) {
	var fixed atomic.Int64

	_, err := o.run(ctx, "repair", chunks, func(chunk chunker.Chunk) string {
		// Snapshot under the merge lock: sibling workers may be merging
		// into a while this prompt is built.
		return BuildRepairPrompt(fieldsToRepair, o.merger.Fields(a, fieldsToRepair), validationErrors)
	}, func(chunk chunker.Chunk, parsed map[string]any) {
		filtered := make(map[string]any, len(fieldsToRepair))
		for _, field := range fieldsToRepair {
			if v, ok := parsed[field]; ok && v != nil {
				filtered[field] = v
			}
		}
		if len(filtered) == 0 {
			return
		}

		before := o.merger.Fields(a, fieldsToRepair)
		o.merger.Merge(a, filtered, abstract.IsAuthoritative(chunk.Filename))
		after := o.merger.Fields(a, fieldsToRepair)

		for i := range before {
			if before[i] != after[i] {
				fixed.Add(1)
			}
		}
	})

	return int(fixed.Load()), err
}

// run is the shared worker pool. mergeFn folds a parsed response into the
// abstract; the full pass merges everything, repair merges a filtered subset.
func (o *Orchestrator) run(ctx context.Context, stage string, chunks []chunker.Chunk, promptFor func(chunker.Chunk) string, mergeFn func(chunker.Chunk, map[string]any)) ([]ChunkResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([]ChunkResult, len(chunks))
	var next, done atomic.Int64

	workers := o.concurrency
	if workers > len(chunks) {
		workers = len(chunks)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= len(chunks) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}

				chunk := chunks[i]
				parsed := o.extractChunk(ctx, stage, chunk, promptFor(chunk))

				fieldsFound := 0
				if parsed != nil {
					fieldsFound = abstract.FieldsFound(parsed)
					mergeFn(chunk, parsed)
				}

				results[i] = ChunkResult{
					File:        chunk.Filename,
					Pages:       chunk.Pages(),
					FieldsFound: fieldsFound,
				}

				completed := int(done.Add(1))
				if o.OnProgress != nil {
					o.OnProgress(completed, len(chunks))
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractChunk calls the provider once and classifies any failure. Rate
// limiting pauses the worker for a minute, overload or timeout for ten
// seconds; the chunk itself is abandoned so the pipeline keeps moving.
func (o *Orchestrator) extractChunk(ctx context.Context, stage string, chunk chunker.Chunk, prompt string) map[string]any {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil
	}

	start := time.Now()
	result, err := o.client.ExtractDocument(ctx, &providers.DocumentRequest{
		PDF:      chunk.Data,
		Filename: chunk.Filename,
		Prompt:   prompt,
		Schema:   abstract.PartialSchema,
	})
	o.record(stage, chunk, start, result, err)
	if err != nil {
		switch {
		case providers.IsRateLimited(err):
			o.logger.Warn("provider rate limited, backing off", "chunk", chunk.Label(), "backoff", rateLimitBackoff)
			o.limiter.Record429()
			sleepCtx(ctx, rateLimitBackoff)
		case providers.IsOverloaded(err), errors.Is(err, context.DeadlineExceeded):
			o.logger.Warn("provider overloaded, backing off", "chunk", chunk.Label(), "backoff", overloadBackoff)
			sleepCtx(ctx, overloadBackoff)
		default:
			o.logger.Error("extraction failed", "chunk", chunk.Label(), "error", err)
		}
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(result.ParsedJSON, &parsed); err != nil {
		o.logger.Error("provider returned non-object JSON", "chunk", chunk.Label(), "error", err)
		return nil
	}
	return parsed
}

// record attributes one provider call to the recorder, when one is set.
func (o *Orchestrator) record(stage string, chunk chunker.Chunk, start time.Time, result *providers.DocumentResult, err error) {
	if o.Metrics == nil {
		return
	}
	m := metrics.Metric{
		JobID:            o.JobID,
		Stage:            stage,
		ItemKey:          chunk.Label(),
		Provider:         o.client.Name(),
		ExecutionSeconds: time.Since(start).Seconds(),
		Success:          err == nil,
	}
	if result != nil {
		m.Model = result.ModelUsed
		m.InputTokens = result.InputTokens
		m.OutputTokens = result.OutputTokens
	}
	if err != nil {
		switch {
		case providers.IsRateLimited(err):
			m.ErrorType = "rate_limited"
		case providers.IsOverloaded(err):
			m.ErrorType = "overloaded"
		case errors.Is(err, context.DeadlineExceeded):
			m.ErrorType = "timeout"
		default:
			m.ErrorType = "error"
		}
	}
	o.Metrics.Record(m)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
