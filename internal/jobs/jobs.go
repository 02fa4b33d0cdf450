// Package jobs names the scheduled batch jobs and binds them to the store.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/easeaico/companion/internal/config"
	"github.com/easeaico/companion/internal/extraction"
	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/proactive"
	"github.com/easeaico/companion/internal/snapshot"
	"github.com/easeaico/companion/internal/storage"
)

// Job names.
const (
	Extraction = "extraction"
	Summarize  = "summarize"
	Snapshot   = "snapshot"
	Proactive  = "proactive"
)

// Func runs one batch and returns its stats. The error is non-nil only for
// batch-level failures.
type Func func(ctx context.Context) (any, error)

// Batch adapts a RunBatch method to a Func with a fixed clock and batch size.
func Batch[S any](run func(context.Context, func() time.Time, int) (S, error), now func() time.Time, batchSize int) Func {
	return func(ctx context.Context) (any, error) {
		return run(ctx, now, batchSize)
	}
}

// Deps are the shared collaborators of all jobs.
type Deps struct {
	Store  *storage.Store
	Oracle models.Oracle
	// Embedder is optional; without it insight dedupe is exact-match only.
	Embedder memory.Embedder
	Config   config.Config
	Now      func() time.Time
}

// Registry is the set of runnable jobs by name.
type Registry map[string]Func

// NewRegistry wires every job to d.
func NewRegistry(d Deps) Registry {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	cfg := d.Config

	pipeline := extraction.NewPipeline(d.Store, d.Oracle, extraction.Options{
		Embedder:        d.Embedder,
		DedupeThreshold: cfg.InsightDedupeThreshold,
	})
	summarizer := memory.NewSummarizer(d.Store.Conversations, d.Store.Messages, d.Oracle)
	synthesizer := snapshot.NewSynthesizer(snapshot.StoreSources(d.Store), d.Oracle)
	scheduler := proactive.NewScheduler(proactive.StoreSources(d.Store), d.Oracle, cfg.ProactiveDailyCap)

	return Registry{
		Extraction: Batch(pipeline.RunBatch, now, cfg.ExtractionBatchSize),
		Summarize:  Batch(summarizer.RunBatch, now, cfg.SummaryBatchSize),
		Snapshot:   Batch(synthesizer.RunBatch, now, cfg.SnapshotBatchSize),
		Proactive:  Batch(scheduler.RunBatch, now, cfg.ProactiveBatchSize),
	}
}

// Run executes the named job.
func (r Registry) Run(ctx context.Context, name string) (any, error) {
	fn, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown job %q (want one of %v)", name, r.Names())
	}
	return fn(ctx)
}

// Names returns the registered job names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
