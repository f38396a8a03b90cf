package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/itemone/internal/model"
	"github.com/rs/zerolog"
)

// Extractor defines the interface for extracting one local document
type Extractor interface {
	Extract(d model.Descriptor, path string) model.Outcome
}

// Locator maps a filing to its local document path
type Locator interface {
	Path(d model.Descriptor) (string, error)
}

// Observer is notified once per finished document
type Observer interface {
	ObserveOutcome(status model.OutcomeStatus, elapsed time.Duration)
}

// ExtractJob represents one document extraction job
type ExtractJob struct {
	Descriptor model.Descriptor
	Locator    Locator
	Extractor  Extractor
}

// Execute resolves the local path and extracts the document
func (j *ExtractJob) Execute(ctx context.Context) Result {
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return &ExtractResult{
			Descriptor: j.Descriptor,
			Outcome:    model.Failed(err),
			Elapsed:    time.Since(started),
		}
	}

	path, err := j.Locator.Path(j.Descriptor)
	if err != nil {
		return &ExtractResult{
			Descriptor: j.Descriptor,
			Outcome:    model.Failed(err),
			Elapsed:    time.Since(started),
		}
	}

	return &ExtractResult{
		Descriptor: j.Descriptor,
		Path:       path,
		Outcome:    j.Extractor.Extract(j.Descriptor, path),
		Elapsed:    time.Since(started),
	}
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	Descriptor model.Descriptor
	Path       string
	Outcome    model.Outcome
	Elapsed    time.Duration
}

// GetError returns the error from the extraction outcome
func (r *ExtractResult) GetError() error {
	return r.Outcome.Err
}

// BatchProcessor extracts many documents concurrently
type BatchProcessor struct {
	extractor   Extractor
	locator     Locator
	concurrency int
	observer    Observer
	log         zerolog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, locator Locator, concurrency int, log zerolog.Logger) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		locator:     locator,
		concurrency: concurrency,
		log:         log,
	}
}

// SetObserver registers an observer for finished documents
func (b *BatchProcessor) SetObserver(o Observer) {
	b.observer = o
}

// Process extracts every descriptor and blocks until all are done.
// Outcome i belongs to descriptor i. A job that fails in any way yields the
// empty pair for its row and never aborts the batch. Rows not yet extracted
// when ctx is cancelled come back failed with the context error.
func (b *BatchProcessor) Process(ctx context.Context, descriptors []model.Descriptor) []model.Outcome {
	if len(descriptors) == 0 {
		return []model.Outcome{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, d := range descriptors {
		pool.Submit(&ExtractJob{
			Descriptor: d,
			Locator:    b.locator,
			Extractor:  b.extractor,
		})
	}

	results := pool.Wait()

	outcomes := make([]model.Outcome, len(results))
	for i, result := range results {
		outcomes[i] = b.collect(descriptors[i], result)
	}

	return outcomes
}

// collect converts one pool result into an outcome
func (b *BatchProcessor) collect(d model.Descriptor, result Result) model.Outcome {
	var (
		outcome model.Outcome
		elapsed time.Duration
	)

	switch r := result.(type) {
	case *ExtractResult:
		outcome, elapsed = r.Outcome, r.Elapsed
		if outcome.Status == model.StatusFailed && r.Path == "" && !isContextErr(outcome.Err) {
			b.log.Warn().Err(outcome.Err).Str("symbol", d.Symbol).Str("final_link", d.FinalLink).Msg("no local path")
		}
	case nil:
		outcome = model.Failed(context.Canceled)
	default:
		outcome = model.Failed(r.GetError())
		b.log.Error().Err(r.GetError()).Str("symbol", d.Symbol).Msg("extraction job failed")
	}

	if b.observer != nil {
		b.observer.ObserveOutcome(outcome.Status, elapsed)
	}

	return outcome
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
