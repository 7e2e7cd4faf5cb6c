package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aweiler/vitalog/internal/normalize"
	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/snapshot"
)

// DefaultRetentionDays is the rolling window of intraday sample days
// kept past an import. Older days are purged during CleaningUp.
const DefaultRetentionDays = 75

// Store is the persistence surface the importer writes through,
// implemented by internal/store.
//
// The importer is the only merge-aware writer. It never deletes daily
// activity or weight records; the only destructive operation is the
// sample retention sweep.
type Store interface {
	GetActivityByDate(ctx context.Context, date record.Date) (*record.DailyActivity, error)
	UpsertActivity(ctx context.Context, act record.DailyActivity) error
	GetWeightByDate(ctx context.Context, date record.Date) (*record.Weight, error)
	UpsertWeight(ctx context.Context, w record.Weight) error
	ReplaceSamples(ctx context.Context, kind record.SampleKind, date record.Date, series record.SampleSeries) error
	DeleteSamplesBefore(ctx context.Context, kind record.SampleKind, cutoff record.Date) (int64, error)
}

// Importer drives one import run at a time through the state machine.
//
// Thread-safety model:
//   - Start/Commit/Abandon: call from one goroutine per run
//   - State(): safe from any goroutine
type Importer struct {
	store Store

	now           func() time.Time
	retentionDays int
	tokens        TokenGenerator
	log           *slog.Logger

	mu      sync.Mutex
	state   State
	pending *run
}

// run is the parsed-but-uncommitted state held between Start and
// Commit or Abandon.
type run struct {
	token   string
	payload payload
	log     *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock injects the "today" source used for the retention cutoff.
// Tests pin it; production uses time.Now.
func WithClock(now func() time.Time) Option {
	return func(imp *Importer) {
		imp.now = now
	}
}

// WithRetentionDays overrides the sample retention window.
// Values below 1 keep the default.
func WithRetentionDays(days int) Option {
	return func(imp *Importer) {
		if days >= 1 {
			imp.retentionDays = days
		}
	}
}

// WithTokens injects the run token generator. Tests use FixedTokens.
func WithTokens(gen TokenGenerator) Option {
	return func(imp *Importer) {
		imp.tokens = gen
	}
}

// WithLogger sets the logger that run-scoped loggers derive from.
func WithLogger(log *slog.Logger) Option {
	return func(imp *Importer) {
		imp.log = log
	}
}

// New creates an Importer writing through s.
func New(s Store, opts ...Option) *Importer {
	imp := &Importer{
		store:         s,
		now:           time.Now,
		retentionDays: DefaultRetentionDays,
		tokens:        UUIDv7Tokens{},
		log:           slog.Default(),
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// State returns the current run state.
// Thread-safe: may be called from any goroutine.
func (imp *Importer) State() State {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.state
}

func (imp *Importer) setState(s State) {
	imp.mu.Lock()
	imp.state = s
	imp.mu.Unlock()
}

// Start parses src and returns a preview for confirmation.
//
// On success the run is left in PreviewReady, holding the parsed input
// until Commit or Abandon; nothing has been persisted. On failure the
// run moves to Failed and the returned error carries an Error code.
func (imp *Importer) Start(ctx context.Context, src Source) (normalize.Preview, error) {
	imp.mu.Lock()
	switch imp.state {
	case StateIdle, StateSummarized, StateFailed:
		// A fresh run may begin.
	case StatePreviewReady:
		imp.mu.Unlock()
		return normalize.Preview{}, errors.New("a preview is pending; commit or abandon it first")
	default:
		state := imp.state
		imp.mu.Unlock()
		return normalize.Preview{}, fmt.Errorf("import already in progress (state %s)", state)
	}
	token := imp.tokens.Generate()
	log := imp.log.With("run", token, "source", src.label())
	imp.state = StateParsing
	imp.pending = nil
	imp.mu.Unlock()

	log.Info("import starting")

	pl, err := src.parse(ctx)
	if err != nil {
		imp.setState(StateFailed)
		if ctx.Err() != nil {
			return normalize.Preview{}, fmt.Errorf("parse %s: %w", src.label(), err)
		}
		log.Error("parse failed", "error", err)
		return normalize.Preview{}, classifyParse(token, src.label(), err)
	}

	// This bundle exists only to render the preview; Commit normalizes
	// again from the retained raw payload.
	preview := pl.bundle().Preview()
	if preview.IsEmpty() {
		imp.setState(StateFailed)
		log.Error("no usable records", "warnings", len(preview.Warnings))
		return preview, &Error{
			Code:     CodeNoDataFound,
			Message:  fmt.Sprintf("%s input yielded no usable records", src.label()),
			RunToken: token,
			Warnings: preview.Warnings,
		}
	}

	imp.mu.Lock()
	imp.pending = &run{token: token, payload: pl, log: log}
	imp.state = StatePreviewReady
	imp.mu.Unlock()

	log.Info("preview ready",
		"days", len(preview.Days),
		"weights", preview.Weights,
		"warnings", len(preview.Warnings),
	)
	return preview, nil
}

// Commit applies the pending preview to the store.
//
// It drives the run from PreviewReady through Summarized and returns
// the final summary. Recoverable per-record problems surface in
// Summary.Warnings. A storage failure or cancellation stops the run
// with the returned summary still counting everything written before
// the stop; after a cancellation, errors.Is(err, context.Canceled)
// holds on the returned error.
func (imp *Importer) Commit(ctx context.Context) (Summary, error) {
	imp.mu.Lock()
	if imp.state != StatePreviewReady || imp.pending == nil {
		state := imp.state
		imp.mu.Unlock()
		return Summary{}, fmt.Errorf("no pending preview to commit (state %s)", state)
	}
	r := imp.pending
	imp.pending = nil
	imp.state = StateNormalizing
	imp.mu.Unlock()

	r.log.Info("commit confirmed")
	bundle := r.payload.bundle()

	sum := Summary{Warnings: slices.Clone(bundle.Warnings)}

	imp.setState(StateMerging)
	if err := imp.mergeRecords(ctx, r, bundle, &sum); err != nil {
		imp.setState(StateFailed)
		return sum, err
	}

	imp.setState(StatePersisting)
	if err := imp.persistSamples(ctx, r, bundle, &sum); err != nil {
		imp.setState(StateFailed)
		return sum, err
	}

	imp.setState(StateCleaningUp)
	if err := imp.purgeSamples(ctx, r, &sum); err != nil {
		imp.setState(StateFailed)
		return sum, err
	}

	imp.setState(StateSummarized)
	r.log.Info("import summarized",
		"added", sum.Added,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"sample_days", sum.SampleDays,
		"purged_days", sum.PurgedSampleDays,
		"warnings", len(sum.Warnings),
	)
	return sum, nil
}

// Abandon discards a pending preview without writing anything.
// In any state other than PreviewReady it is a no-op.
func (imp *Importer) Abandon() {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.state != StatePreviewReady {
		return
	}
	if imp.pending != nil {
		imp.pending.log.Info("import abandoned")
	}
	imp.pending = nil
	imp.state = StateIdle
}

// classifyParse wraps a parse-phase failure in a coded Error.
func classifyParse(token, label string, err error) *Error {
	code := CodeMalformedInput
	if errors.Is(err, snapshot.ErrNoTables) {
		code = CodeUnsupportedSchema
	}
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf("parse %s: %v", label, err),
		RunToken: token,
		Err:      err,
	}
}
