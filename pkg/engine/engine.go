package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
)

// ErrNoIndicators is returned by New when no indicator store is supplied.
var ErrNoIndicators = errors.New("risk indicator store is required")

// AuditSink receives one decision per evaluation. Implementations persist the
// decision's audit record; they must not modify the decision.
type AuditSink interface {
	Record(ctx context.Context, d *Decision) error
}

// Observer is notified of every completed evaluation.
type Observer interface {
	ObserveEvaluation(d *Decision, elapsed time.Duration)
}

// Engine evaluates documents against the current indicator snapshot and
// hands each decision to an audit sink. It is safe for concurrent use.
type Engine struct {
	store       *indicators.Store
	sink        AuditSink
	observers   []Observer
	clock       func() time.Time
	defaultKind document.Kind
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAuditSink sets the sink that receives every decision.
func WithAuditSink(sink AuditSink) EngineOption {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithObserver adds an evaluation observer, such as a metrics collector.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithClock overrides the clock used when a document carries no date.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithDefaultKind sets the document kind EvaluateBytes assumes when the
// input matches neither shape. The zero value rejects such input as
// unsupported.
func WithDefaultKind(kind document.Kind) EngineOption {
	return func(e *Engine) {
		e.defaultKind = kind
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine serving the snapshots published by store.
func New(store *indicators.Store, opts ...EngineOption) (*Engine, error) {
	if store == nil || store.Current() == nil {
		return nil, ErrNoIndicators
	}

	e := &Engine{
		store:       store,
		clock:       time.Now,
		defaultKind: document.KindUnknown,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defaultKind == "" {
		e.defaultKind = document.KindUnknown
	}
	e.logger = e.logger.With("component", "engine")
	return e, nil
}

// Indicators returns the snapshot new evaluations will use.
func (e *Engine) Indicators() *indicators.Snapshot {
	return e.store.Current()
}

// Evaluate evaluates doc, notifies observers and records the decision. Audit
// failures are logged and do not affect the returned decision.
func (e *Engine) Evaluate(ctx context.Context, doc *document.Document, opts ...Option) *Decision {
	start := time.Now()
	snap := e.store.Current()

	opts = append([]Option{WithNow(e.clock())}, opts...)
	o := &evalOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.documentID == "" && doc.ID() == "" {
		opts = append(opts, WithDocumentID(uuid.NewString()))
	}

	d := Evaluate(doc, snap, opts...)
	e.finish(ctx, d, time.Since(start))
	return d
}

// EvaluateBytes decodes data and evaluates it. Input that cannot be decoded
// yields a decision with a malformed_document issue.
func (e *Engine) EvaluateBytes(ctx context.Context, data []byte, format document.Format, opts ...Option) *Decision {
	doc, err := document.ParseAs(data, format, e.defaultKind)
	if err != nil {
		start := time.Now()
		opts = append([]Option{WithNow(e.clock()), WithDocumentID(uuid.NewString())}, opts...)
		d := EvaluateMalformed(err, e.store.Current(), opts...)
		e.finish(ctx, d, time.Since(start))
		return d
	}
	return e.Evaluate(ctx, doc, opts...)
}

func (e *Engine) finish(ctx context.Context, d *Decision, elapsed time.Duration) {
	for _, o := range e.observers {
		o.ObserveEvaluation(d, elapsed)
	}

	e.logger.Debug("document evaluated",
		"document_id", d.DocumentID,
		"document_type", d.DocumentType,
		"compliant", d.Compliant,
		"score", d.Score,
		"issues", len(d.Issues),
		"indicators_version", d.IndicatorsVersion,
		"duration_ms", elapsed.Milliseconds(),
	)

	if e.sink == nil {
		return
	}
	if err := e.sink.Record(ctx, d); err != nil {
		e.logger.Error("failed to record audit entry",
			"document_id", d.DocumentID,
			"error", err,
		)
	}
}
