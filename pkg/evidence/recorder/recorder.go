package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/evidence"
)

// Results reported to the ResultHook.
const (
	ResultStored  = "stored"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("evidence recorder is closed")

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording.
	Enabled bool

	// AsyncBuffer is the size of the write queue. Zero writes every record
	// synchronously inside Record.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write and how long Record waits
	// for queue space.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// StoreDecision keeps the full decision JSON on the record.
	// Default: true
	StoreDecision bool

	// MaxMessageLength truncates the audit message.
	// Default: 500
	MaxMessageLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		AsyncBuffer:      1000,
		WriteTimeout:     5 * time.Second,
		StoreDecision:    true,
		MaxMessageLength: 500,
	}
}

// ResultHook observes the outcome of every record: stored, failed or
// dropped.
type ResultHook func(result string)

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithResultHook registers a hook called once per record.
func WithResultHook(hook ResultHook) Option {
	return func(r *Recorder) {
		r.hooks = append(r.hooks, hook)
	}
}

// WithClock overrides the clock used for RecordedAt.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// Recorder turns engine decisions into evidence records and writes them to
// storage. It implements engine.AuditSink.
type Recorder struct {
	storage evidence.Storage
	config  *Config
	queue   chan *evidence.Record
	hooks   []ResultHook
	clock   func() time.Time
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ engine.AuditSink = (*Recorder)(nil)

// NewRecorder creates a recorder writing to storage and starts its worker.
func NewRecorder(storage evidence.Storage, config *Config, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		clock:   time.Now,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "evidence.recorder")

	if config.AsyncBuffer > 0 {
		r.queue = make(chan *evidence.Record, config.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("evidence recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record builds the evidence record for d and queues it for writing. In
// synchronous mode the write happens before Record returns.
func (r *Recorder) Record(ctx context.Context, d *engine.Decision) error {
	if !r.config.Enabled {
		return nil
	}

	record, err := r.Build(d)
	if err != nil {
		r.report(ResultFailed)
		return evidence.NewRecorderError("", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.report(ResultDropped)
		return evidence.NewRecorderError(record.ID, ErrClosed)
	}

	if r.queue == nil {
		return r.write(ctx, record)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.queue <- record:
		return nil
	case <-timer.C:
		r.logger.Error("evidence queue full, dropping record",
			"record_id", record.ID,
			"document_id", record.DocumentID,
			"queue_capacity", r.config.AsyncBuffer,
		)
		r.report(ResultDropped)
		return evidence.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		r.report(ResultDropped)
		return evidence.NewRecorderError(record.ID, ctx.Err())
	}
}

// Build converts a decision into an evidence record.
func (r *Recorder) Build(d *engine.Decision) (*evidence.Record, error) {
	if d == nil {
		return nil, errors.New("nil decision")
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	auditCtx := make(map[string]string, len(d.Audit.Context))
	for k, v := range d.Audit.Context {
		auditCtx[k] = v
	}

	record := &evidence.Record{
		ID:                uuid.NewString(),
		DocumentID:        d.DocumentID,
		DocumentType:      string(d.DocumentType),
		Decision:          d.Audit.Decision,
		Compliant:         d.Compliant,
		Score:             d.Score,
		ScoreDefined:      d.ScoreDefined,
		ComplianceLevel:   d.ComplianceLevel,
		IssueTypes:        d.IssueTypes(),
		Message:           truncate(d.Audit.Message, r.config.MaxMessageLength),
		Context:           auditCtx,
		IndicatorsVersion: d.IndicatorsVersion,
		DecisionHash:      HashContent(data),
		EvaluatedAt:       d.EvaluatedAt.UTC(),
		RecordedAt:        r.clock().UTC(),
	}
	if record.IssueTypes == nil {
		record.IssueTypes = []string{}
	}
	if r.config.StoreDecision {
		record.DecisionJSON = data
	}
	return record, nil
}

// Close stops accepting records and waits until queued records are written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("evidence recorder shut down")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.queue:
			r.write(context.Background(), record)
		case <-r.done:
			for {
				select {
				case record := <-r.queue:
					r.write(context.Background(), record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(ctx context.Context, record *evidence.Record) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"document_id", record.DocumentID,
			"error", err,
		)
		r.report(ResultFailed)
		return evidence.NewRecorderError(record.ID, err)
	}

	duration := time.Since(start)
	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"document_id", record.DocumentID,
		"decision", record.Decision,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
	r.report(ResultStored)
	return nil
}

func (r *Recorder) report(result string) {
	for _, hook := range r.hooks {
		hook(result)
	}
}
