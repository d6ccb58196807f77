package indicators

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// ReloadHook is called after every reload attempt with the snapshot that was
// installed, or the error that kept the previous one in place.
type ReloadHook func(s *Snapshot, err error)

// Store publishes the current Snapshot. Reads are lock free; reloads are
// serialised and replace the snapshot pointer atomically.
type Store struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
	hooks   []ReloadHook
	logger  *slog.Logger
}

// NewStore creates a store serving initial.
func NewStore(initial *Snapshot, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger.With("component", "indicators.store")}
	s.current.Store(initial)
	return s
}

// Current returns the snapshot to use for a new evaluation.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// OnReload registers a hook called after each reload attempt.
func (s *Store) OnReload(hook ReloadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Swap installs next and returns the previous snapshot.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Swap(next)
}

// Reload loads path and installs it. When loading or validation fails the
// current snapshot stays in place and the error is returned.
func (s *Store) Reload(path string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Load(path)
	for _, hook := range s.hooks {
		hook(next, err)
	}
	if err != nil {
		s.logger.Error("risk indicator reload failed, keeping previous configuration",
			"path", path,
			"version", s.current.Load().Version,
			"error", err,
		)
		return nil, err
	}

	prev := s.current.Swap(next)
	s.logger.Info("risk indicators reloaded",
		"path", path,
		"previous_version", prev.Version,
		"version", next.Version,
	)
	return next, nil
}
