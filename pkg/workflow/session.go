package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrConsumerAlreadyStarted = errors.New("workflow session: consumer already started")
var ErrReplaySession = errors.New("workflow session: replay sessions cannot run a consumer")

// Session binds one Store to one user-initiated run. A session either owns a
// live consumer (fresh run) or wraps a loaded snapshot (replay), never both.
type Session struct {
	Query string

	store    *Store
	registry *Registry
	consumer *Consumer
	log      *zap.Logger

	replay  bool
	started bool
	mu      sync.Mutex

	cancel     context.CancelFunc
	stopTicker sync.Once
	tickerDone chan struct{}
}

// StartNew creates a live session for the given query. The run does not
// begin until Run is called.
func StartNew(query string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	store := NewStore()
	registry := NewRegistry()
	return &Session{
		Query:      query,
		store:      store,
		registry:   registry,
		consumer:   NewConsumer(store, registry, log),
		log:        log,
		tickerDone: make(chan struct{}),
	}
}

// LoadSnapshot creates a read-only replay session. No consumer is attached
// and no timer runs; the restored run status drives the same visual state
// the live session had.
func LoadSnapshot(snap Snapshot) *Session {
	store := NewStore()
	snap.Restore(store)
	return &Session{
		Query:  snap.Query,
		store:  store,
		replay: true,
	}
}

// Run drives the consumer over the source until a terminal state, then
// stops the elapsed ticker. At most one Run per session.
func (s *Session) Run(ctx context.Context, src FrameSource) error {
	if s.replay {
		return ErrReplaySession
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrConsumerAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	go s.runTicker()
	defer s.haltTicker()

	return s.consumer.Run(ctx, src)
}

// runTicker advances elapsed time once per second while the run is live.
func (s *Session) runTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.tickerDone:
			return
		case <-ticker.C:
			s.store.TickElapsed()
		}
	}
}

func (s *Session) haltTicker() {
	s.stopTicker.Do(func() {
		if s.tickerDone != nil {
			close(s.tickerDone)
		}
	})
}

// Close cancels a live run and stops the ticker. Safe to call multiple
// times and on replay sessions.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if !s.replay {
		s.haltTicker()
	}
}

// Capture freezes the session's current state into a snapshot. Called
// synchronously after Run returns so it reads the final mutated state.
func (s *Session) Capture() Snapshot {
	return CaptureSnapshot(s.store, s.Query)
}

// Store exposes the read model backing this session.
func (s *Session) Store() *Store {
	return s.store
}

// Replay reports whether this session wraps a loaded snapshot.
func (s *Session) Replay() bool {
	return s.replay
}

// State returns the consumer lifecycle state, or a synthetic terminal state
// for replay sessions.
func (s *Session) State() ConsumerState {
	if s.replay {
		if s.store.Run().Status == RunError {
			return StateFailed
		}
		return StateCompleted
	}
	return s.consumer.State()
}
