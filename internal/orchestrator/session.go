package orchestrator

import (
	"context"
	stderrors "errors"
	"sync"

	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/models"
	"property-browser/internal/sorting"

	"github.com/google/uuid"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// ErrSuperseded is returned to a caller whose load finished after a newer
// load was issued. Its result was discarded.
var ErrSuperseded = stderrors.New("load superseded by a newer request")

// View is an immutable snapshot of a Session.
type View struct {
	SessionID     string            `json:"sessionId"`
	State         State             `json:"state"`
	Properties    []models.Property `json:"properties"`
	Filters       models.FilterSpec `json:"filters"`
	Sort          sorting.Key       `json:"sortBy"`
	Err           error             `json:"-"`
	Seq           uint64            `json:"seq"`
	ActiveFilters int               `json:"activeFilters"`
}

// Session holds the browse state for one user. Methods are safe for
// concurrent use; when loads overlap the last one issued wins and the earlier
// one's context is cancelled.
type Session struct {
	id     string
	orch   *Orchestrator
	logger logger.Logger

	mu      sync.Mutex
	state   State
	raw     []models.Property
	sorted  []models.Property
	filters models.FilterSpec
	sortKey sorting.Key
	err     error
	seq     uint64
	cancel  context.CancelFunc
}

// NewSession starts an idle session with the default sort.
func (o *Orchestrator) NewSession() *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		orch:    o,
		logger:  o.logger.WithFields(map[string]interface{}{"sessionId": id}),
		state:   StateIdle,
		sortKey: sorting.Default,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Load runs the initial query with the current filters.
func (s *Session) Load(ctx context.Context) (View, error) {
	s.mu.Lock()
	spec := s.filters
	s.mu.Unlock()
	return s.load(ctx, spec)
}

// SetFilters replaces the filters and reloads.
func (s *Session) SetFilters(ctx context.Context, spec models.FilterSpec) (View, error) {
	return s.load(ctx, spec.Normalize())
}

// ClearFilters drops every filter and reloads the full listing.
func (s *Session) ClearFilters(ctx context.Context) (View, error) {
	return s.load(ctx, models.FilterSpec{})
}

// Retry reloads with the filters of the last attempt.
func (s *Session) Retry(ctx context.Context) (View, error) {
	return s.Load(ctx)
}

// SetSort changes the order. Loaded results are re-sorted in place without
// querying the store again. An unknown key is rejected with VALIDATION_FAILED
// and the current order is kept; an empty key selects the default.
func (s *Session) SetSort(key sorting.Key) (View, error) {
	parsed, err := sorting.ParseKey(string(key))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		return s.snapshotLocked(), err
	}
	s.sortKey = parsed
	if s.state == StateReady {
		s.sorted = sorting.Sort(s.raw, parsed)
	}
	return s.snapshotLocked(), nil
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels any in-flight load.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) snapshotLocked() View {
	var props []models.Property
	if s.sorted != nil {
		props = make([]models.Property, len(s.sorted))
		copy(props, s.sorted)
	}
	return View{
		SessionID:     s.id,
		State:         s.state,
		Properties:    props,
		Filters:       s.filters,
		Sort:          s.sortKey,
		Err:           s.err,
		Seq:           s.seq,
		ActiveFilters: s.filters.ActiveCount(),
	}
}

func (s *Session) load(ctx context.Context, spec models.FilterSpec) (View, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.filters = spec
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()
	defer cancel()

	props, err := s.orch.fetch(loadCtx, spec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		metrics.QueryOutcomes.WithLabelValues(modeFor(spec), OutcomeStale).Inc()
		s.logger.Debug("discarding stale result", map[string]interface{}{
			"seq":    seq,
			"latest": s.seq,
		})
		return s.snapshotLocked(), ErrSuperseded
	}
	s.cancel = nil

	if err != nil {
		s.state = StateFailed
		s.err = err
		s.raw = nil
		s.sorted = nil
		s.logger.Warn("load failed", map[string]interface{}{"seq": seq, "error": err})
		return s.snapshotLocked(), err
	}

	s.state = StateReady
	s.raw = props
	s.sorted = sorting.Sort(props, s.sortKey)
	return s.snapshotLocked(), nil
}
