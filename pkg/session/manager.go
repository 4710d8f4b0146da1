package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/graphlab/internal/logging"
	"github.com/aretw0/graphlab/internal/runtime"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed step lock may be held.
const DefaultLockTTL = 30 * time.Second

// CreateRequest describes a new traversal session.
type CreateRequest struct {
	Graph     domain.Graph
	Algorithm domain.Algorithm
	// Start defaults to the first node of the graph.
	Start domain.NodeID
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// entry is a live session. Its engine is only touched under the session lock.
type entry struct {
	engine  *runtime.Engine
	info    domain.SessionInfo
	journal []domain.Event
}

func (e *entry) checkpoint() *domain.Checkpoint {
	return &domain.Checkpoint{
		SessionInfo: e.info,
		Journal:     e.journal,
		Engine:      e.engine.Snapshot(),
	}
}

// Manager owns the session table and serializes steps per session.
// Concurrent Step calls on one session are queued, never interleaved; calls on
// different sessions proceed in parallel.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	tableMu  sync.RWMutex
	sessions map[string]*entry

	store   ports.SessionStore      // Optional checkpoint store
	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	hooks   domain.SessionHooks
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore checkpoints every session after each step and restores sessions
// missing from memory.
func WithStore(store ports.SessionStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking. With a locker the store is treated as
// the source of truth and reloaded before every step, since another replica may
// have advanced the session.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithHooks installs lifecycle callbacks.
func WithHooks(hooks domain.SessionHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides the uuid session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a new Session Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*entry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	le, exists := m.locks[sessionID]
	if !exists {
		le = &lockEntry{}
		m.locks[sessionID] = le
	}
	le.refs++
	return le
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	le, exists := m.locks[sessionID]
	if !exists {
		return
	}

	le.refs--
	if le.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	le := m.acquire(sessionID)
	le.mu.Lock()
	defer func() {
		le.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create validates the request, builds the engine and registers the session.
// Nothing is emitted until the first Step.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (string, error) {
	algorithm, err := domain.ParseAlgorithm(string(req.Algorithm))
	if err != nil {
		return "", err
	}
	graph := req.Graph.Normalize()
	start := req.Start
	if start == "" {
		if len(graph.Nodes) == 0 {
			return "", fmt.Errorf("%w: graph has no nodes", domain.ErrInvalidInput)
		}
		start = graph.Nodes[0]
	}

	engine, err := runtime.New(graph, algorithm, start)
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	e := &entry{
		engine: engine,
		info: domain.SessionInfo{
			ID:        m.newID(),
			Algorithm: algorithm,
			Start:     start,
			Status:    domain.StatusActive,
			Graph:     engine.Graph(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		journal: []domain.Event{},
	}

	if m.store != nil {
		if err := m.store.Save(ctx, e.info.ID, e.checkpoint()); err != nil {
			return "", fmt.Errorf("failed to persist session: %w", err)
		}
	}

	m.tableMu.Lock()
	m.sessions[e.info.ID] = e
	m.tableMu.Unlock()

	m.logger.Debug("session created",
		"session_id", e.info.ID,
		"algorithm", algorithm,
		"start", start,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)
	if m.hooks.OnCreate != nil {
		info := e.info
		m.hooks.OnCreate(ctx, &info)
	}
	return e.info.ID, nil
}

// Step advances the session by one primitive action and returns its event.
// Stepping an ended session fails with domain.ErrSessionEnded.
func (m *Manager) Step(ctx context.Context, sessionID string) (domain.Event, error) {
	var (
		ev    domain.Event
		ended *domain.SessionInfo
		rec   *domain.StepRecord
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		e, err := m.lookup(ctx, sessionID, m.locker != nil)
		if err != nil {
			return err
		}
		if e.info.Status == domain.StatusEnded {
			return domain.ErrSessionEnded
		}

		began := m.now()
		before := e.engine.Snapshot()

		ev, err = e.engine.Advance()
		if err != nil {
			return err
		}
		ev.Seq = e.info.LastSeq + 1

		next := *e
		next.info.LastSeq = ev.Seq
		next.info.UpdatedAt = m.now().UTC()
		next.journal = append(e.journal, ev)
		if ev.Terminal() {
			next.info.Status = domain.StatusEnded
		}

		if m.store != nil {
			if err := m.store.Save(ctx, sessionID, next.checkpoint()); err != nil {
				// Roll the engine back so the step can be retried.
				if restored, rerr := runtime.Restore(e.info.Graph, before); rerr == nil {
					e.engine = restored
				}
				return fmt.Errorf("failed to persist step: %w", err)
			}
		}
		*e = next

		rec = &domain.StepRecord{
			SessionID: sessionID,
			Algorithm: e.info.Algorithm,
			Event:     ev,
			Duration:  m.now().Sub(began),
		}
		if ev.Terminal() {
			info := e.info
			ended = &info
		}
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}

	if m.hooks.OnStep != nil {
		m.hooks.OnStep(ctx, rec)
	}
	if ended != nil {
		m.logger.Debug("session ended", "session_id", sessionID, "last_seq", ended.LastSeq)
		if m.hooks.OnEnd != nil {
			m.hooks.OnEnd(ctx, ended)
		}
	}
	return ev, nil
}

// Get returns a copy of the session description.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	var info domain.SessionInfo
	err := m.read(ctx, sessionID, func(e *entry) {
		info = e.info
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Events returns the journaled events with seq greater than after.
func (m *Manager) Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error) {
	var events []domain.Event
	err := m.read(ctx, sessionID, func(e *entry) {
		events = make([]domain.Event, 0, len(e.journal))
		for _, ev := range e.journal {
			if ev.Seq > after {
				events = append(events, ev)
			}
		}
	})
	return events, err
}

// Adjacency returns the traversal view of the session graph.
func (m *Manager) Adjacency(ctx context.Context, sessionID string) (map[domain.NodeID][]domain.Neighbor, error) {
	var adj map[domain.NodeID][]domain.Neighbor
	err := m.read(ctx, sessionID, func(e *entry) {
		adj = e.engine.Adjacency().Map()
	})
	return adj, err
}

// Delete tears the session down, in memory and in the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.deleteLocked(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	m.deleted(ctx, sessionID)
	return nil
}

// deleteLocked removes the session. The caller holds the session lock.
func (m *Manager) deleteLocked(ctx context.Context, sessionID string) error {
	m.tableMu.Lock()
	_, inMemory := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.tableMu.Unlock()

	if m.store == nil {
		if !inMemory {
			return domain.ErrSessionNotFound
		}
		return nil
	}
	if !inMemory {
		if _, err := m.store.Load(ctx, sessionID); err != nil {
			return err
		}
	}
	return m.store.Delete(ctx, sessionID)
}

func (m *Manager) deleted(ctx context.Context, sessionID string) {
	m.logger.Debug("session deleted", "session_id", sessionID)
	if m.hooks.OnDelete != nil {
		m.hooks.OnDelete(ctx, sessionID)
	}
}

// List returns the ids of every known session, in memory or in the store, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	m.tableMu.RLock()
	for id := range m.sessions {
		seen[id] = struct{}{}
	}
	m.tableMu.RUnlock()

	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stored sessions: %w", err)
		}
		for _, id := range stored {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Sweep deletes every in-memory session whose last activity is older than
// maxIdle and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-maxIdle)

	m.tableMu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.tableMu.RUnlock()

	var errs []error
	removed := 0
	for _, id := range ids {
		// Re-checked under the session lock: a step may have landed since listing.
		swept := false
		err := m.WithLock(ctx, id, func(ctx context.Context) error {
			m.tableMu.RLock()
			e, ok := m.sessions[id]
			m.tableMu.RUnlock()
			if !ok || !e.info.UpdatedAt.Before(cutoff) {
				return nil
			}
			if err := m.deleteLocked(ctx, id); err != nil {
				return err
			}
			swept = true
			return nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if swept {
			m.deleted(ctx, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("swept idle sessions", "count", removed, "max_idle", maxIdle)
	}
	return removed, errors.Join(errs...)
}

// Store returns the checkpoint store, or nil.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// read runs fn against the session under its lock.
func (m *Manager) read(ctx context.Context, sessionID string, fn func(*entry)) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		e, err := m.lookup(ctx, sessionID, false)
		if err != nil {
			return err
		}
		fn(e)
		return nil
	})
}

// lookup returns the live session, restoring it from the store on a miss or
// when reload is set. The caller holds the session lock.
func (m *Manager) lookup(ctx context.Context, sessionID string, reload bool) (*entry, error) {
	m.tableMu.RLock()
	e, ok := m.sessions[sessionID]
	m.tableMu.RUnlock()
	if ok && !(reload && m.store != nil) {
		return e, nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}

	cp, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if ok && errors.Is(err, domain.ErrSessionNotFound) {
			// Deleted elsewhere; stop serving the stale copy.
			m.tableMu.Lock()
			delete(m.sessions, sessionID)
			m.tableMu.Unlock()
			m.logger.Debug("session evicted", "session_id", sessionID)
		}
		return nil, err
	}
	engine, err := runtime.Restore(cp.Graph, cp.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}
	journal := cp.Journal
	if journal == nil {
		journal = []domain.Event{}
	}
	e = &entry{engine: engine, info: cp.SessionInfo, journal: journal}

	m.tableMu.Lock()
	m.sessions[sessionID] = e
	m.tableMu.Unlock()

	if !ok {
		m.logger.Debug("session restored", "session_id", sessionID, "last_seq", cp.LastSeq)
	}
	return e, nil
}
