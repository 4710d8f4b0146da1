package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/graphlab/internal/logging"
	"github.com/aretw0/graphlab/pkg/domain"
)

// DefaultInterval is the auto-play cadence.
const DefaultInterval = 600 * time.Millisecond

// Observer is called after every applied event with the new state.
type Observer func(State, domain.Event)

// Driver steps one session at a time and folds the events into a State.
// At most one step is outstanding; concurrent requests fail with
// domain.ErrStepInFlight instead of queueing.
type Driver struct {
	mu        sync.Mutex
	state     State
	sessionID string
	inFlight  bool
	gen       uint64 // bumped by Start and Reattach; stale steps are discarded

	transport Transport
	fallback  Transport
	interval  time.Duration
	observer  Observer
	logger    *slog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithFallback sets the transport used once the primary one fails.
func WithFallback(t Transport) DriverOption {
	return func(d *Driver) {
		d.fallback = t
	}
}

// WithInterval sets the auto-play cadence.
func WithInterval(interval time.Duration) DriverOption {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithObserver registers a callback for applied events.
func WithObserver(fn Observer) DriverOption {
	return func(d *Driver) {
		d.observer = fn
	}
}

// WithLogger configures a logger for the Driver.
func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver creates a driver stepping through transport.
func NewDriver(transport Transport, opts ...DriverOption) *Driver {
	d := &Driver{
		transport: transport,
		interval:  DefaultInterval,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start binds the driver to a new session and resets state and log.
func (d *Driver) Start(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionID = sessionID
	d.state = State{}
	d.inFlight = false
	d.gen++
}

// Reattach switches to a fresh transport for the same session, for example a
// new streaming channel. Reconstructed state is kept; the in-flight flag is reset.
func (d *Driver) Reattach(t Transport) {
	d.mu.Lock()
	old := d.transport
	d.transport = t
	d.inFlight = false
	d.gen++
	d.mu.Unlock()

	if old != nil && old != t {
		if err := old.Close(); err != nil {
			d.logger.Debug("closing superseded transport", "err", err)
		}
	}
}

// State returns a copy of the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// InFlight reports whether a step is outstanding.
func (d *Driver) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Step requests one event and applies it.
//
// It fails with domain.ErrStepInFlight while another step is outstanding and
// with domain.ErrSessionEnded once the end event was applied. A malformed event
// is dropped: the state is unchanged and the error wraps domain.ErrMalformedEvent.
func (d *Driver) Step(ctx context.Context) (domain.Event, error) {
	d.mu.Lock()
	switch {
	case d.sessionID == "":
		d.mu.Unlock()
		return domain.Event{}, fmt.Errorf("%w: no session started", domain.ErrInvalidState)
	case d.state.Ended:
		d.mu.Unlock()
		return domain.Event{}, domain.ErrSessionEnded
	case d.inFlight:
		d.mu.Unlock()
		return domain.Event{}, domain.ErrStepInFlight
	}
	d.inFlight = true
	gen, sessionID, transport, lastSeq := d.gen, d.sessionID, d.transport, d.state.LastSeq()
	d.mu.Unlock()

	events, err := d.request(ctx, transport, sessionID, lastSeq)
	if err == nil {
		events = d.fillGap(ctx, transport, sessionID, lastSeq, events)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		// Start or Reattach happened meanwhile; the flag belongs to them now.
		return domain.Event{}, fmt.Errorf("%w: superseded while in flight", domain.ErrTransport)
	}
	d.inFlight = false
	if err != nil {
		if errors.Is(err, domain.ErrMalformedEvent) {
			d.logger.Warn("dropping malformed event", "session_id", sessionID, "err", err)
		}
		return domain.Event{}, err
	}

	var last domain.Event
	for _, ev := range events {
		if ev.Seq != 0 && ev.Seq <= d.state.LastSeq() {
			continue
		}
		next, err := Apply(d.state, ev)
		if err != nil {
			d.logger.Warn("dropping malformed event", "session_id", sessionID, "seq", ev.Seq, "type", ev.Type, "err", err)
			return ev, err
		}
		d.state = next
		last = ev
		if d.observer != nil {
			d.observer(d.state.Clone(), ev)
		}
	}
	return last, nil
}

// request performs the step, falling back to the secondary transport on a
// transport failure. Events the server emitted but the failed channel never
// delivered are recovered from the journal instead of stepping again.
func (d *Driver) request(ctx context.Context, t Transport, sessionID string, lastSeq int64) ([]domain.Event, error) {
	ev, err := t.Step(ctx, sessionID)
	if err == nil {
		return []domain.Event{ev}, nil
	}
	if !isTransportFailure(err) || d.fallback == nil || d.fallback == t {
		return nil, err
	}

	d.logger.Warn("transport failed, falling back", "session_id", sessionID, "err", err)
	d.mu.Lock()
	if d.transport == t {
		d.transport = d.fallback
	}
	d.mu.Unlock()
	_ = t.Close()

	if j, ok := d.fallback.(Journal); ok {
		missed, jerr := j.Events(ctx, sessionID, lastSeq)
		if jerr == nil && len(missed) > 0 {
			return missed, nil
		}
	}
	ev, err = d.fallback.Step(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return []domain.Event{ev}, nil
}

// fillGap prepends the journaled events between lastSeq and the first
// received one. A gap appears when a superseded channel still advanced the
// session after Reattach.
func (d *Driver) fillGap(ctx context.Context, t Transport, sessionID string, lastSeq int64, events []domain.Event) []domain.Event {
	if len(events) == 0 || events[0].Seq <= lastSeq+1 {
		return events
	}
	head := events[0].Seq
	for _, src := range []Transport{d.fallback, t} {
		j, ok := src.(Journal)
		if !ok {
			continue
		}
		missed, err := j.Events(ctx, sessionID, lastSeq)
		if err != nil {
			d.logger.Warn("failed to fetch missed events", "session_id", sessionID, "after", lastSeq, "err", err)
			continue
		}
		filled := make([]domain.Event, 0, len(missed)+len(events))
		for _, ev := range missed {
			if ev.Seq < head {
				filled = append(filled, ev)
			}
		}
		return append(filled, events...)
	}
	d.logger.Warn("event gap left unfilled", "session_id", sessionID, "last_seq", lastSeq, "received", head)
	return events
}

// AutoPlay steps at the configured interval until the session ends, ctx is
// done or a step fails. Ticks that find a step outstanding do nothing.
func (d *Driver) AutoPlay(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if d.ended() {
			return nil
		}
		_, err := d.Step(ctx)
		switch {
		case err == nil, errors.Is(err, domain.ErrStepInFlight), errors.Is(err, domain.ErrMalformedEvent):
		case errors.Is(err, domain.ErrSessionEnded):
			return nil
		default:
			return err
		}
		if d.ended() {
			return nil
		}
	}
}

func (d *Driver) ended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Ended
}
