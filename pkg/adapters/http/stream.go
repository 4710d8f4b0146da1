package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// CloseSuperseded is the close code sent to a channel replaced by a newer one.
const CloseSuperseded = 4000

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// channel is one open WebSocket bound to a session.
type channel struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	inFlight  atomic.Bool
	closeOnce sync.Once
}

func (c *channel) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(frame)
}

func (c *channel) writeLocked(frame []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// deliver writes the event of the outstanding step. The in-flight flag is
// cleared under the write lock, so a signal sent after the client received
// this frame is never rejected.
func (c *channel) deliver(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.inFlight.Store(false)
	return c.writeLocked(frame)
}

func (c *channel) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
}

// StreamManager tracks the single open channel of each session.
type StreamManager struct {
	mu       sync.Mutex
	channels map[string]*channel
	logger   *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		channels: make(map[string]*channel),
		logger:   logger,
	}
}

// attach registers c for sessionID and closes the channel it supersedes.
func (sm *StreamManager) attach(sessionID string, c *channel) {
	sm.mu.Lock()
	old := sm.channels[sessionID]
	sm.channels[sessionID] = c
	sm.mu.Unlock()

	if old != nil {
		sm.logger.Info("Stream superseded", "session_id", sessionID)
		old.close(CloseSuperseded, "superseded by a new channel")
	}
}

// detach forgets c if it is still the session's channel.
func (sm *StreamManager) detach(sessionID string, c *channel) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.channels[sessionID] == c {
		delete(sm.channels, sessionID)
	}
}

// Close closes the session's channel, if any.
func (sm *StreamManager) Close(sessionID string) {
	sm.mu.Lock()
	c := sm.channels[sessionID]
	delete(sm.channels, sessionID)
	sm.mu.Unlock()

	if c != nil {
		c.close(websocket.CloseNormalClosure, "session deleted")
	}
}

// Count returns the number of open channels.
func (sm *StreamManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.channels)
}

// Stream handles GET /ws/sessions/{id}.
//
// Every inbound data frame is a step signal. Each accepted signal produces
// exactly one outbound event frame; a signal received while the previous one
// is still being served is answered with a step_in_flight error frame and
// otherwise ignored. The channel stays open after the end event and closing
// it never ends the session.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := s.Sessions.Get(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Stream: upgrade failed", "session_id", sessionID, "err", err)
		return
	}

	ch := &channel{conn: conn}
	s.Streams.attach(sessionID, ch)
	s.logger.Info("Stream client connected", "session_id", sessionID)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		cancel()
		s.Streams.detach(sessionID, ch)
		ch.close(websocket.CloseNormalClosure, "")
	}()

	for {
		msgType, _, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("Stream client disconnected", "session_id", sessionID, "err", err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		if !ch.inFlight.CompareAndSwap(false, true) {
			s.logger.Debug("Stream: signal rejected, step in flight", "session_id", sessionID)
			_ = ch.write(errorFrame(domain.ErrStepInFlight))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveSignal(ctx, sessionID, ch)
		}()
	}
}

func (s *Server) serveSignal(ctx context.Context, sessionID string, ch *channel) {
	var frame []byte
	ev, err := s.Sessions.Step(ctx, sessionID)
	if err == nil {
		frame, err = EncodeEvent(ev)
	}
	if err != nil {
		if status, _ := classify(err); status == http.StatusInternalServerError {
			s.logger.Error("Stream: step failed", "session_id", sessionID, "err", err)
		}
		frame = errorFrame(err)
	}
	if err := ch.deliver(frame); err != nil {
		s.logger.Warn("Stream: write failed", "session_id", sessionID, "err", err)
	}
}

func errorFrame(err error) []byte {
	_, code := classify(err)
	frame, _ := json.Marshal(ErrorResponse{Error: err.Error(), Code: code})
	return frame
}
