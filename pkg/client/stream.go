package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/gorilla/websocket"
)

// StreamTransport steps a session over its WebSocket channel.
type StreamTransport struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
}

// DialStream opens the streaming channel of sessionID on the server at baseURL
// (http:// or ws:// form).
func DialStream(ctx context.Context, baseURL, sessionID string) (*StreamTransport, error) {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u+"/ws/sessions/"+sessionID, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			var eb errorBody
			if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Error != "" {
				return nil, eb.asError()
			}
			if resp.StatusCode == http.StatusNotFound {
				return nil, domain.ErrSessionNotFound
			}
		}
		return nil, fmt.Errorf("%w: dial: %v", domain.ErrTransport, err)
	}
	return &StreamTransport{conn: conn, sessionID: sessionID}, nil
}

// Step sends one signal and waits for the answering frame.
func (t *StreamTransport) Step(ctx context.Context, sessionID string) (domain.Event, error) {
	if sessionID != t.sessionID {
		return domain.Event{}, fmt.Errorf("%w: channel is bound to session %s", domain.ErrTransport, t.sessionID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
		_ = t.conn.SetReadDeadline(deadline)
	} else {
		_ = t.conn.SetWriteDeadline(time.Time{})
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	if err := t.conn.WriteMessage(websocket.TextMessage, []byte("step")); err != nil {
		return domain.Event{}, fmt.Errorf("%w: send: %v", domain.ErrTransport, err)
	}
	_, frame, err := t.conn.ReadMessage()
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: receive: %v", domain.ErrTransport, err)
	}

	var eb errorBody
	if json.Unmarshal(frame, &eb) == nil && eb.Error != "" {
		return domain.Event{}, eb.asError()
	}
	return DecodeEvent(frame)
}

// Close closes the channel. The session is not affected.
func (t *StreamTransport) Close() error {
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}
