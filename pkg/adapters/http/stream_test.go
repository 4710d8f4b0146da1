package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowSessions delays every step so a second signal lands while the first is served.
type slowSessions struct {
	*session.Manager
	delay time.Duration
}

func (s *slowSessions) Step(ctx context.Context, id string) (domain.Event, error) {
	time.Sleep(s.delay)
	return s.Manager.Step(ctx, id)
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + id
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, id), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func TestStream_StepsUntilEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL, "?algo=dijkstra", `{"weighted":true,"nodes":["A","B","C"],"edges":[{"u":"A","v":"B","w":1},{"u":"B","v":"C","w":1}]}`)
	conn := dial(t, srv, id)

	var last domain.Event
	for i := 0; i < 100 && !last.Terminal(); i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("step")))
		require.NoError(t, json.Unmarshal(readFrame(t, conn), &last))
		assert.Equal(t, int64(i+1), last.Seq)
	}
	require.True(t, last.Terminal())

	// The channel stays open; further signals are answered with an error frame.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("step")))
	var frame ErrorResponse
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &frame))
	assert.Equal(t, "session_ended", frame.Code)
}

func TestStream_TransportEquivalence(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, algo := range []string{"bfs", "dfs", "dijkstra"} {
		t.Run(algo, func(t *testing.T) {
			body := `{"weighted":true,"nodes":[1,2,3,4,5],"edges":[{"u":1,"v":2,"w":4},{"u":1,"v":3,"w":1},{"u":3,"v":2,"w":1},{"u":2,"v":4,"w":2},{"u":4,"v":5}]}`
			viaHTTP := stepAllHTTP(t, srv.URL, createSession(t, srv.URL, "?algo="+algo, body))

			conn := dial(t, srv, createSession(t, srv.URL, "?algo="+algo, body))
			var viaStream [][]byte
			for range viaHTTP {
				require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{}")))
				viaStream = append(viaStream, readFrame(t, conn))
			}

			require.Len(t, viaStream, len(viaHTTP))
			for i := range viaHTTP {
				var h, s domain.Event
				require.NoError(t, json.Unmarshal(viaHTTP[i], &h))
				require.NoError(t, json.Unmarshal(viaStream[i], &s))
				assert.Equal(t, h.Type, s.Type)
				assert.Equal(t, string(h.Data), string(s.Data), "payload %d differs", i)
			}
		})
	}
}

func TestStream_RejectsSignalInFlight(t *testing.T) {
	mgr := session.NewManager()
	srv := httptest.NewServer(NewHandler(&slowSessions{Manager: mgr, delay: 300 * time.Millisecond}))
	t.Cleanup(srv.Close)

	id := createSession(t, srv.URL, "", graphBody)
	conn := dial(t, srv, id)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("step")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("step")))

	var rejected ErrorResponse
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &rejected))
	assert.Equal(t, "step_in_flight", rejected.Code)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &ev))
	assert.Equal(t, domain.EventStart, ev.Type)
	assert.Equal(t, int64(1), ev.Seq)

	// The rejected signal was not queued.
	info, err := mgr.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.LastSeq)
}

func TestStream_NewChannelSupersedesOld(t *testing.T) {
	srv, mgr := newTestServer(t)
	id := createSession(t, srv.URL, "", graphBody)

	first := dial(t, srv, id)
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte("step")))
	readFrame(t, first)

	second := dial(t, srv, id)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseSuperseded), "got %v", err)

	// The session continues on the new channel.
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte("step")))
	var ev domain.Event
	require.NoError(t, json.Unmarshal(readFrame(t, second), &ev))
	assert.Equal(t, int64(2), ev.Seq)

	// Closing the channel does not end the session.
	require.NoError(t, second.Close())
	info, err := mgr.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, info.Status)
}
