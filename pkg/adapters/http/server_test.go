package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphBody = `{"nodes":[1,2,3,4],"edges":[{"u":1,"v":2},{"u":1,"v":3},{"u":2,"v":4}]}`

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	mgr := session.NewManager()
	srv := httptest.NewServer(NewHandler(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createSession(t *testing.T, base, query, body string) string {
	t.Helper()
	resp, data := do(t, http.MethodPost, base+"/sessions"+query, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var out CreateSessionResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.SessionID)
	return out.SessionID
}

// stepAllHTTP steps until the end event and returns the raw response bodies.
func stepAllHTTP(t *testing.T, base, id string) [][]byte {
	t.Helper()
	var frames [][]byte
	for i := 0; i < 1000; i++ {
		resp, data := do(t, http.MethodPost, base+"/sessions/"+id+"/step", "")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		frames = append(frames, data)
		var ev domain.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Terminal() {
			return frames
		}
	}
	t.Fatal("session did not end")
	return nil
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, data := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCreateAndStep(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL, "?algo=bfs&start=1", graphBody)

	frames := stepAllHTTP(t, srv.URL, id)
	require.Len(t, frames, 17)
	assert.JSONEq(t, `{"seq":1,"type":"start","data":{}}`, string(frames[0]))
	assert.JSONEq(t, `{"seq":2,"type":"queue_push","data":{"queue":["1"]}}`, string(frames[1]))
	assert.JSONEq(t, `{"seq":17,"type":"end","data":{}}`, string(frames[16]))

	t.Run("step after end is a conflict", func(t *testing.T) {
		resp, data := do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/step", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, string(data), `"code":"session_ended"`)
	})

	t.Run("session info", func(t *testing.T) {
		resp, data := do(t, http.MethodGet, srv.URL+"/sessions/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var info domain.SessionInfo
		require.NoError(t, json.Unmarshal(data, &info))
		assert.Equal(t, domain.StatusEnded, info.Status)
		assert.Equal(t, int64(17), info.LastSeq)
	})

	t.Run("journal", func(t *testing.T) {
		resp, data := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/events?after=15", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var events []domain.Event
		require.NoError(t, json.Unmarshal(data, &events))
		require.Len(t, events, 2)
		assert.Equal(t, int64(16), events[0].Seq)
		assert.Equal(t, domain.EventEnd, events[1].Type)

		resp, _ = do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/events?after=x", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreateSession_Defaults(t *testing.T) {
	srv, mgr := newTestServer(t)
	id := createSession(t, srv.URL, "", `{"nodes":["b","a"],"edges":[],"algorithm":"dfs"}`)

	info, err := mgr.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmDFS, info.Algorithm)
	assert.Equal(t, domain.NodeID("b"), info.Start)
}

func TestCreateSession_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name  string
		query string
		body  string
	}{
		{"malformed json", "", `{"nodes":`},
		{"no nodes", "", `{"nodes":[],"edges":[]}`},
		{"unknown algorithm", "?algo=astar", graphBody},
		{"unknown start", "?start=9", graphBody},
		{"dangling edge", "", `{"nodes":["a"],"edges":[{"u":"a","v":"b"}]}`},
		{"negative weight", "?algo=dijkstra", `{"weighted":true,"nodes":["a","b"],"edges":[{"u":"a","v":"b","w":-2}]}`},
		{"empty edge endpoint", "", `{"nodes":["a"],"edges":[{"u":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, srv.URL+"/sessions"+tt.query, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, "invalid_input", body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}

	resp, data := do(t, http.MethodGet, srv.URL+"/sessions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/sessions/nope/step"},
		{http.MethodGet, "/sessions/nope"},
		{http.MethodGet, "/sessions/nope/events"},
		{http.MethodGet, "/sessions/nope/adj"},
		{http.MethodDelete, "/sessions/nope"},
		{http.MethodGet, "/ws/sessions/nope"},
	} {
		resp, data := do(t, tc.method, srv.URL+tc.path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tc.method, tc.path)
		assert.Contains(t, string(data), "session_not_found")
	}
}

func TestAdjacency(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL, "", `{"directed":true,"weighted":true,"nodes":["a","b"],"edges":[{"u":"a","v":"b","w":2.5}]}`)

	resp, data := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/adj", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"a":[{"to":"b","w":2.5}],"b":[]}`, string(data))
}

func TestListAndDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	a := createSession(t, srv.URL, "", graphBody)
	b := createSession(t, srv.URL, "", graphBody)

	resp, data := do(t, http.MethodGet, srv.URL+"/sessions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.ElementsMatch(t, []string{a, b}, ids)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/sessions/"+a, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/sessions/"+a, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, data := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(data, []byte("go_goroutines")))
}

func TestClassify(t *testing.T) {
	status, code := classify(domain.ErrStepInFlight)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "step_in_flight", code)

	status, _ = classify(io.EOF)
	assert.Equal(t, http.StatusInternalServerError, status)
}
