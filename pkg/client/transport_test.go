package client_test

import (
	"context"
	"net/http/httptest"
	"testing"

	graphhttp "github.com/aretw0/graphlab/pkg/adapters/http"
	"github.com/aretw0/graphlab/pkg/client"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *client.HTTPTransport) {
	t.Helper()
	srv := httptest.NewServer(graphhttp.NewHandler(session.NewManager()))
	t.Cleanup(srv.Close)
	api := client.NewHTTPTransport(srv.URL)
	t.Cleanup(func() { _ = api.Close() })
	return srv, api
}

func TestHTTPTransport_Session(t *testing.T) {
	_, api := newServer(t)
	ctx := context.Background()

	id, err := api.Create(ctx, client.CreateRequest{Graph: weightedGraph(), Algorithm: domain.AlgorithmDijkstra, Start: "A"})
	require.NoError(t, err)

	d := client.NewDriver(api)
	d.Start(id)
	for !d.State().Ended {
		_, err := d.Step(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 4.0, d.State().Dist["D"])

	_, err = api.Step(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionEnded)

	events, err := api.Events(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, d.State().EventLog, events)

	info, err := api.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, info.Status)

	ids, err := api.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	require.NoError(t, api.Delete(ctx, id))
	_, err = api.Step(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHTTPTransport_Errors(t *testing.T) {
	_, api := newServer(t)
	ctx := context.Background()

	_, err := api.Create(ctx, client.CreateRequest{Graph: weightedGraph(), Start: "Z"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	unreachable := client.NewHTTPTransport("http://127.0.0.1:1")
	_, err = unreachable.Step(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestStreamTransport(t *testing.T) {
	srv, api := newServer(t)
	ctx := context.Background()

	id, err := api.Create(ctx, client.CreateRequest{Graph: weightedGraph(), Algorithm: domain.AlgorithmBFS})
	require.NoError(t, err)

	stream, err := client.DialStream(ctx, srv.URL, id)
	require.NoError(t, err)

	d := client.NewDriver(stream, client.WithFallback(api))
	d.Start(id)
	for i := 0; i < 3; i++ {
		_, err := d.Step(ctx)
		require.NoError(t, err)
	}

	// A new channel supersedes the old one without losing state.
	fresh, err := client.DialStream(ctx, srv.URL, id)
	require.NoError(t, err)
	d.Reattach(fresh)
	for !d.State().Ended {
		_, err := d.Step(ctx)
		require.NoError(t, err)
	}

	s := d.State()
	for i, ev := range s.EventLog {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, []domain.NodeID{"A", "B", "C", "D"}, s.Visited)
	require.NoError(t, fresh.Close())
}

func TestStreamTransport_FallsBackWhenChannelDrops(t *testing.T) {
	srv, api := newServer(t)
	ctx := context.Background()

	id, err := api.Create(ctx, client.CreateRequest{Graph: weightedGraph()})
	require.NoError(t, err)

	stream, err := client.DialStream(ctx, srv.URL, id)
	require.NoError(t, err)
	d := client.NewDriver(stream, client.WithFallback(api))
	d.Start(id)

	_, err = d.Step(ctx)
	require.NoError(t, err)

	// Another client takes the channel over and steps; ours is closed by the
	// server, so the driver falls back and recovers that step from the journal.
	other, err := client.DialStream(ctx, srv.URL, id)
	require.NoError(t, err)
	defer other.Close()
	_, err = other.Step(ctx, id)
	require.NoError(t, err)

	ev, err := d.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.Seq)
	assert.Equal(t, int64(2), d.State().LastSeq())

	ev, err = d.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ev.Seq)
}

func TestDialStream_UnknownSession(t *testing.T) {
	srv, _ := newServer(t)
	_, err := client.DialStream(context.Background(), srv.URL, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
