package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/mobsinet_viewer/internal/demosim"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newDemo serves a demo simulation and returns a client pointed at it.
func newDemo(t *testing.T, opts ...Option) (*demosim.Simulation, *Client) {
	t.Helper()
	sim := demosim.New(42, nil)
	t.Cleanup(sim.Stop)
	srv := httptest.NewServer(demosim.NewRouter(sim, nil))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+demosim.BasePath, opts...)
	require.NoError(t, err)
	return sim, c
}

// newTestServer routes "METHOD /path" patterns to handlers.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/mobsinet/graph/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewValidatesBaseURL(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = New("http://sim:8000/mobsinet/graph")
	require.NoError(t, err)
	require.Equal(t, "http://sim:8000/mobsinet/graph/", c.BaseURL())

	_, err = New("ftp://sim/graph/")
	require.Error(t, err)
}

func TestFetchSnapshotFromDemo(t *testing.T) {
	sim, c := newDemo(t)
	sim.Step()

	snap, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Complete())
	require.Equal(t, 1, snap.Round)
	require.Len(t, snap.Nodes, demosim.DefaultParams().Nodes)
	require.False(t, snap.Running)
	require.NotNil(t, snap.Logs)
}

func TestFetchSnapshotWithoutLogs(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/update_graph/": func(w http.ResponseWriter, r *http.Request) {
			gotQuery.Store(r.URL.RawQuery)
			w.Write([]byte(`{"n":[],"l":[],"r":true,"t":3,"msg_r":0,"msg_a":0}`)) //nolint:errcheck
		},
	}, WithLogs(false))

	snap, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "with_logs=false", gotQuery.Load())
	require.Nil(t, snap.Logs)
	require.True(t, snap.Running)
}

func TestFetchSnapshotMalformed(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/update_graph/": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"r":false,"t":3}`)) //nolint:errcheck
		},
	})
	snap, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err, "missing tables decode to an incomplete snapshot")
	require.False(t, snap.Complete())

	c = newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/update_graph/": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"n":[[1,2]],"l":[]}`)) //nolint:errcheck
		},
	})
	_, err = c.FetchSnapshot(context.Background())
	require.ErrorIs(t, err, snapshot.ErrMalformedSnapshot)
}

func TestRequestIDHeader(t *testing.T) {
	ids := make(chan string, 2)
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/stop_simulation/": func(w http.ResponseWriter, r *http.Request) {
			ids <- r.Header.Get("X-Request-ID")
		},
	})
	ctx := context.Background()
	require.NoError(t, c.StopSimulation(ctx))
	require.NoError(t, c.StopSimulation(ctx))

	a, b := <-ids, <-ids
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b, "each request gets its own id")
}

func TestTransportFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:1/mobsinet/graph/", WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.FetchSnapshot(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr), "connection errors are not API errors")
}

func TestControlAgainstDemo(t *testing.T) {
	sim, c := newDemo(t)
	ctx := context.Background()

	require.NoError(t, c.InitSimulation(ctx, "sample9"))
	require.Equal(t, "sample9", sim.Project())

	err := c.InitSimulation(ctx, "nope")
	require.True(t, IsNotFound(err), "err = %v", err)

	require.NoError(t, c.RunSimulation(ctx, 1<<20, 0))
	require.Eventually(t, func() bool { return sim.Round() > 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.StopSimulation(ctx))
	require.False(t, sim.Running())
}

func TestProjectNamesCached(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/projects_names/": func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Write([]byte(`["a","b"]`)) //nolint:errcheck
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		names, err := c.ProjectNames(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, names)
	}
	require.Equal(t, int32(1), calls.Load())

	c.InvalidateCache()
	_, err := c.ProjectNames(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestCacheExpires(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /mobsinet/graph/projects_names/": func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Write([]byte(`["a"]`)) //nolint:errcheck
		},
	}, WithCacheTTL(20*time.Millisecond))
	ctx := context.Background()

	_, err := c.ProjectNames(ctx)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.ProjectNames(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestGetConfigFlattened(t *testing.T) {
	_, c := newDemo(t)

	entries, err := c.GetConfig(context.Background(), "pingpong")
	require.NoError(t, err)

	got := make(map[string]string, len(entries))
	for i, e := range entries {
		if i > 0 {
			require.Less(t, entries[i-1].Key, e.Key, "entries are sorted")
		}
		got[e.Key] = e.Value
	}
	require.Equal(t, "100", got["simulation_rounds"])
	require.Equal(t, "250", got["connectivity_model_parameters[radius]"])
	require.Equal(t, "[0,1000]", got["dim_x"])
}

func TestFlatten(t *testing.T) {
	entries, err := Flatten([]byte(`{
		"b": true,
		"a": "x",
		"g": {"k": 1.5, "deep": {"z": 1}},
		"n": null
	}`))
	require.NoError(t, err)
	require.Equal(t, []ConfigEntry{
		{Key: "a", Value: "x"},
		{Key: "b", Value: "true"},
		{Key: "g[deep]", Value: `{"z":1}`},
		{Key: "g[k]", Value: "1.5"},
		{Key: "n", Value: ""},
	}, entries)

	_, err = Flatten([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestSubmitFormFetchesCSRFToken(t *testing.T) {
	sim, c := newDemo(t)
	ctx := context.Background()
	before := len(sim.Snapshot(false).Nodes)

	err := c.SubmitForm(ctx, FormAddNodes, "pingpong", url.Values{"number_of_nodes": {"3"}})
	require.NoError(t, err)
	require.Len(t, sim.Snapshot(false).Nodes, before+3)

	err = c.SubmitForm(ctx, FormOptions, "pingpong", url.Values{"mobility_model_parameters[speed]": {"5"}})
	require.NoError(t, err)
	require.Equal(t, 5.0, sim.Params().Speed)
}

func TestSubmitFormWrongToken(t *testing.T) {
	sim, c := newDemo(t, WithCSRFToken("stale"))

	// The configured token is used as-is, so the backend rejects it.
	err := c.SubmitForm(context.Background(), FormAddNodes, "pingpong", url.Values{"number_of_nodes": {"1"}})
	require.True(t, IsForbidden(err), "err = %v", err)
	require.Len(t, sim.Snapshot(false).Nodes, demosim.DefaultParams().Nodes)
}

func TestSubmitFormUnknownForm(t *testing.T) {
	_, c := newDemo(t)
	err := c.SubmitForm(context.Background(), "bogus", "pingpong", nil)
	require.ErrorContains(t, err, "unknown form")
}

func TestSubmitOptionsInvalidatesConfig(t *testing.T) {
	_, c := newDemo(t)
	ctx := context.Background()

	_, err := c.GetConfig(ctx, "pingpong")
	require.NoError(t, err)
	require.NoError(t, c.SubmitForm(ctx, FormOptions, "pingpong", url.Values{"simulation_rounds": {"7"}}))

	entries, err := c.GetConfig(ctx, "pingpong")
	require.NoError(t, err)
	require.Contains(t, entries, ConfigEntry{Key: "simulation_rounds", Value: "7"})
}
