package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1replaybot/pkg/telemetry"
)

const sessionBody = `{"drivers": [
  {"driver": "VER", "color": "3671C6", "telemetry": [{"X": 0, "Y": 0}, {"X": 5, "Y": 5}]},
  {"driver": "HAM", "color": "27F4D2", "telemetry": [{"X": 1, "Y": 1}]}
]}`

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func backend(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.URL.EscapedPath())
		rec.mu.Unlock()

		switch r.URL.Path {
		case "/api/telemetry/2023/Abu Dhabi/R":
			fmt.Fprint(w, sessionBody)
		case "/api/lap_telemetry/2023/Abu Dhabi/R/VER":
			fmt.Fprint(w, `{"driver": "VER", "lap_time": 86.5, "color": "3671C6", "data": [{"Speed": 300, "Brake": false}]}`)
		case "/api/lap_telemetry/2023/Abu Dhabi/R/XXX":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail": "No laps found for driver: XXX"}`)
		case "/api/telemetry/2023/Nowhere/R":
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail": "Failed to load session"}`)
		case "/api/telemetry/2023/Slow/R":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		case "/api/health":
			fmt.Fprint(w, `{"status": "healthy", "fastf1_version": "3.1.0"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func key(location, driver string) telemetry.LookupKey {
	return telemetry.LookupKey{Year: 2023, Location: location, Session: telemetry.Race, Driver: driver}
}

func TestFetchTelemetry(t *testing.T) {
	srv, rec := backend(t)
	c := New(srv.URL + "/")

	p, err := c.Fetch(context.Background(), key("Abu Dhabi", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"VER", "HAM"}, p.DriverCodes())
	assert.Equal(t, []string{"/api/telemetry/2023/Abu%20Dhabi/R"}, rec.all())

	p, err = c.FetchTelemetry(context.Background(), key("Abu Dhabi", "HAM"))
	require.NoError(t, err)
	assert.Equal(t, []string{"HAM"}, p.DriverCodes())

	_, err = c.FetchTelemetry(context.Background(), key("Abu Dhabi", "ALO"))
	assert.Error(t, err)
}

func TestFetchErrors(t *testing.T) {
	srv, _ := backend(t)
	c := New(srv.URL, WithTimeout(100*time.Millisecond))

	_, err := c.FetchTelemetry(context.Background(), key("Nowhere", ""))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "Failed to load session", se.Detail)
	assert.False(t, NotFound(err))

	_, err = c.FetchTelemetry(context.Background(), key("Slow", ""))
	assert.Error(t, err)

	_, err = c.FetchTelemetry(context.Background(), telemetry.LookupKey{Year: 2023, Session: telemetry.Race})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.FetchTelemetry(ctx, key("Abu Dhabi", ""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchLap(t *testing.T) {
	srv, _ := backend(t)
	c := New(srv.URL)

	lap, err := c.FetchLap(context.Background(), key("Abu Dhabi", "VER"))
	require.NoError(t, err)
	assert.InDelta(t, 86.5, lap.LapTime, 1e-9)
	require.Len(t, lap.Data, 1)

	_, err = c.FetchLap(context.Background(), key("Abu Dhabi", "XXX"))
	assert.True(t, NotFound(err))

	_, err = c.FetchLap(context.Background(), key("Abu Dhabi", ""))
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := backend(t)
	h, err := New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Health{Status: "healthy", FastF1Version: "3.1.0"}, h)
}
