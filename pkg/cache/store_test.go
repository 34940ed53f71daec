package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1replaybot/pkg/telemetry"
)

var (
	bahrain = telemetry.LookupKey{Year: 2023, Location: "Bahrain", Session: telemetry.Race}
	monaco  = telemetry.LookupKey{Year: 2023, Location: "Monaco", Session: telemetry.Qualifying, Driver: "ALO"}
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func payload(code string) *telemetry.Payload {
	speed := 301.5
	return &telemetry.Payload{Drivers: []telemetry.DriverTrace{{
		Driver:  code,
		Color:   "3671C6",
		Samples: []telemetry.Sample{{X: 1, Y: 2, Speed: &speed}, {X: 3, Y: 4}},
	}}}
}

func TestStore(t *testing.T) {
	s := openStore(t)
	at := time.Unix(1700000000, 0)

	_, ok, err := s.Get(bahrain)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(bahrain, payload("VER"), at))
	require.NoError(t, s.Put(monaco, payload("ALO"), at.Add(time.Hour)))
	require.NoError(t, s.Put(bahrain, payload("PER"), at.Add(2*time.Hour)))

	e, ok, err := s.Get(bahrain)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"PER"}, e.Payload.DriverCodes())
	assert.Equal(t, at.Add(2*time.Hour), e.FetchedAt)
	require.NotNil(t, e.Payload.Drivers[0].Samples[0].Speed)
	assert.InDelta(t, 301.5, *e.Payload.Drivers[0].Samples[0].Speed, 1e-9)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2023/Bahrain/R", "2023/Monaco/Q/ALO"}, keys)

	n, err := s.Purge(at.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok, err = s.Get(monaco)
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingFetcher struct {
	calls int
	err   error
}

func (c *countingFetcher) Fetch(_ context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return payload(key.Location), nil
}

func TestCachingFetcher(t *testing.T) {
	s := openStore(t)
	next := &countingFetcher{}
	now := time.Unix(1700000000, 0)
	f := NewCachingFetcher(s, next, time.Hour, WithClock(func() time.Time { return now }))

	p, err := f.Fetch(context.Background(), bahrain)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bahrain"}, p.DriverCodes())
	assert.Equal(t, 1, next.calls)

	_, err = f.Fetch(context.Background(), bahrain)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	now = now.Add(2 * time.Hour)
	_, err = f.Fetch(context.Background(), bahrain)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachingFetcherPassesErrors(t *testing.T) {
	boom := errors.New("backend down")
	f := NewCachingFetcher(openStore(t), &countingFetcher{err: boom}, 0)
	_, err := f.Fetch(context.Background(), bahrain)
	assert.ErrorIs(t, err, boom)
}

func TestCachingFetcherSurvivesClosedStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	next := &countingFetcher{}
	p, err := NewCachingFetcher(s, next, time.Hour).Fetch(context.Background(), bahrain)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bahrain"}, p.DriverCodes())
}
