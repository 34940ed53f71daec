package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nikoksr/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

type sent struct {
	chats   []int64
	subject string
	message string
}

type fakeService struct {
	chats []int64
	out   chan<- sent
}

func (f fakeService) Send(_ context.Context, subject, message string) error {
	chats := append([]int64(nil), f.chats...)
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	f.out <- sent{chats: chats, subject: subject, message: message}
	return nil
}

var bahrain = telemetry.LookupKey{Year: 2023, Location: "Bahrain", Session: telemetry.Race}

func start(t *testing.T) (*Manager, chan<- replay.Event, <-chan sent) {
	t.Helper()
	events := make(chan replay.Event)
	out := make(chan sent, 4)
	m := NewManager(context.Background(), events, func(chats []int64) notify.Notifier {
		return fakeService{chats: chats, out: out}
	})
	exit := make(chan bool)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Start(exit)
	}()
	t.Cleanup(func() {
		close(exit)
		wg.Wait()
	})
	return m, events, out
}

func receive(t *testing.T, out <-chan sent) sent {
	t.Helper()
	select {
	case s := <-out:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent")
		return sent{}
	}
}

func TestNotifiesWatchersWhenReady(t *testing.T) {
	m, events, out := start(t)
	m.Watch(bahrain, 42)
	m.Watch(bahrain, 7)
	m.Watch(bahrain, 42)
	assert.Equal(t, 2, m.Watching(bahrain))

	events <- replay.Event{Key: bahrain, State: replay.Loading}
	events <- replay.Event{Key: bahrain, State: replay.Animating}

	s := receive(t, out)
	assert.Equal(t, []int64{7, 42}, s.chats)
	assert.Equal(t, "Replay ready", s.subject)
	assert.Equal(t, "2023/Bahrain/R", s.message)
	assert.Equal(t, 0, m.Watching(bahrain))
}

func TestNotifiesFailure(t *testing.T) {
	m, events, out := start(t)
	m.Watch(bahrain, 1)

	events <- replay.Event{Key: bahrain, State: replay.Idle, Err: errors.New("timeout")}
	s := receive(t, out)
	assert.Equal(t, "Replay failed", s.subject)
	assert.Equal(t, "2023/Bahrain/R: timeout", s.message)
}

func TestIgnoresUnwatchedKeys(t *testing.T) {
	m, events, out := start(t)
	monza := telemetry.LookupKey{Year: 2023, Location: "Monza", Session: telemetry.Race}
	m.Watch(monza, 1)

	events <- replay.Event{Key: bahrain, State: replay.Animating}
	events <- replay.Event{Key: monza, State: replay.TornDown}
	// the unbuffered channel guarantees both events were handled once this
	// one is accepted
	events <- replay.Event{Key: bahrain, State: replay.Loading}

	select {
	case s := <-out:
		require.Fail(t, "unexpected notification", s.subject)
	default:
	}
	assert.Equal(t, 1, m.Watching(monza))
}
