package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1replaybot/pkg/pubsub"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) all() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

type fakeBackend struct {
	err error
}

func (f fakeBackend) Fetch(_ context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := telemetry.DriverTrace{Driver: "VER", Color: "3671C6"}
	for i := 0; i < 10; i++ {
		d.Samples = append(d.Samples, telemetry.Sample{X: float64(i * 100), Y: float64(i * i)})
	}
	return &telemetry.Payload{Drivers: []telemetry.DriverTrace{d}}, nil
}

func (f fakeBackend) FetchLap(_ context.Context, key telemetry.LookupKey) (*telemetry.Lap, error) {
	if f.err != nil {
		return nil, f.err
	}
	speed := 312.0
	return &telemetry.Lap{Driver: key.Driver, LapTime: 90.5, Data: []telemetry.Sample{{Speed: &speed}}}, nil
}

type fakeWatcher struct {
	mu      sync.Mutex
	watched []telemetry.LookupKey
}

func (f *fakeWatcher) Watch(key telemetry.LookupKey, _ int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, key)
}

func command(text string) tgbotapi.Update {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{UserName: "tester"},
		Chat:     &tgbotapi.Chat{ID: 99},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func newBot(backend fakeBackend, events *pubsub.PubSub[replay.Event], watcher Watcher) (*Bot, *fakeSender) {
	sender := &fakeSender{}
	return New(sender,
		NewHelpApp(sender),
		NewReplayApp(sender, backend, events, watcher),
		NewLapApp(sender, backend),
	), sender
}

func text(c tgbotapi.Chattable) string {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		return m.Text
	}
	return ""
}

func TestHelp(t *testing.T) {
	b, sender := newBot(fakeBackend{}, nil, nil)
	b.HandleUpdate(context.Background(), command("/start"))
	b.Wait()
	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Contains(t, text(sent[0]), "/replay <year>")
}

func TestUnknownCommand(t *testing.T) {
	b, sender := newBot(fakeBackend{}, nil, nil)
	b.HandleUpdate(context.Background(), command("/nope"))
	b.HandleUpdate(context.Background(), tgbotapi.Update{})
	b.Wait()
	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Contains(t, text(sent[0]), "Unknown command")
}

func TestReplay(t *testing.T) {
	events := pubsub.NewPubSub[replay.Event]()
	sub := events.Subscribe(replay.TopicEvents)
	watcher := &fakeWatcher{}
	b, sender := newBot(fakeBackend{}, events, watcher)

	b.HandleUpdate(context.Background(), command("/replay 2023 Abu Dhabi R 0.5"))
	b.Wait()

	key := telemetry.LookupKey{Year: 2023, Location: "Abu Dhabi", Session: telemetry.Race}
	assert.Equal(t, []telemetry.LookupKey{key}, watcher.watched)
	assert.Equal(t, replay.Event{Key: key, State: replay.Loading}, <-sub)
	assert.Equal(t, replay.Event{Key: key, State: replay.Ready}, <-sub)

	sent := sender.all()
	require.Len(t, sent, 3)
	assert.Contains(t, text(sent[0]), "Loading telemetry for 2023/Abu Dhabi/R")
	photo, ok := sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "2023/Abu Dhabi/R at 50% of the lap", photo.Caption)
	assert.Contains(t, text(sent[2]), "VER")
	assert.Contains(t, text(sent[2]), "6/10")
}

func TestReplayFailure(t *testing.T) {
	events := pubsub.NewPubSub[replay.Event]()
	sub := events.Subscribe(replay.TopicEvents)
	boom := errors.New("backend down")
	b, sender := newBot(fakeBackend{err: boom}, events, nil)

	b.HandleUpdate(context.Background(), command("/replay 2023 Bahrain R"))
	b.Wait()

	<-sub
	failed := <-sub
	assert.Equal(t, replay.Idle, failed.State)
	assert.ErrorIs(t, failed.Err, boom)

	sent := sender.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "Could not load telemetry: backend down", text(sent[1]))
}

func TestLap(t *testing.T) {
	b, sender := newBot(fakeBackend{}, nil, nil)
	b.HandleUpdate(context.Background(), command("/lap 2023 Monaco Q lec"))
	b.Wait()
	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Contains(t, text(sent[0]), "LEC fastest lap")
	assert.Contains(t, text(sent[0]), "01:30.500")
}

func TestParseReplayArgs(t *testing.T) {
	tests := []struct {
		args     string
		key      telemetry.LookupKey
		progress float64
		wantErr  bool
	}{
		{args: "2023 Bahrain R", key: telemetry.LookupKey{Year: 2023, Location: "Bahrain", Session: telemetry.Race}},
		{args: "2023 Abu Dhabi q 0.25", key: telemetry.LookupKey{Year: 2023, Location: "Abu Dhabi", Session: telemetry.Qualifying}, progress: 0.25},
		{args: "2023 Bahrain R 1.5", wantErr: true},
		{args: "2023 R", wantErr: true},
		{args: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			key, progress, err := parseReplayArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.progress, progress)
		})
	}
}

func TestParseLapArgs(t *testing.T) {
	key, err := parseLapArgs("2024 Las Vegas R ver")
	require.NoError(t, err)
	assert.Equal(t, telemetry.LookupKey{Year: 2024, Location: "Las Vegas", Session: telemetry.Race, Driver: "VER"}, key)

	_, err = parseLapArgs("2024 Monza R")
	assert.Error(t, err)
}
