package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"f1replaybot/pkg/layout"
	"f1replaybot/pkg/pubsub"
	"f1replaybot/pkg/render"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/report"
	"f1replaybot/pkg/telemetry"
)

const (
	menuStart  = "/start"
	menuHelp   = "/help"
	menuReplay = "/replay"
	menuLap    = "/lap"
)

const helpText = `Motorsport telemetry replays.

/replay <year> <location> <session> [progress]
    still frame of every driver's fastest lap, e.g. /replay 2023 Bahrain R 0.5
/lap <year> <location> <session> <driver>
    summary of a driver's fastest lap, e.g. /lap 2023 Abu Dhabi Q VER

Sessions: FP1 FP2 FP3 SQ S Q R`

type HelpApp struct {
	sender Sender
}

func NewHelpApp(sender Sender) *HelpApp {
	return &HelpApp{sender: sender}
}

func (a *HelpApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64, args string) error) {
	if command != menuStart && command != menuHelp {
		return false, nil
	}
	return true, func(ctx context.Context, chatId int64, _ string) error {
		_, err := a.sender.Send(tgbotapi.NewMessage(chatId, helpText))
		return err
	}
}

// Watcher is told which chat waits for the outcome of a lookup.
type Watcher interface {
	Watch(key telemetry.LookupKey, chatID int64)
}

type LapFetcher interface {
	FetchLap(ctx context.Context, key telemetry.LookupKey) (*telemetry.Lap, error)
}

// ReplayApp answers /replay with a rendered frame and the sample table.
type ReplayApp struct {
	sender  Sender
	fetcher replay.Fetcher
	events  *pubsub.PubSub[replay.Event]
	watcher Watcher
	width   int
	height  int
	padding float64
}

func NewReplayApp(sender Sender, fetcher replay.Fetcher, events *pubsub.PubSub[replay.Event], watcher Watcher) *ReplayApp {
	return &ReplayApp{
		sender:  sender,
		fetcher: fetcher,
		events:  events,
		watcher: watcher,
		width:   layout.DefaultWidth,
		height:  layout.DefaultHeight,
		padding: layout.DefaultPadding,
	}
}

func (a *ReplayApp) SetViewport(width, height int, padding float64) {
	a.width, a.height, a.padding = width, height, padding
}

func (a *ReplayApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64, args string) error) {
	if command != menuReplay {
		return false, nil
	}
	return true, a.handle
}

func (a *ReplayApp) handle(ctx context.Context, chatId int64, args string) error {
	key, progress, err := parseReplayArgs(args)
	if err != nil {
		_, sendErr := a.sender.Send(tgbotapi.NewMessage(chatId, err.Error()+"\n\n"+helpText))
		return sendErr
	}

	if a.watcher != nil {
		a.watcher.Watch(key, chatId)
	}
	if _, err := a.sender.Send(tgbotapi.NewMessage(chatId, fmt.Sprintf("Loading telemetry for %s...", key))); err != nil {
		return err
	}
	a.publish(replay.Event{Key: key, State: replay.Loading})

	payload, err := a.fetcher.Fetch(ctx, key)
	if err == nil && payload == nil {
		err = replay.ErrNoPayload
	}
	if err != nil {
		a.publish(replay.Event{Key: key, State: replay.Idle, Err: err})
		if a.watcher == nil {
			_, _ = a.sender.Send(tgbotapi.NewMessage(chatId, "Could not load telemetry: "+err.Error()))
		}
		return err
	}

	scene := render.NewScene(payload, float64(a.width), float64(a.height), a.padding)
	a.publish(replay.Event{Key: key, State: replay.Ready})

	canvas := render.NewCanvas(a.width, a.height)
	render.NewRenderer(render.DefaultStyle()).DrawFrame(canvas, scene, progress)
	var b bytes.Buffer
	if err := canvas.EncodePNG(&b); err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	photo := tgbotapi.NewPhoto(chatId, tgbotapi.FileBytes{Name: "replay.png", Bytes: b.Bytes()})
	photo.Caption = fmt.Sprintf("%s at %.0f%% of the lap", key, progress*100)
	if _, err := a.sender.Send(photo); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatId, fmt.Sprintf("```\n%s```", report.SampleTable(payload, progress)))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err = a.sender.Send(msg)
	return err
}

func (a *ReplayApp) publish(e replay.Event) {
	if a.events != nil {
		a.events.Publish(replay.TopicEvents, e)
	}
}

// LapApp answers /lap with a summary table of a driver's fastest lap.
type LapApp struct {
	sender  Sender
	fetcher LapFetcher
}

func NewLapApp(sender Sender, fetcher LapFetcher) *LapApp {
	return &LapApp{sender: sender, fetcher: fetcher}
}

func (a *LapApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64, args string) error) {
	if command != menuLap {
		return false, nil
	}
	return true, a.handle
}

func (a *LapApp) handle(ctx context.Context, chatId int64, args string) error {
	key, err := parseLapArgs(args)
	if err != nil {
		_, sendErr := a.sender.Send(tgbotapi.NewMessage(chatId, err.Error()+"\n\n"+helpText))
		return sendErr
	}
	lap, err := a.fetcher.FetchLap(ctx, key)
	if err != nil {
		_, _ = a.sender.Send(tgbotapi.NewMessage(chatId, "Could not load lap: "+err.Error()))
		return err
	}
	msg := tgbotapi.NewMessage(chatId, fmt.Sprintf("```\n%s```", report.LapSummary(lap)))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err = a.sender.Send(msg)
	return err
}

// parseReplayArgs reads "<year> <location...> <session> [progress]".
func parseReplayArgs(args string) (telemetry.LookupKey, float64, error) {
	fields := strings.Fields(args)
	progress := 0.0
	if len(fields) >= 4 {
		if p, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
			if p < 0 || p >= 1 {
				return telemetry.LookupKey{}, 0, errors.Errorf("progress must be in [0, 1), got %v", p)
			}
			progress = p
			fields = fields[:len(fields)-1]
		}
	}
	if len(fields) < 3 {
		return telemetry.LookupKey{}, 0, errors.New("usage: /replay <year> <location> <session> [progress]")
	}
	key, err := telemetry.ParseKey(fields[0], strings.Join(fields[1:len(fields)-1], " "), fields[len(fields)-1], "")
	return key, progress, err
}

// parseLapArgs reads "<year> <location...> <session> <driver>".
func parseLapArgs(args string) (telemetry.LookupKey, error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return telemetry.LookupKey{}, errors.New("usage: /lap <year> <location> <session> <driver>")
	}
	n := len(fields)
	return telemetry.ParseKey(fields[0], strings.Join(fields[1:n-2], " "), fields[n-2], fields[n-1])
}
