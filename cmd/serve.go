package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"f1replaybot/log"
	"f1replaybot/pkg/bot"
	"f1replaybot/pkg/client"
	"f1replaybot/pkg/config"
	"f1replaybot/pkg/livemap"
	"f1replaybot/pkg/notification"
	"f1replaybot/pkg/playback"
	"f1replaybot/pkg/pubsub"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/webserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the live map web server (and the Telegram bot when a token is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	cmd.Flags().StringVarP(&config.ListenAddr, "listen-addr", "a",
		webserver.DefaultAddr,
		"listen address of the live map")
	cmd.Flags().DurationVar(&config.Loop, "loop",
		playback.DefaultLoop,
		"duration of a full replay cycle")
	cmd.Flags().DurationVar(&config.FrameInterval, "frame-interval",
		50*time.Millisecond,
		"delay between two streamed frames")
	cmd.Flags().StringVar(&config.TelegramToken, "telegram-token",
		"",
		"Telegram bot token; the bot is disabled when empty")
	return cmd
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl, fetcher, closeFetcher, err := newFetcher()
	if err != nil {
		return err
	}
	defer closeFetcher()

	events := pubsub.NewPubSub[replay.Event]()
	defer events.Close()

	ws := webserver.NewManager(config.ListenAddr, func(ctx context.Context) error {
		h, err := cl.Health(ctx)
		if err != nil {
			return err
		}
		if h.Status != "ok" {
			return errors.Errorf("backend status %q", h.Status)
		}
		return nil
	})
	livemap.NewLiveMap(ws.Router(), fetcher,
		livemap.WithViewport(config.Width, config.Height, config.Padding),
		livemap.WithFrameInterval(config.FrameInterval),
		livemap.WithLoop(config.Loop),
		livemap.WithEvents(events),
	)

	if config.TelegramToken != "" {
		b, err := startBot(ctx, cl, fetcher, events)
		if err != nil {
			return err
		}
		defer b.Wait()
	} else {
		log.Info("no telegram token configured, bot disabled")
	}

	log.Info("serving replays",
		log.String("addr", config.ListenAddr),
		log.String("backend", config.BackendURL))
	return ws.Serve(ctx)
}

func startBot(
	ctx context.Context,
	cl *client.Client,
	fetcher replay.Fetcher,
	events *pubsub.PubSub[replay.Event],
) (*bot.Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to telegram")
	}
	log.Info("authorized on telegram", log.String("account", api.Self.UserName))

	exitChan := make(chan bool)
	notifier := notification.NewManager(ctx,
		events.Subscribe(replay.TopicEvents),
		notification.TelegramNotifier(api))
	go notifier.Start(exitChan)

	replayApp := bot.NewReplayApp(api, fetcher, events, notifier)
	replayApp.SetViewport(config.Width, config.Height, config.Padding)
	b := bot.New(api,
		bot.NewHelpApp(api),
		replayApp,
		bot.NewLapApp(api, cl),
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		b.Run(ctx, updates)
		api.StopReceivingUpdates()
		close(exitChan)
	}()
	return b, nil
}
