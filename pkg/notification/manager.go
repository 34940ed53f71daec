package notification

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"

	"f1replaybot/log"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

// NotifierFactory builds the service that reaches a set of chats.
type NotifierFactory func(chatIDs []int64) notify.Notifier

// TelegramNotifier sends through the bot's own client.
func TelegramNotifier(bot *tgbotapi.BotAPI) NotifierFactory {
	return func(chatIDs []int64) notify.Notifier {
		tg := &Telegram{}
		tg.SetClient(bot)
		tg.AddReceivers(chatIDs...)
		return notify.NewWithServices(tg)
	}
}

// Manager tells the chats waiting on a lookup when its telemetry is ready
// or could not be loaded.
type Manager struct {
	ctx      context.Context
	events   <-chan replay.Event
	notifier NotifierFactory
	l        *log.Logger

	mu       sync.Mutex
	watchers map[telemetry.LookupKey]map[int64]bool
}

func NewManager(ctx context.Context, events <-chan replay.Event, notifier NotifierFactory) *Manager {
	return &Manager{
		ctx:      ctx,
		events:   events,
		notifier: notifier,
		l:        log.Default().Named("notification"),
		watchers: make(map[telemetry.LookupKey]map[int64]bool),
	}
}

// Watch registers chatID for the outcome of the next load of key.
func (m *Manager) Watch(key telemetry.LookupKey, chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[int64]bool)
	}
	m.watchers[key][chatID] = true
}

func (m *Manager) Watching(key telemetry.LookupKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[key])
}

// Start consumes replay events until exitChan fires or the events channel
// is closed.
func (m *Manager) Start(exitChan <-chan bool) {
	for {
		select {
		case <-exitChan:
			return
		case <-m.ctx.Done():
			return
		case e, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(e)
		}
	}
}

func (m *Manager) handleEvent(e replay.Event) {
	var subject string
	switch {
	case e.State == replay.Ready, e.State == replay.Animating:
		subject = "Replay ready"
	case e.State == replay.Idle && e.Err != nil:
		subject = "Replay failed"
	default:
		return
	}

	receivers := m.take(e.Key)
	if len(receivers) == 0 {
		return
	}
	m.l.Info("sending notification",
		log.String("key", e.Key.String()),
		log.String("subject", subject),
		log.Int("receivers", len(receivers)))

	message := e.Key.String()
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	if err := m.notifier(receivers).Send(m.ctx, subject, message); err != nil {
		m.l.Warn("error notifying users", log.ErrorField(err))
	}
}

// take removes and returns the watchers of key.
func (m *Manager) take(key telemetry.LookupKey) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	chats := m.watchers[key]
	delete(m.watchers, key)
	ids := make([]int64, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	return ids
}
