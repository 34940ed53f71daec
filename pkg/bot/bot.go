package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"f1replaybot/log"
)

// Sender is the part of the Telegram client the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Accepter claims the commands it knows how to handle.
type Accepter interface {
	AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64, args string) error)
}

type Bot struct {
	sender    Sender
	accepters []Accepter
	wg        sync.WaitGroup
	l         *log.Logger
}

func New(sender Sender, accepters ...Accepter) *Bot {
	return &Bot{
		sender:    sender,
		accepters: accepters,
		l:         log.Default().Named("bot"),
	}
}

// Run handles updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		// stop looping if ctx is cancelled
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// Wait blocks until every background command has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || !message.IsCommand() {
		return
	}
	command := "/" + strings.ToLower(message.Command())
	b.l.Debug("command received",
		log.String("user", message.From.UserName),
		log.String("command", command))

	for _, accepter := range b.accepters {
		accept, handler := accepter.AcceptCommand(command)
		if !accept {
			continue
		}
		chatID := message.Chat.ID
		args := message.CommandArguments()
		b.wg.Add(1)
		// backend loads are slow; never block the update loop on them
		go func() {
			defer b.wg.Done()
			if err := handler(ctx, chatID, args); err != nil {
				b.l.Warn("command failed", log.String("command", command), log.ErrorField(err))
			}
		}()
		return
	}
	b.reply(message.Chat.ID, "Unknown command. Try /help")
}

func (b *Bot) reply(chatId int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatId, text)); err != nil {
		b.l.Warn("sending reply", log.ErrorField(err))
	}
}
