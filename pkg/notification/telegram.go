package notification

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Telegram is a notify.Notifier sending through a bot API client.
type Telegram struct {
	client  *tgbotapi.BotAPI
	chatIDs []int64
}

func (t *Telegram) SetClient(client *tgbotapi.BotAPI) {
	t.client = client
}

func (t *Telegram) AddReceivers(chatIDs ...int64) {
	t.chatIDs = append(t.chatIDs, chatIDs...)
}

// Send delivers subject and message as one text to every receiver. It stops
// at the first chat that cannot be reached.
func (t *Telegram) Send(ctx context.Context, subject, message string) error {
	if t.client == nil {
		return errors.New("telegram client not set")
	}
	text := subject + "\n" + message
	for _, chatID := range t.chatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := t.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			return errors.Wrapf(err, "sending message to chat %d", chatID)
		}
	}
	return nil
}
