package telegram

import (
	"fmt"
	"net/http"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier posts alert messages to one chat.
type Notifier struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewNotifier connects the bot. An empty token returns (nil, nil) so callers
// can leave the channel unconfigured.
func NewNotifier(token string, chatID int64, log *zap.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		log.Warn("telegram token or chat id missing, telegram alerts disabled")
		return nil, nil
	}
	return newNotifier(token, tgbot.APIEndpoint, &http.Client{}, chatID, log)
}

func newNotifier(token, endpoint string, client tgbot.HTTPClient, chatID int64, log *zap.Logger) (*Notifier, error) {
	b, err := tgbot.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("telegram notifier ready", zap.String("bot", b.Self.UserName), zap.Int64("chat", chatID))
	return &Notifier{bot: b, chatID: chatID, log: log.Named("telegram")}, nil
}

func (n *Notifier) Send(text string) error {
	if _, err := n.bot.Send(tgbot.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (n *Notifier) Sendf(format string, args ...any) error {
	return n.Send(fmt.Sprintf(format, args...))
}
