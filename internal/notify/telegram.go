// internal/notify/telegram.go
package notify

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// TelegramPrefix starts every telegram target key: "telegram:<chatID>".
const TelegramPrefix = "telegram:"

// botAPI is the slice of tgbotapi.BotAPI the sink needs. Tests substitute it.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram is a send-only notification channel. It never polls for updates;
// the dashboard pushes run summaries to a fixed chat.
type Telegram struct {
	bot botAPI
}

// NewTelegram creates the channel from a bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

// Sink returns the registry sink for "telegram:<chatID>" targets.
func (t *Telegram) Sink() Sink {
	return func(target, message string) error {
		raw := strings.TrimPrefix(target, TelegramPrefix)
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram target %q: %w", target, err)
		}
		return t.send(chatID, message)
	}
}

func (t *Telegram) send(chatID int64, text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				slog.Error("telegram send failed", "error", err)
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
