package service

import (
	"context"
	"strconv"

	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Notifier — fire-and-forget delivery port. No retries, no receipts; the
// error is for the caller's per-target log line only.
type Notifier interface {
	Send(ctx context.Context, chatID string, text string) error
}

// Telegram delivers over the Bot API and feeds plan selections back from
// chat commands.
type Telegram struct {
	bot *tgbot.BotAPI
}

func NewBot(token string) (*tgbot.BotAPI, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return b, nil
}

func NewTelegram(bot *tgbot.BotAPI) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) Send(ctx context.Context, chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return errors.Errorf("bad chat id %q", chatID)
	}
	_, err = t.bot.Send(tgbot.NewMessage(id, text))
	return err
}

// Stdout — fallback when no bot token is configured; logs instead of
// delivering.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(ctx context.Context, chatID string, text string) error {
	logger.Info("notify %s: %s", chatID, text)
	return nil
}
