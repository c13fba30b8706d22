// Package notify sends rebalance outcomes to a Telegram chat.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbc399/command-line-trader/journal"
)

// Telegram implements rebalance.Notifier over the Telegram Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a notifier posting to the given chat.
func NewTelegram(botToken, chatID string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	return &Telegram{bot: bot, chatID: chat}, nil
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// RebalanceComplete posts a summary of a finished rebalance run.
func (t *Telegram) RebalanceComplete(run journal.RunRecord) error {
	text := fmt.Sprintf(
		"✅ *Rebalance complete* \\(%s\\)\nuniverse %d, scored %d, target %d\nsold %d, bought %d",
		escape(run.SessionDate), run.UniverseSize, run.ScoredCount,
		run.TargetCount, run.Sold, run.Bought,
	)
	return t.send(text)
}

// RebalanceFailed posts a scheduler failure.
func (t *Telegram) RebalanceFailed(sessionDate string, cause error) error {
	text := fmt.Sprintf("⚠️ *Rebalance error* \\(%s\\)\n`%s`",
		escape(sessionDate), escape(cause.Error()))
	return t.send(text)
}

// escape escapes MarkdownV2 special characters.
func escape(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
