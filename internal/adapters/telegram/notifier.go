// Package telegram pushes new feedback messages to a staff chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sabor_menu/internal/domain"
)

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) NotifyFeedback(ctx context.Context, m domain.FeedbackMessage) error {
	name := m.Name
	if name == "" {
		name = "аноним"
	}
	text := fmt.Sprintf("Новое сообщение (%s) от %s:\n%s", m.Type, name, m.Message)
	_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}
