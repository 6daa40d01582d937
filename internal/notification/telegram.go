package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/noah-isme/tutoring-api/internal/models"
)

type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramChannel delivers notifications to teachers that linked a Telegram chat.
type TelegramChannel struct {
	bot telegramSender
}

// NewTelegramChannel builds a channel from a bot token. Extra options are passed to the bot
// client, e.g. bot.WithServerURL in tests.
func NewTelegramChannel(token string, opts ...bot.Option) (*TelegramChannel, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramChannel{bot: b}, nil
}

// Name implements Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

// Accepts implements Channel.
func (t *TelegramChannel) Accepts(teacher models.Teacher) bool {
	return teacher.TelegramChatID != nil
}

// Send implements Channel.
func (t *TelegramChannel) Send(ctx context.Context, teacher models.Teacher, msg Message) error {
	if teacher.TelegramChatID == nil {
		return nil
	}
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *teacher.TelegramChatID,
		Text:      "<b>" + html.EscapeString(msg.Subject) + "</b>\n" + html.EscapeString(msg.Text),
		ParseMode: tgmodels.ParseModeHTML,
	})
	return err
}
