package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptoshop-bot/internal/conversation"
)

// Sender - часть Bot API, которой пользуется сервис. *tgbotapi.BotAPI
// подходит без оберток.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)

	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler - конечный автомат диалога
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) conversation.Reply
}

// Labels - подписи кнопок на языке пользователя
type Labels interface {
	Localize(key, language string) string

	Languages() []string
}
