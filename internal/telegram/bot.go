package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptoshop-bot/internal/conversation"
)

type Service struct {
	bot        Sender
	handler    Handler
	keyboards  *Keyboards
	dispatcher *conversation.Dispatcher

	defaultLanguage string
}

// NewBotAPI авторизуется в Telegram и переключает бота на long-polling
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	// Удаляем webhook чтобы использовать long-polling
	_, err = bot.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		slog.Warn("Failed to delete webhook", "error", err)
	} else {
		slog.Info("Webhook deleted, using long-polling")
	}

	slog.Info("Authorized as telegram bot", "username", bot.Self.UserName)
	return bot, nil
}

func New(bot Sender, handler Handler, keyboards *Keyboards, defaultLanguage string) *Service {
	s := &Service{
		bot:             bot,
		handler:         handler,
		keyboards:       keyboards,
		defaultLanguage: defaultLanguage,
	}
	s.dispatcher = conversation.NewDispatcher(s.handleEvent)

	// Устанавливаем меню команд
	if err := s.setCommands(); err != nil {
		slog.Warn("Failed to set bot commands", "error", err)
	}
	return s
}

// Start читает обновления до отмены контекста. Перед возвратом дожидается
// обработки уже принятых сообщений.
func (s *Service) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	defer s.dispatcher.Wait()

	// Принятые сообщения дорабатываются и после остановки, иначе каждое
	// из них упадет на чтении из базы с отмененным контекстом
	work := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			s.handleUpdate(work, upd)
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	// Покупки ведутся только в личном чате
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}

	s.dispatcher.Dispatch(ctx, conversation.Event{
		UserID:   msg.From.ID,
		Text:     messageText(msg),
		Username: msg.From.UserName,
		FullName: strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
	})
}

// messageText - текст сообщения или подпись к вложению
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func (s *Service) handleEvent(ctx context.Context, ev conversation.Event) {
	reply := s.handler.Handle(ctx, ev)
	s.send(ev.UserID, reply)
}

func (s *Service) send(chatID int64, reply conversation.Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if markup := s.keyboards.Markup(reply.Keyboard, reply.Language); markup != nil {
		msg.ReplyMarkup = markup
	}
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		logSendError(chatID, "reply", err)
	}
}

// NotifyUser отправляет сообщение вне диалога, например напоминание
func (s *Service) NotifyUser(userID int64, text, language string) {
	if language == "" {
		language = s.defaultLanguage
	}
	s.send(userID, conversation.Reply{Text: text, Keyboard: conversation.KeyboardMain, Language: language})
}

func (s *Service) setCommands() error {
	var commands []tgbotapi.BotCommand
	for _, cmd := range menuCommands {
		commands = append(commands, tgbotapi.BotCommand{Command: cmd.String(), Description: cmd.Description()})
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	_, err := s.bot.Request(config)
	return err
}
