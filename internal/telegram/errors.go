package telegram

import (
	"errors"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// isUnreachable - пользователь заблокировал бота или удалил аккаунт.
// Повторять отправку бессмысленно.
func isUnreachable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusForbidden
	}
	return false
}

// logSendError логирует ошибку доставки с уровнем по ее причине
func logSendError(chatID int64, what string, err error) {
	if isUnreachable(err) {
		slog.Info("Chat is unreachable", "chat_id", chatID, "what", what, "error", err)
		return
	}
	slog.Error("Failed to send message", "chat_id", chatID, "what", what, "error", err)
}
