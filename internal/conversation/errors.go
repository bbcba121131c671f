package conversation

import (
	"fmt"
	"log/slog"
)

// Error коды для различных типов ошибок
const (
	ErrValidation = "VALIDATION_ERROR"
	ErrGateway    = "GATEWAY_ERROR"
	ErrStore      = "STORE_ERROR"
	ErrOrder      = "ORDER_ERROR"
)

// Error - ошибка диалога. UserKey - ключ локализованного сообщения,
// которое увидит пользователь; технические детали ему не показываются.
type Error struct {
	Code    string
	Message string
	UserKey string
	Details string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation - ошибки ввода не логируются как сбой и не уходят админу
func (e *Error) IsValidation() bool {
	return e.Code == ErrValidation
}

func NewError(code, message, userKey, details string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		UserKey: userKey,
		Details: details,
		Err:     err,
	}
}

func ErrValidationf(userKey, details string, args ...interface{}) *Error {
	return NewError(
		ErrValidation,
		"Unrecognized input",
		userKey,
		fmt.Sprintf(details, args...),
		nil,
	)
}

func ErrGatewayf(err error, userKey, details string, args ...interface{}) *Error {
	return NewError(
		ErrGateway,
		"Payment gateway request failed",
		userKey,
		fmt.Sprintf(details, args...),
		err,
	)
}

func ErrStoref(err error, details string, args ...interface{}) *Error {
	return NewError(
		ErrStore,
		"Subscription store operation failed",
		"store_error",
		fmt.Sprintf(details, args...),
		err,
	)
}

func ErrOrderf(err error, details string, args ...interface{}) *Error {
	return NewError(
		ErrOrder,
		"Order processing failed",
		"order_error",
		fmt.Sprintf(details, args...),
		err,
	)
}

// fail логирует ошибку, отправляет отчет администратору и возвращает
// текст для пользователя
func (m *Machine) fail(ev Event, language string, e *Error) string {
	if e.IsValidation() {
		slog.Info("Invalid input", "user_id", ev.UserID, "details", e.Details)
	} else {
		slog.Error("Bot error occurred", "user_id", ev.UserID, "code", e.Code, "error", e)
		m.sendErrorReport(ev, e)
	}
	return "❌ " + m.loc.Localize(e.UserKey, language)
}

// sendErrorReport отправляет отчет об ошибке администратору
func (m *Machine) sendErrorReport(ev Event, e *Error) {
	cause := "-"
	if e.Err != nil {
		cause = e.Err.Error()
	}

	report := fmt.Sprintf(`🚨 Ошибка в боте:

Код: %s
Сообщение: %s
Детали: %s
Причина: %s
Пользователь: %s

Пользователю показано: %s`,
		e.Code,
		e.Message,
		e.Details,
		cause,
		ev.DisplayName(),
		e.UserKey,
	)

	m.notifier.NotifyAdmin(report)
}
