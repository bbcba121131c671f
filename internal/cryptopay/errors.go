package cryptopay

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected http status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRejected          = errors.New("request rejected by provider")
)

// Error - ошибка шлюза: транспорт, HTTP статус или разбор ответа
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Err        error
}

func (e *Error) Error() string {
	msg := "cryptopay " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
