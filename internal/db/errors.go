package db

import "fmt"

// StoreError - сбой хранилища подписок
type StoreError struct {
	Op     string
	UserID int64
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s (user %d): %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
