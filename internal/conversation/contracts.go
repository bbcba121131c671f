package conversation

import (
	"context"
	"time"

	"cryptoshop-bot/internal/cryptopay"
	"cryptoshop-bot/internal/db"
)

// Store - хранилище подписок и журнал счетов
type Store interface {
	GetActive(ctx context.Context, userID int64) (db.ActiveSubscription, error)

	Language(ctx context.Context, userID int64) (string, error)

	Upsert(ctx context.Context, userID int64, subscriptionID, language string) (time.Time, error)

	SetLanguage(ctx context.Context, userID int64, language string) error

	RecordInvoice(ctx context.Context, inv *db.Invoice) error

	SetInvoiceStatus(ctx context.Context, invoiceID, status string) error
}

// Gateway - платежный провайдер
type Gateway interface {
	CreateInvoice(ctx context.Context, amount, currency, description string) (cryptopay.Invoice, error)

	InvoiceStatus(ctx context.Context, invoiceID string) (cryptopay.InvoiceState, error)
}

// Notifier доставляет сообщения администратору. Реализация не должна
// блокировать вызывающего: ошибки доставки только логируются.
type Notifier interface {
	NotifyAdmin(text string)
}

type Localizer interface {
	Localize(key, language string) string

	Languages() []string

	Supported(language string) string
}
