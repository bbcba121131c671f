package db

import "time"

// Subscription - одна запись на пользователя. SubscriptionID и EndDate пусты,
// если пользователь только выбрал язык и ничего не покупал.
type Subscription struct {
	UserID         int64 `gorm:"primaryKey;autoIncrement:false"`
	SubscriptionID *string
	EndDate        *time.Time
	Language       string `gorm:"not null;default:ru"`
	UpdatedAt      time.Time
}

// Статусы счетов в журнале
const (
	InvoicePending   = "pending"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
	InvoiceOrphaned  = "orphaned"
	InvoiceExpired   = "expired"
)

// Invoice - журнал выставленных счетов
type Invoice struct {
	InvoiceID string `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	PlanID    string `gorm:"not null"`
	PayURL    string
	Language  string
	Status    string `gorm:"index;not null;check:status IN ('pending','paid','cancelled','orphaned','expired')"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
