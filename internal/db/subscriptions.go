package db

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/metrics"
)

// ExpiryWarningWindow - за сколько до окончания подписки показывать предупреждение
const ExpiryWarningWindow = 72 * time.Hour

// ExpiryWarning вычисляется при чтении и нигде не хранится
type ExpiryWarning struct {
	DaysLeft int
}

// ActiveSubscription - результат GetActive. Если подписки нет или она истекла,
// Active == false и Language равен языку по умолчанию. Сохраненный язык
// пользователя отдает Language.
type ActiveSubscription struct {
	Active         bool
	SubscriptionID string
	EndDate        time.Time
	Language       string
	ExpiryWarning  *ExpiryWarning
}

type SubscriptionStore struct {
	db              *gorm.DB
	catalog         *catalog.Catalog
	defaultLanguage string
	now             func() time.Time
	metrics         *metrics.Metrics
}

func NewSubscriptionStore(repo *Repository, cat *catalog.Catalog, defaultLanguage string, m *metrics.Metrics) *SubscriptionStore {
	return &SubscriptionStore{
		db:              repo.DB(),
		catalog:         cat,
		defaultLanguage: defaultLanguage,
		now:             time.Now,
		metrics:         m,
	}
}

// WithClock подменяет часы, нужно для тестов
func (s *SubscriptionStore) WithClock(now func() time.Time) *SubscriptionStore {
	s.now = now
	return s
}

func (s *SubscriptionStore) GetActive(ctx context.Context, userID int64) (ActiveSubscription, error) {
	rec, err := s.find(ctx, "get", userID)
	if err != nil {
		return ActiveSubscription{}, err
	}

	none := ActiveSubscription{Language: s.defaultLanguage}
	if rec == nil {
		return none, nil
	}

	now := s.now()
	if rec.SubscriptionID == nil || rec.EndDate == nil || rec.EndDate.Before(now) {
		return none, nil
	}

	out := ActiveSubscription{
		Active:         true,
		SubscriptionID: *rec.SubscriptionID,
		EndDate:        *rec.EndDate,
		Language:       rec.Language,
	}
	if out.Language == "" {
		out.Language = s.defaultLanguage
	}

	if left := rec.EndDate.Sub(now); left <= ExpiryWarningWindow {
		out.ExpiryWarning = &ExpiryWarning{DaysLeft: int(left / (24 * time.Hour))}
	}
	return out, nil
}

// Language возвращает сохраненный язык пользователя, даже если подписки нет
func (s *SubscriptionStore) Language(ctx context.Context, userID int64) (string, error) {
	rec, err := s.find(ctx, "language", userID)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.Language == "" {
		return s.defaultLanguage, nil
	}
	return rec.Language, nil
}

// find возвращает nil без ошибки, если записи нет: новый пользователь
// не повод для ошибки в логе
func (s *SubscriptionStore) find(ctx context.Context, op string, userID int64) (*Subscription, error) {
	var recs []Subscription
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&recs)
	if res.Error != nil {
		s.metrics.StoreError(op)
		return nil, &StoreError{Op: op, UserID: userID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Upsert перезаписывает подписку пользователя: новая покупка не продлевает
// старую, а заменяет ее. Возвращается уже после фиксации записи.
func (s *SubscriptionStore) Upsert(ctx context.Context, userID int64, subscriptionID, language string) (time.Time, error) {
	plan, err := s.catalog.Get(subscriptionID)
	if err != nil {
		return time.Time{}, &StoreError{Op: "upsert", UserID: userID, Err: err}
	}

	endDate := s.now().UTC().Add(time.Duration(plan.DurationDays) * 24 * time.Hour)
	if language == "" {
		language = s.defaultLanguage
	}

	rec := Subscription{
		UserID:         userID,
		SubscriptionID: &plan.ID,
		EndDate:        &endDate,
		Language:       language,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		s.metrics.StoreError("upsert")
		return time.Time{}, &StoreError{Op: "upsert", UserID: userID, Err: err}
	}

	slog.Info("Subscription saved", "user_id", userID, "plan_id", plan.ID, "end_date", endDate, "language", language)
	return endDate, nil
}

// SetLanguage сохраняет язык, не трогая подписку
func (s *SubscriptionStore) SetLanguage(ctx context.Context, userID int64, language string) error {
	rec := Subscription{UserID: userID, Language: language}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"language", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		s.metrics.StoreError("set_language")
		return &StoreError{Op: "set_language", UserID: userID, Err: err}
	}
	return nil
}

// ExpiringBetween возвращает подписки с окончанием в интервале (from, to]
func (s *SubscriptionStore) ExpiringBetween(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	var subs []Subscription
	err := s.db.WithContext(ctx).
		Where("subscription_id IS NOT NULL AND end_date > ? AND end_date <= ?", from.UTC(), to.UTC()).
		Order("end_date ASC").
		Find(&subs).Error
	if err != nil {
		s.metrics.StoreError("expiring")
		return nil, &StoreError{Op: "expiring", Err: err}
	}
	return subs, nil
}
