package db

import (
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Subscription{},
		&Invoice{},
	)
	if err != nil {
		return err
	}

	return createExpiryIndex(db)
}

// createExpiryIndex ускоряет выборку напоминаний об истечении подписки
func createExpiryIndex(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		// Частичные индексы поддерживаются обеими базами
		return db.Exec("CREATE INDEX IF NOT EXISTS idx_subscriptions_end_date ON subscriptions (end_date) WHERE subscription_id IS NOT NULL").Error
	case "mysql":
		if db.Migrator().HasIndex(&Subscription{}, "idx_subscriptions_end_date") {
			return nil
		}
		return db.Exec("CREATE INDEX idx_subscriptions_end_date ON subscriptions (end_date)").Error
	}
	return nil
}
