package paytest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cryptoshop-bot/internal/cryptopay"
)

const startupTimeout = 10 * time.Second

// Prober - клиент Crypto Pay, которого достаточно для проверки токена
type Prober interface {
	GetMe(ctx context.Context) (cryptopay.App, error)
}

// IntegrationTest проверяет подключение к Crypto Pay при старте
type IntegrationTest struct {
	client   Prober
	baseURL  string
	notifyFn func(message string)
}

func NewIntegrationTest(client Prober, baseURL string, notifyFn func(string)) *IntegrationTest {
	return &IntegrationTest{
		client:   client,
		baseURL:  baseURL,
		notifyFn: notifyFn,
	}
}

// RunStartupTest не останавливает бота при ошибке: покупки не будут
// работать, но профиль и остальное меню доступны
func (it *IntegrationTest) RunStartupTest(ctx context.Context) error {
	slog.Info("Starting Crypto Pay integration test", "url", it.baseURL)

	testCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	app, err := it.client.GetMe(testCtx)
	if err != nil {
		slog.Error("Crypto Pay integration test failed", "error", err)
		it.notifyFn(fmt.Sprintf("🚨 Crypto Pay недоступен при старте!\n\n❌ Ошибка: %v\n🌐 Адрес: %s\n\n⚠️ Счета не смогут создаваться!",
			err, it.baseURL))
		return err
	}

	if app.AppID == 0 {
		err := errors.New("getMe returned empty app")
		it.notifyFn(fmt.Sprintf("⚠️ Crypto Pay отвечает, но приложение не определено!\n\n❌ Ошибка: %v\n🌐 Адрес: %s",
			err, it.baseURL))
		return err
	}

	slog.Info("Crypto Pay integration test passed", "app_id", app.AppID, "app_name", app.Name)
	it.notifyFn(fmt.Sprintf("✅ Crypto Pay подключен успешно!\n\n🌐 Адрес: %s\n🤖 Приложение: %s (#%d)",
		it.baseURL, app.Name, app.AppID))
	return nil
}
