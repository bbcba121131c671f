package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/cryptopay"
	"cryptoshop-bot/internal/db"
	"cryptoshop-bot/internal/metrics"
)

const (
	healthCheckSchedule = "*/5 * * * *"

	// Сколько счетов сверщик обрабатывает за один запуск
	reconcileBatch = 50
	// Неоплаченный счет старше этого срока больше не ждем
	maxInvoiceAge = 48 * time.Hour

	jobTimeout = 2 * time.Minute
)

type Store interface {
	Upsert(ctx context.Context, userID int64, subscriptionID, language string) (time.Time, error)

	ExpiringBetween(ctx context.Context, from, to time.Time) ([]db.Subscription, error)

	InvoicesByStatus(ctx context.Context, status string, limit int) ([]db.Invoice, error)

	SetInvoiceStatus(ctx context.Context, invoiceID, status string) error

	OrphanPending(ctx context.Context) (int64, error)
}

type Gateway interface {
	InvoiceStatus(ctx context.Context, invoiceID string) (cryptopay.InvoiceState, error)

	GetMe(ctx context.Context) (cryptopay.App, error)
}

type UserNotifier interface {
	NotifyUser(userID int64, text, language string)
}

type AdminNotifier interface {
	NotifyAdmin(text string)
}

type Localizer interface {
	Localize(key, language string) string
}

type Config struct {
	ReconcileSchedule string
	ReminderSchedule  string
}

type Deps struct {
	Store   Store
	Gateway Gateway
	Catalog *catalog.Catalog
	Loc     Localizer
	Users   UserNotifier
	Admin   AdminNotifier
	Metrics *metrics.Metrics
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	store   Store
	gateway Gateway
	catalog *catalog.Catalog
	loc     Localizer
	users   UserNotifier
	admin   AdminNotifier
	metrics *metrics.Metrics
	now     func() time.Time

	gatewayDown atomic.Bool
}

func NewScheduler(cfg Config, d Deps) *Scheduler {
	return &Scheduler{
		// Медленный запуск не должен накладываться на следующий
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		cfg:     cfg,
		store:   d.Store,
		gateway: d.Gateway,
		catalog: d.Catalog,
		loc:     d.Loc,
		users:   d.Users,
		admin:   d.Admin,
		metrics: d.Metrics,
		now:     time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Сессии после рестарта пусты, ожидающие счета достаются сверщику
	if n, err := s.store.OrphanPending(ctx); err != nil {
		slog.Error("Failed to orphan pending invoices", "error", err)
	} else if n > 0 {
		slog.Info("Pending invoices handed to reconciler", "count", n)
	}

	// Cron-задача: сверка потерянных счетов
	_, err := s.cron.AddFunc(s.cfg.ReconcileSchedule, s.job(s.reconcileInvoices))
	if err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	// Cron-задача: напоминания об истечении
	_, err = s.cron.AddFunc(s.cfg.ReminderSchedule, s.job(s.sendExpirationReminders))
	if err != nil {
		return fmt.Errorf("failed to add expiration reminders job: %w", err)
	}

	// Cron-задача: health-check Crypto Pay (каждые 5 минут)
	_, err = s.cron.AddFunc(healthCheckSchedule, s.job(s.healthCheckGateway))
	if err != nil {
		return fmt.Errorf("failed to add health check job: %w", err)
	}

	s.cron.Start()
	slog.Info("Cron scheduler started")

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) job(run func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		run(ctx)
	}
}

// reconcileInvoices проверяет счета, которые пользователь перестал
// отслеживать, и активирует подписку, если оплата все-таки пришла
func (s *Scheduler) reconcileInvoices(ctx context.Context) {
	invoices, err := s.store.InvoicesByStatus(ctx, db.InvoiceOrphaned, reconcileBatch)
	if err != nil {
		slog.Error("Error fetching orphaned invoices", "error", err)
		return
	}
	if len(invoices) == 0 {
		return
	}

	slog.Info("Reconciling orphaned invoices", "count", len(invoices))

	for _, inv := range invoices {
		if ctx.Err() != nil {
			return
		}
		s.reconcileInvoice(ctx, inv)
	}
}

func (s *Scheduler) reconcileInvoice(ctx context.Context, inv db.Invoice) {
	state, err := s.gateway.InvoiceStatus(ctx, inv.InvoiceID)
	if err != nil {
		s.metrics.Reconciled("error")
		slog.Warn("Failed to check orphaned invoice", "invoice_id", inv.InvoiceID, "error", err)
		return
	}

	switch {
	case state.Paid():
		endDate, err := s.store.Upsert(ctx, inv.UserID, inv.PlanID, inv.Language)
		if err != nil {
			// Счет остается orphaned, попробуем в следующий раз
			s.metrics.Reconciled("error")
			slog.Error("Failed to activate reconciled subscription", "invoice_id", inv.InvoiceID, "user_id", inv.UserID, "error", err)
			return
		}
		s.setStatus(ctx, inv.InvoiceID, db.InvoicePaid)
		s.metrics.Reconciled("paid")
		s.metrics.SubscriptionActivated(inv.PlanID, "reconciler")

		planName := s.planName(inv.PlanID)
		slog.Info("Orphaned invoice paid, subscription activated", "invoice_id", inv.InvoiceID, "user_id", inv.UserID, "end_date", endDate)

		s.users.NotifyUser(inv.UserID,
			fmt.Sprintf("💸 %s %s", s.loc.Localize("payment_recovered", inv.Language), planName),
			inv.Language)
		s.admin.NotifyAdmin(fmt.Sprintf("Оплата найдена сверкой!\nПользователь: id%d\nПодписка: %s\nСчет: %s",
			inv.UserID, planName, inv.InvoiceID))

	case state.Status == cryptopay.StatusExpired || s.now().Sub(inv.CreatedAt) > maxInvoiceAge:
		s.setStatus(ctx, inv.InvoiceID, db.InvoiceExpired)
		s.metrics.Reconciled("expired")
		slog.Info("Orphaned invoice expired", "invoice_id", inv.InvoiceID, "status", state.Status)

	default:
		s.metrics.Reconciled("pending")
	}
}

func (s *Scheduler) setStatus(ctx context.Context, invoiceID, status string) {
	if err := s.store.SetInvoiceStatus(ctx, invoiceID, status); err != nil {
		slog.Error("Failed to update invoice status", "invoice_id", invoiceID, "status", status, "error", err)
	}
}

func (s *Scheduler) planName(planID string) string {
	if plan, err := s.catalog.Get(planID); err == nil {
		return plan.Name
	}
	return planID
}

// sendExpirationReminders отправляет напоминания о скором истечении подписок
func (s *Scheduler) sendExpirationReminders(ctx context.Context) {
	slog.Info("Checking for expiration reminders...")

	// Окно в сутки, чтобы ежедневный запуск напоминал каждому ровно один раз
	now := s.now()
	subs, err := s.store.ExpiringBetween(ctx, now.Add(2*24*time.Hour), now.Add(3*24*time.Hour))
	if err != nil {
		slog.Error("Error fetching soon expiring subscriptions", "error", err)
		return
	}

	if len(subs) == 0 {
		return
	}

	slog.Info("Found subscriptions expiring soon", "count", len(subs))

	for _, sub := range subs {
		if sub.SubscriptionID == nil || sub.EndDate == nil {
			continue
		}
		text := "⚠️ " + fmt.Sprintf(s.loc.Localize("expiry_reminder", sub.Language),
			s.planName(*sub.SubscriptionID),
			sub.EndDate.UTC().Format("02.01.2006"),
		)
		s.users.NotifyUser(sub.UserID, text, sub.Language)
	}
}

// healthCheckGateway проверяет доступность Crypto Pay. Алерт уходит только
// при смене состояния, чтобы не засыпать админа одинаковыми сообщениями.
func (s *Scheduler) healthCheckGateway(ctx context.Context) {
	_, err := s.gateway.GetMe(ctx)
	if err != nil {
		if !s.gatewayDown.Swap(true) {
			s.sendHealthAlert(fmt.Sprintf("❌ Crypto Pay недоступен: %v", err))
		}
		return
	}

	if s.gatewayDown.Swap(false) {
		s.admin.NotifyAdmin("✅ Crypto Pay снова доступен")
	}
	slog.Debug("Crypto Pay health check passed")
}

// sendHealthAlert отправляет алерт о проблемах со здоровьем системы
func (s *Scheduler) sendHealthAlert(message string) {
	slog.Warn("Health alert", "message", message)
	s.admin.NotifyAdmin("🚨 " + message)
}
