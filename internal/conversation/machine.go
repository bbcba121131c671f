package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/db"
	"cryptoshop-bot/internal/metrics"
)

type Deps struct {
	Sessions SessionStore
	Store    Store
	Gateway  Gateway
	Catalog  *catalog.Catalog
	Loc      Localizer
	Notifier Notifier
	Metrics  *metrics.Metrics

	DefaultLanguage string
	// MaxPaymentChecks - после стольких неоплаченных проверок диалог
	// сбрасывается, а счет передается сверщику. 0 - без ограничения.
	MaxPaymentChecks int
}

// Machine - конечный автомат диалога покупки
type Machine struct {
	sessions   SessionStore
	store      Store
	gateway    Gateway
	catalog    *catalog.Catalog
	loc        Localizer
	classifier *Classifier
	notifier   Notifier
	metrics    *metrics.Metrics

	defaultLanguage string
	maxChecks       int
	newOrderID      func() string
}

func NewMachine(d Deps) *Machine {
	return &Machine{
		sessions:        d.Sessions,
		store:           d.Store,
		gateway:         d.Gateway,
		catalog:         d.Catalog,
		loc:             d.Loc,
		classifier:      NewClassifier(d.Loc),
		notifier:        d.Notifier,
		metrics:         d.Metrics,
		defaultLanguage: d.DefaultLanguage,
		maxChecks:       d.MaxPaymentChecks,
		newOrderID:      func() string { return uuid.NewString()[:8] },
	}
}

// Handle обрабатывает одно сообщение. Сообщения одного пользователя
// выполняются строго по очереди.
func (m *Machine) Handle(ctx context.Context, ev Event) Reply {
	unlock := m.sessions.Lock(ev.UserID)
	defer unlock()

	current := m.sessions.Get(ev.UserID).State

	sub, err := m.store.GetActive(ctx, ev.UserID)
	var lang string
	if err == nil {
		lang, err = m.store.Language(ctx, ev.UserID)
	}
	if err != nil {
		m.abandon(ctx, ev, current)
		m.sessions.Reset(ev.UserID)
		m.transition(ev, current, Idle{})
		text := m.fail(ev, m.defaultLanguage, ErrStoref(err, "read subscription"))
		return Reply{Text: text, Keyboard: KeyboardMain, Language: m.defaultLanguage}
	}
	// Язык могли убрать из конфигурации после того, как пользователь его выбрал
	if lang = m.loc.Supported(lang); lang == "" {
		lang = m.defaultLanguage
	}

	action := m.classifier.Classify(ev.Text, lang)
	reply, next := m.step(ctx, ev, sub, lang, current, action)
	if reply.Language == "" {
		reply.Language = lang
	}

	m.sessions.Put(ev.UserID, next)
	m.transition(ev, current, next)
	return reply
}

func (m *Machine) transition(ev Event, from, to State) {
	if from.Name() == to.Name() {
		return
	}
	m.metrics.Transition(from.Name().String(), to.Name().String())
	slog.Debug("State changed", "user_id", ev.UserID, "from", from.Name(), "to", to.Name())
}

func (m *Machine) step(ctx context.Context, ev Event, sub db.ActiveSubscription, lang string, state State, action Action) (Reply, State) {
	if action.Kind == ActionStart {
		m.abandon(ctx, ev, state)
		return m.welcome(lang), Idle{}
	}

	// Отмена проверяется раньше любого разбора ввода
	if _, idle := state.(Idle); !idle && action.Kind == ActionCancel {
		return m.cancel(ctx, ev, lang, state), Idle{}
	}

	switch s := state.(type) {
	case SelectingPlan:
		return m.selectPlan(ev, lang, s)
	case EnteringTarget:
		return m.enterTarget(ev, lang)
	case ConfirmingPurchase:
		return m.confirmPurchase(ctx, ev, lang, s, action)
	case ConfirmingRemoval:
		return m.confirmRemoval(ev, lang, s, action)
	case CheckingPayment:
		return m.checkPayment(ctx, ev, lang, s, action)
	default:
		return m.handleMenu(ctx, ev, sub, lang, action)
	}
}

func (m *Machine) t(key, lang string) string {
	return m.loc.Localize(key, lang)
}

func (m *Machine) welcome(lang string) Reply {
	return Reply{Text: "🎉 " + m.t("welcome_message", lang), Keyboard: KeyboardMain}
}

func (m *Machine) cancel(ctx context.Context, ev Event, lang string, state State) Reply {
	if s, ok := state.(CheckingPayment); ok {
		m.markInvoice(ctx, s.InvoiceID, db.InvoiceCancelled)
	}
	slog.Info("User canceled action", "user_id", ev.UserID, "state", state.Name(), "language", lang)
	return Reply{Text: "🚫 " + m.t("action_canceled", lang), Keyboard: KeyboardMain}
}

// abandon передает счет сверщику, если пользователь ушел из ожидания оплаты
// не через отмену: оплата могла пройти, и подписку надо активировать
func (m *Machine) abandon(ctx context.Context, ev Event, state State) {
	s, ok := state.(CheckingPayment)
	if !ok {
		return
	}
	slog.Info("Invoice left without check", "user_id", ev.UserID, "invoice_id", s.InvoiceID)
	m.markInvoice(ctx, s.InvoiceID, db.InvoiceOrphaned)
}

func (m *Machine) handleMenu(ctx context.Context, ev Event, sub db.ActiveSubscription, lang string, action Action) (Reply, State) {
	switch action.Kind {
	case ActionBuy:
		slog.Info("User started subscription purchase", "user_id", ev.UserID, "language", lang)
		return Reply{Text: "💰 " + m.t("select_subscription", lang), Keyboard: KeyboardPlans}, SelectingPlan{}

	case ActionRemove:
		if !sub.Active {
			slog.Info("User lacks subscription for account removal", "user_id", ev.UserID)
			return Reply{Text: "❌ " + m.t("need_subscription", lang), Keyboard: KeyboardMain}, Idle{}
		}
		slog.Info("User started account removal process", "user_id", ev.UserID)
		return Reply{Text: "🔍 " + m.t("enter_target", lang), Keyboard: KeyboardCancel}, EnteringTarget{}

	case ActionProfile:
		return Reply{Text: m.profile(ev, sub, lang), Keyboard: KeyboardMain}, Idle{}

	case ActionInfo:
		return Reply{Text: m.info(lang), Keyboard: KeyboardMain}, Idle{}

	case ActionLanguageMenu:
		return Reply{Text: "🌐 " + m.t("select_language", lang), Keyboard: KeyboardLanguages}, Idle{}

	case ActionSetLanguage:
		if err := m.store.SetLanguage(ctx, ev.UserID, action.Language); err != nil {
			text := m.fail(ev, lang, ErrStoref(err, "set language %s", action.Language))
			return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
		}
		slog.Info("User changed language", "user_id", ev.UserID, "from", lang, "to", action.Language)
		return Reply{
			Text:     "✅ " + m.t("language_changed", action.Language),
			Keyboard: KeyboardMain,
			Language: action.Language,
		}, Idle{}
	}

	// В IDLE нечего отменять или подтверждать: отмена здесь ничего не меняет
	text := "❓ " + m.t("invalid_input", lang)
	m.fail(ev, lang, ErrValidationf("invalid_input", "menu input %q", ev.Text))
	return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
}

func (m *Machine) selectPlan(ev Event, lang string, s SelectingPlan) (Reply, State) {
	plan, ok := m.catalog.MatchPrefix(strings.TrimSpace(ev.Text))
	if !ok {
		text := m.fail(ev, lang, ErrValidationf("select_valid_plan", "unknown plan %q", ev.Text))
		return Reply{Text: text, Keyboard: KeyboardPlans}, s
	}

	slog.Info("User selected subscription", "user_id", ev.UserID, "plan_id", plan.ID)
	text := fmt.Sprintf("✅ %s: %s\n💸 %s:", m.t("selected", lang), plan.Label(), m.t("confirm_purchase", lang))
	return Reply{Text: text, Keyboard: KeyboardConfirm}, ConfirmingPurchase{PlanID: plan.ID}
}

func (m *Machine) enterTarget(ev Event, lang string) (Reply, State) {
	target := ev.Text
	if strings.TrimSpace(target) == "" {
		text := m.fail(ev, lang, ErrValidationf("enter_target", "empty target"))
		return Reply{Text: text, Keyboard: KeyboardCancel}, EnteringTarget{}
	}

	slog.Info("User entered target", "user_id", ev.UserID, "target", target)
	text := fmt.Sprintf("🔍 %s: %s\n💸 %s:", m.t("target_confirmation", lang), target, m.t("confirm_order", lang))
	return Reply{Text: text, Keyboard: KeyboardConfirm}, ConfirmingRemoval{Target: target}
}

func (m *Machine) confirmPurchase(ctx context.Context, ev Event, lang string, s ConfirmingPurchase, action Action) (Reply, State) {
	if action.Kind != ActionConfirm {
		text := "❓ " + m.t("confirm_or_cancel", lang)
		m.fail(ev, lang, ErrValidationf("confirm_or_cancel", "confirmation input %q", ev.Text))
		return Reply{Text: text, Keyboard: KeyboardConfirm}, s
	}

	plan, err := m.catalog.Get(s.PlanID)
	if err != nil {
		text := m.fail(ev, lang, ErrOrderf(err, "plan %s disappeared from catalog", s.PlanID))
		return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
	}

	description := fmt.Sprintf(m.t("invoice_description", lang), plan.Name)
	inv, err := m.gateway.CreateInvoice(ctx, plan.Amount(), plan.Currency, description)
	if err != nil {
		m.metrics.InvoiceFailed(plan.Currency)
		text := m.fail(ev, lang, ErrGatewayf(err, "invoice_error", "create invoice for plan %s", plan.ID))
		return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
	}
	m.metrics.InvoiceCreated(plan.Currency)

	// Журнал нужен только сверщику, поэтому его сбой не прерывает покупку
	err = m.store.RecordInvoice(ctx, &db.Invoice{
		InvoiceID: inv.ID,
		UserID:    ev.UserID,
		PlanID:    plan.ID,
		PayURL:    inv.PayURL,
		Language:  lang,
	})
	if err != nil {
		slog.Warn("Failed to record invoice", "user_id", ev.UserID, "invoice_id", inv.ID, "error", err)
	}

	slog.Info("Invoice created", "user_id", ev.UserID, "invoice_id", inv.ID, "plan_id", plan.ID)
	m.notifier.NotifyAdmin(fmt.Sprintf("Новый заказ подписки!\nПользователь: %s\nПодписка: %s\nСчет: %s",
		ev.DisplayName(), plan.Name, inv.PayURL))

	text := fmt.Sprintf("💳 %s! %s:\n%s\n✅ %s.",
		m.t("invoice_created", lang), m.t("pay_here", lang), inv.PayURL, m.t("check_payment", lang))
	return Reply{Text: text, Keyboard: KeyboardPayment}, CheckingPayment{
		InvoiceID: inv.ID,
		PlanID:    plan.ID,
		PayURL:    inv.PayURL,
	}
}

func (m *Machine) confirmRemoval(ev Event, lang string, s ConfirmingRemoval, action Action) (Reply, State) {
	if action.Kind != ActionConfirm {
		text := "❓ " + m.t("confirm_or_cancel", lang)
		m.fail(ev, lang, ErrValidationf("confirm_or_cancel", "confirmation input %q", ev.Text))
		return Reply{Text: text, Keyboard: KeyboardConfirm}, s
	}

	orderID := m.newOrderID()
	m.notifier.NotifyAdmin(fmt.Sprintf("Новый заказ сноса!\nПользователь: %s\nЦель: %s\nЗаказ: #%s",
		ev.DisplayName(), s.Target, orderID))
	m.metrics.RemovalOrder()

	slog.Info("Account removal order placed", "user_id", ev.UserID, "target", s.Target, "order_id", orderID)
	text := fmt.Sprintf("✅ %s\n%s: #%s", m.t("order_accepted", lang), m.t("order_reference", lang), orderID)
	return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
}

func (m *Machine) checkPayment(ctx context.Context, ev Event, lang string, s CheckingPayment, action Action) (Reply, State) {
	if action.Kind != ActionCheckPayment {
		text := "❓ " + m.t("check_or_cancel", lang)
		m.fail(ev, lang, ErrValidationf("check_or_cancel", "payment check input %q", ev.Text))
		return Reply{Text: text, Keyboard: KeyboardPayment}, s
	}

	state, err := m.gateway.InvoiceStatus(ctx, s.InvoiceID)
	if err != nil {
		m.metrics.PaymentCheck("error")
		// Сессия сбрасывается, но счет остается в журнале, и сверщик
		// активирует подписку, если оплата все-таки прошла
		m.markInvoice(ctx, s.InvoiceID, db.InvoiceOrphaned)
		text := m.fail(ev, lang, ErrGatewayf(err, "payment_check_error", "check invoice %s", s.InvoiceID))
		return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
	}

	if !state.Paid() {
		m.metrics.PaymentCheck("pending")
		s.Checks++
		if m.maxChecks > 0 && s.Checks >= m.maxChecks {
			m.markInvoice(ctx, s.InvoiceID, db.InvoiceOrphaned)
			slog.Info("Payment check limit reached", "user_id", ev.UserID, "invoice_id", s.InvoiceID, "checks", s.Checks)
			return Reply{Text: "⏳ " + m.t("payment_check_limit", lang), Keyboard: KeyboardMain}, Idle{}
		}
		slog.Info("Payment pending", "user_id", ev.UserID, "invoice_id", s.InvoiceID, "status", state.Status)
		return Reply{Text: "⏳ " + m.t("payment_pending", lang), Keyboard: KeyboardPayment}, s
	}

	m.metrics.PaymentCheck("paid")

	// Сначала запись, потом сообщение пользователю
	endDate, err := m.store.Upsert(ctx, ev.UserID, s.PlanID, lang)
	if err != nil {
		m.markInvoice(ctx, s.InvoiceID, db.InvoiceOrphaned)
		text := m.fail(ev, lang, ErrStoref(err, "activate plan %s for paid invoice %s", s.PlanID, s.InvoiceID))
		return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
	}
	m.markInvoice(ctx, s.InvoiceID, db.InvoicePaid)
	m.metrics.SubscriptionActivated(s.PlanID, "chat")

	planName := s.PlanID
	if plan, err := m.catalog.Get(s.PlanID); err == nil {
		planName = plan.Name
	}

	payURL := state.PayURL
	if payURL == "" {
		payURL = s.PayURL
	}
	m.notifier.NotifyAdmin(fmt.Sprintf("Оплата подтверждена!\nПользователь: %s\nПодписка: %s\nСчет: %s",
		ev.DisplayName(), planName, payURL))

	slog.Info("Payment confirmed", "user_id", ev.UserID, "invoice_id", s.InvoiceID, "end_date", endDate)
	text := fmt.Sprintf("💸 %s! 🎉 %s %s!", m.t("payment_confirmed", lang), m.t("subscription_activated", lang), planName)
	return Reply{Text: text, Keyboard: KeyboardMain}, Idle{}
}

func (m *Machine) markInvoice(ctx context.Context, invoiceID, status string) {
	if err := m.store.SetInvoiceStatus(ctx, invoiceID, status); err != nil {
		slog.Warn("Failed to update invoice status", "invoice_id", invoiceID, "status", status, "error", err)
	}
}

func (m *Machine) profile(ev Event, sub db.ActiveSubscription, lang string) string {
	username := "@" + ev.Username
	if ev.Username == "" {
		username = m.t("no_username", lang)
	}

	subInfo := fmt.Sprintf("📅 %s: %s", m.t("subscription", lang), m.t("no_subscription", lang))
	if sub.Active {
		name := sub.SubscriptionID
		if plan, err := m.catalog.Get(sub.SubscriptionID); err == nil {
			name = plan.Name
		}
		subInfo = fmt.Sprintf("📅 %s: %s\n📅 %s: %s",
			m.t("subscription", lang), name,
			m.t("expires", lang), sub.EndDate.UTC().Format("02.01.2006 15:04 UTC"))
	}

	text := fmt.Sprintf("👤 %s:\n🆔 %s: %d\n👤 %s: %s\n📧 %s: %s\n%s",
		m.t("user_info", lang),
		m.t("id", lang), ev.UserID,
		m.t("name", lang), ev.FullName,
		m.t("username", lang), username,
		subInfo,
	)
	if sub.ExpiryWarning != nil {
		text += "\n⚠️ " + fmt.Sprintf(m.t("expiry_warning", lang), sub.ExpiryWarning.DaysLeft)
	}
	return text
}

func (m *Machine) info(lang string) string {
	return fmt.Sprintf("ℹ️ %s:\n📌 %s\n🔧 %s\n1. 💸 %s\n2. 🔍 %s\n3. 🚀 %s\n⚠️ %s %s\n📞 %s",
		m.t("service_info", lang),
		m.t("service_name", lang),
		m.t("how_it_works", lang),
		m.t("buy_plan", lang),
		m.t("enter_target_account", lang),
		m.t("send_complaints", lang),
		m.t("warning", lang), m.t("no_guarantee", lang),
		m.t("support", lang),
	)
}

func (m *Machine) Session(userID int64) Session {
	return m.sessions.Get(userID)
}
