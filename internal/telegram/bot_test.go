package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/conversation"
	"cryptoshop-bot/internal/i18n"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type echoHandler struct {
	mu     sync.Mutex
	events []conversation.Event
}

func (h *echoHandler) Handle(ctx context.Context, ev conversation.Event) conversation.Reply {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	return conversation.Reply{Text: "echo: " + ev.Text, Keyboard: conversation.KeyboardConfirm, Language: "en"}
}

func setupTestKeyboards(t *testing.T) *Keyboards {
	t.Helper()

	tr, err := i18n.New("ru", []string{"ru", "en"})
	if err != nil {
		t.Fatalf("failed to load translations: %v", err)
	}
	cat, err := catalog.New(
		catalog.Plan{ID: "p1", Name: "Basic", Price: 5, Currency: "USDT", DurationDays: 30},
		catalog.Plan{ID: "p2", Name: "Pro", Price: 12.5, Currency: "TON", DurationDays: 90},
	)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return NewKeyboards(tr, cat)
}

func setupTestService(t *testing.T) (*Service, *fakeSender, *echoHandler) {
	t.Helper()

	sender := &fakeSender{}
	handler := &echoHandler{}
	service := New(sender, handler, setupTestKeyboards(t), "ru")
	return service, sender, handler
}

func buttonTexts(markup interface{}) [][]string {
	kb, ok := markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		return nil
	}
	var rows [][]string
	for _, row := range kb.Keyboard {
		var texts []string
		for _, b := range row {
			texts = append(texts, b.Text)
		}
		rows = append(rows, texts)
	}
	return rows
}

func TestKeyboards(t *testing.T) {
	k := setupTestKeyboards(t)

	tests := []struct {
		name     string
		keyboard conversation.Keyboard
		lang     string
		want     [][]string
	}{
		{"Main in English", conversation.KeyboardMain, "en", [][]string{
			{"💰 Buy subscription"},
			{"👤 Profile", "ℹ️ Info"},
			{"🗑 Remove account"},
			{"🌐 Language"},
		}},
		{"Plans", conversation.KeyboardPlans, "ru", [][]string{
			{"Basic (5 USDT)"},
			{"Pro (12.5 TON)"},
			{"❌ Отмена"},
		}},
		{"Cancel", conversation.KeyboardCancel, "en", [][]string{{"❌ Cancel"}}},
		{"Confirm", conversation.KeyboardConfirm, "ru", [][]string{{"✅ Подтвердить", "❌ Отмена"}}},
		{"Payment", conversation.KeyboardPayment, "en", [][]string{{"🔄 Check payment", "❌ Cancel"}}},
		{"Languages", conversation.KeyboardLanguages, "en", [][]string{{"🇷🇺 Русский", "🇬🇧 English"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buttonTexts(k.Markup(tt.keyboard, tt.lang))
			if len(got) != len(tt.want) {
				t.Fatalf("Markup() rows = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("row %d = %q, want %q", i, got[i], tt.want[i])
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("button [%d][%d] = %q, want %q", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}

	if m := k.Markup(conversation.KeyboardNone, "ru"); m != nil {
		t.Errorf("Markup(None) = %#v, want nil", m)
	}
}

func TestNewSetsCommands(t *testing.T) {
	_, sender, _ := setupTestService(t)

	if len(sender.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(sender.requests))
	}
	cfg, ok := sender.requests[0].(tgbotapi.SetMyCommandsConfig)
	if !ok {
		t.Fatalf("request = %T, want SetMyCommandsConfig", sender.requests[0])
	}
	if len(cfg.Commands) != 1 || cfg.Commands[0].Command != "start" {
		t.Errorf("commands = %+v, want start", cfg.Commands)
	}
}

func TestHandleUpdate(t *testing.T) {
	service, sender, handler := setupTestService(t)
	ctx := context.Background()

	private := &tgbotapi.Chat{ID: 100, Type: "private"}
	group := &tgbotapi.Chat{ID: -5, Type: "group"}

	updates := []tgbotapi.Update{
		{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 100, UserName: "alice", FirstName: "Alice"}, Chat: private, Text: "hi"}},
		{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 100}, Chat: group, Text: "in group"}},
		{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 7, IsBot: true}, Chat: private, Text: "bot"}},
		{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 100, FirstName: "Alice", LastName: "Smith"}, Chat: private, Caption: "photo caption"}},
		{},
	}
	for _, upd := range updates {
		service.handleUpdate(ctx, upd)
	}
	service.dispatcher.Wait()

	if len(handler.events) != 2 {
		t.Fatalf("handled events = %+v, want 2", handler.events)
	}
	if ev := handler.events[0]; ev.UserID != 100 || ev.Text != "hi" || ev.Username != "alice" {
		t.Errorf("first event = %+v", ev)
	}
	if ev := handler.events[1]; ev.Text != "photo caption" || ev.FullName != "Alice Smith" {
		t.Errorf("second event = %+v", ev)
	}

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent = %d, want 2", len(msgs))
	}
	if msgs[0].ChatID != 100 || msgs[0].Text != "echo: hi" {
		t.Errorf("reply = %d %q", msgs[0].ChatID, msgs[0].Text)
	}
	rows := buttonTexts(msgs[0].ReplyMarkup)
	if len(rows) != 1 || rows[0][0] != "✅ Confirm" {
		t.Errorf("reply keyboard = %q, want English confirm", rows)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	service, sender, _ := setupTestService(t)

	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
		Text: "/start",
	}}
	close(updates)

	if err := service.Start(context.Background(), updates); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(sender.messages()) != 1 {
		t.Errorf("sent = %d, want 1 after Start returned", len(sender.messages()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Start(ctx, make(chan tgbotapi.Update)); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
}

// blockingHandler держит первое сообщение, пока тест не отпустит его
type blockingHandler struct {
	entered chan struct{}
	release chan struct{}

	mu   sync.Mutex
	errs []error
}

func (h *blockingHandler) Handle(ctx context.Context, ev conversation.Event) conversation.Reply {
	h.entered <- struct{}{}
	<-h.release

	h.mu.Lock()
	h.errs = append(h.errs, ctx.Err())
	h.mu.Unlock()
	return conversation.Reply{Text: "done", Keyboard: conversation.KeyboardMain}
}

func TestStartDrainsWithLiveContext(t *testing.T) {
	sender := &fakeSender{}
	handler := &blockingHandler{entered: make(chan struct{}, 1), release: make(chan struct{})}
	service := New(sender, handler, setupTestKeyboards(t), "ru")

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update)
	done := make(chan error, 1)
	go func() { done <- service.Start(ctx, updates) }()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
		Text: "/start",
	}}
	<-handler.entered

	cancel()
	close(handler.release)

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.errs) != 1 || handler.errs[0] != nil {
		t.Errorf("handler ctx errors = %v, want one live context", handler.errs)
	}
	if len(sender.messages()) != 1 {
		t.Errorf("sent = %d, want reply to the accepted message", len(sender.messages()))
	}
}

func TestNotifyUser(t *testing.T) {
	service, sender, _ := setupTestService(t)

	service.NotifyUser(55, "reminder", "")

	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0].ChatID != 55 {
		t.Fatalf("sent = %+v", msgs)
	}
	rows := buttonTexts(msgs[0].ReplyMarkup)
	if len(rows) == 0 || rows[0][0] != "💰 Купить подписку" {
		t.Errorf("keyboard = %q, want main menu in default language", rows)
	}
}

func TestAdminNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewAdminNotifier(sender, 999)

	n.NotifyAdmin("first")
	n.NotifyAdmin("second")
	n.Wait()

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent = %d, want 2", len(msgs))
	}
	for _, msg := range msgs {
		if msg.ChatID != 999 {
			t.Errorf("ChatID = %d, want 999", msg.ChatID)
		}
	}

	silent := NewAdminNotifier(sender, 0)
	silent.NotifyAdmin("nobody")
	silent.Wait()
	if len(sender.messages()) != 2 {
		t.Error("notifier without admin must not send")
	}
}

func TestIsUnreachable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Blocked by user", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, true},
		{"Bad request", &tgbotapi.Error{Code: 400, Message: "Bad Request"}, false},
		{"Network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUnreachable(tt.err); got != tt.want {
				t.Errorf("isUnreachable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
