package conversation

import (
	"testing"

	"cryptoshop-bot/internal/i18n"
)

func TestClassify(t *testing.T) {
	tr, err := i18n.New("ru", []string{"ru", "en"})
	if err != nil {
		t.Fatalf("failed to load translations: %v", err)
	}
	c := NewClassifier(tr)

	tests := []struct {
		name     string
		text     string
		language string
		want     Action
	}{
		{"Start", "/start", "ru", Action{Kind: ActionStart}},
		{"Start with payload", "/start ref42", "en", Action{Kind: ActionStart}},
		{"Start with bot name", "/start@shop_bot", "ru", Action{Kind: ActionStart}},
		{"Not start", "/started", "ru", Action{Kind: ActionUnrecognized}},
		{"Russian cancel", "❌ Отмена", "ru", Action{Kind: ActionCancel}},
		{"English cancel", "❌ Cancel", "en", Action{Kind: ActionCancel}},
		{"Stale keyboard", "❌ Отмена", "en", Action{Kind: ActionCancel}},
		{"Surrounding spaces", "  ✅ Confirm ", "en", Action{Kind: ActionConfirm}},
		{"Buy", "💰 Купить подписку", "ru", Action{Kind: ActionBuy}},
		{"Check payment", "🔄 Check payment", "en", Action{Kind: ActionCheckPayment}},
		{"Language pick", "🇬🇧 English", "ru", Action{Kind: ActionSetLanguage, Language: "en"}},
		{"Free text", "hello", "ru", Action{Kind: ActionUnrecognized}},
		{"Empty", "   ", "ru", Action{Kind: ActionUnrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text, tt.language); got != tt.want {
				t.Errorf("Classify(%q, %q) = %+v, want %+v", tt.text, tt.language, got, tt.want)
			}
		})
	}
}
