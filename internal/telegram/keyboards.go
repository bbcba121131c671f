package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/conversation"
)

// Keyboards рисует именованные клавиатуры диалога на языке пользователя
type Keyboards struct {
	labels  Labels
	catalog *catalog.Catalog
}

func NewKeyboards(labels Labels, cat *catalog.Catalog) *Keyboards {
	return &Keyboards{labels: labels, catalog: cat}
}

func (k *Keyboards) button(key, lang string) tgbotapi.KeyboardButton {
	return tgbotapi.NewKeyboardButton(k.labels.Localize(key, lang))
}

// Markup возвращает nil для KeyboardNone: текущая клавиатура остается
func (k *Keyboards) Markup(kb conversation.Keyboard, lang string) interface{} {
	switch kb {
	case conversation.KeyboardMain:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(k.button("buy_subscription_button", lang)),
			tgbotapi.NewKeyboardButtonRow(
				k.button("profile_button", lang),
				k.button("info_button", lang),
			),
			tgbotapi.NewKeyboardButtonRow(k.button("remove_account_button", lang)),
			tgbotapi.NewKeyboardButtonRow(k.button("change_language_button", lang)),
		)

	case conversation.KeyboardPlans:
		var rows [][]tgbotapi.KeyboardButton
		for _, plan := range k.catalog.Plans() {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(plan.Label())))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(k.button("cancel_button", lang)))
		return tgbotapi.NewReplyKeyboard(rows...)

	case conversation.KeyboardCancel:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(k.button("cancel_button", lang)),
		)

	case conversation.KeyboardConfirm:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				k.button("confirm_button", lang),
				k.button("cancel_button", lang),
			),
		)

	case conversation.KeyboardPayment:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				k.button("check_payment_button", lang),
				k.button("cancel_button", lang),
			),
		)

	case conversation.KeyboardLanguages:
		var row []tgbotapi.KeyboardButton
		for _, l := range k.labels.Languages() {
			// Название языка всегда на самом этом языке
			row = append(row, k.button("language_name", l))
		}
		return tgbotapi.NewReplyKeyboard(row)
	}
	return nil
}
