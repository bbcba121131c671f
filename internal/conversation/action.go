package conversation

import "strings"

// ActionKind - что пользователь имел в виду, независимо от языка подписи
type ActionKind int

const (
	ActionUnrecognized ActionKind = iota
	ActionStart
	ActionBuy
	ActionRemove
	ActionProfile
	ActionInfo
	ActionLanguageMenu
	ActionSetLanguage
	ActionCancel
	ActionConfirm
	ActionCheckPayment
)

func (k ActionKind) String() string {
	switch k {
	case ActionStart:
		return "start"
	case ActionBuy:
		return "buy"
	case ActionRemove:
		return "remove"
	case ActionProfile:
		return "profile"
	case ActionInfo:
		return "info"
	case ActionLanguageMenu:
		return "language_menu"
	case ActionSetLanguage:
		return "set_language"
	case ActionCancel:
		return "cancel"
	case ActionConfirm:
		return "confirm"
	case ActionCheckPayment:
		return "check_payment"
	}
	return "unrecognized"
}

type Action struct {
	Kind ActionKind
	// Language заполнен только для ActionSetLanguage
	Language string
}

const startCommand = "/start"

var buttonActions = []struct {
	key  string
	kind ActionKind
}{
	{"cancel_button", ActionCancel},
	{"confirm_button", ActionConfirm},
	{"check_payment_button", ActionCheckPayment},
	{"buy_subscription_button", ActionBuy},
	{"remove_account_button", ActionRemove},
	{"profile_button", ActionProfile},
	{"info_button", ActionInfo},
	{"change_language_button", ActionLanguageMenu},
}

// Classifier сопоставляет текст с подписями кнопок. Сначала проверяется
// язык пользователя, затем остальные: после смены языка у пользователя
// может остаться клавиатура со старыми подписями.
type Classifier struct {
	loc Localizer
}

func NewClassifier(loc Localizer) *Classifier {
	return &Classifier{loc: loc}
}

func (c *Classifier) Classify(text, language string) Action {
	text = strings.TrimSpace(text)
	if text == "" {
		return Action{Kind: ActionUnrecognized}
	}

	if text == startCommand || strings.HasPrefix(text, startCommand+" ") || strings.HasPrefix(text, startCommand+"@") {
		return Action{Kind: ActionStart}
	}

	for _, lang := range c.languageOrder(language) {
		for _, b := range buttonActions {
			if text == c.loc.Localize(b.key, lang) {
				return Action{Kind: b.kind}
			}
		}
	}

	for _, lang := range c.loc.Languages() {
		if text == c.loc.Localize("language_name", lang) {
			return Action{Kind: ActionSetLanguage, Language: lang}
		}
	}

	return Action{Kind: ActionUnrecognized}
}

func (c *Classifier) languageOrder(language string) []string {
	order := []string{language}
	for _, lang := range c.loc.Languages() {
		if lang != language {
			order = append(order, lang)
		}
	}
	return order
}
