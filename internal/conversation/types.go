package conversation

import "strconv"

// Event - входящее текстовое сообщение пользователя
type Event struct {
	UserID   int64
	Text     string
	Username string
	FullName string
}

// DisplayName - как показывать пользователя администратору
func (e Event) DisplayName() string {
	if e.Username != "" {
		return "@" + e.Username
	}
	if e.FullName != "" {
		return e.FullName
	}
	return "id" + strconv.FormatInt(e.UserID, 10)
}

// Keyboard - именованная клавиатура, которую рисует транспорт
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardPlans
	KeyboardCancel
	KeyboardConfirm
	KeyboardPayment
	KeyboardLanguages
)

func (k Keyboard) String() string {
	switch k {
	case KeyboardMain:
		return "main"
	case KeyboardPlans:
		return "plans"
	case KeyboardCancel:
		return "cancel"
	case KeyboardConfirm:
		return "confirm"
	case KeyboardPayment:
		return "payment"
	case KeyboardLanguages:
		return "languages"
	}
	return "none"
}

// Reply - ответ пользователю. Language нужен транспорту, чтобы подписать
// кнопки клавиатуры.
type Reply struct {
	Text     string
	Keyboard Keyboard
	Language string
}
