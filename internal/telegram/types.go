package telegram

// Command представляет команду бота
type Command string

const (
	CmdStart Command = "start"
)

func (c Command) String() string {
	return string(c)
}

// Description - подпись команды в меню Telegram
func (c Command) Description() string {
	switch c {
	case CmdStart:
		return "🚀 Главное меню"
	}
	return ""
}

var menuCommands = []Command{CmdStart}
