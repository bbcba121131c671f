package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminNotifier отправляет сообщения администратору в фоне, чтобы
// медленный Telegram не задерживал ответ пользователю
type AdminNotifier struct {
	sender  Sender
	adminID int64
	wg      sync.WaitGroup
}

func NewAdminNotifier(sender Sender, adminID int64) *AdminNotifier {
	return &AdminNotifier{sender: sender, adminID: adminID}
}

func (n *AdminNotifier) NotifyAdmin(text string) {
	if n.adminID == 0 {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		msg := tgbotapi.NewMessage(n.adminID, text)
		if _, err := n.sender.Send(msg); err != nil {
			logSendError(n.adminID, "admin notification", err)
		}
	}()
}

// Wait дожидается отправки уже принятых уведомлений
func (n *AdminNotifier) Wait() {
	n.wg.Wait()
}
