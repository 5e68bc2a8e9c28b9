package notify

import (
	"log"

	"cabshare/backend/internal/models"
	"cabshare/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier decorates another Notifier and additionally forwards the
// notice to the user's linked Telegram chat, when one exists. Configured
// only when TELEGRAM_BOT_TOKEN is set; everything here is best effort.
type TelegramNotifier struct {
	Next    Notifier
	Storage storage.Storage
	Bot     *tgbotapi.BotAPI
}

func NewTelegramNotifier(token string, next Notifier, s storage.Storage) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("Telegram notifier authorized as @%s", bot.Self.UserName)
	return &TelegramNotifier{Next: next, Storage: s, Bot: bot}, nil
}

func (t *TelegramNotifier) Notify(userID string, n *models.Notification) {
	t.Next.Notify(userID, n)

	user, err := t.Storage.GetUserByID(userID)
	if err != nil {
		log.Printf("WARNING: Telegram lookup failed for %s: %v", userID, err)
		return
	}
	if user == nil || user.TelegramChatID == 0 {
		return
	}

	msg := tgbotapi.NewMessage(user.TelegramChatID, n.Message)
	if _, err := t.Bot.Send(msg); err != nil {
		log.Printf("WARNING: Telegram delivery failed for %s: %v", userID, err)
	}
}
