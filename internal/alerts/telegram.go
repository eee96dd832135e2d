// Package alerts pushes sync outcomes and triggered price alerts to a
// Telegram chat. Notification is best-effort: a send failure is logged and
// never propagated into the job that triggered it.
package alerts

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/internal/pipeline/storage"
	"gadgetsync/pkg/logger"
)

// TelegramNotifier sends pipeline notifications to a single configured chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    logger.Logger
}

// NewTelegramNotifier connects to the Bot API. An empty token disables
// notification; callers get (nil, nil) and should carry a nil notifier.
func NewTelegramNotifier(token string, chatID int64, log logger.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// SyncOutcome reports a finished sync run to the chat.
func (n *TelegramNotifier) SyncOutcome(report models.SyncReport, failed bool) {
	var b strings.Builder
	if failed {
		fmt.Fprintf(&b, "⚠️ Sync finished with failures: %d/%d chunks failed\n", report.ChunksFail, report.ChunksTotal)
	} else {
		fmt.Fprintf(&b, "✅ Sync complete\n")
	}
	fmt.Fprintf(&b, "Items: %d/%d synced", report.TotalSynced, report.TotalFound)
	if len(report.FailedIDs) > 0 {
		fmt.Fprintf(&b, "\nFailed ids: %v", report.FailedIDs)
	}
	n.send(b.String())
}

// PriceDrop reports a triggered subscription for one catalog item.
func (n *TelegramNotifier) PriceDrop(product models.ProductRecord, newPrice float64, sub storage.AlertSubscription) {
	msg := fmt.Sprintf("📉 %s dropped to ₱%.2f (watch target ₱%.2f)", product.Name, newPrice, sub.TargetPrice)
	if product.AffiliateURL != "" {
		msg += "\n" + product.AffiliateURL
	}
	n.send(msg)
}

func (n *TelegramNotifier) send(text string) {
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.log.Log("telegram send failed: %v", err)
	}
}
