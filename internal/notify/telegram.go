// Package notify pushes RiskAlerts to an operator's Telegram chat. Grounded on the
// teacher's internal/calculator/calculator/telegram_notifier.go, which pushed value-bet and
// line-movement alerts the same way; this package carries the same rate-limited send
// pattern and Markdown formatting, repurposed for risk alerts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// telegramSendInterval keeps sends under Telegram's per-chat rate limit (~30/min).
const telegramSendInterval = 2 * time.Second

// TelegramNotifier sends RiskAlert notifications to one configured chat.
type TelegramNotifier struct {
	bot         *tgbotapi.BotAPI
	chatID      int64
	minSeverity models.AlertSeverity
	mu          sync.Mutex
	lastSend    time.Time
}

// NewTelegramNotifier dials the bot and verifies the token by calling GetMe. Returns nil
// (not an error) on failure so the caller can run without Telegram notifications rather
// than fail startup, matching the teacher's pattern.
func NewTelegramNotifier(token string, chatID int64, minSeverity models.AlertSeverity) *TelegramNotifier {
	if token == "" {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("failed to verify telegram bot", "error", err)
		return nil
	}

	slog.Info("telegram notifier initialized", "chat_id", chatID)
	return &TelegramNotifier{bot: bot, chatID: chatID, minSeverity: minSeverity}
}

func severityRank(s models.AlertSeverity) int {
	switch s {
	case models.SeverityCritical:
		return 3
	case models.SeverityElevated:
		return 2
	default:
		return 1
	}
}

// NotifyRiskAlert sends one alert, subject to the configured minimum severity.
func (n *TelegramNotifier) NotifyRiskAlert(ctx context.Context, a models.RiskAlert, eventName string) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}
	if severityRank(a.Severity) < severityRank(n.minSeverity) {
		return nil
	}

	message := formatRiskAlert(a, eventName)
	msg := tgbotapi.NewMessage(n.chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.waitSendInterval(ctx); err != nil {
		return err
	}
	n.lastSend = time.Now()
	_, err := n.bot.Send(msg)
	return err
}

// waitSendInterval blocks until telegramSendInterval has elapsed since the last send. Call
// with n.mu held; releases it while waiting so a cancelled context doesn't wedge other
// callers.
func (n *TelegramNotifier) waitSendInterval(ctx context.Context) error {
	for {
		elapsed := time.Since(n.lastSend)
		if elapsed >= telegramSendInterval {
			return nil
		}
		wait := telegramSendInterval - elapsed
		if wait > 500*time.Millisecond {
			wait = 500 * time.Millisecond
		}
		n.mu.Unlock()
		select {
		case <-ctx.Done():
			n.mu.Lock()
			return ctx.Err()
		case <-time.After(wait):
			n.mu.Lock()
		}
	}
}

func formatRiskAlert(a models.RiskAlert, eventName string) string {
	var b strings.Builder
	icon := "⚠️"
	switch a.Severity {
	case models.SeverityCritical:
		icon = "🚨"
	case models.SeverityElevated:
		icon = "🔶"
	}
	b.WriteString(fmt.Sprintf("%s *%s* (%s)\n\n", icon, strings.ToUpper(string(a.Severity)), string(a.Type)))
	if eventName != "" {
		b.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(eventName)))
	}
	b.WriteString(fmt.Sprintf("📌 %s | %s (%s)\n", string(a.Book), a.CanonicalMarket, a.OutcomeName))
	switch a.Type {
	case models.AlertPriceChange:
		b.WriteString(fmt.Sprintf("Was: *%.2f* → now: *%.2f* (%+.1f%%)\n", a.OldValue, a.NewValue, a.ChangePercent))
	case models.AlertAvailability:
		b.WriteString(fmt.Sprintf("Market no longer offered (last price *%.2f*)\n", a.OldValue))
	case models.AlertDirectionDisagree:
		direction := ""
		if a.CompetitorDirection != nil {
			direction = *a.CompetitorDirection
		}
		b.WriteString(fmt.Sprintf("Books disagree on direction (%s): %+.1f%% vs %+.1f%%\n", direction, a.OldValue, a.NewValue))
	}
	b.WriteString(fmt.Sprintf("🕐 %s\n", a.DetectedAt.Format("2006-01-02 15:04 UTC")))
	return b.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}
