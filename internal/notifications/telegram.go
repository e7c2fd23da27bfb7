package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TelegramNotifier delivers alerts to a Telegram chat via the bot API
type TelegramNotifier struct {
	token  string
	chatID string
}

// NewTelegramNotifier creates a Telegram notifier for the given bot token
// and chat
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
	}
}

// Send delivers the alert as a Markdown-formatted Telegram message
func (t *TelegramNotifier) Send(alert Alert) error {
	emoji := "ℹ️"
	switch alert.Severity {
	case SeverityWarning:
		emoji = "⚠️"
	case SeverityCritical:
		emoji = "🚨"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Risk Engine Alert*\n\n[%s] %s", emoji, alert.Rule, alert.Message)
	for key, value := range alert.Context {
		fmt.Fprintf(&sb, "\n%s: %s", key, value)
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", sb.String())
	data.Set("parse_mode", "Markdown")

	resp, err := http.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
