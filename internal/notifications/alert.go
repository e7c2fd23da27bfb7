package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how urgent an alert is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a single risk event emitted to the notification channel.
// The engine keeps no alert history beyond what breaker hysteresis needs;
// delivery is best-effort.
type Alert struct {
	ID        string
	Severity  Severity
	Rule      string // rule or monitor that raised the alert
	Message   string
	Context   map[string]string
	Timestamp time.Time
}

// NewAlert creates an alert with a fresh ID and timestamp
func NewAlert(severity Severity, rule, format string, args ...interface{}) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Rule:      rule,
		Message:   fmt.Sprintf(format, args...),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// WithContext attaches a key/value pair to the alert
func (a Alert) WithContext(key, value string) Alert {
	a.Context[key] = value
	return a
}

// Notifier defines the interface for notification services
type Notifier interface {
	// Send delivers an alert, best-effort; no delivery guarantee is assumed
	Send(alert Alert) error
}
