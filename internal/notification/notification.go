package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// KindEarningRecorded is emitted after an earning is credited.
	KindEarningRecorded = "earning.recorded"
	// KindWithdrawalRequested is emitted after a withdrawal is debited.
	KindWithdrawalRequested = "withdrawal.requested"
	// KindWithdrawalApproved is emitted when review approves a withdrawal.
	KindWithdrawalApproved = "withdrawal.approved"
	// KindWithdrawalRejected is emitted when review rejects a withdrawal.
	KindWithdrawalRejected = "withdrawal.rejected"

	subjectPrefix = "rewardhub."
)

// Message describes a notification payload.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	Reference   string    `json:"reference,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. Used when no bus is
// configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"reference", message.Reference,
		"body", message.Body,
	)
	return nil
}

// Publisher is the subset of *nats.Conn used by NATSNotifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes JSON encoded messages on rewardhub.<kind>.
type NATSNotifier struct {
	conn Publisher
}

// NewNATSNotifier builds a notifier over an established NATS connection.
func NewNATSNotifier(conn Publisher) *NATSNotifier {
	return &NATSNotifier{conn: conn}
}

// Subject returns the NATS subject for a message kind.
func Subject(kind string) string {
	return subjectPrefix + kind
}

// Send publishes the message. Delivery is fire-and-forget.
func (n *NATSNotifier) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message.OccurredAt.IsZero() {
		message.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.conn.Publish(Subject(message.Kind), payload); err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}
