package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"onboard/internal/kyc/ports"
	"onboard/pkg/requestcontext"
)

// Producer publishes one record. Satisfied by the platform kafka client.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaNotifier queues notifications on a topic consumed by the email service.
// Records are keyed by user so a user's notifications stay ordered.
type KafkaNotifier struct {
	producer Producer
	topic    string
}

func NewKafkaNotifier(producer Producer, topic string) ports.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	value, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	headers := map[string]string{"kind": string(notification.Kind)}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		headers["request_id"] = reqID
	}
	return n.producer.Publish(ctx, n.topic, []byte(notification.UserID.String()), value, headers)
}

// LogNotifier only logs. Used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) ports.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	n.logger.InfoContext(ctx, "kyc notification",
		"kind", notification.Kind,
		"user_id", notification.UserID.String(),
		"case_id", notification.CaseID.String(),
	)
	return nil
}
