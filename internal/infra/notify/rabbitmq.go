package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"groupbuy-coordinator/internal/pkg/config"
	"groupbuy-coordinator/internal/pkg/errs"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishAttempts = 3
	backoffBase     = 200 * time.Millisecond
)

type completedMessage struct {
	SessionID uuid.UUID   `json:"session_id"`
	UserRefs  []uuid.UUID `json:"user_refs"`
	Message   string      `json:"message"`
	SentAt    time.Time   `json:"sent_at"`
}

// RabbitMQGateway publishes completion notifications to a durable queue.
// Delivery is best-effort with bounded exponential backoff: a join that
// committed is a success whether or not the broker accepted the message.
type RabbitMQGateway struct {
	conn   *amqp.Connection
	queue  string
	logger *slog.Logger
}

func NewRabbitMQGateway(cfg config.AMQPConfig, logger *slog.Logger) (*RabbitMQGateway, func(), error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, errs.Wrap(err, "failed to dial amqp broker")
	}

	cleanup := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close amqp connection", "error", err)
		}
	}

	return &RabbitMQGateway{conn: conn, queue: cfg.Queue, logger: logger}, cleanup, nil
}

func (g *RabbitMQGateway) NotifyCompleted(ctx context.Context, sessionID uuid.UUID, userRefs []uuid.UUID, message string) error {
	body, err := json.Marshal(completedMessage{
		SessionID: sessionID,
		UserRefs:  userRefs,
		Message:   message,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return errs.Wrap(err, "failed to encode completion notification")
	}

	backoff := backoffBase
	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if lastErr = g.publish(ctx, body); lastErr == nil {
			return nil
		}
		g.logger.Warn("completion notification publish failed",
			"session_id", sessionID, "attempt", attempt+1, "error", lastErr)
	}
	return errs.Wrap(lastErr, "completion notification exhausted retries")
}

func (g *RabbitMQGateway) publish(ctx context.Context, body []byte) error {
	ch, err := g.conn.Channel()
	if err != nil {
		return errs.Wrap(err, "failed to open amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(g.queue, true, false, false, false, nil); err != nil {
		return errs.Wrap(err, "failed to declare queue")
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		g.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// NopGateway is used when no broker is configured; completions are only
// logged. Live subscribers still get the Completed event through the hub.
type NopGateway struct {
	logger *slog.Logger
}

func NewNopGateway(logger *slog.Logger) *NopGateway {
	return &NopGateway{logger: logger}
}

func (g *NopGateway) NotifyCompleted(_ context.Context, sessionID uuid.UUID, userRefs []uuid.UUID, _ string) error {
	g.logger.Info("completion notification skipped, no broker configured",
		"session_id", sessionID, "recipients", len(userRefs))
	return nil
}
