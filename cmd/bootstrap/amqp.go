package bootstrap

import (
	"context"
	"log/slog"

	"groupbuy-coordinator/internal/infra/notify"
	"groupbuy-coordinator/internal/pkg/config"
	"groupbuy-coordinator/internal/usecase/commands"

	"go.uber.org/fx"
)

var AMQPModule = fx.Module("amqp",
	fx.Provide(
		NewNotificationGateway,
	),
)

// NewNotificationGateway connects to RabbitMQ when enabled, otherwise falls
// back to a no-op gateway so completion handling never blocks on a broker.
func NewNotificationGateway(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (commands.NotificationGateway, error) {
	if !cfg.AMQP.Enabled {
		return notify.NewNopGateway(logger), nil
	}

	gateway, cleanup, err := notify.NewRabbitMQGateway(cfg.AMQP, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cleanup()
			return nil
		},
	})

	return gateway, nil
}
