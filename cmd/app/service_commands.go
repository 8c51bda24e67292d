package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/orderflow/cmd/app/commands"
	"github.com/allisson/orderflow/internal/app"
	"github.com/allisson/orderflow/internal/config"
)

const shutdownTimeout = 10 * time.Second

func getServiceCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "order-server",
			Usage: "Start the order service HTTP API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())
				logger := container.Logger()

				server, err := container.OrderServer()
				if err != nil {
					return err
				}
				metrics, err := metricsService(container)
				if err != nil {
					return err
				}

				logger.Info("starting order service", slog.String("version", version))
				return commands.RunServer(ctx, logger, shutdownTimeout, server, metrics)
			},
		},
		{
			Name:  "customer-server",
			Usage: "Start the customer service HTTP API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())
				logger := container.Logger()

				server, err := container.CustomerServer()
				if err != nil {
					return err
				}
				metrics, err := metricsService(container)
				if err != nil {
					return err
				}

				logger.Info("starting customer service", slog.String("version", version))
				return commands.RunServer(ctx, logger, shutdownTimeout, server, metrics)
			},
		},
		{
			Name:  "relay",
			Usage: "Publish pending outbox events to RabbitMQ",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())
				logger := container.Logger()

				runner, err := container.RelayRunner()
				if err != nil {
					return err
				}
				metrics, err := metricsService(container)
				if err != nil {
					return err
				}

				logger.Info("starting outbox relay", slog.String("version", version))
				return commands.RunRelay(ctx, logger, shutdownTimeout, runner, metrics)
			},
		},
		{
			Name:  "consume",
			Usage: "Consume order.created events and update customers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())
				logger := container.Logger()

				consumer, err := container.Consumer()
				if err != nil {
					return err
				}
				metrics, err := metricsService(container)
				if err != nil {
					return err
				}

				logger.Info("starting order event consumer", slog.String("version", version))
				return commands.RunConsumer(ctx, logger, shutdownTimeout, consumer, metrics)
			},
		},
	}
}

// metricsService returns the metrics server, or an untyped nil when metrics are disabled.
func metricsService(container *app.Container) (commands.Service, error) {
	if !container.Config().MetricsEnabled {
		return nil, nil
	}
	server, err := container.MetricsServer()
	if err != nil {
		return nil, err
	}
	return server, nil
}
