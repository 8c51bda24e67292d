package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/orderflow/cmd/app/commands"
	"github.com/allisson/orderflow/internal/app"
	"github.com/allisson/orderflow/internal/config"
)

func getOutboxCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "outbox-retry-failed",
			Usage: "Return failed outbox events to pending",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   100,
					Usage:   "Maximum number of events to reset",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())

				relay, err := container.RelayUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxRetryFailed(
					ctx,
					relay,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "outbox-reap-stuck",
			Usage: "Return outbox events stuck in processing to pending",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "older-than",
					Aliases: []string{"o"},
					Value:   5 * time.Minute,
					Usage:   "Minimum time an event has been processing",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   100,
					Usage:   "Maximum number of events to reset",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())

				relay, err := container.RelayUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxReapStuck(
					ctx,
					relay,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Duration("older-than"),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "outbox-stats",
			Usage: "Print the number of outbox events per status",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())

				relay, err := container.RelayUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxStats(ctx, relay, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
	}
}
