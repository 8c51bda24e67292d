package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/orderflow/cmd/app/commands"
	"github.com/allisson/orderflow/internal/app"
	"github.com/allisson/orderflow/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				container.Logger().Info("running migrations", "version", version)
				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "encrypt-api-key",
			Usage: "Encrypt the internal API key with a secrets keeper",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "keeper-url",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Keeper URL (base64key://, hashivault://, awskms://, gcpkms://, azurekeyvault://)",
				},
				&cli.StringFlag{
					Name:     "api-key",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Internal API key to encrypt",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunEncryptAPIKey(
					ctx,
					commands.DefaultIO().Writer,
					cmd.String("keeper-url"),
					cmd.String("api-key"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "hash-api-key",
			Usage: "Hash the internal API key for the customer service",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "api-key",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Internal API key to hash",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunHashAPIKey(
					commands.DefaultIO().Writer,
					cmd.String("api-key"),
					cmd.String("format"),
				)
			},
		},
	}
}
