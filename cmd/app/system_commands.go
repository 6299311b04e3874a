package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/restgate/cmd/app/commands"
	"github.com/allisson/restgate/internal/app"
	"github.com/allisson/restgate/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the gateway HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Create the tables used by the postgres and mysql store drivers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				driver := cfg.StoreDriver
				if driver != config.StoreDriverPostgres && driver != config.StoreDriverMySQL {
					driver = cfg.DBDriver
				}

				return commands.RunMigrations(container.Logger(), driver, cfg.DBConnectionString)
			},
		},
	}
}
