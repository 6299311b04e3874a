package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/restgate/cmd/app/commands"
	"github.com/allisson/restgate/internal/app"
	"github.com/allisson/restgate/internal/config"
)

func getUserCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-user",
			Usage: "Register a user directly in the configured store",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "email",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "User email",
				},
				&cli.StringFlag{
					Name:     "password",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "User password",
				},
				&cli.StringFlag{
					Name:    "attributes",
					Aliases: []string{"a"},
					Usage:   "JSON object with extra user fields (e.g., '{\"name\":\"Ada\"}')",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if err := cfg.Validate(); err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				userUseCase, err := container.UserUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateUser(
					ctx,
					userUseCase,
					container.Logger(),
					cmd.String("email"),
					cmd.String("password"),
					cmd.String("attributes"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
	}
}
