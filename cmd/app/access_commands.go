package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/restgate/cmd/app/commands"
	"github.com/allisson/restgate/internal/app"
	"github.com/allisson/restgate/internal/config"
)

func getAccessCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "show-rules",
			Usage: "Print the configured access rules and effective permissions",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				evaluator, err := container.Evaluator()
				if err != nil {
					return err
				}

				return commands.RunShowRules(evaluator, cmd.String("format"), commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "check-access",
			Usage: "Evaluate one request against the access rules without a running server",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "collection",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Collection name (e.g., orders)",
				},
				&cli.StringFlag{
					Name:    "method",
					Aliases: []string{"m"},
					Value:   "GET",
					Usage:   "HTTP method",
				},
				&cli.StringFlag{
					Name:    "caller",
					Aliases: []string{"u"},
					Usage:   "Caller user id (omit for an anonymous request)",
				},
				&cli.StringFlag{
					Name:    "ownership",
					Aliases: []string{"o"},
					Value:   "undetermined",
					Usage:   "Record ownership: owned, not_owned, none or undetermined",
				},
				&cli.BoolFlag{
					Name:  "missing",
					Value: false,
					Usage: "Treat the collection as absent from the store",
				},
				&cli.BoolFlag{
					Name:  "reassign",
					Value: false,
					Usage: "The update moves the record to another owner",
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
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				evaluator, err := container.Evaluator()
				if err != nil {
					return err
				}

				return commands.RunCheckAccess(
					evaluator,
					commands.CheckAccessInput{
						Collection:        cmd.String("collection"),
						Method:            cmd.String("method"),
						CallerID:          cmd.String("caller"),
						Ownership:         cmd.String("ownership"),
						CollectionMissing: cmd.Bool("missing"),
						OwnerReassigned:   cmd.Bool("reassign"),
					},
					cmd.String("format"),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
