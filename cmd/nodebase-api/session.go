package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/nodebase/pkg/web"
	cli "github.com/urfave/cli/v3"
)

// SessionTokenCommand mints a session token for local development, where
// no identity provider issues them.
func SessionTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "session-token",
		Usage: "Print a session token for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user-id",
				Usage:    "User the token authenticates",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "auth-secret",
				Usage:    "Secret used to sign session tokens",
				Required: true,
				Sources:  cli.EnvVars("AUTH_SECRET"),
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: 24 * time.Hour,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			token, err := web.NewSessionToken(command.String("auth-secret"), command.String("user-id"), command.Duration("ttl"))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, token)

			return err
		},
	}
}
