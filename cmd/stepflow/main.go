// Package main provides the stepflow command line: layout, validation and
// pending-change reports for validation workflows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/stepflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultAPIURL = "http://localhost:9091"

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "stepflow",
		Usage:                 "Inspect and check validation workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewLayoutCommand(),
			NewValidateCommand(),
			NewDiffCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the step API",
				Value:   defaultAPIURL,
				Sources: cli.EnvVars("STEPFLOW_API_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "stepflow:", err)
		os.Exit(1)
	}
}
