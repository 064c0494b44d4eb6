package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

var errInvalidDocument = errors.New("workflow document is invalid")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow document",
		Flags: []cli.Flag{
			fileFlag(true),
			&cli.StringFlag{
				Name:  "output",
				Usage: "Report format (text, json)",
				Value: "text",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			doc, err := document.Load(command.String("file"))
			if err != nil {
				return err
			}

			v, err := validation.New()
			if err != nil {
				return err
			}

			report, err := v.Validate(doc)
			if err != nil {
				return err
			}

			if command.String("output") == "json" {
				if err := printJSON(command, report); err != nil {
					return err
				}
			} else {
				printReport(command, doc, report)
			}

			if !report.Valid() {
				return errInvalidDocument
			}

			return nil
		},
	}
}

func printReport(command *cli.Command, doc *document.Document, report validation.Report) {
	out := command.Root().Writer

	fmt.Fprintf(out, "Workflow: %s (%d steps)\n", doc.Workflow.Name, len(doc.Workflow.Steps))

	if report.Valid() {
		fmt.Fprintln(out, "  VALID")

		return
	}

	for _, issue := range report.Issues {
		fmt.Fprintf(out, "  INVALID %s\n", issue)
	}
}
