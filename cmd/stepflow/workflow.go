package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/log"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/steps"
	cli "github.com/urfave/cli/v3"
)

var errNoSource = errors.New("either --file or --workflow-id is required")

func fileFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Workflow document (.json, .yaml or .yml)",
		Required: required,
	}
}

func workflowIDFlag(required bool) *cli.IntFlag {
	return &cli.IntFlag{
		Name:     "workflow-id",
		Aliases:  []string{"w"},
		Usage:    "Id of a workflow stored behind the step API",
		Required: required,
	}
}

func newClient(command *cli.Command) *steps.Client {
	return steps.NewClient(command.Root().String("api-url"), steps.WithLogger(log.WithModule("stepflow")))
}

// loadWorkflow reads the workflow from --file, or fetches --workflow-id.
func loadWorkflow(ctx context.Context, command *cli.Command) (*models.Workflow, error) {
	if path := command.String("file"); path != "" {
		doc, err := document.Load(path)
		if err != nil {
			return nil, err
		}

		return doc.Workflow, nil
	}

	if id := command.Int("workflow-id"); id > 0 {
		workflow, err := newClient(command).FetchWorkflow(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch workflow %d: %w", id, err)
		}

		return workflow, nil
	}

	return nil, errNoSource
}

func printJSON(command *cli.Command, v any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
