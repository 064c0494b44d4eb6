package main

import (
	"context"

	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/layout"
	"github.com/dukex/stepflow/pkg/translator"
	cli "github.com/urfave/cli/v3"
)

type layoutOutput struct {
	RootID string         `json:"root_id,omitempty"`
	Graph  graph.Document `json:"graph"`
}

func NewLayoutCommand() *cli.Command {
	return &cli.Command{
		Name:    "layout",
		Aliases: []string{"l"},
		Usage:   "Print the laid-out graph of a workflow as JSON",
		Flags: []cli.Flag{
			fileFlag(false),
			workflowIDFlag(false),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflow, err := loadWorkflow(ctx, command)
			if err != nil {
				return err
			}

			loaded := translator.Load(workflow)
			layout.Apply(loaded.Graph, loaded.RootID, layout.DefaultOptions())

			return printJSON(command, layoutOutput{
				RootID: loaded.RootID,
				Graph:  loaded.Graph.Document(),
			})
		},
	}
}
