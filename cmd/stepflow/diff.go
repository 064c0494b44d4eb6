package main

import (
	"context"
	"fmt"

	"github.com/dukex/stepflow/pkg/document"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/translator"
	cli "github.com/urfave/cli/v3"
)

type diffOutput struct {
	WorkflowID int `json:"workflow_id"`
	translator.Changes

	Removed []int `json:"removed"`
}

func NewDiffCommand() *cli.Command {
	return &cli.Command{
		Name:    "diff",
		Aliases: []string{"d"},
		Usage:   "Print the step writes needed to turn a stored workflow into an edited document",
		Flags: []cli.Flag{
			fileFlag(true),
			workflowIDFlag(true),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			edited, err := document.Load(command.String("file"))
			if err != nil {
				return err
			}

			id := command.Int("workflow-id")

			persisted, err := newClient(command).FetchWorkflow(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch workflow %d: %w", id, err)
			}

			changes, removed := diffWorkflow(persisted, edited.Workflow)

			return printJSON(command, diffOutput{
				WorkflowID: id,
				Changes:    changes,
				Removed:    removed,
			})
		},
	}
}

// diffWorkflow compares an edited workflow with the stored one. Edited steps
// whose id is not stored are treated as new; stored steps missing from the
// edit are reported as removed.
func diffWorkflow(persisted, edited *models.Workflow) (translator.Changes, []int) {
	snapshot := translator.NewSnapshot(persisted.Steps)
	loaded := translator.Load(edited)

	kept := make(map[int]bool, len(edited.Steps))

	for _, node := range loaded.Graph.Conditions() {
		if _, ok := snapshot.Get(*node.Condition.StepID); ok {
			kept[*node.Condition.StepID] = true

			continue
		}

		node.Condition.StepID = nil
	}

	removed := []int{}

	for _, id := range snapshot.IDs() {
		if !kept[id] {
			removed = append(removed, id)
		}
	}

	return translator.Diff(loaded.Graph, snapshot), removed
}
