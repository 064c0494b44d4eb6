package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/lock"
	"github.com/dukex/stepflow/pkg/metrics"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/dukex/stepflow/pkg/translator"
)

// SaveResult summarizes a save.
type SaveResult struct {
	NoOp    bool           `json:"no_op"`
	Created map[string]int `json:"created,omitempty"` // node id -> new step id
	Updated int            `json:"updated"`
	Linked  int            `json:"linked"` // updates sent once created targets had ids
}

// Save persists the graph as it is once the save lock is held. Creates and
// updates are sent concurrently; when one side fails the other is still
// applied and the failures are joined in the returned error. Links to newly
// created conditions are written in a second update once their ids are known.
//
// At most one save per workflow runs at a time; a concurrent call fails with
// ErrSaveInProgress. The diff is taken under the lock so a save never resends
// what a previous save already wrote. Saving with nothing pending is a no-op.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	start := time.Now()

	s.mu.Lock()
	if s.metadata.WorkflowID == nil {
		s.mu.Unlock()

		return SaveResult{}, ErrWorkflowRequired
	}

	workflowID := *s.metadata.WorkflowID
	s.mu.Unlock()

	release, err := s.locker.TryLock(ctx, fmt.Sprintf("workflow:%d", workflowID))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			s.metrics.ObserveSave(metrics.OutcomeConflict, time.Since(start))

			return SaveResult{}, ErrSaveInProgress
		}

		return SaveResult{}, fmt.Errorf("failed to acquire save lock: %w", err)
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.ErrorContext(ctx, "failed to release save lock", "error", err)
		}
	}()

	s.mu.Lock()
	g := s.graph.Clone()
	snapshot := s.snapshot
	s.mu.Unlock()

	changes := translator.Diff(g, snapshot)
	if changes.Empty() {
		s.metrics.ObserveSave(metrics.OutcomeNoOp, time.Since(start))
		s.logger.InfoContext(ctx, "nothing to save", "workflow_id", workflowID)

		return SaveResult{NoOp: true}, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "builder.save",
		otelhelper.SessionIDKey.String(s.ID),
		otelhelper.WorkflowIDKey.Int(workflowID),
		otelhelper.CreatesKey.Int(len(changes.Creates)),
		otelhelper.UpdatesKey.Int(len(changes.Updates)),
		otelhelper.DeferredKey.Int(len(changes.Deferred)),
	)
	defer span.End()

	result, err := s.save(ctx, workflowID, g, changes)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		otelhelper.SetError(span, err)
		s.logger.ErrorContext(ctx, "save failed", "workflow_id", workflowID, "error", err)
	} else {
		s.logger.InfoContext(ctx, "workflow saved",
			"workflow_id", workflowID,
			"created", len(result.Created),
			"updated", result.Updated,
			"linked", result.Linked,
		)
	}

	s.metrics.ObserveSave(outcome, time.Since(start))

	return result, err
}

func (s *Session) save(ctx context.Context, workflowID int, g *graph.Graph, changes translator.Changes) (SaveResult, error) {
	var (
		wg        sync.WaitGroup
		created   []models.Step
		createErr error
		updateErr error
	)

	if len(changes.Creates) > 0 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			created, createErr = s.api.BulkCreateSteps(ctx, changes.CreateRequest(workflowID))
			s.metrics.AddStepWrites("create", len(changes.Creates), createErr)
		}()
	}

	if len(changes.Updates) > 0 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, updateErr = s.api.BulkUpdateSteps(ctx, changes.UpdateRequest())
			s.metrics.AddStepWrites("update", len(changes.Updates), updateErr)
		}()
	}

	wg.Wait()

	var result SaveResult

	s.mu.Lock()

	if len(changes.Creates) > 0 && createErr == nil {
		s.snapshot, createErr = translator.ApplyCreated(s.graph, s.snapshot, changes.Creates, created)
		if createErr == nil {
			result.Created = make(map[string]int, len(created))
			for i, create := range changes.Creates {
				result.Created[create.NodeID] = created[i].ID
			}
		}
	}

	if len(changes.Updates) > 0 && updateErr == nil {
		s.snapshot = translator.ApplyUpdated(s.graph, s.snapshot, changes.Updates)
		result.Updated = len(changes.Updates)
	}

	snapshot := s.snapshot
	s.mu.Unlock()

	if createErr != nil {
		createErr = fmt.Errorf("failed to create steps: %w", createErr)
	}

	if updateErr != nil {
		updateErr = fmt.Errorf("failed to update steps: %w", updateErr)
	}

	var linkErr error
	if len(changes.Deferred) > 0 && len(result.Created) > 0 {
		result.Linked, linkErr = s.link(ctx, g, snapshot, changes, created)
	}

	return result, errors.Join(createErr, updateErr, linkErr)
}

// link writes the deferred links of the saved graph g now that the created
// conditions have step ids.
func (s *Session) link(ctx context.Context, g *graph.Graph, snapshot translator.Snapshot, changes translator.Changes, created []models.Step) (int, error) {
	if _, err := translator.ApplyCreated(g, snapshot, changes.Creates, created); err != nil {
		return 0, fmt.Errorf("failed to link steps: %w", err)
	}

	sources := make(map[string]bool, len(changes.Deferred))
	for _, d := range changes.Deferred {
		sources[d.NodeID] = true
	}

	var updates []translator.Update

	for _, update := range translator.Diff(g, snapshot).Updates {
		if sources[update.NodeID] {
			updates = append(updates, update)
		}
	}

	if len(updates) == 0 {
		return 0, nil
	}

	links := translator.Changes{Updates: updates}

	_, err := s.api.BulkUpdateSteps(ctx, links.UpdateRequest())
	s.metrics.AddStepWrites("update", len(updates), err)

	if err != nil {
		return 0, fmt.Errorf("failed to link steps: %w", err)
	}

	s.mu.Lock()
	s.snapshot = translator.ApplyUpdated(s.graph, s.snapshot, updates)
	s.mu.Unlock()

	return len(updates), nil
}
