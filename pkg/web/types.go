package web

import (
	"time"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/translator"
	"github.com/moogar0880/problems"
)

// BulkCreateStepsResponse answers POST /validations/steps/bulk-create.
type BulkCreateStepsResponse struct {
	CreatedSteps []models.Step `json:"created_steps"`
	CreatedCount int           `json:"created_count"`
}

// BulkUpdateStepsResponse answers POST /validations/steps/bulk-update.
type BulkUpdateStepsResponse struct {
	UpdatedSteps []models.Step `json:"updated_steps"`
	UpdatedCount int           `json:"updated_count"`
}

// CreateSessionRequest opens a builder session. With a workflow id the
// workflow is loaded, otherwise the settings start a new one.
type CreateSessionRequest struct {
	WorkflowID *int `json:"workflow_id,omitempty" validate:"omitempty,min=1"`
	SettingsRequest
}

// SettingsRequest replaces the workflow settings of a session.
type SettingsRequest struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	ExecutionPoint string                `json:"execution_point" validate:"omitempty,execution_point"`
	Status         models.WorkflowStatus `json:"status"          validate:"omitempty,oneof=draft active inactive"`
	IsDefault      bool                  `json:"is_default"`
}

func (r SettingsRequest) metadata() builder.Metadata {
	return builder.Metadata{
		Name:           r.Name,
		Description:    r.Description,
		ExecutionPoint: r.ExecutionPoint,
		Status:         r.Status,
		IsDefault:      r.IsDefault,
	}
}

// AddNodeRequest inserts a condition or a terminal node.
type AddNodeRequest struct {
	Kind      graph.Kind       `json:"kind"      validate:"required,oneof=condition success fail"`
	Condition *graph.Condition `json:"condition,omitempty"`
	Text      string           `json:"text,omitempty"`
	Position  graph.Position   `json:"position"`
}

// UpdateNodeRequest patches node data and optionally moves the node.
type UpdateNodeRequest struct {
	graph.Patch

	Position *graph.Position `json:"position,omitempty"`
}

// ConnectRequest adds an edge.
type ConnectRequest struct {
	Source string       `json:"source" validate:"required"`
	Handle graph.Handle `json:"handle" validate:"required,oneof=true false next"`
	Target string       `json:"target" validate:"required"`
}

// RootRequest selects the layout root.
type RootRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// PendingChanges counts what a save would write.
type PendingChanges struct {
	Creates  int `json:"creates"`
	Updates  int `json:"updates"`
	Deferred int `json:"deferred"`
}

func pending(changes translator.Changes) PendingChanges {
	return PendingChanges{
		Creates:  len(changes.Creates),
		Updates:  len(changes.Updates),
		Deferred: len(changes.Deferred),
	}
}

// SessionResponse is the state of a builder session.
type SessionResponse struct {
	ID        string           `json:"id"`
	Metadata  builder.Metadata `json:"metadata"`
	RootID    string           `json:"root_id,omitempty"`
	Graph     graph.Document   `json:"graph"`
	Pending   PendingChanges   `json:"pending"`
	CreatedAt time.Time        `json:"created_at"`
}

func sessionResponse(sess *builder.Session) SessionResponse {
	return SessionResponse{
		ID:        sess.ID,
		Metadata:  sess.Metadata(),
		RootID:    sess.RootID(),
		Graph:     sess.Document(),
		Pending:   pending(sess.Changes()),
		CreatedAt: sess.CreatedAt,
	}
}

// SaveProblem reports a failed save together with what the save did
// manage to write, so the ids of created steps are not lost.
type SaveProblem struct {
	*problems.Problem
	builder.SaveResult
}
