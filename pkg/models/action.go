package models

import (
	"bytes"
	"encoding/json"
)

// ActionKind is the outcome of one branch of a validation step.
type ActionKind string

const (
	ActionProceedToStep     ActionKind = "proceed_to_step"
	ActionProceedToStepByID ActionKind = "proceed_to_step_by_id"
	ActionCompleteSuccess   ActionKind = "complete_success"
	ActionCompleteFailure   ActionKind = "complete_failure"
)

// ActionKinds lists every accepted action kind.
var ActionKinds = []ActionKind{
	ActionProceedToStep,
	ActionProceedToStepByID,
	ActionCompleteSuccess,
	ActionCompleteFailure,
}

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}

	return false
}

// IsProceed reports whether the action continues to another step.
func (k ActionKind) IsProceed() bool {
	return k == ActionProceedToStep || k == ActionProceedToStepByID
}

// IsCompletion reports whether the action terminates the workflow.
func (k ActionKind) IsCompletion() bool {
	return k == ActionCompleteSuccess || k == ActionCompleteFailure
}

// ActionData is the payload attached to an action.
type ActionData struct {
	NextStepID *int   `json:"next_step_id,omitempty"`
	Message    string `json:"message,omitempty"`
	Note       string `json:"note,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Text returns the human readable payload of the data for the given kind.
// complete_success reads message, complete_failure reads error and proceed
// actions read note; the other fields are used as fallbacks for legacy data.
func (d ActionData) Text(kind ActionKind) string {
	var order []string

	switch kind {
	case ActionCompleteSuccess:
		order = []string{d.Message, d.Note, d.Error}
	case ActionCompleteFailure:
		order = []string{d.Error, d.Message, d.Note}
	default:
		order = []string{d.Note, d.Message}
	}

	for _, text := range order {
		if text != "" {
			return text
		}
	}

	return ""
}

// Equal compares two payloads by their JSON encoding.
func (d ActionData) Equal(other ActionData) bool {
	a, errA := json.Marshal(d)
	b, errB := json.Marshal(other)

	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(a, b)
}

// Action is an action kind with its payload.
type Action struct {
	Kind ActionKind `json:"kind"`
	Data ActionData `json:"data"`
}

// Equal reports whether both actions have the same kind and JSON-equal data.
func (a Action) Equal(other Action) bool {
	return a.Kind == other.Kind && a.Data.Equal(other.Data)
}

// SuccessAction builds a complete_success action carrying message.
func SuccessAction(message string) Action {
	return Action{Kind: ActionCompleteSuccess, Data: ActionData{Message: message}}
}

// FailureAction builds a complete_failure action carrying errorText.
func FailureAction(errorText string) Action {
	return Action{Kind: ActionCompleteFailure, Data: ActionData{Error: errorText}}
}

// ProceedAction builds a proceed_to_step_by_id action targeting stepID.
func ProceedAction(stepID int, note string) Action {
	id := stepID

	return Action{Kind: ActionProceedToStepByID, Data: ActionData{NextStepID: &id, Note: note}}
}
