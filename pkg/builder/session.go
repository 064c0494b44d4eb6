// Package builder hosts editing sessions of a validation workflow: one graph,
// its workflow metadata and the snapshot of what is persisted, kept
// consistent through the connection rules of package editor.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/stepflow/pkg/editor"
	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/layout"
	"github.com/dukex/stepflow/pkg/lock"
	"github.com/dukex/stepflow/pkg/metrics"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/dukex/stepflow/pkg/steps"
	"github.com/dukex/stepflow/pkg/translator"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrSaveInProgress   = errors.New("a save is already in progress for this workflow")
	ErrWorkflowRequired = errors.New("create the workflow before saving its steps")
)

// processLocker is shared by sessions created without an explicit locker.
var processLocker = lock.NewMemory()

// Metadata describes the workflow record edited alongside the graph.
type Metadata struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	ExecutionPoint string                `json:"execution_point"`
	Status         models.WorkflowStatus `json:"status,omitempty"`
	IsDefault      bool                  `json:"is_default"`
	WorkflowID     *int                  `json:"workflow_id,omitempty"`
}

// Session is one editing session. All methods are safe for concurrent use;
// graph mutations are never blocked by an in-flight save.
type Session struct {
	ID string

	mu       sync.Mutex
	graph    *graph.Graph
	enforcer *editor.Enforcer
	snapshot translator.Snapshot
	rootID   string
	metadata Metadata

	api           steps.API
	locker        lock.Locker
	tracer        trace.Tracer
	metrics       *metrics.Metrics
	logger        *slog.Logger
	layoutOptions layout.Options

	CreatedAt  time.Time
	lastAccess time.Time
}

// Option configures a Session.
type Option func(*Session)

func WithLocker(locker lock.Locker) Option {
	return func(s *Session) { s.locker = locker }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) { s.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithLayoutOptions(opts layout.Options) Option {
	return func(s *Session) { s.layoutOptions = opts }
}

// NewSession creates an empty session backed by api.
func NewSession(api steps.API, opts ...Option) *Session {
	now := time.Now()

	s := &Session{
		ID:            uuid.NewString(),
		graph:         graph.New(),
		snapshot:      translator.NewSnapshot(nil),
		api:           api,
		locker:        processLocker,
		tracer:        otelhelper.NoopTracer(),
		logger:        slog.Default(),
		layoutOptions: layout.DefaultOptions(),
		CreatedAt:     now,
		lastAccess:    now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("module", "builder", "session_id", s.ID)
	s.enforcer = editor.NewEnforcer(s.graph, s, s.logger)

	return s
}

// Load replaces the session content with the persisted workflow and lays it out.
func (s *Session) Load(ctx context.Context, workflowID int) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "builder.load",
		otelhelper.SessionIDKey.String(s.ID), otelhelper.WorkflowIDKey.Int(workflowID))
	defer span.End()

	workflow, err := s.api.FetchWorkflow(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to fetch workflow %d: %w", workflowID, err)
	}

	s.LoadWorkflow(workflow)

	s.logger.InfoContext(ctx, "workflow loaded", "workflow_id", workflowID, "steps", len(workflow.Steps))

	return nil
}

// LoadWorkflow replaces the session content with an already fetched workflow.
func (s *Session) LoadWorkflow(workflow *models.Workflow) {
	loaded := translator.Load(workflow)
	layout.Apply(loaded.Graph, loaded.RootID, s.layoutOptions)

	id := workflow.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = loaded.Graph
	s.enforcer = editor.NewEnforcer(s.graph, s, s.logger)
	s.snapshot = loaded.Snapshot
	s.rootID = loaded.RootID
	s.metadata = Metadata{
		Name:           workflow.Name,
		Description:    workflow.Description,
		ExecutionPoint: workflow.ExecutionPoint,
		Status:         workflow.Status,
		IsDefault:      workflow.IsDefault,
	}

	if id != 0 {
		s.metadata.WorkflowID = &id
	}
}

// Metadata returns a copy of the workflow metadata.
func (s *Session) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata := s.metadata
	if metadata.WorkflowID != nil {
		id := *metadata.WorkflowID
		metadata.WorkflowID = &id
	}

	return metadata
}

// SetMetadata replaces the editable metadata. The persisted workflow id is kept.
func (s *Session) SetMetadata(metadata Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata.WorkflowID = s.metadata.WorkflowID
	s.metadata = metadata
}

// SaveSettings creates the workflow record when the session has none yet,
// otherwise updates it.
func (s *Session) SaveSettings(ctx context.Context) (*models.Workflow, error) {
	metadata := s.Metadata()

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "builder.save_settings", otelhelper.SessionIDKey.String(s.ID))
	defer span.End()

	var (
		workflow *models.Workflow
		err      error
	)

	if metadata.WorkflowID == nil {
		workflow, err = s.api.CreateWorkflow(ctx, models.CreateWorkflowRequest{
			Name:           metadata.Name,
			Description:    metadata.Description,
			ExecutionPoint: metadata.ExecutionPoint,
			Status:         metadata.Status,
			IsDefault:      metadata.IsDefault,
		})
	} else {
		workflow, err = s.api.UpdateWorkflow(ctx, *metadata.WorkflowID, models.UpdateWorkflowRequest{
			Name:           &metadata.Name,
			Description:    &metadata.Description,
			ExecutionPoint: &metadata.ExecutionPoint,
			IsDefault:      &metadata.IsDefault,
		})
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save workflow settings: %w", err)
	}

	s.mu.Lock()
	if s.metadata.WorkflowID == nil && workflow.ID != 0 {
		id := workflow.ID
		s.metadata.WorkflowID = &id
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "workflow settings saved", "workflow_id", workflow.ID)

	return workflow, nil
}

// AddCondition inserts a new, unsaved condition node and returns its id.
func (s *Session) AddCondition(condition graph.Condition, pos graph.Position) string {
	condition.StepID = nil

	node := graph.NewCondition(graph.NewTransientID(graph.KindCondition), condition)
	node.Position = pos

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph.AddNode(node)

	if s.rootID == "" {
		s.rootID = node.ID
	}

	return node.ID
}

// AddTerminal inserts a free success or fail node and returns its id.
func (s *Session) AddTerminal(kind graph.Kind, text string, pos graph.Position) string {
	node := graph.NewTerminal(graph.NewTransientID(kind), kind, graph.Terminal{Text: text})
	node.Position = pos

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph.AddNode(node)

	return node.ID
}

// UpdateNode applies patch to a node. Unknown ids are ignored.
func (s *Session) UpdateNode(id string, patch graph.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.UpdateNodeData(id, patch)
}

// MoveNode sets the position of a node.
func (s *Session) MoveNode(id string, pos graph.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.SetPosition(id, pos)
}

// Connect links source to target, repairing the graph as needed. It returns
// a copy of the resulting edge, or nil when the request was ignored.
func (s *Session) Connect(source string, handle graph.Handle, target string) *graph.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge := s.enforcer.Connect(source, handle, target)
	if edge == nil {
		return nil
	}

	out := *edge

	return &out
}

func (s *Session) Disconnect(edgeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Disconnect(edgeID)
}

// DeleteNode removes a node and its dependents. A persisted condition is
// deleted through the step API first; if that fails nothing changes locally.
// The session is not locked while the step API is called, so other edits
// proceed; the cascade is resolved against the graph as it is afterwards.
func (s *Session) DeleteNode(ctx context.Context, id string) ([]string, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "builder.delete_node",
		otelhelper.SessionIDKey.String(s.ID), otelhelper.NodeIDKey.String(id))
	defer span.End()

	s.mu.Lock()

	node := s.graph.Node(id)
	if node == nil {
		s.mu.Unlock()

		return nil, nil
	}

	var stepID *int
	if node.IsCondition() && node.Persisted() {
		v := *node.Condition.StepID
		stepID = &v
	}

	s.mu.Unlock()

	if stepID != nil {
		err := s.DeleteStep(ctx, *stepID)
		s.metrics.ObserveDelete(err)

		if err != nil {
			err = fmt.Errorf("failed to delete step %d: %w", *stepID, err)
			otelhelper.SetError(span, err)
			s.logger.ErrorContext(ctx, "failed to delete node", "node_id", id, "error", err)

			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stepID != nil {
		s.snapshot = s.snapshot.Without(*stepID)
	}

	removed := s.enforcer.Remove(ctx, id)

	if s.graph.Node(s.rootID) == nil {
		s.rootID = ""
		if conditions := s.graph.Conditions(); len(conditions) > 0 {
			s.rootID = conditions[0].ID
		}
	}

	return removed, nil
}

// DeleteStep implements editor.StepDeleter.
func (s *Session) DeleteStep(ctx context.Context, stepID int) error {
	return s.api.DeleteStep(ctx, stepID)
}

// Layout recomputes every node position from the current root.
func (s *Session) Layout() map[string]graph.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	return layout.Apply(s.graph, s.rootID, s.layoutOptions)
}

// SetRoot selects the node the layout starts from.
func (s *Session) SetRoot(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node := s.graph.Node(id); node == nil || !node.IsCondition() {
		return false
	}

	s.rootID = id

	return true
}

func (s *Session) RootID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rootID
}

// Document returns a copy of the graph.
func (s *Session) Document() graph.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.Document()
}

// Graph returns a deep copy of the graph.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.Clone()
}

// Changes returns what a save would write right now.
func (s *Session) Changes() translator.Changes {
	g, snapshot := s.capture()

	return translator.Diff(g, snapshot)
}

func (s *Session) capture() (*graph.Graph, translator.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.Clone(), s.snapshot
}
