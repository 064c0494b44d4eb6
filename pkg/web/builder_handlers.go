package web

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/steps"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// BuilderHandlers serves the workflow builder sessions.
type BuilderHandlers struct {
	store          *builder.Store
	api            steps.API
	sessionOptions []builder.Option
	validator      *validator.Validate
	logger         *slog.Logger
}

func NewBuilderHandlers(
	store *builder.Store,
	api steps.API,
	validator *validator.Validate,
	logger *slog.Logger,
	sessionOptions ...builder.Option,
) *BuilderHandlers {
	return &BuilderHandlers{
		store:          store,
		api:            api,
		sessionOptions: sessionOptions,
		validator:      validator,
		logger:         logger,
	}
}

func (h *BuilderHandlers) lookup(c fiber.Ctx) (*builder.Session, bool) {
	return h.store.Get(c.Params("sid"))
}

func (h *BuilderHandlers) CreateSession(c fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sess := builder.NewSession(h.api, h.sessionOptions...)

	if req.WorkflowID != nil {
		if err := sess.Load(c.Context(), *req.WorkflowID); err != nil {
			if errors.Is(err, steps.ErrNotFound) {
				return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")
			}

			return handleServiceError(c, err)
		}
	} else {
		sess.SetMetadata(req.metadata())
	}

	h.store.Add(sess)

	h.logger.InfoContext(c.Context(), "builder session opened", "session_id", sess.ID, "workflow_id", req.WorkflowID)

	return c.Status(fiber.StatusCreated).JSON(sessionResponse(sess))
}

func (h *BuilderHandlers) GetSession(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	return c.JSON(sessionResponse(sess))
}

func (h *BuilderHandlers) CloseSession(c fiber.Ctx) error {
	if !h.store.Delete(c.Params("sid")) {
		return notFound(c, "Session not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BuilderHandlers) AddNode(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	var req AddNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var id string

	if req.Kind == graph.KindCondition {
		condition := graph.Condition{}
		if req.Condition != nil {
			condition = *req.Condition
		}

		id = sess.AddCondition(condition, req.Position)
	} else {
		id = sess.AddTerminal(req.Kind, req.Text, req.Position)
	}

	return c.Status(fiber.StatusCreated).JSON(sess.Graph().Node(id))
}

func (h *BuilderHandlers) UpdateNode(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	nodeID := pathParam(c, "nodeId")

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	// Unknown nodes are a no-op and answer with a null node.
	if sess.UpdateNode(nodeID, req.Patch) && req.Position != nil {
		sess.MoveNode(nodeID, *req.Position)
	}

	return c.JSON(sess.Graph().Node(nodeID))
}

func (h *BuilderHandlers) DeleteNode(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	removed, err := sess.DeleteNode(c.Context(), pathParam(c, "nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"removed": removed})
}

func (h *BuilderHandlers) Connect(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// A rejected connection leaves the graph unchanged and answers with a
	// null edge.
	edge := sess.Connect(req.Source, req.Handle, req.Target)
	if edge == nil {
		return c.JSON(nil)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *BuilderHandlers) Disconnect(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	sess.Disconnect(pathParam(c, "edgeId"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BuilderHandlers) UpdateSettings(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	var req SettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sess.SetMetadata(req.metadata())

	return c.JSON(sess.Metadata())
}

func (h *BuilderHandlers) SaveSettings(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	workflow, err := sess.SaveSettings(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *BuilderHandlers) Layout(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	return c.JSON(fiber.Map{"positions": sess.Layout()})
}

func (h *BuilderHandlers) SetRoot(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	var req RootRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !sess.SetRoot(req.NodeID) {
		return notFound(c, "Condition node not found")
	}

	return c.JSON(fiber.Map{"root_id": sess.RootID()})
}

func (h *BuilderHandlers) GetChanges(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	return c.JSON(sess.Changes())
}

func (h *BuilderHandlers) Save(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	result, err := sess.Save(c.Context())
	if err != nil {
		h.logger.ErrorContext(c.Context(), "builder save failed", "session_id", sess.ID, "error", err)

		status, p := serviceProblem(c, err)

		return c.Status(status).JSON(SaveProblem{Problem: p, SaveResult: result})
	}

	return c.JSON(result)
}

// GetDatasources serves the auto-complete fields of the session's execution point.
func (h *BuilderHandlers) GetDatasources(c fiber.Ctx) error {
	sess, ok := h.lookup(c)
	if !ok {
		return notFound(c, "Session not found")
	}

	point := sess.Metadata().ExecutionPoint

	datasources, err := h.api.Datasources(c.Context(), point)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"execution_point": point, "datasources": datasources})
}

// pathParam returns a path parameter with percent escapes decoded; edge ids
// contain reserved characters.
func pathParam(c fiber.Ctx, name string) string {
	raw := c.Params(name)

	value, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}

	return value
}
