package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/graph"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/services"
	"github.com/dukex/stepflow/pkg/steps"
	"github.com/dukex/stepflow/pkg/translator"
	"github.com/dukex/stepflow/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBuilderApp(t *testing.T) (*fiber.App, *services.Workflow, *services.Step) {
	t.Helper()

	workflowService, stepService := setupServices(t)
	store := builder.NewStore(10, time.Hour, nil, slog.Default())
	handlers := web.NewBuilderHandlers(store, services.NewLocalAPI(workflowService, stepService),
		models.NewValidator(), slog.Default())

	app := fiber.New()

	s := app.Group("/builder/sessions")
	s.Post("/", handlers.CreateSession)
	s.Get("/:sid", handlers.GetSession)
	s.Delete("/:sid", handlers.CloseSession)
	s.Post("/:sid/nodes", handlers.AddNode)
	s.Patch("/:sid/nodes/:nodeId", handlers.UpdateNode)
	s.Delete("/:sid/nodes/:nodeId", handlers.DeleteNode)
	s.Post("/:sid/edges", handlers.Connect)
	s.Delete("/:sid/edges/:edgeId", handlers.Disconnect)
	s.Put("/:sid/settings", handlers.UpdateSettings)
	s.Post("/:sid/settings/save", handlers.SaveSettings)
	s.Post("/:sid/layout", handlers.Layout)
	s.Put("/:sid/root", handlers.SetRoot)
	s.Get("/:sid/changes", handlers.GetChanges)
	s.Post("/:sid/save", handlers.Save)
	s.Get("/:sid/datasources", handlers.GetDatasources)

	return app, workflowService, stepService
}

func openSession(t *testing.T, app *fiber.App, req web.CreateSessionRequest) web.SessionResponse {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/builder/sessions/", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var session web.SessionResponse
	require.NoError(t, json.Unmarshal(body, &session))

	return session
}

func addNode(t *testing.T, app *fiber.App, sid string, req web.AddNodeRequest) graph.Node {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/nodes", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var node graph.Node
	require.NoError(t, json.Unmarshal(body, &node))

	return node
}

func TestBuilderHandlers_NewWorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	app, workflowService, _ := setupBuilderApp(t)

	session := openSession(t, app, web.CreateSessionRequest{
		SettingsRequest: web.SettingsRequest{Name: "Budget checks", ExecutionPoint: "before_update"},
	})
	assert.Nil(t, session.Metadata.WorkflowID)
	assert.Empty(t, session.Graph.Nodes)

	sid := session.ID

	resp, _ := doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/settings/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.NotZero(t, workflow.ID)

	condition := addNode(t, app, sid, web.AddNodeRequest{
		Kind: graph.KindCondition,
		Condition: &graph.Condition{
			Name:            "Budget available",
			LeftExpression:  "budget.available",
			Operator:        models.OperatorGreaterOrEqual,
			RightExpression: "transfer.amount",
			IsActive:        true,
		},
	})
	success := addNode(t, app, sid, web.AddNodeRequest{Kind: graph.KindSuccess, Text: "Approved"})

	resp, body = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/edges", web.ConnectRequest{
		Source: condition.ID,
		Handle: graph.HandleTrue,
		Target: success.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var edge graph.Edge
	require.NoError(t, json.Unmarshal(body, &edge))
	assert.Equal(t, graph.TagAccept, edge.Tag)

	resp, body = doJSON(t, app, http.MethodGet, "/builder/sessions/"+sid+"/changes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"creates":[{`)

	resp, body = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result builder.SaveResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.NoOp)
	require.Contains(t, result.Created, condition.ID)

	stored, err := workflowService.FetchByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, models.ActionCompleteSuccess, stored.Steps[0].IfTrueAction)
	assert.Equal(t, "Approved", stored.Steps[0].IfTrueActionData.Message)
	require.NotNil(t, stored.InitialStep)
	assert.Equal(t, result.Created[condition.ID], *stored.InitialStep)

	resp, body = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.NoOp)
}

func TestBuilderHandlers_LoadAndEdit(t *testing.T) {
	t.Parallel()

	app, workflowService, stepService := setupBuilderApp(t)

	workflow, err := workflowService.Create(t.Context(), models.CreateWorkflowRequest{
		Name:           "Transfer checks",
		ExecutionPoint: "before_create",
	})
	require.NoError(t, err)

	created, err := stepService.BulkCreate(t.Context(), models.BulkCreateStepsRequest{
		WorkflowID: workflow.ID,
		Steps:      []models.Step{step("Amount", 1)},
	})
	require.NoError(t, err)

	session := openSession(t, app, web.CreateSessionRequest{WorkflowID: &workflow.ID})
	require.NotNil(t, session.Metadata.WorkflowID)
	assert.Equal(t, workflow.ID, *session.Metadata.WorkflowID)
	assert.Equal(t, translator.ConditionID(created[0].ID), session.RootID)
	assert.Zero(t, session.Pending.Creates)

	sid := session.ID
	nodeID := session.RootID

	name := "Amount limit"
	resp, body := doJSON(t, app, http.MethodPatch, "/builder/sessions/"+sid+"/nodes/"+nodeID, web.UpdateNodeRequest{
		Patch:    graph.Patch{Name: &name},
		Position: &graph.Position{X: 10, Y: 20},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var node graph.Node
	require.NoError(t, json.Unmarshal(body, &node))
	assert.Equal(t, "Amount limit", node.Condition.Name)
	assert.Equal(t, graph.Position{X: 10, Y: 20}, node.Position)

	resp, body = doJSON(t, app, http.MethodGet, "/builder/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var current web.SessionResponse
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, 1, current.Pending.Updates)

	resp, _ = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := workflowService.FetchByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amount limit", stored.Steps[0].Name)

	resp, body = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/layout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), nodeID)

	resp, body = doJSON(t, app, http.MethodGet, "/builder/sessions/"+sid+"/datasources", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "transfer.amount")

	resp, body = doJSON(t, app, http.MethodDelete, "/builder/sessions/"+sid+"/nodes/"+nodeID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), nodeID)

	remaining, err := workflowService.FetchByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining.Steps)
	assert.Nil(t, remaining.InitialStep)

	resp, _ = doJSON(t, app, http.MethodDelete, "/builder/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/builder/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuilderHandlers_Edges(t *testing.T) {
	t.Parallel()

	app, _, _ := setupBuilderApp(t)

	sid := openSession(t, app, web.CreateSessionRequest{}).ID

	first := addNode(t, app, sid, web.AddNodeRequest{Kind: graph.KindCondition})
	second := addNode(t, app, sid, web.AddNodeRequest{Kind: graph.KindCondition})

	tests := []struct {
		name           string
		request        web.ConnectRequest
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "self loop is ignored",
			request:        web.ConnectRequest{Source: first.ID, Handle: graph.HandleTrue, Target: first.ID},
			expectedStatus: http.StatusOK,
			expectedBody:   "null",
		},
		{
			name:           "unknown target is ignored",
			request:        web.ConnectRequest{Source: first.ID, Handle: graph.HandleTrue, Target: "missing"},
			expectedStatus: http.StatusOK,
			expectedBody:   "null",
		},
		{
			name:           "unknown handle",
			request:        web.ConnectRequest{Source: first.ID, Handle: "maybe", Target: second.ID},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "condition to condition",
			request:        web.ConnectRequest{Source: first.ID, Handle: graph.HandleFalse, Target: second.ID},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"target":"` + second.ID + `"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/edges", tt.request)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedBody != "" {
				assert.Contains(t, string(body), tt.expectedBody)
			}
		})
	}

	edgeID := graph.MakeEdgeID(first.ID, graph.HandleFalse, second.ID)

	resp, _ := doJSON(t, app, http.MethodDelete, "/builder/sessions/"+sid+"/edges/"+url.PathEscape(edgeID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/builder/sessions/"+sid+"/edges/"+url.PathEscape(edgeID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "an unknown edge is a no-op")

	resp, body := doJSON(t, app, http.MethodPut, "/builder/sessions/"+sid+"/root", web.RootRequest{NodeID: second.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), second.ID)

	resp, _ = doJSON(t, app, http.MethodPut, "/builder/sessions/"+sid+"/root", web.RootRequest{NodeID: "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuilderHandlers_Errors(t *testing.T) {
	t.Parallel()

	app, _, _ := setupBuilderApp(t)

	missing := 404

	resp, _ := doJSON(t, app, http.MethodPost, "/builder/sessions/", web.CreateSessionRequest{WorkflowID: &missing})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/builder/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sid := openSession(t, app, web.CreateSessionRequest{}).ID

	resp, _ = doJSON(t, app, http.MethodPut, "/builder/sessions/"+sid+"/settings",
		web.SettingsRequest{Name: "Checks", ExecutionPoint: "never"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/nodes", web.AddNodeRequest{Kind: "unknown"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	name := "x"
	resp, body := doJSON(t, app, http.MethodPatch, "/builder/sessions/"+sid+"/nodes/missing",
		web.UpdateNodeRequest{Patch: graph.Patch{Name: &name}})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "an unknown node is a no-op")
	assert.Equal(t, "null", strings.TrimSpace(string(body)))

	resp, _ = doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/settings/save", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failingUpdatesAPI struct {
	steps.API
}

func (failingUpdatesAPI) BulkUpdateSteps(context.Context, models.BulkUpdateStepsRequest) ([]models.Step, error) {
	return nil, errors.New("update rejected")
}

func TestBuilderHandlers_PartialSaveReportsCreatedSteps(t *testing.T) {
	t.Parallel()

	workflowService, stepService := setupServices(t)

	workflow, err := workflowService.Create(t.Context(), models.CreateWorkflowRequest{
		Name:           "Transfer checks",
		ExecutionPoint: "before_create",
	})
	require.NoError(t, err)

	_, err = stepService.BulkCreate(t.Context(), models.BulkCreateStepsRequest{
		WorkflowID: workflow.ID,
		Steps:      []models.Step{step("Amount", 1)},
	})
	require.NoError(t, err)

	api := failingUpdatesAPI{API: services.NewLocalAPI(workflowService, stepService)}
	handlers := web.NewBuilderHandlers(builder.NewStore(10, time.Hour, nil, slog.Default()), api,
		models.NewValidator(), slog.Default())

	app := fiber.New()
	app.Post("/builder/sessions/", handlers.CreateSession)
	app.Post("/builder/sessions/:sid/nodes", handlers.AddNode)
	app.Patch("/builder/sessions/:sid/nodes/:nodeId", handlers.UpdateNode)
	app.Post("/builder/sessions/:sid/save", handlers.Save)

	session := openSession(t, app, web.CreateSessionRequest{WorkflowID: &workflow.ID})
	sid := session.ID

	name := "Amount limit"
	resp, _ := doJSON(t, app, http.MethodPatch, "/builder/sessions/"+sid+"/nodes/"+session.RootID,
		web.UpdateNodeRequest{Patch: graph.Patch{Name: &name}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	added := addNode(t, app, sid, web.AddNodeRequest{
		Kind:      graph.KindCondition,
		Condition: &graph.Condition{Name: "Role", Operator: models.OperatorEqual, IsActive: true},
	})

	resp, body := doJSON(t, app, http.MethodPost, "/builder/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode, string(body))

	var problem struct {
		Type    string         `json:"type"`
		Detail  string         `json:"detail"`
		Created map[string]int `json:"created"`
		Updated int            `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(body, &problem))

	assert.Equal(t, "internal_error", problem.Type)
	assert.Contains(t, problem.Detail, "update rejected")
	assert.Zero(t, problem.Updated)
	require.Contains(t, problem.Created, added.ID)

	stored, err := workflowService.FetchByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StepByID(problem.Created[added.ID]))
	assert.Equal(t, "Amount", stored.Steps[0].Name)
}
