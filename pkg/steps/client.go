package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/stepflow/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the step API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// http://localhost:9091.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("module", "steps_client")

	return c
}

var _ API = (*Client)(nil)

func (c *Client) FetchWorkflow(ctx context.Context, workflowID int) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/validations/workflows/%d", workflowID), nil, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) ListWorkflows(ctx context.Context, filter models.WorkflowFilter) (*models.WorkflowList, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}

	if filter.ExecutionPoint != "" {
		query.Set("execution_point", filter.ExecutionPoint)
	}

	if filter.Limit > 0 {
		query.Set("limit", fmt.Sprint(filter.Limit))
	}

	if filter.Offset > 0 {
		query.Set("offset", fmt.Sprint(filter.Offset))
	}

	path := "/validations/workflows"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list models.WorkflowList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	return &list, nil
}

func (c *Client) CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := c.do(ctx, http.MethodPost, "/validations/workflows", req, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) UpdateWorkflow(ctx context.Context, workflowID int, req models.UpdateWorkflowRequest) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/validations/workflows/%d", workflowID), req, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) BulkCreateSteps(ctx context.Context, req models.BulkCreateStepsRequest) ([]models.Step, error) {
	var resp models.BulkCreateStepsResponse
	if err := c.do(ctx, http.MethodPost, "/validations/steps/bulk-create", req, &resp); err != nil {
		return nil, err
	}

	return resp.Created(), nil
}

func (c *Client) BulkUpdateSteps(ctx context.Context, req models.BulkUpdateStepsRequest) ([]models.Step, error) {
	var resp models.BulkUpdateStepsResponse
	if err := c.do(ctx, http.MethodPost, "/validations/steps/bulk-update", req, &resp); err != nil {
		return nil, err
	}

	return resp.Updated(), nil
}

func (c *Client) DeleteStep(ctx context.Context, stepID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/validations/steps/%d", stepID), nil, nil)
}

func (c *Client) Datasources(ctx context.Context, executionPoint string) ([]string, error) {
	var resp models.DatasourcesResponse

	path := "/validations/datasources?execution_point=" + url.QueryEscape(executionPoint)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Datasources, nil
}

// problem is the RFC 7807 body returned by the API on errors.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.DebugContext(ctx, "step api call", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}

		var p problem
		if json.Unmarshal(respBody, &p) == nil {
			if p.Title != "" {
				apiErr.Title = p.Title
			}

			apiErr.Detail = p.Detail
			if apiErr.Detail == "" {
				apiErr.Detail = p.Error
			}
		}

		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
