// Package file provides a file-based persistence implementation: one JSON
// document per workflow, holding its steps, plus a sequence file for ids.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	store        *store
	workflowRepo *WorkflowRepository
	stepRepo     *StepRepository
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory, given as a path or a file:// URL.
func NewPersistence(root string) *Persistence {
	s := &store{root: strings.Replace(root, "file://", "", 1)}

	return &Persistence{
		store:        s,
		workflowRepo: &WorkflowRepository{store: s},
		stepRepo:     &StepRepository{store: s},
	}
}

var _ persistence.Persistence = (*Persistence)(nil)

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks that the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.store.root); err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) StepRepository() persistence.StepRepository {
	return fp.stepRepo
}

// store serializes every access to the files under root.
type store struct {
	mu   sync.Mutex
	root string
}

type sequences struct {
	Workflow int `json:"workflow"`
	Step     int `json:"step"`
}

func (s *store) workflowsDir() string {
	return filepath.Join(s.root, "workflows")
}

func (s *store) workflowPath(id int) string {
	return filepath.Join(s.workflowsDir(), strconv.Itoa(id)+".json")
}

func (s *store) read(id int) (*models.Workflow, error) {
	body, err := os.ReadFile(s.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %d: %w", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %d: %w", id, err)
	}

	sortSteps(workflow.Steps)

	return &workflow, nil
}

func (s *store) write(workflow *models.Workflow) error {
	if err := os.MkdirAll(s.workflowsDir(), 0o750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	sortSteps(workflow.Steps)

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %d: %w", workflow.ID, err)
	}

	return writeFile(s.workflowPath(workflow.ID), data)
}

func (s *store) remove(id int) error {
	err := os.Remove(s.workflowPath(id))
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

func (s *store) all() ([]*models.Workflow, error) {
	files, err := fs.Glob(os.DirFS(s.workflowsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, file := range files {
		id, err := strconv.Atoi(strings.TrimSuffix(file, ".json"))
		if err != nil {
			continue
		}

		workflow, err := s.read(id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// findStep returns the workflow holding stepID and the step index in it.
func (s *store) findStep(stepID int) (*models.Workflow, int, error) {
	workflows, err := s.all()
	if err != nil {
		return nil, 0, err
	}

	for _, workflow := range workflows {
		for i := range workflow.Steps {
			if workflow.Steps[i].ID == stepID {
				return workflow, i, nil
			}
		}
	}

	return nil, 0, persistence.ErrStepNotFound
}

func (s *store) nextIDs(workflows, steps int) (int, int, error) {
	path := filepath.Join(s.root, "sequences.json")

	var seq sequences

	body, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &seq); err != nil {
			return 0, 0, fmt.Errorf("failed to unmarshal sequences: %w", err)
		}
	case !os.IsNotExist(err):
		return 0, 0, fmt.Errorf("failed to read sequences: %w", err)
	}

	firstWorkflow, firstStep := seq.Workflow+1, seq.Step+1
	seq.Workflow += workflows
	seq.Step += steps

	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return 0, 0, fmt.Errorf("failed to create root directory: %w", err)
	}

	data, err := json.Marshal(seq)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal sequences: %w", err)
	}

	if err := writeFile(path, data); err != nil {
		return 0, 0, err
	}

	return firstWorkflow, firstStep, nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func sortSteps(steps []models.Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Order != steps[j].Order {
			return steps[i].Order < steps[j].Order
		}

		return steps[i].ID < steps[j].ID
	})
}
