package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/stepflow/pkg/channels/gochannel"
	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/events"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestAuditLog_Handlers(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	audit := NewAuditLog(slog.New(slog.NewTextHandler(out, nil)))

	tests := []struct {
		name     string
		handler  eventbus.EventHandler
		event    any
		contains string
		wantErr  bool
	}{
		{
			name:     "workflow created",
			handler:  audit.handleWorkflowCreated,
			event:    &events.WorkflowCreated{BaseEvent: events.NewBaseEvent("e1", events.WorkflowCreatedEvent, 3), Workflow: models.Workflow{Name: "Checks"}},
			contains: "name=Checks",
		},
		{
			name:     "steps updated",
			handler:  audit.handleStepsUpdated,
			event:    &events.StepsUpdated{BaseEvent: events.NewBaseEvent("e2", events.StepsUpdatedEvent, 3), Fields: []string{"name"}},
			contains: "steps updated",
		},
		{
			name:     "step deleted",
			handler:  audit.handleStepDeleted,
			event:    &events.StepDeleted{BaseEvent: events.NewBaseEvent("e3", events.StepDeletedEvent, 3), StepID: 9},
			contains: "step_id=9",
		},
		{
			name:    "wrong payload",
			handler: audit.handleWorkflowDeleted,
			event:   &events.StepDeleted{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.handler(context.Background(), tt.event)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestAuditLog_ReceivesPublishedEvents(t *testing.T) {
	t.Parallel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.Default())
	defer func() {
		_ = bus.Close()
	}()

	out := &syncBuffer{}
	require.NoError(t, NewAuditLog(slog.New(slog.NewTextHandler(out, nil))).Register(bus))
	require.NoError(t, bus.Subscribe(t.Context()))

	err = bus.Publish(t.Context(), "workflow-5", events.StepsCreated{
		BaseEvent: events.NewBaseEvent(bus.GenerateID(), events.StepsCreatedEvent, 5),
		Steps:     []models.Step{{ID: 1}, {ID: 2}},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("count=2"))
	}, 2*time.Second, 10*time.Millisecond)
}
