package otelhelper_test

import (
	"errors"
	"testing"

	"github.com/dukex/stepflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(t.Context(), tracer, "builder.save", otelhelper.WorkflowIDKey.Int(4))
	otelhelper.End(span, errors.New("boom"))

	_, ok := otelhelper.StartSpan(t.Context(), tracer, "builder.delete")
	otelhelper.End(ok, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "builder.save", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), otelhelper.WorkflowIDKey.Int(4))
	assert.Len(t, spans[0].Events(), 1)

	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestStartSpan_NilTracer(t *testing.T) {
	ctx, span := otelhelper.StartSpan(t.Context(), nil, "noop")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}
