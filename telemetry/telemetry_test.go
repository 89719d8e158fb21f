package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Validation(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true, SamplingRate: 1}, nil)
	assert.ErrorIs(t, err, ErrServiceNameRequired)

	_, err = Init(context.Background(), Config{Enabled: true, ServiceName: DefaultServiceName, SamplingRate: 1.5}, nil)
	assert.ErrorIs(t, err, ErrInvalidSamplingRate)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
