package tracing

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

type sdkProvider struct{ *tracesdk.TracerProvider }

func (p sdkProvider) Close() error { return p.Shutdown(context.Background()) }

func TestInit_Error(t *testing.T) {
	p, err := Init(func() (Provider, error) {
		return nil, errors.New("empty connection string")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty connection string")

	require.NotNil(t, p)
	_, span := p.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, p.Close())
}

func TestInit_SetsGlobal(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	want := sdkProvider{tracesdk.NewTracerProvider()}
	p, err := Init(func() (Provider, error) { return want, nil })
	require.NoError(t, err)
	assert.Equal(t, want, p)
	assert.NoError(t, p.Close())
}
