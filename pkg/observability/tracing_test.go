package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)

	// Spans are no-ops but must not panic.
	_, span := StartSpan(context.Background(), "test.span")
	span.End()
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	err := InitTracing(TracingConfig{
		Enabled:      true,
		ExporterType: "jaeger",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown exporter")
}

func TestStartSpan_BeforeInit(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "early.span")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
		{
			name: "single pair",
			raw:  "authorization=Bearer token",
			want: map[string]string{"authorization": "Bearer token"},
		},
		{
			name: "multiple pairs with spaces",
			raw:  "a=1, b=2",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{
			name: "malformed pair skipped",
			raw:  "a=1,broken",
			want: map[string]string{"a": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHeaders(tt.raw))
		})
	}
}

func TestShutdownTracing_WithoutInit(t *testing.T) {
	require.NoError(t, ShutdownTracing(context.Background()))
}
