package observability

import (
	"context"
	"testing"
	"time"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsSafe(t *testing.T) {
	var o Observability

	ctx, span := o.StartSpan(context.Background(), "encode")
	require.NotNil(t, ctx)
	span.End()

	o.RecordJobProcessed(ctx, "completed")
	o.RecordJobDuration(ctx, time.Millisecond, "completed")
	o.RecordEncoded(ctx, "api")
	o.Shutdown()
}

func TestNew_WithInProcessTracing(t *testing.T) {
	o := New("credit-risk-test", config.TracingConfig{Enabled: true, SampleRatio: 1}, logger.NewTestLogger(t))
	defer o.Shutdown()

	require.NotNil(t, o.tracerProvider)

	_, span := o.StartSpan(context.Background(), "predict")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}
