package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"idcard/internal/config"
	"idcard/internal/core"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	tel, err := Setup(context.Background(), config.OTelConfig{})
	require.NoError(t, err)
	assert.Nil(t, tel)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("authorization=Bearer abc, x-team = cards,broken")
	assert.Equal(t, map[string]string{"authorization": "Bearer abc", "x-team": "cards"}, got)
	assert.Empty(t, parseHeaders(""))
}

func TestOTelTracerRecordsServiceSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := core.NewInMemoryService(core.WithTracer(NewOTelTracer(tp)))
	m, err := svc.Register(context.Background(), core.RegisterInput{Name: "Asha Rao", Role: "Volunteer"})
	require.NoError(t, err)
	_, _, err = svc.Get(context.Background(), m.ID)
	require.NoError(t, err)

	_, span := NewOTelTracer(tp).Start(context.Background(), "delete")
	span.End(errors.New("store down"))

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "registry.register", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, "registry.get", ended[1].Name())
	assert.Equal(t, codes.Error, ended[2].Status().Code)
	assert.Equal(t, "store down", ended[2].Status().Description)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	r.Observe(context.Background(), "get", true, 2*time.Millisecond)
	r.Observe(context.Background(), "get", false, time.Millisecond)
	r.Observe(context.Background(), "get", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ops.WithLabelValues("get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ops.WithLabelValues("get", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err, "second registration on one registry collides")
}
