package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"idcard/internal/config"
)

func TestJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Config{Env: "production"}, &buf)

	ctx := WithLogFields(context.Background(), LogFields{Command: "card"})
	ctx = WithLogFields(ctx, LogFields{MemberID: "482913", Component: "idcard.discord"})
	l.DebugContext(ctx, "hidden")
	l.InfoContext(ctx, "card rendered")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "card rendered" || rec["member_id"] != "482913" || rec["command"] != "card" || rec["component"] != "idcard.discord" {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("trace id added without a span: %v", rec)
	}
}

func TestTextInDevelopmentWithSpan(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Config{Env: "development"}, &buf).With("svc", "idcard")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	l.DebugContext(ctx, "debug visible")
	out := buf.String()
	for _, want := range []string{"debug visible", "svc=idcard", "trace_id=" + span.SpanContext().TraceID().String(), "span_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestGetLogFieldsEmpty(t *testing.T) {
	if got := GetLogFields(context.Background()); got != (LogFields{}) {
		t.Fatalf("expected zero fields, got %+v", got)
	}
}
