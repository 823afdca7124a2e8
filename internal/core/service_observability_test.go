package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"

	"idcard/pkg/domain"
)

func TestServiceReportsEveryOperation(t *testing.T) {
	ctx := context.Background()
	audit := &captureAudit{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	svc := newTestService(
		WithIDGenerator(sequenceIDs("482913")),
		WithAuditNotifier(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)

	m, err := svc.Register(ctx, RegisterInput{Name: "Asha Rao", Role: "Volunteer"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, m.ID, "suspended"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, err := svc.UpdateRole(ctx, m.ID, "Coordinator"); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if _, _, err := svc.Get(ctx, m.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, op := range []string{OpRegister, OpUpdateStatus, OpUpdateRole, OpGet, OpList, OpDelete} {
		if !metrics.has(op, true) {
			t.Fatalf("missing metrics for %s", op)
		}
	}
	if len(tracer.ended) != 6 {
		t.Fatalf("expected 6 spans, got %d", len(tracer.ended))
	}

	want := []AuditAction{AuditActionRegister, AuditActionUpdateStatus, AuditActionUpdateRole, AuditActionDelete}
	got := audit.actions()
	if len(got) != len(want) {
		t.Fatalf("audit actions %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("audit actions %v, want %v", got, want)
		}
	}
	summaries := []string{
		"Registered Asha Rao (482913)",
		"Status updated: 482913 → SUSPENDED",
		"Role updated: 482913 → Coordinator",
		"Deleted member 482913",
	}
	for i, s := range summaries {
		if audit.entries[i].Summary != s {
			t.Fatalf("summary %d = %q, want %q", i, audit.entries[i].Summary, s)
		}
		if !audit.entries[i].Timestamp.Equal(fixedNow) {
			t.Fatalf("audit timestamp should come from clock, got %v", audit.entries[i].Timestamp)
		}
	}
	if audit.entries[0].Member == nil || audit.entries[0].Member.ID != "482913" {
		t.Fatalf("register audit should carry the record: %+v", audit.entries[0])
	}
	if audit.entries[3].Member != nil {
		t.Fatalf("delete audit should not carry a record")
	}
}

func TestFailedOperationIsTracedAsError(t *testing.T) {
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	svc := NewService(&unavailableStore{}, WithMetricsRecorder(metrics), WithTracer(tracer))
	if _, err := svc.Delete(context.Background(), "482913"); err == nil {
		t.Fatalf("expected error")
	}
	if !metrics.has(OpDelete, false) {
		t.Fatalf("expected failed delete metric")
	}
	if len(tracer.ended) != 1 || tracer.ended[0].err == nil {
		t.Fatalf("expected failed span, got %+v", tracer.ended)
	}
}

func TestAuditPanicDoesNotFailMutation(t *testing.T) {
	log := &captureLogger{}
	svc := newTestService(WithAuditNotifier(panickingAudit{}), WithLogger(log))
	m, err := svc.Register(context.Background(), RegisterInput{Name: "Asha Rao", Role: "Volunteer"})
	if err != nil {
		t.Fatalf("register should survive a broken notifier: %v", err)
	}
	if _, ok, _ := svc.Get(context.Background(), m.ID); !ok {
		t.Fatalf("record missing after notifier panic")
	}
	if !log.has("w:audit notifier panicked") {
		t.Fatalf("expected warning, got %v", log.calls)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := NewService(&unavailableStore{}, WithMetricsRecorder(rec))
	_, _ = svc.List(context.Background())
	_, _ = svc.List(context.Background())

	snap := rec.Snapshot()
	st := snap.Operations[OpList]
	if st.Calls != 2 || st.Errors != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	v := expvar.Get(rec.Name())
	if v == nil || !strings.Contains(v.String(), `"list"`) {
		t.Fatalf("expected published expvar, got %v", v)
	}
	rec.Observe(context.Background(), "", true, 0)
	if len(rec.Snapshot().Operations) != 1 {
		t.Fatalf("empty operation should be ignored")
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := newTestService(WithTracer(tracer), WithIDGenerator(sequenceIDs("482913")))
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Asha Rao", Role: "Volunteer"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Get(context.Background(), "bad"); err == nil {
		t.Fatalf("expected validation error")
	}
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != OpRegister || entries[0].Status != "ok" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"register"`) {
		t.Fatalf("expected json line, got %q", buf.String())
	}

	_, span := tracer.Start(context.Background(), "manual")
	span.End(domain.ErrRender)
	span.End(nil)
	entries = tracer.Entries()
	if len(entries) != 2 || entries[1].Status != "error" {
		t.Fatalf("expected single error span, got %+v", entries)
	}
}
