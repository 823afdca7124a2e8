package core

import (
	"context"
	"testing"
)

// TestNoopDefaults exercises the zero-configuration collaborators.
func TestNoopDefaults(_ *testing.T) {
	logger := noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")

	noopMetrics{}.Observe(context.Background(), OpGet, true, 0)
	_, span := noopTracer{}.Start(context.Background(), OpGet)
	span.End(nil)
	noopAudit{}.Notify(context.Background(), AuditEntry{})
}
