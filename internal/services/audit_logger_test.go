package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureAuditLogger() (AuditLoggerInterface, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewAuditLogger(logger), &buf
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestAuditLogger_BudgetAlertSent(t *testing.T) {
	al, buf := captureAuditLogger()
	budgetID, userID := uuid.New(), uuid.New()

	al.LogBudgetAlertSent(models.WithTraceID(context.Background(), "trace-9"), budgetID, userID, models.AlertLevelCritical, 12)

	entry := decodeLogLine(t, buf)
	assert.Equal(t, "budget alert sent", entry["msg"])
	assert.Equal(t, "budget_alert_sent", entry["event_type"])
	assert.Equal(t, budgetID.String(), entry["budget_id"])
	assert.Equal(t, "critical", entry["alert_level"])
	assert.Equal(t, "trace-9", entry["trace_id"])
	assert.EqualValues(t, 12, entry["duration_ms"])
}

func TestAuditLogger_OmitsMissingTraceID(t *testing.T) {
	al, buf := captureAuditLogger()

	al.LogTaskPublishFailed(context.Background(), "email.send", "channel closed")

	entry := decodeLogLine(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.NotContains(t, entry, "trace_id")
}

func TestAuditLogger_SweepLevelReflectsFailures(t *testing.T) {
	tests := []struct {
		failed int
		level  string
	}{
		{0, "INFO"},
		{3, "WARN"},
	}

	for _, tt := range tests {
		al, buf := captureAuditLogger()
		al.LogSweepCompleted(context.Background(), 2026, 4, 10, tt.failed, 5)

		entry := decodeLogLine(t, buf)
		assert.Equal(t, tt.level, entry["level"])
		assert.Equal(t, "04-2026", entry["period"])
	}
}
