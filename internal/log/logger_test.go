package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "": slog.LevelInfo, "INFO": slog.LevelInfo,
		"warn": slog.LevelWarn, "warning": slog.LevelWarn, "error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: slog.LevelDebug}).WithComponent(ComponentLedger)
	l.Info("hello", "k", "v")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, "component="), line)
	assert.Contains(t, line, "component=ledger")
	assert.Contains(t, line, "k=v")
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Level: slog.LevelDebug}))
	ctx := context.Background()

	sl.LogPaymentRecorded(ctx, "p1", "t3", 50000, "Cash", 450000)
	assert.Contains(t, buf.String(), "payment_id=t3")
	assert.Contains(t, buf.String(), "balance_cents=450000")
	assert.Contains(t, buf.String(), "operation=add_payment")

	buf.Reset()
	sl.LogError(ctx, "boom", errors.New("bad"), ComponentStorage, OpList, nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "component=storage")
	assert.Contains(t, buf.String(), "error=bad")

	buf.Reset()
	r := httptest.NewRequest("GET", "/missing", nil)
	sl.LogHTTPEnd(ctx, r, 404, 3, "1.2.3.4")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status_code=404")
}

func TestFromContext(t *testing.T) {
	l := Discard().WithComponent("x")
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}
