package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("drawdown", NewScopedAPI("ktb", rec))

	scoped.ReportBroken("step.installmentation", "err")
	scoped.ReportCount("rows", 3)

	broken := rec.Find(KindBroken, "")
	require.Len(t, broken, 1)
	require.Equal(t, "ktb: drawdown: step.installmentation", broken[0].Id)

	counts := rec.Find(KindCount, "rows")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
}

func TestSlogAPIParams(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	api := NewSlogAPI(logger)

	api.ReportInfo("calling", "url", "https://example.test")
	require.Contains(t, buf.String(), "url=https://example.test")

	buf.Reset()
	api.ReportWarning("extract.default", 42, "x")
	require.Contains(t, buf.String(), "params.0=42")
	require.Contains(t, buf.String(), "params.1=x")
	require.Contains(t, buf.String(), "id=extract.default")
}
