package lendingapi

import (
	"os"
	"path/filepath"
	"testing"

	"lendingops/internal/errlog"
	"lendingops/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestExtractor(t testing.TB) (Extractor, errlog.File, *telemetry.Recorder) {
	rec := &telemetry.Recorder{}
	errs := errlog.NewFile(filepath.Join(t.TempDir(), errlog.DefaultFile))
	return NewExtractor(rec, errs), errs, rec
}

func TestExtractSuccessCodes(t *testing.T) {
	ext, _, _ := newTestExtractor(t)

	bodies := []string{
		`{"code":"0000","data":{"drawdownToken":"tok-123"}}`,
		`{"data":{"drawdownToken":"tok-123"}}`,
		`{"code":"","data":{"drawdownToken":"tok-123"}}`,
	}
	for _, body := range bodies {
		res := NewResponse(200, []byte(body))
		value, err := ext.ExtractString(res, "data.drawdownToken", "", "DRAWDOWN_TOKEN")
		require.NoError(t, err, body)
		require.Equal(t, "tok-123", value, body)
	}
}

func TestExtractApplicationError(t *testing.T) {
	ext, errs, rec := newTestExtractor(t)

	for _, code := range []string{"4001", "NETWORK_ERROR", "9999"} {
		res := NewResponse(200, []byte(`{"code":"`+code+`","message":"rejected","data":{"drawdownToken":"tok"}}`))
		value, err := ext.ExtractString(res, "data.drawdownToken", "fallback", "DRAWDOWN_TOKEN")
		require.Error(t, err)
		require.Equal(t, "fallback", value)

		appErr, ok := AsApplicationError(err)
		require.True(t, ok)
		require.Equal(t, code, appErr.Code)
		require.Equal(t, "rejected", appErr.Message)
		require.Equal(t, "DRAWDOWN_TOKEN", appErr.Field)
	}

	require.Len(t, rec.Find(telemetry.KindBroken, report_extractor_application_error), 3)

	contents, err := os.ReadFile(errs.Path())
	require.NoError(t, err)
	require.Contains(t, string(contents), "Error in DRAWDOWN_TOKEN - Code 4001 - rejected")
	require.Contains(t, string(contents), `Response: {"code":"4001"`)
}

func TestExtractNumericCode(t *testing.T) {
	ext, _, _ := newTestExtractor(t)

	res := NewResponse(200, []byte(`{"code":500,"message":"boom"}`))
	err := ext.Check(res, "STEP")
	appErr, ok := AsApplicationError(err)
	require.True(t, ok)
	require.Equal(t, "500", appErr.Code)
}

func TestExtractSoftMiss(t *testing.T) {
	ext, errs, rec := newTestExtractor(t)

	paths := []string{
		"data.missing",
		"missing.drawdownToken",
		"data.drawdownToken.deeper",
	}
	for _, path := range paths {
		res := NewResponse(200, []byte(`{"code":"0000","data":{"drawdownToken":"tok"}}`))
		value, err := ext.Extract(res, path, "default", "FIELD")
		require.NoError(t, err, path)
		require.Equal(t, "default", value, path)
	}

	require.Len(t, rec.Find(telemetry.KindWarning, report_extractor_default), len(paths))
	_, err := os.Stat(errs.Path())
	require.True(t, os.IsNotExist(err))
}

func TestExtractLocalFault(t *testing.T) {
	table := []struct {
		name    string
		body    string
		message string
	}{
		{name: "html", body: `<html>bad gateway</html>`, message: "invalid character"},
		{name: "string root", body: `"maintenance"`, message: ErrNotObject.Error()},
		{name: "array root", body: `[1,2,3]`, message: ErrNotObject.Error()},
		{name: "empty", body: ``, message: ErrNotObject.Error()},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			ext, errs, rec := newTestExtractor(t)

			res := NewResponse(502, []byte(row.body))
			value, err := ext.ExtractString(res, "data.drawdownToken", "", "DRAWDOWN_TOKEN")
			require.NoError(t, err)
			require.Equal(t, "", value)
			require.Len(t, rec.Find(telemetry.KindBroken, report_extractor_local_fault), 1)
			require.Empty(t, rec.Find(telemetry.KindWarning, report_extractor_default))

			contents, readErr := os.ReadFile(errs.Path())
			require.NoError(t, readErr)
			require.Contains(t, string(contents), "Network error in DRAWDOWN_TOKEN - "+row.message)
		})
	}
}

func TestExtractNetworkErrorResponse(t *testing.T) {
	ext, _, _ := newTestExtractor(t)

	res := networkErrorResponse(os.ErrDeadlineExceeded)
	err := ext.Check(res, "INSTALLMENTATION")
	appErr, ok := AsApplicationError(err)
	require.True(t, ok)
	require.True(t, appErr.IsNetwork())
}
