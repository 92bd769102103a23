package drawdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"lendingops/internal/config"
	"lendingops/internal/errlog"
	"lendingops/internal/lendingapi"
	"lendingops/internal/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	requests  []lendingapi.Request
	responses map[string]string
}

func (f *fakeExecutor) Execute(ctx context.Context, req lendingapi.Request) lendingapi.Response {
	f.requests = append(f.requests, req)
	for suffix, body := range f.responses {
		if strings.HasSuffix(req.URL, suffix) {
			return lendingapi.NewResponse(200, []byte(body))
		}
	}
	return lendingapi.NewResponse(404, []byte(`{"code":"9404","message":"not mocked"}`))
}

func (f *fakeExecutor) paths() []string {
	var out []string
	for _, req := range f.requests {
		idx := strings.Index(req.URL, "/dcb/")
		out = append(out, req.URL[idx:])
	}
	return out
}

// body returns the request body as it would have been sent on the wire.
func (f *fakeExecutor) body(t testing.TB, path string) map[string]any {
	for _, req := range f.requests {
		if strings.HasSuffix(req.URL, path) {
			raw, err := json.Marshal(req.Body)
			require.NoError(t, err)
			var out map[string]any
			require.NoError(t, json.Unmarshal(raw, &out))
			return out
		}
	}
	t.Fatalf("no request to %s", path)
	return nil
}

const installmentOK = `{
	"code": "0000",
	"data": {
		"drawdownToken": "abc",
		"installmentPlan": [{"tenor": 6}, {"tenor": 12}]
	}
}`

func happyResponses() map[string]string {
	return map[string]string{
		PathInstallmentation:  installmentOK,
		PathSubmitToSaving:    `{"code":"0000"}`,
		PathConfirmToSaving:   `{"code":"0000"}`,
		PathConfirmToBiller:   `{"code":"0000"}`,
		PathAmortizationTable: `{"code":"0000","data":{"schedule":[{"installmentNo":1}]}}`,
	}
}

func testInstitution(mutate func(inst *config.Institution)) *config.Institution {
	planId := 1
	inst := &config.Institution{
		Name:              "vb",
		BaseUrl:           "https://lending.test",
		LocAccountNo:      "LOC-001",
		ToAccountNo:       "SAV-001",
		ProductMarketCode: "1207",
		DisburseAmount:    5000,
		SelectedPlanId:    &planId,
		CcdId:             "CCD-9",
		DrawdownType:      config.DrawdownSaving,
		Headers: map[string]map[string]string{
			config.HeadersDrawdown: {
				"x-channel-id":  "PT",
				"x-devops-src":  "bib",
				"x-devops-dest": "vb-dlp",
			},
		},
	}
	if mutate != nil {
		mutate(inst)
	}
	return inst
}

func newTestOrchestrator(exec lendingapi.Executor) (*Orchestrator, *telemetry.Recorder) {
	rec := &telemetry.Recorder{}
	o := NewOrchestrator(exec, lendingapi.NewExtractor(rec, errlog.Discard{}), rec)

	n := 0
	o.requestId = func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
	o.traceParent = func() string {
		return "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	}
	return o, rec
}

func TestRunEndToEnd(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	o, _ := newTestOrchestrator(exec)

	session, err := o.Run(context.Background(), testInstitution(nil))
	require.NoError(t, err)
	require.Equal(t, StateAmortizationFetched, session.State)
	require.Equal(t, "abc", session.DrawdownToken)
	require.Equal(t, "12", session.SelectedPlanTenor)

	require.Equal(t, []string{
		PathInstallmentation,
		PathSubmitToSaving,
		PathConfirmToSaving,
		PathAmortizationTable,
	}, exec.paths())

	installment := exec.body(t, PathInstallmentation)
	diff := cmp.Diff(map[string]any{
		"locAccountNo":      "LOC-001",
		"toAccountNo":       "SAV-001",
		"productMarketCode": "1207",
		"disburseAmount":    float64(5000),
		"currency":          "THB",
		"ccdId":             "CCD-9",
	}, installment)
	require.Empty(t, diff)

	submit := exec.body(t, PathSubmitToSaving)
	require.Equal(t, float64(1), submit["selectedPlanId"])
	require.Equal(t, "abc", submit["drawdownToken"])
	require.Equal(t, session.ChannelTxnRefId, submit["channelTxnRefId"])

	amortization := exec.body(t, PathAmortizationTable)
	require.Equal(t, "12", amortization["tenor"])
	require.Equal(t, float64(5000), amortization["drawdownAmount"])
	require.Equal(t, "LOC-001", amortization["accountNumber"])
}

func TestRunCorrelationIdentifiers(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	o, _ := newTestOrchestrator(exec)

	session, err := o.Run(context.Background(), testInstitution(nil))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, req := range exec.requests {
		require.Equal(t, session.TraceParent, req.Headers["x-traceparent"])
		require.Equal(t, "PT", req.Headers["x-channel-id"])
		require.Equal(t, "bib", req.Headers["x-devops-src"])
		require.Equal(t, "application/json", req.Headers["Content-Type"])

		id := req.Headers["x-request-id"]
		require.NotEmpty(t, id)
		require.False(t, seen[id], "request id %s reused", id)
		seen[id] = true
	}
	require.Len(t, session.Steps, 4)
}

func TestRunConfirmationPath(t *testing.T) {
	table := []struct {
		name         string
		drawdownType config.DrawdownType
		note         string
		expectPath   string
		expectBody   map[string]any
	}{
		{
			name:         "saving with default note",
			drawdownType: config.DrawdownSaving,
			expectPath:   PathConfirmToSaving,
			expectBody:   map[string]any{"drawdownToken": "abc", "note": "DISBURSEMENT"},
		},
		{
			name:         "saving with configured note",
			drawdownType: config.DrawdownSaving,
			note:         "test VB drawdown",
			expectPath:   PathConfirmToSaving,
			expectBody:   map[string]any{"drawdownToken": "abc", "note": "test VB drawdown"},
		},
		{
			name:         "bill",
			drawdownType: config.DrawdownBill,
			expectPath:   PathConfirmToBiller,
			expectBody:   map[string]any{"drawdownToken": "abc"},
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			exec := &fakeExecutor{responses: happyResponses()}
			o, _ := newTestOrchestrator(exec)

			_, err := o.Run(context.Background(), testInstitution(func(inst *config.Institution) {
				inst.DrawdownType = row.drawdownType
				inst.ConfirmNote = row.note
			}))
			require.NoError(t, err)
			require.Equal(t, row.expectPath, exec.paths()[2])
			require.Empty(t, cmp.Diff(row.expectBody, exec.body(t, row.expectPath)))
		})
	}
}

func TestRunInvalidDrawdownType(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	o, _ := newTestOrchestrator(exec)

	session, err := o.Run(context.Background(), testInstitution(func(inst *config.Institution) {
		inst.DrawdownType = "cash"
	}))
	var configErr *config.ConfigError
	require.True(t, errors.As(err, &configErr))
	require.Contains(t, configErr.Key, "drawdown_type")
	require.Equal(t, StateAborted, session.State)
	require.Empty(t, exec.requests)
}

func TestRunEmptyDrawdownToken(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	exec.responses[PathInstallmentation] = `{"code":"0000","data":{"drawdownToken":"","installmentPlan":[{"tenor":6},{"tenor":12}]}}`
	o, _ := newTestOrchestrator(exec)

	session, err := o.Run(context.Background(), testInstitution(nil))
	require.ErrorIs(t, err, ErrMissingDrawdownToken)
	require.Equal(t, StateAborted, session.State)
	require.Equal(t, []string{PathInstallmentation}, exec.paths())
}

func TestRunApplicationErrorAborts(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	exec.responses[PathSubmitToSaving] = `{"code":"E101","message":"plan not available"}`
	o, rec := newTestOrchestrator(exec)

	session, err := o.Run(context.Background(), testInstitution(nil))
	appErr, ok := lendingapi.AsApplicationError(err)
	require.True(t, ok)
	require.Equal(t, "E101", appErr.Code)
	require.Equal(t, "SUBMIT_TO_SAVING", appErr.Field)
	require.Equal(t, StateAborted, session.State)
	require.Equal(t, []string{PathInstallmentation, PathSubmitToSaving}, exec.paths())
	require.NotEmpty(t, rec.Find(telemetry.KindBroken, "drawdown: run"))
}

func TestRunPlanOutOfRange(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	o, _ := newTestOrchestrator(exec)

	_, err := o.Run(context.Background(), testInstitution(func(inst *config.Institution) {
		planId := 2
		inst.SelectedPlanId = &planId
	}))
	var configErr *config.ConfigError
	require.True(t, errors.As(err, &configErr))
	require.Equal(t, []string{PathInstallmentation}, exec.paths())
}

func TestRunMissingInstallmentPlans(t *testing.T) {
	table := []struct {
		name string
		body string
	}{
		{name: "missing", body: `{"code":"0000","data":{"drawdownToken":"abc"}}`},
		{name: "not a list", body: `{"code":"0000","data":{"drawdownToken":"abc","installmentPlan":{"tenor":6}}}`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			exec := &fakeExecutor{responses: happyResponses()}
			exec.responses[PathInstallmentation] = row.body
			o, _ := newTestOrchestrator(exec)

			session, err := o.Run(context.Background(), testInstitution(nil))
			require.ErrorIs(t, err, ErrNoInstallmentPlans)
			var configErr *config.ConfigError
			require.False(t, errors.As(err, &configErr))
			require.Equal(t, StateAborted, session.State)
			require.Equal(t, []string{PathInstallmentation}, exec.paths())
		})
	}
}

func TestRunAmortizationOverrides(t *testing.T) {
	exec := &fakeExecutor{responses: happyResponses()}
	o, _ := newTestOrchestrator(exec)

	_, err := o.Run(context.Background(), testInstitution(func(inst *config.Institution) {
		inst.DisburseAmount = 1500.5
		inst.AmortizationAmountAsText = true
		inst.AmortizationBaseUrl = "https://amortization.test/"
	}))
	require.NoError(t, err)

	last := exec.requests[len(exec.requests)-1]
	require.Equal(t, "https://amortization.test"+PathAmortizationTable, last.URL)
	require.Equal(t, "1500.5", exec.body(t, PathAmortizationTable)["drawdownAmount"])
}
