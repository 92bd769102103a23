package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendingops/internal/config"
	"lendingops/internal/errlog"
	"lendingops/internal/lendingapi"
	"lendingops/internal/loandb"
	"lendingops/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeLookup map[string]string

func (f fakeLookup) TmAccountId(ctx context.Context, contractRefId string) (string, error) {
	id, ok := f[contractRefId]
	if !ok {
		return "", fmt.Errorf("%w with contract_ref_id %s", loandb.ErrAccountNotFound, contractRefId)
	}
	return id, nil
}

func TestRun(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		gotHeader = r.Header.Clone()
		w.Write([]byte(`{"code":"0000","data":{"balances":[{"tmAccountId":"tm-1","available":"20000.00"}]}}`))
	}))
	defer server.Close()

	rec := &telemetry.Recorder{}
	client := lendingapi.NewClient(lendingapi.ClientOptions{Timeout: 5 * time.Second}, rec, errlog.Discard{})
	inquiry := NewInquiry(client, lendingapi.NewExtractor(rec, errlog.Discard{}), rec)

	inst := &config.Institution{
		Name:              "ktb",
		BalanceInquiryUrl: server.URL + "/dcb/lending-internal/v1/proc-account/balance/inquiry",
		Headers: map[string]map[string]string{
			config.HeadersBalance: {"X-Channel-Id": "bib", "X-Requester": ""},
		},
	}

	result, err := inquiry.Run(context.Background(), inst, fakeLookup{"ref-1": "tm-1"}, "ref-1")
	require.NoError(t, err)
	require.Equal(t, "tm-1", result.TmAccountId)
	require.NotNil(t, result.Balances)

	require.Equal(t, map[string]any{
		"accountIds": []any{
			map[string]any{"tmAccountId": "tm-1", "accountType": "LOC_ACCOUNT"},
		},
	}, gotBody)
	require.Equal(t, "bib", gotHeader.Get("X-Channel-Id"))
	require.NotEmpty(t, gotHeader.Get("X-Request-Id"))
	require.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`, gotHeader.Get("X-Traceparent"))
	_, hasRequester := gotHeader["X-Requester"]
	require.True(t, hasRequester)
}

type countingExecutor struct {
	calls int
}

func (c *countingExecutor) Execute(ctx context.Context, req lendingapi.Request) lendingapi.Response {
	c.calls++
	return lendingapi.NewResponse(200, []byte(`{"code":"0000"}`))
}

func TestRunUnknownAccount(t *testing.T) {
	exec := &countingExecutor{}
	rec := &telemetry.Recorder{}
	inquiry := NewInquiry(exec, lendingapi.NewExtractor(rec, errlog.Discard{}), rec)

	_, err := inquiry.Run(context.Background(), &config.Institution{Name: "ktb"}, fakeLookup{}, "missing")
	require.ErrorIs(t, err, loandb.ErrAccountNotFound)
	require.Equal(t, 0, exec.calls)
}
