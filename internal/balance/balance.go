// Package balance asks the lending processor for the balance of a line of
// credit account.
package balance

import (
	"context"
	"net/http"

	"lendingops/internal/config"
	"lendingops/internal/lendingapi"
	"lendingops/internal/telemetry"
	"lendingops/lib/correlation"
)

// DefaultInquiryURL is the in-cluster address of the processor.
const DefaultInquiryURL = "http://proc-lending-account.lending-processor.svc.cluster.local:8080/dcb/lending-internal/v1/proc-account/balance/inquiry"

const AccountTypeLoc = "LOC_ACCOUNT"

// AccountLookup is implemented by *loandb.Store.
type AccountLookup interface {
	TmAccountId(ctx context.Context, contractRefId string) (string, error)
}

type Result struct {
	ContractRefId string
	TmAccountId   string
	// Balances is the data of the inquiry response.
	Balances any
}

type Inquiry struct {
	exec    lendingapi.Executor
	extract lendingapi.Extractor
	tel     telemetry.API
}

func NewInquiry(exec lendingapi.Executor, extract lendingapi.Extractor, tel telemetry.API) Inquiry {
	return Inquiry{
		exec:    exec,
		extract: extract,
		tel:     telemetry.NewScopedAPI("balance", tel),
	}
}

// Run resolves the core banking account of contractRefId and queries its
// balance.
func (q Inquiry) Run(ctx context.Context, inst *config.Institution, accounts AccountLookup, contractRefId string) (Result, error) {
	out := Result{ContractRefId: contractRefId}

	tmAccountId, err := accounts.TmAccountId(ctx, contractRefId)
	if err != nil {
		return out, err
	}
	out.TmAccountId = tmAccountId

	url := inst.BalanceInquiryUrl
	if url == "" {
		url = DefaultInquiryURL
	}
	requestId := correlation.RequestID()
	q.tel.ReportInfo("inquiry", "url", url, "request_id", requestId, "tm_account_id", tmAccountId)

	res := q.exec.Execute(ctx, lendingapi.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: inst.CallHeaders(config.HeadersBalance, requestId, correlation.TraceParent()),
		Body: map[string]any{
			"accountIds": []map[string]any{
				{
					"tmAccountId": tmAccountId,
					"accountType": AccountTypeLoc,
				},
			},
		},
	})
	balances, err := q.extract.Extract(res, "data", nil, "BALANCE_INQUIRY")
	if err != nil {
		return out, err
	}
	out.Balances = balances
	return out, nil
}
