// Package account creates line of credit accounts through the lending API
// and removes their rows from the loan databases.
package account

import (
	"context"
	"fmt"
	"net/http"

	"lendingops/internal/config"
	"lendingops/internal/lendingapi"
	"lendingops/internal/state"
	"lendingops/internal/telemetry"
	"lendingops/lib/correlation"
)

const PathCreate = "/dcb/lending/v1/accounts/loc/create"

const defaultAccountNumberPath = "data.accountNo"

type Service struct {
	exec    lendingapi.Executor
	extract lendingapi.Extractor
	repo    state.Repository
	tel     telemetry.API

	newId       func() string
	traceParent func() string
}

func NewService(
	exec lendingapi.Executor,
	extract lendingapi.Extractor,
	repo state.Repository,
	tel telemetry.API,
) Service {
	return Service{
		exec:        exec,
		extract:     extract,
		repo:        repo,
		tel:         telemetry.NewScopedAPI("account", tel),
		newId:       correlation.RequestID,
		traceParent: correlation.TraceParent,
	}
}

type Created struct {
	ContractRefId     string
	AccountNumber     string
	ProductMarketCode string
	AccountName       string
	// Persisted lists the state keys that were written.
	Persisted []string
}

func (s Service) payload(inst *config.Institution, contractRefId string) map[string]any {
	body := make(map[string]any, len(inst.AccountPayload)+3)
	for k, v := range inst.AccountPayload {
		body[k] = v
	}
	body["contractRefId"] = contractRefId
	body["productMarketCode"] = inst.ProductMarketCodeOrDefault()
	if inst.CcdId != "" {
		body["ccdId"] = inst.CcdId
	}
	return body
}

// Create opens a new line of credit with the institution's static account
// profile and persists the contract reference id (and, if configured, the
// account number) for the flows that follow.
func (s Service) Create(ctx context.Context, inst *config.Institution) (Created, error) {
	if inst.BaseUrl == "" && inst.AccountBaseUrl == "" {
		return Created{}, &config.ConfigError{
			Key:    fmt.Sprintf("institutions.%s.base_url", inst.Name),
			Reason: "missing",
		}
	}

	localRefId := s.newId()
	requestId := s.newId()
	url := inst.AccountURL(PathCreate)
	body := s.payload(inst, localRefId)

	s.tel.ReportInfo("create", "url", url, "request_id", requestId, "contract_ref_id", localRefId)
	res := s.exec.Execute(ctx, lendingapi.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: inst.CallHeaders(config.HeadersAccount, requestId, s.traceParent()),
		Body:    body,
	})

	path := inst.AccountNumberPath
	if path == "" {
		path = defaultAccountNumberPath
	}
	accountNumber, err := s.extract.ExtractString(res, path, "", "ACCOUNT_NUMBER")
	if err != nil {
		return Created{}, err
	}
	contractRefId, err := s.extract.ExtractString(res, "data.contractRefId", localRefId, "CONTRACT_REF_ID")
	if err != nil {
		return Created{}, err
	}
	if contractRefId == "" {
		contractRefId = localRefId
	}

	created := Created{
		ContractRefId:     contractRefId,
		AccountNumber:     accountNumber,
		ProductMarketCode: inst.ProductMarketCodeOrDefault(),
	}
	if name, ok := inst.AccountPayload["accountNameEN"].(string); ok {
		created.AccountName = name
	}

	err = s.repo.Set(ctx, inst.Name, state.KeyContractRefId, contractRefId)
	if err != nil {
		return created, fmt.Errorf("persist %s: %w", state.KeyContractRefId, err)
	}
	created.Persisted = append(created.Persisted, state.KeyContractRefId)

	if inst.PersistAccountNumber && accountNumber != "" {
		err = s.repo.Set(ctx, inst.Name, state.KeyLocAccountNo, accountNumber)
		if err != nil {
			return created, fmt.Errorf("persist %s: %w", state.KeyLocAccountNo, err)
		}
		created.Persisted = append(created.Persisted, state.KeyLocAccountNo)
	}

	return created, nil
}
