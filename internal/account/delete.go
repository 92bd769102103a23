package account

import (
	"context"
	"fmt"

	"lendingops/internal/config"
	"lendingops/internal/state"
	"lendingops/internal/telemetry"
)

// LoanAccountStore is implemented by *loandb.Store.
type LoanAccountStore interface {
	DeleteLoanAccount(ctx context.Context, contractRefId string) (int64, error)
}

type Target struct {
	Database string
	Store    LoanAccountStore
}

type Deleted struct {
	Database string
	Rows     int64
}

// ContractRefId returns the contract reference id of inst, the persisted
// value wins over the one in config.
func ContractRefId(ctx context.Context, repo state.Repository, inst *config.Institution) (string, error) {
	value, ok, err := repo.Get(ctx, inst.Name, state.KeyContractRefId)
	if err != nil {
		return "", err
	}
	if ok && value != "" {
		return value, nil
	}
	if inst.ContractRefId != "" {
		return inst.ContractRefId, nil
	}
	return "", &config.ConfigError{
		Key:    fmt.Sprintf("institutions.%s.contract_ref_id", inst.Name),
		Reason: "no contract_ref_id found, create an account first",
	}
}

// Delete removes the loan_account rows of contractRefId from every target in
// order. No matching rows is not an error, the count is simply 0.
func Delete(ctx context.Context, tel telemetry.API, contractRefId string, targets ...Target) ([]Deleted, error) {
	tel = telemetry.NewScopedAPI("account", tel)

	out := make([]Deleted, 0, len(targets))
	for _, t := range targets {
		rows, err := t.Store.DeleteLoanAccount(ctx, contractRefId)
		if err != nil {
			tel.ReportBroken("delete", "database", t.Database, "err", err)
			return out, err
		}
		tel.ReportCount(fmt.Sprintf("delete.%s", t.Database), rows)
		out = append(out, Deleted{Database: t.Database, Rows: rows})
	}
	return out, nil
}
