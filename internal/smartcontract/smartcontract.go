// Package smartcontract points loan accounts at a new set of smart contract
// versions and keeps that set in sync with the release note.
package smartcontract

import (
	"context"
	"fmt"

	"lendingops/internal/config"
	"lendingops/internal/loandb"
	"lendingops/internal/state"
	"lendingops/internal/telemetry"
	"lendingops/internal/wiki"
)

const (
	CacheDeleted  = "Success"
	CacheNotFound = "Key not found"
)

// column names of the release note table
const (
	ColumnSupervisor = "Supervisor Version"
	ColumnLoc        = "LOC Version"
	ColumnDrawdown   = "Drawdown Version"
)

// ContractStore is implemented by *loandb.Store.
type ContractStore interface {
	UpdateProcLoanAccount(ctx context.Context, v loandb.SmartContractVersions) (int64, error)
	UpdateLoanSmartContract(ctx context.Context, v loandb.SmartContractVersions) (int64, error)
}

// Cache is implemented by contractcache.Cache.
type Cache interface {
	Invalidate(ctx context.Context, key string) (bool, error)
}

// PageSource is implemented by wiki.Client.
type PageSource interface {
	Fetch(ctx context.Context) (wiki.Page, error)
}

// Versions reads the version set of inst, the caller is expected to have
// overlaid persisted values already.
func Versions(inst *config.Institution) (loandb.SmartContractVersions, error) {
	v := loandb.SmartContractVersions{
		SupervisorContractId:    inst.SupervisorContractId,
		LocSmartContractId:      inst.LocSmartContractId,
		DrawdownSmartContractId: inst.DrawdownSmartContractId,
	}
	required := []struct {
		field string
		value string
	}{
		{"supervisor_contract_id", v.SupervisorContractId},
		{"loc_smart_contract_id", v.LocSmartContractId},
		{"drawdown_smart_contract_id", v.DrawdownSmartContractId},
	}
	for _, r := range required {
		if r.value == "" {
			return v, &config.ConfigError{
				Key:    fmt.Sprintf("institutions.%s.%s", inst.Name, r.field),
				Reason: "missing, run smart-contract pull or set it in config",
			}
		}
	}
	return v, nil
}

type Applied struct {
	Versions              loandb.SmartContractVersions
	ProcLoanAccountRows   int64
	LoanSmartContractRows int64
	CacheKey              string
	CacheStatus           string
}

// Apply updates both tables and then invalidates the cache key. Zero rows
// updated is reported, not an error.
func Apply(
	ctx context.Context,
	tel telemetry.API,
	v loandb.SmartContractVersions,
	cacheKey string,
	store ContractStore,
	cache Cache,
) (Applied, error) {
	tel = telemetry.NewScopedAPI("smartcontract", tel)
	out := Applied{Versions: v, CacheKey: cacheKey}

	if cacheKey == "" {
		return out, &config.ConfigError{Key: "redis_key", Reason: "missing"}
	}

	rows, err := store.UpdateProcLoanAccount(ctx, v)
	if err != nil {
		tel.ReportBroken("apply.proc_loan_account", "err", err)
		return out, err
	}
	out.ProcLoanAccountRows = rows
	tel.ReportCount("apply.proc_loan_account", rows)

	rows, err = store.UpdateLoanSmartContract(ctx, v)
	if err != nil {
		tel.ReportBroken("apply.loan_smart_contract", "err", err)
		return out, err
	}
	out.LoanSmartContractRows = rows
	tel.ReportCount("apply.loan_smart_contract", rows)

	existed, err := cache.Invalidate(ctx, cacheKey)
	if err != nil {
		tel.ReportBroken("apply.cache", "key", cacheKey, "err", err)
		return out, err
	}
	out.CacheStatus = CacheNotFound
	if existed {
		out.CacheStatus = CacheDeleted
	}
	return out, nil
}

type Pulled struct {
	PageTitle string
	Row       map[string]string
	Versions  loandb.SmartContractVersions
}

// Pull reads the version set of `inst` for environment `env` from the
// release note and persists it into session state.
func Pull(
	ctx context.Context,
	tel telemetry.API,
	source PageSource,
	repo state.Repository,
	inst *config.Institution,
	env string,
) (Pulled, error) {
	tel = telemetry.NewScopedAPI("smartcontract", tel)
	if env == "" {
		return Pulled{}, &config.ConfigError{Key: "wiki.env", Reason: "missing"}
	}

	page, err := source.Fetch(ctx)
	if err != nil {
		return Pulled{}, err
	}
	table, err := wiki.ExtractReleaseTable(tel, page.Storage(), inst.Name, env)
	if err != nil {
		return Pulled{}, err
	}
	row := table.Map()

	out := Pulled{
		PageTitle: page.Title,
		Row:       row,
		Versions: loandb.SmartContractVersions{
			SupervisorContractId:    table.Value(ColumnSupervisor),
			LocSmartContractId:      table.Value(ColumnLoc),
			DrawdownSmartContractId: table.Value(ColumnDrawdown),
		},
	}

	values := []struct {
		key    string
		column string
		value  string
	}{
		{state.KeySupervisorContractId, ColumnSupervisor, out.Versions.SupervisorContractId},
		{state.KeyLocSmartContractId, ColumnLoc, out.Versions.LocSmartContractId},
		{state.KeyDrawdownSmartContractId, ColumnDrawdown, out.Versions.DrawdownSmartContractId},
	}
	for _, v := range values {
		if v.value == "" {
			return out, fmt.Errorf("release note row for %s has no %q column", env, v.column)
		}
	}
	for _, v := range values {
		err = repo.Set(ctx, inst.Name, v.key, v.value)
		if err != nil {
			return out, fmt.Errorf("persist %s: %w", v.key, err)
		}
	}
	tel.ReportInfo("pulled versions", "institution", inst.Name, "env", env, "supervisor", out.Versions.SupervisorContractId)
	return out, nil
}
