// Package state persists the few values one invocation produces for a
// later one (contract reference id, account number, smart contract ids).
package state

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"lendingops/internal/config"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const DefaultFile = "state.db"

const (
	KeyContractRefId           = "contract_ref_id"
	KeyLocAccountNo            = "loc_account_no"
	KeySupervisorContractId    = "supervisor_contract_id"
	KeyLocSmartContractId      = "loc_smart_contract_id"
	KeyDrawdownSmartContractId = "drawdown_smart_contract_id"
)

// Repository stores string values per institution.
//
// note: fault injection point
type Repository interface {
	Get(ctx context.Context, institution, key string) (string, bool, error)
	Set(ctx context.Context, institution, key, value string) error
	All(ctx context.Context, institution string) (map[string]string, error)
}

// OpenDB opens the configured state database and makes sure the schema
// exists. A Url is opened through libsql, otherwise File is a local sqlite
// database.
func OpenDB(ctx context.Context, cfg config.StateConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if cfg.Url != "" {
		values := url.Values{}
		if cfg.AuthToken != "" {
			values.Add("authToken", cfg.AuthToken)
		}
		dsn := cfg.Url
		if len(values) > 0 {
			dsn = dsn + "?" + values.Encode()
		}
		db, err = sql.Open("libsql", dsn)
	} else {
		file := cfg.File
		if file == "" {
			file = DefaultFile
		}
		db, err = sql.Open("sqlite", file)
	}
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx, Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, fmt.Errorf("apply state schema: %w", err)
	}
	return db, nil
}

// SQLStore is a Repository on top of database/sql.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) SQLStore {
	return SQLStore{db: db, now: time.Now}
}

func (s SQLStore) Get(ctx context.Context, institution, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx,
		"select value from session_value where institution = ? and key = ?",
		institution, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s SQLStore) Set(ctx context.Context, institution, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into session_value (institution, key, value, updated_at)
		values (?, ?, ?, ?)
		on conflict (institution, key) do update set
			value = excluded.value,
			updated_at = excluded.updated_at`,
		institution, key, value, s.now().Unix(),
	)
	return err
}

func (s SQLStore) All(ctx context.Context, institution string) (map[string]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select key, value from session_value where institution = ?",
		institution,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		err = rows.Scan(&key, &value)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Overlay replaces the seed values of inst with whatever was persisted for it.
func Overlay(ctx context.Context, repo Repository, inst *config.Institution) error {
	values, err := repo.All(ctx, inst.Name)
	if err != nil {
		return err
	}

	fields := map[string]*string{
		KeyContractRefId:           &inst.ContractRefId,
		KeyLocAccountNo:            &inst.LocAccountNo,
		KeySupervisorContractId:    &inst.SupervisorContractId,
		KeyLocSmartContractId:      &inst.LocSmartContractId,
		KeyDrawdownSmartContractId: &inst.DrawdownSmartContractId,
	}
	for key, field := range fields {
		value, ok := values[key]
		if ok && value != "" {
			*field = value
		}
	}
	return nil
}
