// Package loandb talks to the lending platform's Postgres databases.
package loandb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"lendingops/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DatabaseOrchestration = "orch_loan_account_creation"
	DatabaseProcessing    = "proc_loan_account"
)

var ErrAccountNotFound = errors.New("no account found")

// DBTX is the subset of *pgx.Conn (and pgxpool.Pool) the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SmartContractVersions is the set of contract ids a product runs on.
type SmartContractVersions struct {
	SupervisorContractId    string
	LocSmartContractId      string
	DrawdownSmartContractId string
}

// ConnString builds a postgres URL for `database` on the configured server.
func ConnString(cfg config.DatabaseConfig, database string) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + database,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

type Store struct {
	db       DBTX
	Database string
}

func NewStore(db DBTX, database string) *Store {
	return &Store{db: db, Database: database}
}

// Conn is a Store that owns its connection, it must be closed by the
// caller.
type Conn struct {
	*Store
	conn *pgx.Conn
}

// Connect opens a single, unpooled connection to `database`.
func Connect(ctx context.Context, cfg config.DatabaseConfig, database string) (*Conn, error) {
	conn, err := pgx.Connect(ctx, ConnString(cfg, database))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", database, err)
	}
	return &Conn{Store: NewStore(conn, database), conn: conn}, nil
}

func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// DeleteLoanAccount removes the loan_account rows of contractRefId and
// returns how many there were, zero is not an error.
func (s *Store) DeleteLoanAccount(ctx context.Context, contractRefId string) (int64, error) {
	tag, err := s.db.Exec(
		ctx,
		`DELETE FROM public.loan_account WHERE contract_ref_id = $1`,
		contractRefId,
	)
	if err != nil {
		return 0, fmt.Errorf("delete from %s.public.loan_account: %w", s.Database, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) updateSmartContract(ctx context.Context, table string, v SmartContractVersions) (int64, error) {
	tag, err := s.db.Exec(
		ctx,
		fmt.Sprintf(`UPDATE public.%s
			SET loc_smart_contract_id = $1,
				drawdown_smart_contract_id = $2
			WHERE supervisor_contract_id = $3`, table),
		v.LocSmartContractId, v.DrawdownSmartContractId, v.SupervisorContractId,
	)
	if err != nil {
		return 0, fmt.Errorf("update %s.public.%s: %w", s.Database, table, err)
	}
	return tag.RowsAffected(), nil
}

// UpdateProcLoanAccount points every proc_loan_account row of the
// supervisor contract at the new loc/drawdown contracts.
func (s *Store) UpdateProcLoanAccount(ctx context.Context, v SmartContractVersions) (int64, error) {
	return s.updateSmartContract(ctx, "proc_loan_account", v)
}

// UpdateLoanSmartContract is UpdateProcLoanAccount for loan_smart_contract.
func (s *Store) UpdateLoanSmartContract(ctx context.Context, v SmartContractVersions) (int64, error) {
	return s.updateSmartContract(ctx, "loan_smart_contract", v)
}

// TmAccountId returns the core banking account id of contractRefId.
func (s *Store) TmAccountId(ctx context.Context, contractRefId string) (string, error) {
	var tmAccountId string
	err := s.db.QueryRow(
		ctx,
		`SELECT tm_account_id FROM public.loan_account WHERE contract_ref_id = $1`,
		contractRefId,
	).Scan(&tmAccountId)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w with contract_ref_id %s", ErrAccountNotFound, contractRefId)
	}
	if err != nil {
		return "", fmt.Errorf("query %s.public.loan_account: %w", s.Database, err)
	}
	return tmAccountId, nil
}
