package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lendingops/internal/account"
	"lendingops/internal/balance"
	"lendingops/internal/config"
	"lendingops/internal/errlog"
	"lendingops/internal/lendingapi"
	"lendingops/internal/loandb"
	"lendingops/internal/smartcontract"
	"lendingops/internal/state"
	"lendingops/internal/telemetry"
	"lendingops/lib/restyutil"
	libtelemetry "lendingops/lib/telemetry"
)

const serviceName = "lendingops"

// env is what every command shares, it is loaded once before the command
// runs and closed once after.
type env struct {
	configPath string
	statePath  string
	logDir     string
	verbose    bool

	cfg     config.Config
	errs    errlog.File
	tel     telemetry.API
	otel    libtelemetry.Telemetry
	stateDB *sql.DB
	repo    state.Repository
	logFile *os.File

	// connectLoanDB defaults to loandb.Connect.
	connectLoanDB func(ctx context.Context, cfg config.DatabaseConfig, database string) (loanStore, error)
}

// loanStore is what the commands use of a loan database connection.
type loanStore interface {
	account.LoanAccountStore
	smartcontract.ContractStore
	balance.AccountLookup
	Close(ctx context.Context) error
}

func (e *env) loanDB(ctx context.Context, inst *config.Institution, database string) (loanStore, error) {
	if e.connectLoanDB != nil {
		return e.connectLoanDB(ctx, inst.Database, database)
	}
	conn, err := loandb.Connect(ctx, inst.Database, database)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (e *env) load(ctx context.Context) error {
	libtelemetry.InitSlog(e.verbose, nil)
	e.tel = telemetry.NewSlogAPI(slog.Default())

	cfg, sources, err := config.Read(e.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &config.ConfigError{Key: e.configPath, Reason: "config file not found"}
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	e.cfg = cfg
	e.tel.ReportDebug("loaded config", "sources", sources)

	e.errs = errlog.NewFile(cfg.ErrorLog.File)

	e.otel, err = libtelemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	return nil
}

// startLog mirrors every log record into <log-dir>/<name>-<timestamp>.log
// when --log-dir is set.
func (e *env) startLog(name string) error {
	if e.logDir == "" || e.logFile != nil {
		return nil
	}
	err := os.MkdirAll(e.logDir, 0755)
	if err != nil {
		return err
	}

	now := time.Now()
	path := filepath.Join(e.logDir, fmt.Sprintf("%s-%s.log", name, now.UTC().Format("2006-01-02T15-04-05")))
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(file, "=== Log started at %s ===\n\n", now.UTC().Format(time.RFC3339))

	e.logFile = file
	libtelemetry.InitSlog(e.verbose, file)
	e.tel = telemetry.NewSlogAPI(slog.Default())
	e.tel.ReportInfo("file logging enabled", "path", path)
	return nil
}

func (e *env) stateRepo(ctx context.Context) (state.Repository, error) {
	if e.repo != nil {
		return e.repo, nil
	}
	cfg := e.cfg.State
	if e.statePath != "" {
		cfg.File = e.statePath
		cfg.Url = ""
	}
	db, err := state.OpenDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	e.stateDB = db
	e.repo = state.NewSQLStore(db)
	return e.repo, nil
}

// institution returns the profile `name` with its persisted values applied.
func (e *env) institution(ctx context.Context, name string) (*config.Institution, error) {
	inst, err := e.cfg.Institution(name)
	if err != nil {
		return nil, err
	}
	repo, err := e.stateRepo(ctx)
	if err != nil {
		return nil, err
	}
	err = state.Overlay(ctx, repo, inst)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return inst, nil
}

func (e *env) dumpOutput() restyutil.InstrumentOutput {
	if e.cfg.Http.DumpDir == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(e.cfg.Http.DumpDir, e.tel)
	if err != nil {
		e.tel.ReportWarning("dump_output", "dir", e.cfg.Http.DumpDir, "err", err)
		return nil
	}
	return out
}

func (e *env) executor() *lendingapi.Client {
	return lendingapi.NewClient(lendingapi.ClientOptions{
		Timeout:    e.cfg.Http.Timeout(),
		VerifyTLS:  e.cfg.Http.VerifyTLS,
		DumpOutput: e.dumpOutput(),
	}, e.tel, e.errs)
}

func (e *env) extractor() lendingapi.Extractor {
	return lendingapi.NewExtractor(e.tel, e.errs)
}

// fail writes the error log entry of a failed command, application errors
// were already logged by the extractor.
func (e *env) fail(err error) {
	tel := e.tel
	if tel == nil {
		tel = telemetry.NewSlogAPI(slog.Default())
	}
	if e.errs.Path() == "" {
		e.errs = errlog.NewFile(e.cfg.ErrorLog.File)
	}

	if _, ok := lendingapi.AsApplicationError(err); !ok {
		appendErr := e.errs.Append(errlog.Entry{Kind: errlog.KindFatal, Message: err.Error()})
		if appendErr != nil {
			tel.ReportWarning("errlog.append", "err", appendErr)
		}
	}

	if !e.cfg.ErrorLog.ArchiveOnError {
		return
	}
	archived, archiveErr := e.errs.Archive(e.cfg.ErrorLog.ArchiveDir)
	if archiveErr != nil {
		tel.ReportWarning("errlog.archive", "err", archiveErr)
		return
	}
	if archived != "" {
		tel.ReportInfo("error log archived", "path", archived)
	}
}

func (e *env) close(ctx context.Context) error {
	var errs []error
	if e.stateDB != nil {
		errs = append(errs, e.stateDB.Close())
	}
	errs = append(errs, e.otel.Shutdown(ctx))
	if e.logFile != nil {
		errs = append(errs, e.logFile.Close())
	}
	return errors.Join(errs...)
}
