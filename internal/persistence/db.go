// Package persistence provides a SQLite archive of finished experiment runs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
)

// SchemaVersion is stored in the meta table on every open.
const SchemaVersion = "1"

// ErrRunNotFound is returned by LoadRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path, creating its
// parent directory if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.SaveMeta("schema_version", SchemaVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("save meta: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		trials INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS strategy_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		strategy TEXT NOT NULL,
		survival_mean REAL NOT NULL,
		survival_std REAL NOT NULL,
		wealth_mean REAL NOT NULL,
		wealth_std REAL NOT NULL,
		n_trials INTEGER NOT NULL,
		PRIMARY KEY (run_id, strategy)
	);

	CREATE TABLE IF NOT EXISTS trial_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		trial INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		total INTEGER NOT NULL,
		survived INTEGER NOT NULL,
		survival_rate REAL NOT NULL,
		mean_wealth REAL NOT NULL,
		PRIMARY KEY (run_id, trial, strategy)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRecord is one archived run's header.
type RunRecord struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt int64  `db:"created_at" json:"created_at"` // Unix milliseconds
	Seed      int64  `db:"seed" json:"seed"`
	Rounds    int    `db:"rounds" json:"rounds"`
	Trials    int    `db:"trials" json:"trials"` // Trials completed
	Agents    int    `db:"agents" json:"agents"`
	ElapsedMS int64  `db:"elapsed_ms" json:"elapsed_ms"`

	ConfigJSON string `db:"config_json" json:"-"`
}

// Created returns CreatedAt as a time.
func (r RunRecord) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Run is an archived run with its configuration and results.
type Run struct {
	RunRecord
	Config       config.Config               `json:"config"`
	Aggregates   map[string]engine.Aggregate `json:"aggregates"`
	TrialResults []engine.TrialSummary       `json:"trial_results"`
}

type strategyRow struct {
	Strategy     string  `db:"strategy"`
	SurvivalMean float64 `db:"survival_mean"`
	SurvivalStd  float64 `db:"survival_std"`
	WealthMean   float64 `db:"wealth_mean"`
	WealthStd    float64 `db:"wealth_std"`
	NTrials      int     `db:"n_trials"`
}

type trialRow struct {
	Trial        int     `db:"trial"`
	Seed         int64   `db:"seed"`
	Strategy     string  `db:"strategy"`
	Total        int     `db:"total"`
	Survived     int     `db:"survived"`
	SurvivalRate float64 `db:"survival_rate"`
	MeanWealth   float64 `db:"mean_wealth"`
}

// SaveRun archives a finished run under a new id and returns the id.
func (db *DB) SaveRun(name string, cfg config.Config, res engine.Result) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	id := uuid.New().String()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, name, created_at, seed, rounds, trials, agents, elapsed_ms, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, time.Now().UnixMilli(), res.Seed, cfg.Rounds, len(res.Trials),
		cfg.PopulationSize(), res.Elapsed.Milliseconds(), string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for strategy, a := range res.Aggregates {
		_, err := tx.Exec(`INSERT INTO strategy_results
			(run_id, strategy, survival_mean, survival_std, wealth_mean, wealth_std, n_trials)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, strategy, a.SurvivalMean, a.SurvivalStd, a.WealthMean, a.WealthStd, a.NTrials,
		)
		if err != nil {
			return "", fmt.Errorf("insert strategy result %s: %w", strategy, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO trial_results
		(run_id, trial, seed, strategy, total, survived, survival_rate, mean_wealth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, t := range res.Trials {
		for strategy, s := range t.Strategies {
			_, err := stmt.Exec(id, t.Trial, t.Seed, strategy, s.Total, s.Survived, s.SurvivalRate, s.MeanWealth)
			if err != nil {
				return "", fmt.Errorf("insert trial %d: %w", t.Trial, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("run archived", "id", id, "name", name, "trials", len(res.Trials))
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// LoadRun returns the run with the given id, or ErrRunNotFound.
func (db *DB) LoadRun(id string) (*Run, error) {
	var run Run
	err := db.conn.Get(&run.RunRecord, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if err := json.Unmarshal([]byte(run.ConfigJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("decode config of run %s: %w", id, err)
	}

	var strategies []strategyRow
	if err := db.conn.Select(&strategies,
		`SELECT strategy, survival_mean, survival_std, wealth_mean, wealth_std, n_trials
		 FROM strategy_results WHERE run_id = ?`, id); err != nil {
		return nil, fmt.Errorf("load strategy results: %w", err)
	}
	run.Aggregates = make(map[string]engine.Aggregate, len(strategies))
	for _, s := range strategies {
		run.Aggregates[s.Strategy] = engine.Aggregate{
			SurvivalMean: s.SurvivalMean,
			SurvivalStd:  s.SurvivalStd,
			WealthMean:   s.WealthMean,
			WealthStd:    s.WealthStd,
			NTrials:      s.NTrials,
		}
	}

	var trials []trialRow
	if err := db.conn.Select(&trials,
		`SELECT trial, seed, strategy, total, survived, survival_rate, mean_wealth
		 FROM trial_results WHERE run_id = ? ORDER BY trial`, id); err != nil {
		return nil, fmt.Errorf("load trial results: %w", err)
	}
	for _, t := range trials {
		n := len(run.TrialResults)
		if n == 0 || run.TrialResults[n-1].Trial != t.Trial {
			run.TrialResults = append(run.TrialResults, engine.TrialSummary{
				Trial:      t.Trial,
				Seed:       t.Seed,
				Strategies: make(map[string]engine.StrategyStats),
			})
			n++
		}
		run.TrialResults[n-1].Strategies[t.Strategy] = engine.StrategyStats{
			Total:        t.Total,
			Survived:     t.Survived,
			SurvivalRate: t.SurvivalRate,
			MeanWealth:   t.MeanWealth,
		}
	}

	return &run, nil
}

// DeleteRun removes a run and its results.
func (db *DB) DeleteRun(id string) error {
	res, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveMeta stores a key-value pair in the meta table.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
