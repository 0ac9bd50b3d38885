// Package storage persists rules, account settings and forecast snapshots in
// SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"runway/internal/core"
	"runway/internal/rules"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const ruleColumns = `id, name, kind, value_cents, recurrence, exceptional,
	progress_cents, goal_cents, balance_cents, apr, compoundings_yearly, version`

// ListRules returns every rule ordered by name, then ID for stability.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.Rule, error) {
	dbRows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer dbRows.Close()

	var out []core.Rule
	for dbRows.Next() {
		rule, err := scanRule(dbRows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, dbRows.Err()
}

func (r *SQLiteRepository) GetRule(ctx context.Context, id string) (core.Rule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Rule{}, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	return rule, err
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.Rule) (core.Rule, error) {
	recurrence, exceptional, err := marshalRuleBlobs(rule)
	if err != nil {
		return core.Rule{}, err
	}
	if rule.Version == 0 {
		rule.Version = 1
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rules (id, name, kind, value_cents, recurrence, exceptional,
			progress_cents, goal_cents, balance_cents, apr, compoundings_yearly, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, string(rule.Kind), rule.Value.Cents, recurrence, exceptional,
		rule.Progress.Cents, rule.Goal.Cents, rule.Balance.Cents, rule.APR,
		rule.CompoundingsYearly, rule.Version)
	if err != nil {
		return core.Rule{}, fmt.Errorf("create rule: %w", err)
	}

	slog.InfoContext(ctx, "rule saved", "rule_id", rule.ID, "rule_kind", rule.Kind)
	return rule, nil
}

func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.Rule) (core.Rule, error) {
	recurrence, exceptional, err := marshalRuleBlobs(rule)
	if err != nil {
		return core.Rule{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE rules SET name = ?, kind = ?, value_cents = ?, recurrence = ?,
			exceptional = ?, progress_cents = ?, goal_cents = ?, balance_cents = ?,
			apr = ?, compoundings_yearly = ?, version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rule.Name, string(rule.Kind), rule.Value.Cents, recurrence, exceptional,
		rule.Progress.Cents, rule.Goal.Cents, rule.Balance.Cents, rule.APR,
		rule.CompoundingsYearly, rule.ID)
	if err != nil {
		return core.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	if affected == 0 {
		return core.Rule{}, fmt.Errorf("%w: %s", core.ErrRuleNotFound, rule.ID)
	}
	return r.GetRule(ctx, rule.ID)
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	return nil
}

// GetSettings returns the stored account settings; an empty table reads as
// zero settings.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (rules.Settings, error) {
	var settings rules.Settings
	err := r.db.QueryRowContext(ctx,
		`SELECT current_balance_cents, set_aside_cents FROM settings WHERE id = 1`).
		Scan(&settings.CurrentBalance.Cents, &settings.SetAside.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return rules.Settings{}, nil
	}
	if err != nil {
		return rules.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (r *SQLiteRepository) PutSettings(ctx context.Context, settings rules.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, current_balance_cents, set_aside_cents)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_balance_cents = excluded.current_balance_cents,
			set_aside_cents = excluded.set_aside_cents,
			updated_at = CURRENT_TIMESTAMP`,
		settings.CurrentBalance.Cents, settings.SetAside.Cents)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// Snapshot is one persisted forecast run, stored whole so dashboards can read
// the latest result without recomputing.
type Snapshot struct {
	ID          int64
	Fingerprint string
	StartDate   core.Date
	EndDate     core.Date
	Payload     []byte
	ComputedAt  time.Time
}

// SaveSnapshot persists a computed forecast.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s Snapshot) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO forecast_snapshots (fingerprint, start_date, end_date, payload)
		VALUES (?, ?, ?, ?)`,
		s.Fingerprint, s.StartDate.String(), s.EndDate.String(), string(s.Payload))
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	slog.InfoContext(ctx, "forecast snapshot saved", "snapshot_id", id, "fingerprint", s.Fingerprint)
	return id, nil
}

// LatestSnapshot returns the most recent snapshot, or sql.ErrNoRows wrapped
// when none exists.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		s          Snapshot
		start, end string
		payload    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, start_date, end_date, payload, computed_at
		FROM forecast_snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&s.ID, &s.Fingerprint, &start, &end, &payload, &s.ComputedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	if s.StartDate, err = core.ParseDate(start); err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: bad start date %q", start)
	}
	if s.EndDate, err = core.ParseDate(end); err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: bad end date %q", end)
	}
	s.Payload = []byte(payload)
	return s, nil
}

// PruneSnapshots deletes all but the newest keep snapshots.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM forecast_snapshots WHERE id NOT IN (
			SELECT id FROM forecast_snapshots ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (core.Rule, error) {
	var (
		rule                    core.Rule
		kind                    string
		recurrence, exceptional sql.NullString
	)
	err := row.Scan(&rule.ID, &rule.Name, &kind, &rule.Value.Cents,
		&recurrence, &exceptional, &rule.Progress.Cents, &rule.Goal.Cents,
		&rule.Balance.Cents, &rule.APR, &rule.CompoundingsYearly, &rule.Version)
	if err != nil {
		return core.Rule{}, err
	}
	rule.Kind = core.RuleKind(kind)

	if recurrence.Valid && recurrence.String != "" {
		var spec core.RecurrenceSpec
		if err := json.Unmarshal([]byte(recurrence.String), &spec); err != nil {
			return core.Rule{}, fmt.Errorf("rule %s: bad recurrence blob: %w", rule.ID, err)
		}
		rule.Recurrence = &spec
	}
	if exceptional.Valid && exceptional.String != "" {
		if err := json.Unmarshal([]byte(exceptional.String), &rule.Exceptional); err != nil {
			return core.Rule{}, fmt.Errorf("rule %s: bad exceptional blob: %w", rule.ID, err)
		}
	}
	return rule, nil
}

func marshalRuleBlobs(rule core.Rule) (recurrence, exceptional sql.NullString, err error) {
	if rule.Recurrence != nil {
		blob, merr := json.Marshal(rule.Recurrence)
		if merr != nil {
			return recurrence, exceptional, fmt.Errorf("marshal recurrence: %w", merr)
		}
		recurrence = sql.NullString{String: string(blob), Valid: true}
	}
	if len(rule.Exceptional) > 0 {
		blob, merr := json.Marshal(rule.Exceptional)
		if merr != nil {
			return recurrence, exceptional, fmt.Errorf("marshal exceptional transactions: %w", merr)
		}
		exceptional = sql.NullString{String: string(blob), Valid: true}
	}
	return recurrence, exceptional, nil
}
