package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrPassNotFound is returned when a pass id is not in the history.
var ErrPassNotFound = errors.New("pass not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: opens a separate database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RecordPass stores a pass with its steps and edges in one transaction.
func (s *SQLiteStore) RecordPass(ctx context.Context, pass *PassRecord) (err error) {
	if pass.ID == "" {
		return fmt.Errorf("pass id is required")
	}
	if pass.Status != PassStatusSucceeded && pass.Status != PassStatusFailed {
		return fmt.Errorf("invalid pass status %q", pass.Status)
	}
	report := pass.Report
	if report == "" {
		report = "{}"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO passes (id, project, dir, host_version, branch, release, development,
			status, error_code, error, started_at, duration_ms, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pass.ID,
		pass.Project,
		pass.Dir,
		pass.HostVersion,
		pass.Branch,
		pass.Release,
		pass.Development,
		pass.Status,
		pass.ErrorCode,
		pass.Error,
		pass.StartedAt.UnixMilli(),
		pass.Duration.Milliseconds(),
		report,
	)
	if err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}

	for i, step := range pass.Steps {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO pass_steps (pass_id, position, step) VALUES (?, ?, ?)`,
			pass.ID, i, step,
		); err != nil {
			return fmt.Errorf("failed to record step %s: %w", step, err)
		}
	}

	for _, edge := range pass.Edges {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO pass_edges (pass_id, task, depends_on) VALUES (?, ?, ?)`,
			pass.ID, edge.Task, edge.DependsOn,
		); err != nil {
			return fmt.Errorf("failed to record edge %s -> %s: %w", edge.Task, edge.DependsOn, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pass: %w", err)
	}
	return nil
}

const passColumns = `id, project, dir, host_version, branch, release, development,
	status, error_code, error, started_at, duration_ms, report`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (*PassRecord, error) {
	var (
		pass       PassRecord
		startedAt  int64
		durationMS int64
	)
	err := row.Scan(
		&pass.ID,
		&pass.Project,
		&pass.Dir,
		&pass.HostVersion,
		&pass.Branch,
		&pass.Release,
		&pass.Development,
		&pass.Status,
		&pass.ErrorCode,
		&pass.Error,
		&startedAt,
		&durationMS,
		&pass.Report,
	)
	if err != nil {
		return nil, err
	}
	pass.StartedAt = time.UnixMilli(startedAt)
	pass.Duration = time.Duration(durationMS) * time.Millisecond
	return &pass, nil
}

// GetPass retrieves a pass with its steps and edges.
func (s *SQLiteStore) GetPass(ctx context.Context, id string) (*PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, id)
	pass, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPassNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}

	if pass.Steps, err = s.passSteps(ctx, id); err != nil {
		return nil, err
	}
	if pass.Edges, err = s.passEdges(ctx, id); err != nil {
		return nil, err
	}
	return pass, nil
}

func (s *SQLiteStore) passSteps(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step FROM pass_steps WHERE pass_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var step string
		if err := rows.Scan(&step); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *SQLiteStore) passEdges(ctx context.Context, id string) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task, depends_on FROM pass_edges WHERE pass_id = ? ORDER BY task, depends_on`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Task, &e.DependsOn); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListPasses lists passes, newest first. Steps and edges are not loaded.
func (s *SQLiteStore) ListPasses(ctx context.Context, opts ListOptions) ([]*PassRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Project != "" {
		where = append(where, "project = ?")
		args = append(args, opts.Project)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}

	query := `SELECT ` + passColumns + ` FROM passes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}
	defer rows.Close()

	passes := []*PassRecord{}
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, pass)
	}
	return passes, rows.Err()
}

// LastPass returns the most recent pass of a project, or ErrPassNotFound.
func (s *SQLiteStore) LastPass(ctx context.Context, project string) (*PassRecord, error) {
	passes, err := s.ListPasses(ctx, ListOptions{Project: project, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("%w: no passes for project %s", ErrPassNotFound, project)
	}
	return s.GetPass(ctx, passes[0].ID)
}

// Prune deletes all but the newest keep passes of a project and returns the
// number of deleted passes.
func (s *SQLiteStore) Prune(ctx context.Context, project string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative")
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM passes
		WHERE project = ? AND id NOT IN (
			SELECT id FROM passes WHERE project = ? ORDER BY started_at DESC, id LIMIT ?
		)
	`, project, project, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune passes: %w", err)
	}
	return result.RowsAffected()
}
