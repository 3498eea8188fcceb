package sqlseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"
)

const seedMetaTable = "sqlseed_seed_meta"

// Logger is a minimal logging interface used by the runner and pipeline.
type Logger interface {
	Printf(format string, v ...any)
}

// SeedStatus describes whether a seed has been applied.
type SeedStatus struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
	// Missing marks an applied seed that is no longer registered.
	Missing bool
}

// Runner applies and reverts seeds, recording applied seeds in a tracking table.
type Runner struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	logger  Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDialect sets the SQL dialect. Defaults to DialectPostgres.
func WithDialect(d Dialect) RunnerOption {
	return func(r *Runner) { r.dialect = d }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the progress logger. Defaults to discarding output.
func WithLogger(l Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a seed runner.
func NewRunner(db *sql.DB, opts ...RunnerOption) *Runner {
	r := &Runner{
		db:      db,
		dialect: DialectPostgres,
		now:     time.Now,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dialect == "" {
		r.dialect = DialectPostgres
	}
	return r
}

// Up applies every pending seed in name order and returns the applied seeds.
// All seeds of one call share a single timestamp.
func (r *Runner) Up(ctx context.Context, seeds []*Seed) ([]*Seed, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.appliedSeeds(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	var done []*Seed
	for _, seed := range sortedSeeds(seeds) {
		if _, ok := applied[seed.Name]; ok {
			continue
		}
		r.logger.Printf("seeding %s", seed.Name)
		if err := r.apply(ctx, seed, now); err != nil {
			if IsUniqueViolation(err) {
				r.logger.Printf("seed %s conflicts with existing rows; revert it or clean the table first", seed.Name)
			}
			return done, err
		}
		done = append(done, seed)
	}
	return done, nil
}

// Down reverts the most recently applied seed. It returns nil when no seed is
// applied.
func (r *Runner) Down(ctx context.Context, seeds []*Seed) (*Seed, error) {
	targets, err := r.revertTargets(ctx, seeds)
	if err != nil || len(targets) == 0 {
		return nil, err
	}
	seed := targets[0]
	if err := r.revert(ctx, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// DownAll reverts every applied seed, newest first.
func (r *Runner) DownAll(ctx context.Context, seeds []*Seed) ([]*Seed, error) {
	targets, err := r.revertTargets(ctx, seeds)
	if err != nil {
		return nil, err
	}
	var done []*Seed
	for _, seed := range targets {
		if err := r.revert(ctx, seed); err != nil {
			return done, err
		}
		done = append(done, seed)
	}
	return done, nil
}

// Status reports the applied state of every seed, followed by applied seeds
// that are not in seeds. It does not create the tracking table; without it
// every seed is pending.
func (r *Runner) Status(ctx context.Context, seeds []*Seed) ([]SeedStatus, error) {
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}
	exists, err := r.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]time.Time)
	if exists {
		if applied, err = r.appliedSeeds(ctx); err != nil {
			return nil, err
		}
	}

	known := make(map[string]bool, len(seeds))
	statuses := make([]SeedStatus, 0, len(seeds))
	for _, seed := range sortedSeeds(seeds) {
		known[seed.Name] = true
		at, ok := applied[seed.Name]
		statuses = append(statuses, SeedStatus{Name: seed.Name, Applied: ok, AppliedAt: at})
	}
	for _, name := range sortedNames(applied) {
		if known[name] {
			continue
		}
		statuses = append(statuses, SeedStatus{Name: name, Applied: true, AppliedAt: applied[name], Missing: true})
	}
	return statuses, nil
}

// revertTargets returns applied seeds newest first.
func (r *Runner) revertTargets(ctx context.Context, seeds []*Seed) ([]*Seed, error) {
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.appliedSeeds(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*Seed, len(seeds))
	for _, seed := range seeds {
		byName[seed.Name] = seed
	}

	names := sortedNames(applied)
	targets := make([]*Seed, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		seed, ok := byName[names[i]]
		if !ok {
			return nil, fmt.Errorf("%w: %s is applied but not registered", ErrUnknownSeed, names[i])
		}
		targets = append(targets, seed)
	}
	return targets, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS ` + seedMetaTable + ` (
	name VARCHAR(255) PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
);`
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create %s: %w", seedMetaTable, err)
	}
	return nil
}

func (r *Runner) tableExists(ctx context.Context) (bool, error) {
	var query string
	switch r.dialect {
	case DialectMySQL:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	case DialectSQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	default:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, seedMetaTable).Scan(&n); err != nil {
		return false, fmt.Errorf("look up %s: %w", seedMetaTable, err)
	}
	return n > 0, nil
}

func (r *Runner) appliedSeeds(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, applied_at FROM `+seedMetaTable)
	if err != nil {
		return nil, fmt.Errorf("list applied seeds: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			at   time.Time
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scan applied seed: %w", err)
		}
		applied[name] = at
	}
	return applied, rows.Err()
}

func (r *Runner) apply(ctx context.Context, seed *Seed, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	qi := NewQueryInterface(tx, r.dialect, now)
	if err := seed.Up(ctx, qi); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply seed %s: %w", seed.Name, err)
	}
	insert := `INSERT INTO ` + seedMetaTable + ` (name, applied_at) VALUES (` +
		r.dialect.Placeholder(1) + `, ` + r.dialect.Placeholder(2) + `)`
	if _, err := tx.ExecContext(ctx, insert, seed.Name, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record seed %s: %w", seed.Name, err)
	}
	return tx.Commit()
}

func (r *Runner) revert(ctx context.Context, seed *Seed) error {
	if seed.Down == nil {
		return fmt.Errorf("revert seed %s: %w", seed.Name, ErrIrreversible)
	}
	r.logger.Printf("reverting %s", seed.Name)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	qi := NewQueryInterface(tx, r.dialect, r.now())
	if err := seed.Down(ctx, qi); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("revert seed %s: %w", seed.Name, err)
	}
	del := `DELETE FROM ` + seedMetaTable + ` WHERE name = ` + r.dialect.Placeholder(1)
	if _, err := tx.ExecContext(ctx, del, seed.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("unrecord seed %s: %w", seed.Name, err)
	}
	return tx.Commit()
}

// validateSeeds applies the checks of Seeds.Register to a raw slice.
func validateSeeds(seeds []*Seed) error {
	seen := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		if seed == nil || seed.Name == "" {
			return errors.New("sqlseed: seed name is required")
		}
		if seed.Up == nil {
			return fmt.Errorf("seed %s: up step is required", seed.Name)
		}
		if seen[seed.Name] {
			return fmt.Errorf("duplicate seed %s", seed.Name)
		}
		seen[seed.Name] = true
	}
	return nil
}

func sortedSeeds(seeds []*Seed) []*Seed {
	sorted := append([]*Seed(nil), seeds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

func sortedNames(applied map[string]time.Time) []string {
	names := make([]string, 0, len(applied))
	for name := range applied {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
