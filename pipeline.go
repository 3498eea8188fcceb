package sqlseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// Action selects what Run does with the resolved seeds.
type Action string

const (
	// ActionUp applies pending seeds.
	ActionUp Action = "up"
	// ActionDown reverts the most recently applied seed.
	ActionDown Action = "down"
	// ActionDownAll reverts every applied seed.
	ActionDownAll Action = "down-all"
	// ActionStatus lists seeds and their applied state.
	ActionStatus Action = "status"
)

// PipelineOptions configure a seeding run.
type PipelineOptions struct {
	// Action defaults to ActionUp.
	Action Action
	// Seeds is the registry of Go seeds. Defaults to DefaultSeeds().
	Seeds *Seeds
	// NoBuiltin drops the default registry when Seeds is nil.
	NoBuiltin bool
	// SeedInputs are directories and/or files with SQL seeds. Optional.
	SeedInputs []string
	// Only limits ActionUp to the named seeds.
	Only []string
	// DB allows callers to supply an existing *sql.DB handle.
	DB *sql.DB
	// DBURL is used to open a connection when DB is nil.
	DBURL string
	// DBDriver is the driver used with DBURL (default: "postgres").
	DBDriver string
	// Dialect overrides the dialect derived from DBDriver.
	Dialect Dialect
	// Now overrides the clock used to stamp seeded rows.
	Now func() time.Time
	// Logger emits progress logs. Defaults to a standard logger writing to stdout.
	Logger Logger
}

// PipelineResult captures the work performed by Run.
type PipelineResult struct {
	Action   Action
	Seeds    []*Seed
	Applied  []*Seed
	Reverted []*Seed
	Status   []SeedStatus
}

// Run executes the configured pipeline: resolve -> register -> connect -> act.
func Run(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	action := opts.Action
	if action == "" {
		action = ActionUp
	}
	switch action {
	case ActionUp, ActionDown, ActionDownAll, ActionStatus:
	default:
		return nil, fmt.Errorf("sqlseed: unknown action %q", action)
	}

	logWriter := opts.Logger
	if logWriter == nil {
		logWriter = log.New(os.Stdout, "[sqlseed] ", log.LstdFlags)
	}

	registry, err := buildRegistry(opts)
	if err != nil {
		return nil, err
	}
	if registry.Len() == 0 {
		return nil, errors.New("sqlseed: no seeds registered")
	}
	logWriter.Printf("resolved %d seed(s)", registry.Len())

	seeds := registry.List()
	if len(opts.Only) > 0 {
		if action != ActionUp {
			return nil, fmt.Errorf("sqlseed: seed selection is only supported for %s", ActionUp)
		}
		seeds, err = registry.Select(opts.Only...)
		if err != nil {
			return nil, err
		}
	}

	db, cleanup, err := prepareDB(ctx, opts)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if db == nil {
		return nil, errors.New("sqlseed: DB or DBURL must be provided")
	}

	dialect := opts.Dialect
	if dialect == "" {
		dialect = DialectForDriver(opts.DBDriver)
	}
	runnerOpts := []RunnerOption{WithDialect(dialect), WithLogger(logWriter)}
	if opts.Now != nil {
		runnerOpts = append(runnerOpts, WithClock(opts.Now))
	}
	runner := NewRunner(db, runnerOpts...)

	result := &PipelineResult{Action: action, Seeds: seeds}
	switch action {
	case ActionUp:
		result.Applied, err = runner.Up(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("seed up: %w", err)
		}
		logWriter.Printf("applied %d seed(s)", len(result.Applied))
	case ActionDown:
		seed, err := runner.Down(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("seed down: %w", err)
		}
		if seed != nil {
			result.Reverted = []*Seed{seed}
		}
		logWriter.Printf("reverted %d seed(s)", len(result.Reverted))
	case ActionDownAll:
		result.Reverted, err = runner.DownAll(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("seed down-all: %w", err)
		}
		logWriter.Printf("reverted %d seed(s)", len(result.Reverted))
	case ActionStatus:
		result.Status, err = runner.Status(ctx, seeds)
		if err != nil {
			return nil, fmt.Errorf("seed status: %w", err)
		}
	}
	return result, nil
}

func buildRegistry(opts PipelineOptions) (*Seeds, error) {
	registry := NewSeeds()
	base := opts.Seeds
	if base == nil && !opts.NoBuiltin {
		base = DefaultSeeds()
	}
	if err := registry.Merge(base); err != nil {
		return nil, err
	}
	if len(opts.SeedInputs) == 0 {
		return registry, nil
	}
	fileSeeds, err := LoadSQLSeedRegistry(opts.SeedInputs)
	if err != nil {
		return nil, fmt.Errorf("load seed files: %w", err)
	}
	if err := registry.Merge(fileSeeds); err != nil {
		return nil, err
	}
	return registry, nil
}

func prepareDB(ctx context.Context, opts PipelineOptions) (*sql.DB, func(), error) {
	if opts.DB != nil {
		return opts.DB, nil, nil
	}
	if opts.DBURL == "" {
		return nil, nil, nil
	}
	db, err := Open(ctx, opts.DBDriver, opts.DBURL)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}
