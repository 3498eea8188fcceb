package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/Bibek99/sqlseed"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	logger  *logrus.Logger
	open    func(ctx context.Context, driver, dsn string) (*sql.DB, error)
}

func main() {
	a := &app{v: viper.New(), open: sqlseed.Open}
	if err := a.rootCmd().Execute(); err != nil {
		logger := a.logger
		if logger == nil {
			logger = logrus.New()
		}
		logger.WithError(err).Error("sqlseed failed")
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlseed",
		Short:         "Apply and revert database seed data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// --no-builtin inverts seeds.builtin, so BindPFlag cannot carry it.
			if f := cmd.Flags().Lookup("no-builtin"); f != nil && f.Changed {
				noBuiltin, _ := cmd.Flags().GetBool("no-builtin")
				a.v.Set("seeds.builtin", !noBuiltin)
			}
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("configure logger: %w", err)
			}
			logger.SetOutput(cmd.ErrOrStderr())
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default: ./sqlseed.yaml)")
	flags.String("db", "", "Database connection string")
	flags.String("driver", "postgres", "Database driver: postgres, pgx, mysql or sqlite")
	flags.String("dialect", "", "SQL dialect (defaults to the driver's)")
	flags.StringSlice("seeds", nil, "SQL seed files or directories")
	flags.Bool("no-builtin", false, "Skip the built-in Users seed")
	flags.String("log-level", "info", "Log level")
	flags.String("log-format", "text", "Log format: text or json")

	for key, name := range map[string]string{
		"database.url":     "db",
		"database.driver":  "driver",
		"database.dialect": "dialect",
		"seeds.paths":      "seeds",
		"log.level":        "log-level",
		"log.format":       "log-format",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		a.upCmd(),
		a.downCmd(),
		a.downAllCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) upCmd() *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.run(cmd, sqlseed.ActionUp, only)
			if err != nil {
				return err
			}
			if len(result.Applied) == 0 {
				a.logger.Info("No pending seeds")
				return nil
			}
			a.logger.WithFields(logrus.Fields{
				"seeds": seedNames(result.Applied),
				"count": len(result.Applied),
			}).Info("Applied seeds")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "seed", nil, "Apply only the named seed(s)")
	return cmd
}

func (a *app) downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.run(cmd, sqlseed.ActionDown, nil)
			if err != nil {
				return err
			}
			a.logReverted(result)
			return nil
		},
	}
}

func (a *app) downAllCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "down-all",
		Aliases: []string{"reset"},
		Short:   "Revert every applied seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "Revert every applied seed? (y/N): ") {
				a.logger.Info("Reset cancelled")
				return nil
			}
			result, err := a.run(cmd, sqlseed.ActionDownAll, nil)
			if err != nil {
				return err
			}
			a.logReverted(result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show seed status",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.run(cmd, sqlseed.ActionStatus, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seed Status:\n")
			fmt.Fprintf(out, "============\n")
			for _, s := range result.Status {
				status := "pending"
				switch {
				case s.Missing:
					status = fmt.Sprintf("applied at %s (missing)", s.AppliedAt.Format("2006-01-02 15:04:05"))
				case s.Applied:
					status = fmt.Sprintf("applied at %s", s.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Fprintf(out, "%-50s %s\n", s.Name, status)
			}
			return nil
		},
	}
}

func (a *app) run(cmd *cobra.Command, action sqlseed.Action, only []string) (*sqlseed.PipelineResult, error) {
	cfg := a.cfg
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required (--db or DATABASE_URL)")
	}
	dialect := sqlseed.DialectForDriver(cfg.Database.Driver)
	if cfg.Database.Dialect != "" {
		d, err := sqlseed.ParseDialect(cfg.Database.Dialect)
		if err != nil {
			return nil, err
		}
		dialect = d
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Database.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.Timeout)
		defer cancel()
	}

	db, err := a.open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	a.logger.WithFields(logrus.Fields{
		"action":  action,
		"driver":  cfg.Database.Driver,
		"dialect": dialect,
	}).Debug("Running seeds")

	return sqlseed.Run(ctx, sqlseed.PipelineOptions{
		Action:     action,
		NoBuiltin:  !cfg.Seeds.Builtin,
		SeedInputs: cfg.Seeds.Paths,
		Only:       only,
		DB:         db,
		DBDriver:   cfg.Database.Driver,
		Dialect:    dialect,
		Logger:     a.logger,
	})
}

func (a *app) logReverted(result *sqlseed.PipelineResult) {
	if len(result.Reverted) == 0 {
		a.logger.Info("No seeds to revert")
		return
	}
	a.logger.WithFields(logrus.Fields{
		"seeds": seedNames(result.Reverted),
		"count": len(result.Reverted),
	}).Info("Reverted seeds")
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

func seedNames(seeds []*sqlseed.Seed) []string {
	names := make([]string, len(seeds))
	for i, s := range seeds {
		names[i] = s.Name
	}
	return names
}
