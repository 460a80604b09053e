package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mr1hm/flood-alerts/internal/config"
	"github.com/mr1hm/flood-alerts/internal/logging"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

type app struct {
	cfg      *config.Config
	dbDriver string
	dbSource string
	out      io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:          "floodctl",
		Short:        "Operate the flood alert pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Setup(cfg.Logging.Level, "text")

			if a.dbDriver == "" {
				a.dbDriver = cfg.DB.Driver
			}
			if a.dbSource == "" {
				cfg.DB.Driver = a.dbDriver
				a.dbSource = cfg.DB.Source()
			}
			a.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.dbDriver, "db-driver", "", "database driver (sqlite or pgx), defaults to DB_DRIVER")
	root.PersistentFlags().StringVar(&a.dbSource, "db", "", "sqlite path or postgres DSN, defaults to DB_PATH or DB_DSN")

	root.AddCommand(
		newSimulateCmd(a),
		newTrainCmd(a),
		newScenarioCmd(a),
		newClassifyCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) openDB(clock clockwork.Clock) (*repository.DB, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if a.dbDriver == repository.DriverSQLite && a.dbSource != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.dbSource), 0o755); err != nil {
			return nil, fmt.Errorf("error creating data directory: %w", err)
		}
	}
	return repository.Open(a.dbDriver, a.dbSource, repository.WithClock(clock))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
