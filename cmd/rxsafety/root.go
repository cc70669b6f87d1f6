package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rx-safety-engine/internal/config"
	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/service"
	"github.com/rx-safety-engine/internal/setup"
)

// app holds the flags shared by every subcommand.
type app struct {
	store    string
	dataset  string
	sqlite   string
	logLevel string

	logger *logrus.Logger
	kb     *setup.KnowledgeBase
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	lite := config.LoadLiteConfig()

	root := &cobra.Command{
		Use:           "rxsafety",
		Short:         "Drug interaction, dosage and alternative checks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := config.NewLogger(domain.LoggingConfig{Level: a.logLevel, Format: "text", Output: "stderr"})
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.store, "store", lite.Store, "Knowledge store: memory or sqlite")
	flags.StringVar(&a.dataset, "dataset", lite.DatasetPath, "JSON dataset (default: embedded reference data)")
	flags.StringVar(&a.sqlite, "sqlite", lite.SQLitePath(), "SQLite knowledge database path")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		a.checkCmd(),
		a.dosageCmd(),
		a.alternativesCmd(),
		a.searchCmd(),
		a.analyzeCmd(),
		a.migrateCmd(),
		a.seedCmd(),
		a.setupCmd(),
	)
	return root, a
}

// close releases the knowledge store opened by a subcommand.
func (a *app) close() error {
	if a.kb == nil {
		return nil
	}
	err := a.kb.Close()
	a.kb = nil
	return err
}

// engines opens the configured store and wires the engines over it.
func (a *app) engines(cmd *cobra.Command) (*service.Engines, error) {
	kb, err := setup.OpenKnowledgeBase(cmd.Context(), a.logger, setup.StoreOptions{
		Driver:      a.store,
		SQLitePath:  a.sqlite,
		DatasetPath: a.dataset,
	})
	if err != nil {
		return nil, err
	}
	a.kb = kb
	return service.NewEngines(a.logger, kb.Store), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
