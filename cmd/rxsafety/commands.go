package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rx-safety-engine/internal/config"
	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/service"
	"github.com/rx-safety-engine/internal/setup"
)

type patientFlags struct {
	name       string
	age        int
	weight     float64
	conditions []string
	allergies  []string
}

func (p *patientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.name, "name", "", "Patient name")
	cmd.Flags().IntVar(&p.age, "age", 0, "Patient age in years")
	cmd.Flags().Float64Var(&p.weight, "weight", 0, "Patient weight in kg")
	cmd.Flags().StringSliceVar(&p.conditions, "condition", nil, "Medical condition (repeatable)")
	cmd.Flags().StringSliceVar(&p.allergies, "allergy", nil, "Allergy (repeatable)")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("weight")
}

func (p *patientFlags) input() *service.PatientInput {
	age := p.age
	return &service.PatientInput{
		Name:       p.name,
		Age:        &age,
		WeightKg:   p.weight,
		Conditions: p.conditions,
		Allergies:  p.allergies,
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <drug> <drug>...",
		Short: "Check drugs for pairwise interactions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, err := a.engines(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), engines.CheckInteractions(cmd.Context(), args))
		},
	}
}

func (a *app) dosageCmd() *cobra.Command {
	var (
		patient    patientFlags
		indication string
	)
	cmd := &cobra.Command{
		Use:   "dosage <drug>",
		Short: "Recommend a patient-specific dose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, err := a.engines(cmd)
			if err != nil {
				return err
			}
			outcome, err := engines.RecommendDosage(cmd.Context(), service.DosageRequest{
				Drug:       args[0],
				Indication: indication,
				Patient:    patient.input(),
			})
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.Available() {
				return fmt.Errorf("%w: %s", domain.ErrUnavailable, outcome.Unavailable)
			}
			return nil
		},
	}
	patient.register(cmd)
	cmd.Flags().StringVar(&indication, "indication", "", "Indication")
	return cmd
}

func (a *app) alternativesCmd() *cobra.Command {
	var (
		patient patientFlags
		reason  string
		class   string
	)
	cmd := &cobra.Command{
		Use:   "alternatives <drug>",
		Short: "Rank substitute medications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, err := a.engines(cmd)
			if err != nil {
				return err
			}
			result, err := engines.FindAlternatives(cmd.Context(), service.AlternativesRequest{
				Drug:             args[0],
				Reason:           reason,
				TherapeuticClass: class,
				Patient:          patient.input(),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	patient.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", string(domain.ReasonDrugInteraction), "Drug Interaction, Allergy, Side Effects or Cost")
	cmd.Flags().StringVar(&class, "class", "", "Therapeutic class for the store query")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search drugs by name or generic name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engines, err := a.engines(cmd)
			if err != nil {
				return err
			}
			results, err := engines.SearchDrugs(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze --file meds.json",
		Short: "Analyze an extracted prescription",
		Long:  "Analyze reads a JSON document of the form {\"medications\": [...], \"patient\": {...}}.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var req service.AnalysisRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}

			engines, err := a.engines(cmd)
			if err != nil {
				return err
			}
			analysis, err := engines.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), analysis)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Prescription JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres knowledge schema",
	}

	run := func(up bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return err
			}
			return setup.Migrate(a.logger, *manager.GetDatabaseConfig(), up)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(true)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", Args: cobra.NoArgs, RunE: run(false)},
	)
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the dataset into the SQLite knowledge database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := setup.SeedSQLite(cmd.Context(), a.logger, a.sqlite, a.dataset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d drugs into %s\n", count, a.sqlite)
			return nil
		},
	}
}

func (a *app) setupCmd() *cobra.Command {
	var (
		binary     string
		configPath string
		dataDir    string
		status     bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the lite MCP server with the desktop MCP client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				var err error
				if path, err = setup.ClientConfigPath(); err != nil {
					return err
				}
			}

			if status {
				st, err := setup.GetStatus(path)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			}

			entry, err := setup.RegisterServer(path, setup.RegisterOptions{
				BinaryPath:  binary,
				DataDir:     dataDir,
				DatasetPath: a.dataset,
				Store:       a.store,
			})
			if err != nil {
				if errors.Is(err, os.ErrPermission) {
					return fmt.Errorf("cannot write %s: %w", path, err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) in %s\n", setup.ServerName, entry.Command, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&binary, "binary", "", "Path to mcp-server-lite (default: search PATH and common locations)")
	cmd.Flags().StringVar(&configPath, "config", "", "Client configuration file (default: platform location)")
	cmd.Flags().StringVar(&dataDir, "data-dir", config.DefaultLiteConfig().DataDir, "Data directory passed to the server")
	cmd.Flags().BoolVar(&status, "status", false, "Show the current registration instead of writing it")
	return cmd
}
