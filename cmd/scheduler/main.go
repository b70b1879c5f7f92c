// Command scheduler drives the federation calendar scheduler: it loads a
// season configuration, projects the competition entities from a
// relational store, solves the placement model, and writes the resulting
// draft matches back out (or dumps the equivalent SQL for review).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
	"ufolepvolley/scheduler/internal/excelreport"
	"ufolepvolley/scheduler/internal/scheduling"
	"ufolepvolley/scheduler/internal/store"
	"ufolepvolley/scheduler/internal/validator"
)

func main() {
	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Generate and validate the federation volleyball calendar",
	}
	root.AddCommand(generateCmd())
	root.AddCommand(incrementalCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(initCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags(cmd *cobra.Command) (configPath *string, dsn *string, competitions *[]string) {
	configPath = cmd.Flags().String("config", "config.yaml", "path to the season configuration file")
	dsn = cmd.Flags().String("dsn", "", "Postgres connection string")
	competitions = cmd.Flags().StringSlice("competition", nil, "competition codes to schedule (repeatable)")
	return
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a full-season draft schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, dsn, competitions := flagValues(cmd)
			excelOut, sqlOut := outputFlags(cmd)
			return runGeneration(cmd.Context(), configPath, dsn, competitions, false, excelOut, sqlOut)
		},
	}
	commonFlags(cmd)
	cmd.Flags().String("excel-out", "schedule.xlsx", "path to write the human-readable workbook")
	cmd.Flags().String("sql-out", "", "optional path to write the SQL dump instead of executing it")
	return cmd
}

func incrementalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incremental",
		Short: "Regenerate matches for newly added teams without touching confirmed fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, dsn, competitions := flagValues(cmd)
			excelOut, sqlOut := outputFlags(cmd)
			return runGeneration(cmd.Context(), configPath, dsn, competitions, true, excelOut, sqlOut)
		},
	}
	commonFlags(cmd)
	cmd.Flags().String("excel-out", "schedule.xlsx", "path to write the human-readable workbook")
	cmd.Flags().String("sql-out", "", "optional path to write the SQL dump instead of executing it")
	return cmd
}

func flagValues(cmd *cobra.Command) (string, string, []string) {
	configPath, _ := cmd.Flags().GetString("config")
	dsn, _ := cmd.Flags().GetString("dsn")
	competitions, _ := cmd.Flags().GetStringSlice("competition")
	return configPath, dsn, competitions
}

func outputFlags(cmd *cobra.Command) (excelOut, sqlOut string) {
	excelOut, _ = cmd.Flags().GetString("excel-out")
	sqlOut, _ = cmd.Flags().GetString("sql-out")
	return
}

func runGeneration(ctx context.Context, configPath, dsn string, competitions []string, incremental bool, excelOut, sqlOut string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(competitions) == 0 {
		for _, w := range cfg.CompetitionWindows {
			competitions = append(competitions, w.CompetitionCode)
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	loader := store.NewPostgresLoader(db)

	var result *scheduling.Result
	if incremental {
		result, err = scheduling.GenerateIncremental(ctx, loader, cfg, competitions, time.Now().AddDate(-1, 0, 0))
	} else {
		result, err = scheduling.Generate(ctx, loader, cfg, competitions, time.Now().AddDate(-1, 0, 0))
	}
	if err != nil {
		return err
	}

	fmt.Printf("status: %s\n", result.Status)
	fmt.Printf("scheduled: %d\n", len(result.Scheduled))
	fmt.Printf("unscheduled pairings: %d\n", len(result.Unscheduled))
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	allMatches := append(append([]entities.Match(nil), result.Scheduled...), result.UnscheduledMatches...)

	if sqlOut != "" {
		f, err := os.Create(sqlOut)
		if err != nil {
			return fmt.Errorf("creating SQL dump file: %w", err)
		}
		defer f.Close()
		if err := store.DumpSQL(f, competitions, allMatches); err != nil {
			return fmt.Errorf("writing SQL dump: %w", err)
		}
	} else {
		writer, err := store.NewWriter(dsn)
		if err != nil {
			return fmt.Errorf("opening writer: %w", err)
		}
		defer writer.Close()
		if err := writer.ReplaceDraftMatches(ctx, competitions, allMatches); err != nil {
			return fmt.Errorf("writing draft matches: %w", err)
		}
	}

	universe, err := entities.Project(loader, competitions, time.Now().AddDate(-1, 0, 0), cfg.Rules.SharedRosterRatio)
	if err != nil {
		return fmt.Errorf("re-projecting entities for report: %w", err)
	}
	wb, err := excelreport.Generate(universe, result.Scheduled, len(result.Unscheduled))
	if err != nil {
		return fmt.Errorf("generating workbook: %w", err)
	}
	return wb.SaveAs(excelOut)
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Re-check a projected schedule against the testable properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, dsn, competitions := flagValues(cmd)
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			loader := store.NewPostgresLoader(db)

			universe, err := entities.Project(loader, competitions, time.Now().AddDate(-1, 0, 0), cfg.Rules.SharedRosterRatio)
			if err != nil {
				return fmt.Errorf("projecting entities: %w", err)
			}
			scheduling.ApplyConfig(universe, cfg)

			var scheduled, unscheduled []entities.Match
			for _, code := range competitions {
				scheduled = append(scheduled, loader.PreExistingMatches(code)...)
				draftScheduled, draftUnscheduled := loader.DraftMatches(code)
				scheduled = append(scheduled, draftScheduled...)
				unscheduled = append(unscheduled, draftUnscheduled...)
			}

			violations := validator.Validate(universe, scheduled, unscheduled, cfg.Rules.MaxMatchesPerTeamWeek, cfg.Calendar)
			errors, warnings := 0, 0
			for _, v := range violations {
				fmt.Printf("%s: %s\n", v.Type, v.Message)
				if v.Type == "error" {
					errors++
				} else {
					warnings++
				}
			}
			fmt.Printf("%d error(s), %d warning(s)\n", errors, warnings)
			if errors > 0 {
				return fmt.Errorf("%d hard property violation(s) found", errors)
			}
			return nil
		},
	}
	commonFlags(cmd)
	return cmd
}

const configTemplate = `# Season configuration for the volleyball calendar scheduler.
#
# calendar:
#   holidays and vacations override the embedded 2025-2026 defaults when set.
calendar:
  holidays: []
  vacations: []

competition_windows:
  - competition_code: "SM_N2"
    start_date: "2025-09-14"
    end_date: "2026-05-24"
    allowed_weekdays: ["samedi"]
  - competition_code: "SF_N3"
    start_date: "2025-09-14"
    end_date: "2026-05-24"
    allowed_weekdays: ["dimanche"]

gymnasium_overrides: []

rules:
  max_teams_per_division: 8
  max_matches_per_team_week: 1
  shared_roster_ratio: 0.5
  solve_time_budget: "300s"
  incremental_solve_time_budget: "60s"
`

func initCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter season configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return os.WriteFile(output, []byte(configTemplate), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "config.yaml", "path to write the configuration template to")
	return cmd
}
