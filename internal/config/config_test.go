package config

import "testing"

const testConfigYAML = `
competition_windows:
  - competition_code: "SM_N2"
    start_date: "2025-09-14"
    end_date: "2026-05-24"
    allowed_weekdays: ["samedi"]
  - competition_code: "SF_N3"
    start_date: "2025-09-14"
    end_date: "2026-05-24"
    allowed_weekdays: ["dimanche"]

rules:
  max_teams_per_division: 8
  max_matches_per_team_week: 1
  min_home_share: 0.3
  shared_roster_ratio: 0.5
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("competition windows", func(t *testing.T) {
		if len(cfg.CompetitionWindows) != 2 {
			t.Fatalf("windows = %d, want 2", len(cfg.CompetitionWindows))
		}
		w, ok := cfg.WindowFor("SM_N2")
		if !ok {
			t.Fatal("expected SM_N2 window")
		}
		if w.AllowedWeekdays[0] != "samedi" {
			t.Errorf("allowed weekday = %q, want samedi", w.AllowedWeekdays[0])
		}
	})

	t.Run("rule defaults are honoured when set", func(t *testing.T) {
		if cfg.Rules.MaxTeamsPerDivision != 8 {
			t.Errorf("max teams = %d, want 8", cfg.Rules.MaxTeamsPerDivision)
		}
		if cfg.Rules.SharedRosterRatio != 0.5 {
			t.Errorf("shared roster ratio = %v, want 0.5", cfg.Rules.SharedRosterRatio)
		}
	})

	t.Run("calendar defaults populated", func(t *testing.T) {
		if len(cfg.Calendar.Holidays) == 0 {
			t.Error("expected default holidays to be populated")
		}
		if len(cfg.Calendar.Vacations) == 0 {
			t.Error("expected default vacations to be populated")
		}
	})

	t.Run("solve timeouts parse", func(t *testing.T) {
		if cfg.SolveTimeout().Seconds() != 300 {
			t.Errorf("solve timeout = %v, want 300s", cfg.SolveTimeout())
		}
		if cfg.IncrementalTimeout().Seconds() != 60 {
			t.Errorf("incremental timeout = %v, want 60s", cfg.IncrementalTimeout())
		}
	})
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("no competition windows", func(t *testing.T) {
		_, err := LoadFromBytes([]byte(`rules: {}`))
		if err == nil {
			t.Error("expected error for missing competition windows")
		}
	})

	t.Run("end before start", func(t *testing.T) {
		yaml := `
competition_windows:
  - competition_code: "SM_N2"
    start_date: "2026-06-01"
    end_date: "2026-05-01"
`
		_, err := LoadFromBytes([]byte(yaml))
		if err == nil {
			t.Error("expected error for end date before start date")
		}
	})

	t.Run("division ceiling rejected", func(t *testing.T) {
		yaml := `
competition_windows:
  - competition_code: "SM_N2"
    start_date: "2025-09-14"
    end_date: "2026-05-24"
rules:
  max_teams_per_division: 12
`
		_, err := LoadFromBytes([]byte(yaml))
		if err == nil {
			t.Error("expected error for max_teams_per_division above 8")
		}
	})
}
