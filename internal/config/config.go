// Package config loads the season configuration that drives a scheduling
// run: competition windows, the weekday/holiday/vacation calendar, gymnasium
// court counts, and the rule thresholds of the constraint model.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// VacationRange is a closed date interval during which no match may be
// scheduled, regardless of weekday (school holidays, federation breaks).
type VacationRange struct {
	Name  string `yaml:"name"`
	Start Date   `yaml:"start"`
	End   Date   `yaml:"end"`
}

// Contains reports whether d falls within the range, inclusive.
func (v VacationRange) Contains(d time.Time) bool {
	return !d.Before(v.Start.Time) && !d.After(v.End.Time)
}

// Calendar holds the constants the legal-date filter consults: the public
// holidays and vacation windows a competition window must be filtered
// through. Defaults to the embedded 2025-2026 table but may be overridden
// per federation.
type Calendar struct {
	Holidays  []Date          `yaml:"holidays"`
	Vacations []VacationRange `yaml:"vacations"`
}

// Window is a competition's scheduling horizon.
type Window struct {
	CompetitionCode string   `yaml:"competition_code"`
	StartDate       Date     `yaml:"start_date"`
	EndDate         Date     `yaml:"end_date"`
	AllowedWeekdays []string `yaml:"allowed_weekdays"`
}

// GymnasiumOverride lets the config file adjust a gymnasium's declared
// court count or mark it closed for specific dates without touching the
// loader's data source.
type GymnasiumOverride struct {
	GymnasiumID string `yaml:"gymnasium_id"`
	Courts      int    `yaml:"courts"`
	ClosedDates []Date `yaml:"closed_dates"`
}

// Rules carries the hard-constraint thresholds of the constraint model.
// MaxTeamsPerDivision is only validated against the federation ceiling of
// 8: entities.Project applies that ceiling of 8 itself and does not read
// this value. The other thresholds are read by the scheduling run.
type Rules struct {
	MaxTeamsPerDivision   int     `yaml:"max_teams_per_division"`
	MaxMatchesPerTeamWeek int     `yaml:"max_matches_per_team_week"`
	SharedRosterRatio     float64 `yaml:"shared_roster_ratio"`
	SolveTimeBudget       string  `yaml:"solve_time_budget"`
	IncrementalTimeBudget string  `yaml:"incremental_solve_time_budget"`
}

// Config is the top-level season configuration file.
type Config struct {
	Calendar           Calendar            `yaml:"calendar"`
	CompetitionWindows []Window            `yaml:"competition_windows"`
	GymnasiumOverrides []GymnasiumOverride `yaml:"gymnasium_overrides"`
	Rules              Rules               `yaml:"rules"`
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

func (c *Config) applyDefaults() {
	if c.Rules.MaxTeamsPerDivision == 0 {
		c.Rules.MaxTeamsPerDivision = 8
	}
	if c.Rules.MaxMatchesPerTeamWeek == 0 {
		c.Rules.MaxMatchesPerTeamWeek = 1
	}
	if c.Rules.SharedRosterRatio == 0 {
		c.Rules.SharedRosterRatio = 0.5
	}
	if c.Rules.SolveTimeBudget == "" {
		c.Rules.SolveTimeBudget = "300s"
	}
	if c.Rules.IncrementalTimeBudget == "" {
		c.Rules.IncrementalTimeBudget = "60s"
	}
	if len(c.Calendar.Holidays) == 0 {
		c.Calendar.Holidays = defaultHolidays()
	}
	if len(c.Calendar.Vacations) == 0 {
		c.Calendar.Vacations = defaultVacations()
	}
}

// DefaultCalendar returns the embedded 2025-2026 calendar (French public
// holidays plus the Zone B vacation schedule) that a Config falls back to
// when its own calendar.holidays/vacations are left empty.
func DefaultCalendar() Calendar {
	return Calendar{Holidays: defaultHolidays(), Vacations: defaultVacations()}
}

// defaultHolidays is the embedded 2025-2026 French public-holiday table,
// applied whenever a config file doesn't set calendar.holidays. Lives here
// rather than in the calendar package so a freshly loaded Config is
// self-contained without calendar importing config back.
func defaultHolidays() []Date {
	mk := func(y int, m time.Month, d int) Date {
		return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	}
	return []Date{
		mk(2025, time.November, 1),  // Toussaint
		mk(2025, time.November, 11), // Armistice
		mk(2025, time.December, 25), // Noël
		mk(2026, time.January, 1),   // Jour de l'an
		mk(2026, time.April, 6),     // Lundi de Pâques
		mk(2026, time.May, 1),       // Fête du travail
		mk(2026, time.May, 8),       // Victoire 1945
		mk(2026, time.May, 14),      // Ascension
		mk(2026, time.May, 25),      // Lundi de Pentecôte
	}
}

// defaultVacations is the embedded Zone B school-vacation calendar.
func defaultVacations() []VacationRange {
	mk := func(y1 int, m1 time.Month, d1 int, y2 int, m2 time.Month, d2 int, name string) VacationRange {
		return VacationRange{
			Name:  name,
			Start: Date{Time: time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)},
			End:   Date{Time: time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)},
		}
	}
	return []VacationRange{
		mk(2025, time.October, 18, 2025, time.November, 3, "Toussaint"),
		mk(2025, time.December, 20, 2026, time.January, 5, "Noël"),
		mk(2026, time.February, 14, 2026, time.March, 2, "Hiver"),
		mk(2026, time.April, 11, 2026, time.April, 27, "Printemps"),
	}
}

func (c *Config) validate() error {
	if len(c.CompetitionWindows) == 0 {
		return fmt.Errorf("at least one competition window is required")
	}
	seen := make(map[string]bool)
	for _, w := range c.CompetitionWindows {
		if w.CompetitionCode == "" {
			return fmt.Errorf("competition window missing competition_code")
		}
		if seen[w.CompetitionCode] {
			return fmt.Errorf("duplicate competition window for %q", w.CompetitionCode)
		}
		seen[w.CompetitionCode] = true
		if !w.EndDate.Time.After(w.StartDate.Time) {
			return fmt.Errorf("competition %q: end date %s must be after start date %s",
				w.CompetitionCode,
				w.EndDate.Time.Format("2006-01-02"),
				w.StartDate.Time.Format("2006-01-02"))
		}
	}
	if c.Rules.MaxTeamsPerDivision > 8 {
		return fmt.Errorf("max_teams_per_division %d exceeds the federation ceiling of 8", c.Rules.MaxTeamsPerDivision)
	}
	return nil
}

// SolveTimeout parses Rules.SolveTimeBudget, defaulting to 300s on a bad value.
func (c *Config) SolveTimeout() time.Duration {
	return parseDurationOr(c.Rules.SolveTimeBudget, 300*time.Second)
}

// IncrementalTimeout parses Rules.IncrementalTimeBudget, defaulting to 60s.
func (c *Config) IncrementalTimeout() time.Duration {
	return parseDurationOr(c.Rules.IncrementalTimeBudget, 60*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// WindowFor returns the configured window for a competition code.
func (c *Config) WindowFor(code string) (Window, bool) {
	for _, w := range c.CompetitionWindows {
		if w.CompetitionCode == code {
			return w, true
		}
	}
	return Window{}, false
}
