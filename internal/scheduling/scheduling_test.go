package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
)

func testLoader() *entities.StaticLoader {
	window := entities.Window{
		CompetitionCode: "sm",
		StartDate:       time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
		AllowedWeekdays: []string{"samedi"},
	}
	mkTeam := func(id, club, gym string) entities.RawTeam {
		return entities.RawTeam{
			Team: entities.Team{
				ID: id, ClubID: club, CompetitionCode: "sm", TotalPlayers: 8,
				TimeSlots: []entities.TimeSlot{{TeamID: id, GymnasiumID: gym, Weekday: time.Saturday, StartTime: "18:00"}},
			},
			Classements: []entities.Classement{{DivisionTag: "d1"}},
		}
	}
	return &entities.StaticLoader{
		ClubsData: map[string]entities.Club{},
		GymnasiumsData: map[string]entities.Gymnasium{
			"g1": {ID: "g1", Courts: 2}, "g2": {ID: "g2", Courts: 2}, "g3": {ID: "g3", Courts: 2},
		},
		Windows: map[string]entities.Window{"sm": window},
		Teams: []entities.RawTeam{
			mkTeam("t1", "c1", "g1"),
			mkTeam("t2", "c2", "g2"),
			mkTeam("t3", "c3", "g3"),
			mkTeam("t4", "c4", "g1"),
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Rules: config.Rules{
			MaxTeamsPerDivision:   8,
			MaxMatchesPerTeamWeek: 1,
			SharedRosterRatio:     0.5,
			SolveTimeBudget:       "5s",
			IncrementalTimeBudget: "5s",
		},
	}
}

func TestGenerateProducesACompleteRoundRobin(t *testing.T) {
	loader := testLoader()
	cfg := testConfig()

	result, err := Generate(context.Background(), loader, cfg, []string{"sm"}, time.Now())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	t.Run("no team double-booked on a date", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, m := range result.Scheduled {
			for _, team := range []string{m.HomeTeamID, m.AwayTeamID} {
				key := team + m.Date.Format("20060102")
				if seen[key] {
					t.Errorf("team %s double-booked on %s", team, m.Date.Format("2006-01-02"))
				}
				seen[key] = true
			}
		}
	})

	t.Run("matches are in canonical order", func(t *testing.T) {
		for i := 1; i < len(result.Scheduled); i++ {
			a, b := result.Scheduled[i-1], result.Scheduled[i]
			if a.Date.After(b.Date) {
				t.Errorf("match %d out of date order: %v after %v", i, a.Date, b.Date)
			}
		}
	})

	if len(result.Scheduled) == 0 {
		t.Error("expected at least one scheduled match in a 4-team division")
	}
	if got := len(result.Scheduled) + len(result.Unscheduled); got != 6 {
		t.Errorf("scheduled plus unscheduled pairings = %d, want the 6 of a 4-team round-robin", got)
	}
}

func TestGenerateReportsEveryPairingUnscheduledWhenCalendarIsEmpty(t *testing.T) {
	loader := testLoader()
	loader.Windows["sm"] = entities.Window{
		CompetitionCode: "sm",
		StartDate:       time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC),
		AllowedWeekdays: []string{"samedi"},
	}
	cfg := testConfig()

	result, err := Generate(context.Background(), loader, cfg, []string{"sm"}, time.Now())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(result.Scheduled) != 0 {
		t.Errorf("expected no matches schedulable in a window with no Saturdays, got %d", len(result.Scheduled))
	}
	if len(result.Unscheduled) == 0 {
		t.Error("expected every pairing to be reported unscheduled")
	}
	if len(result.UnscheduledMatches) != len(result.Unscheduled) {
		t.Fatalf("expected one projected match per unscheduled pairing, got %d matches for %d pairings",
			len(result.UnscheduledMatches), len(result.Unscheduled))
	}
	for _, m := range result.UnscheduledMatches {
		if !m.Date.IsZero() {
			t.Errorf("unscheduled match %s should carry a zero date, got %v", m.ID, m.Date)
		}
		if m.GymnasiumID != "" {
			t.Errorf("unscheduled match %s should carry no venue, got %q", m.ID, m.GymnasiumID)
		}
		if m.HomeTeamID == "" || m.AwayTeamID == "" {
			t.Errorf("unscheduled match %s missing a team identity", m.ID)
		}
	}
}

func TestGenerateFailsWhenCompetitionWindowMissing(t *testing.T) {
	loader := testLoader()
	loader.Windows = map[string]entities.Window{}

	_, err := Generate(context.Background(), loader, testConfig(), []string{"sm"}, time.Now())
	var schedErr *SchedulerError
	if !errors.As(err, &schedErr) || schedErr.Kind != KindFatal {
		t.Fatalf("expected a fatal SchedulerError for a missing competition window, got %v", err)
	}
}

func TestGenerateHonoursOwedReceiver(t *testing.T) {
	loader := testLoader()
	// t1 has hosted t2 three times without ever travelling; t2 is owed the
	// next reception, and owns a slot to take it with.
	loader.HistoryData = map[entities.PairKey]entities.Reception{
		entities.NormalizedPair("t1", "t2"): {"t1": 3, "t2": 0},
	}

	result, err := Generate(context.Background(), loader, testConfig(), []string{"sm"}, time.Now())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for _, m := range result.Scheduled {
		pair := entities.NormalizedPair(m.HomeTeamID, m.AwayTeamID)
		if pair == entities.NormalizedPair("t1", "t2") && m.HomeTeamID != "t2" {
			t.Errorf("t2 is the owed receiver but %s hosts the t1-t2 match", m.HomeTeamID)
		}
	}
}

func anchorMatch(id, home, away, gym string, d time.Time) entities.Match {
	return entities.Match{
		ID: id, CompetitionCode: "sm", DivisionID: "sm_d1",
		HomeTeamID: home, AwayTeamID: away, GymnasiumID: gym,
		Date: d, StartTime: "18:00", PreExisting: true, Status: "confirmed",
	}
}

func TestGenerateIncrementalNeverDisturbsAnchors(t *testing.T) {
	anchorDate := time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC) // a Saturday
	loader := testLoader()
	loader.PreExistingData = map[string][]entities.Match{
		"sm": {anchorMatch("anchor1", "t1", "t2", "g1", anchorDate)},
	}

	result, err := GenerateIncremental(context.Background(), loader, testConfig(), []string{"sm"}, time.Now())
	if err != nil {
		t.Fatalf("GenerateIncremental() error: %v", err)
	}

	var anchor *entities.Match
	for i := range result.Scheduled {
		if result.Scheduled[i].ID == "anchor1" {
			anchor = &result.Scheduled[i]
		}
	}
	if anchor == nil {
		t.Fatal("anchored match missing from the merged result")
	}
	if !anchor.Date.Equal(anchorDate) || anchor.GymnasiumID != "g1" || anchor.StartTime != "18:00" {
		t.Errorf("anchored match was altered: %+v", *anchor)
	}

	anchorWeekY, anchorWeekW := anchorDate.ISOWeek()
	for _, m := range result.Scheduled {
		if m.PreExisting {
			continue
		}
		pair := entities.NormalizedPair(m.HomeTeamID, m.AwayTeamID)
		if pair == entities.NormalizedPair("t1", "t2") {
			t.Errorf("anchored pairing t1-t2 was re-planned as %s", m.ID)
		}
		for _, team := range []string{m.HomeTeamID, m.AwayTeamID} {
			if team != "t1" && team != "t2" {
				continue
			}
			if y, w := m.Date.ISOWeek(); y == anchorWeekY && w == anchorWeekW {
				t.Errorf("team %s got a new match in the anchor's week (%s)", team, m.Date.Format("2006-01-02"))
			}
		}
	}

	for _, p := range result.Unscheduled {
		if entities.NormalizedPair(p.TeamA, p.TeamB) == entities.NormalizedPair("t1", "t2") {
			t.Error("anchored pairing t1-t2 must not be reported unscheduled")
		}
	}
}

func TestGenerateIncrementalFailsWhenAnchorsOverrunCapacity(t *testing.T) {
	anchorDate := time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC)
	loader := testLoader() // g1 has 2 courts
	loader.PreExistingData = map[string][]entities.Match{
		"sm": {
			anchorMatch("anchor1", "t1", "t2", "g1", anchorDate),
			anchorMatch("anchor2", "t3", "t4", "g1", anchorDate),
			anchorMatch("anchor3", "t1", "t3", "g1", anchorDate),
		},
	}

	_, err := GenerateIncremental(context.Background(), loader, testConfig(), []string{"sm"}, time.Now())
	var schedErr *SchedulerError
	if !errors.As(err, &schedErr) || schedErr.Kind != KindFatal {
		t.Fatalf("expected a fatal SchedulerError when anchors alone overrun a gymnasium, got %v", err)
	}
}
