package constraints

import (
	"context"
	"testing"
	"time"

	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
	"ufolepvolley/scheduler/internal/placement"
	"ufolepvolley/scheduler/internal/solver"
	"ufolepvolley/scheduler/internal/solver/branch"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPostOneMatchPerTeamPerDateIsEnforced(t *testing.T) {
	candidates := []placement.Candidate{
		{DivisionID: "d1", Home: "a", Away: "b", Date: date(2025, time.September, 6), GymnasiumID: "g1"},
		{DivisionID: "d1", Home: "a", Away: "c", Date: date(2025, time.September, 6), GymnasiumID: "g2"},
	}
	s := branch.New()
	vars := make([]solver.Var, len(candidates))
	for i := range candidates {
		vars[i] = s.NewBoolVar("x")
	}
	postOneMatchPerTeamPerDate(s, candidates, vars)

	obj := make([]solver.Term, len(vars))
	for i, v := range vars {
		obj[i] = solver.Term(v)
	}
	s.Maximize(obj)

	status, err := s.Solve(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal {
		t.Fatalf("status = %v, want optimal", status)
	}
	trueCount := 0
	for _, v := range vars {
		if s.Value(v) {
			trueCount++
		}
	}
	if trueCount != 1 {
		t.Errorf("expected exactly 1 of team a's same-day candidates scheduled, got %d", trueCount)
	}
}

func TestBuildFullModelSchedulesWithinCapacity(t *testing.T) {
	universe := &entities.Universe{
		Gymnasiums:   map[string]entities.Gymnasium{"g1": {ID: "g1", Courts: 1}},
		SharedRoster: map[entities.PairKey]entities.SharedRosterPair{},
		History:      map[entities.PairKey]entities.Reception{},
	}
	teams := map[string]entities.Team{
		"a": {ID: "a"}, "b": {ID: "b"}, "c": {ID: "c"},
	}
	candidates := []placement.Candidate{
		{DivisionID: "d1", Home: "a", Away: "b", Date: date(2025, time.September, 6), GymnasiumID: "g1"},
		{DivisionID: "d1", Home: "b", Away: "c", Date: date(2025, time.September, 6), GymnasiumID: "g1"},
		{DivisionID: "d1", Home: "a", Away: "c", Date: date(2025, time.September, 13), GymnasiumID: "g1"},
	}

	s := branch.New()
	model := Build(s, universe, teams, candidates, config.Rules{MaxMatchesPerTeamWeek: 1}, nil)

	status, err := s.Solve(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal && status != solver.StatusFeasible {
		t.Fatalf("status = %v, want optimal or feasible", status)
	}

	scheduledOnSameGymDate := 0
	for i, c := range model.Candidates {
		if s.Value(model.VarByIndex[i]) && c.Date.Equal(date(2025, time.September, 6)) {
			scheduledOnSameGymDate++
		}
	}
	if scheduledOnSameGymDate > 1 {
		t.Errorf("gymnasium capacity of 1 court violated: %d matches placed on the same date", scheduledOnSameGymDate)
	}
}

func TestApplyOwedReceiverKeepsOnlyOwedHomeCandidates(t *testing.T) {
	candidates := []placement.Candidate{
		{Home: "a", Away: "b", Date: date(2025, time.September, 6)},
		{Home: "b", Away: "a", Date: date(2025, time.September, 13)},
	}
	history := map[entities.PairKey]entities.Reception{
		entities.NormalizedPair("a", "b"): {"a": 0, "b": 2},
	}
	teamsByID := map[string]entities.Team{
		"a": {ID: "a", TimeSlots: []entities.TimeSlot{{TeamID: "a"}}},
		"b": {ID: "b", TimeSlots: []entities.TimeSlot{{TeamID: "b"}}},
	}
	out := applyOwedReceiver(candidates, history, teamsByID)
	if len(out) != 1 || out[0].Home != "a" {
		t.Fatalf("expected only the a-home candidate to survive, got %+v", out)
	}
}

func TestApplyOwedReceiverDoesNotForceAMatchWhenOwedTeamHasNoSlot(t *testing.T) {
	candidates := []placement.Candidate{
		{Home: "b", Away: "a", Date: date(2025, time.September, 13)},
	}
	history := map[entities.PairKey]entities.Reception{
		entities.NormalizedPair("a", "b"): {"a": 0, "b": 2},
	}
	teamsByID := map[string]entities.Team{
		"a": {ID: "a"}, // owed receiver, but owns no slot
		"b": {ID: "b", TimeSlots: []entities.TimeSlot{{TeamID: "b"}}},
	}
	out := applyOwedReceiver(candidates, history, teamsByID)
	if len(out) != 1 {
		t.Fatalf("expected the b-home candidate to survive since the owed side cannot host, got %+v", out)
	}
}

func TestPostSharedRosterExclusionKeepsPairOffTheSameDate(t *testing.T) {
	sameDate := date(2025, time.September, 12)
	universe := &entities.Universe{
		Gymnasiums: map[string]entities.Gymnasium{"g1": {ID: "g1", Courts: 4}, "g2": {ID: "g2", Courts: 4}},
		History:    map[entities.PairKey]entities.Reception{},
		SharedRoster: map[entities.PairKey]entities.SharedRosterPair{
			entities.NormalizedPair("x", "y"): {TeamA: "x", TeamB: "y", Ratio: 0.625},
		},
	}
	teams := map[string]entities.Team{
		"x": {ID: "x"}, "y": {ID: "y"}, "p": {ID: "p"}, "q": {ID: "q"},
	}
	// x-p and y-q could both land on the same Friday; the exclusion must
	// push one of them to the following week.
	candidates := []placement.Candidate{
		{DivisionID: "d1", Home: "x", Away: "p", Date: sameDate, GymnasiumID: "g1"},
		{DivisionID: "d1", Home: "y", Away: "q", Date: sameDate, GymnasiumID: "g2"},
		{DivisionID: "d1", Home: "y", Away: "q", Date: date(2025, time.September, 19), GymnasiumID: "g2"},
	}

	s := branch.New()
	model := Build(s, universe, teams, candidates, config.Rules{MaxMatchesPerTeamWeek: 1}, nil)

	status, err := s.Solve(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Solve error: %v", err)
	}
	if status != solver.StatusOptimal && status != solver.StatusFeasible {
		t.Fatalf("status = %v, want optimal or feasible", status)
	}

	scheduled := 0
	onSameDate := map[string]bool{}
	for i, c := range model.Candidates {
		if !s.Value(model.VarByIndex[i]) {
			continue
		}
		scheduled++
		if c.Date.Equal(sameDate) {
			onSameDate[c.Home] = true
			onSameDate[c.Away] = true
		}
	}
	if scheduled != 2 {
		t.Fatalf("expected both pairings schedulable across two dates, got %d", scheduled)
	}
	if onSameDate["x"] && onSameDate["y"] {
		t.Error("shared-roster teams x and y both placed on the same date")
	}
}
