// Package scheduling is the top-level driver: it wires the entity
// projection, calendar filter, placement enumerator, and constraint model
// together, solves under a wall-clock cap, and projects the result into
// scheduled and unscheduled matches.
package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tiendc/go-deepcopy"

	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/constraints"
	"ufolepvolley/scheduler/internal/entities"
	"ufolepvolley/scheduler/internal/placement"
	"ufolepvolley/scheduler/internal/solver"
	"ufolepvolley/scheduler/internal/solver/branch"
	"ufolepvolley/scheduler/internal/validator"
)

// Kind classifies a SchedulerError by how the caller should react.
type Kind int

const (
	// KindFatal means the run cannot proceed at all (malformed input).
	KindFatal Kind = iota
	// KindInfeasible means the model has no solution under current rules.
	KindInfeasible
	// KindTimeout means the solver hit the wall-clock cap without finding
	// any feasible assignment.
	KindTimeout
	// KindPartial means a feasible schedule was produced but some matches
	// could not be placed.
	KindPartial
	// KindValidation means the projected schedule failed a post-hoc check.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindInfeasible:
		return "infeasible"
	case KindTimeout:
		return "timeout"
	case KindPartial:
		return "partial"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// SchedulerError wraps every error this package returns with a severity
// classification, replacing ad-hoc exceptions with a typed result.
type SchedulerError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *SchedulerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *SchedulerError) Unwrap() error { return e.Err }

// Result is the outcome of a scheduling run.
type Result struct {
	Scheduled          []entities.Match
	Unscheduled        []placement.Pairing
	UnscheduledMatches []entities.Match // Unscheduled, projected as rows with a null date and venue
	Warnings           []string
	Status             solver.Status
}

// Generate runs a full-season scheduling pass for the given competition
// codes: project entities, enumerate candidates for every pairing in every
// division, build and solve the constraint model, and project the result
// in canonical (date, start_time, division, home, away) order.
func Generate(ctx context.Context, loader entities.Loader, cfg *config.Config, competitionCodes []string, historyCutoff time.Time) (*Result, error) {
	universe, err := entities.Project(loader, competitionCodes, historyCutoff, cfg.Rules.SharedRosterRatio)
	if err != nil {
		return nil, &SchedulerError{Kind: KindFatal, Detail: "projecting entities", Err: err}
	}
	ApplyConfig(universe, cfg)
	return solveUniverse(ctx, universe, cfg, nil)
}

// ApplyConfig folds the season configuration's overrides into a projected
// universe: per-competition weekday masks from the config file take
// precedence over whatever the loader reported, and gymnasium overrides
// adjust court counts or declare closure dates.
func ApplyConfig(universe *entities.Universe, cfg *config.Config) {
	for code, w := range universe.Windows {
		if cw, ok := cfg.WindowFor(code); ok && len(cw.AllowedWeekdays) > 0 {
			w.AllowedWeekdays = cw.AllowedWeekdays
			universe.Windows[code] = w
		}
	}
	for _, ov := range cfg.GymnasiumOverrides {
		if ov.Courts > 0 {
			if g, ok := universe.Gymnasiums[ov.GymnasiumID]; ok {
				g.Courts = ov.Courts
				universe.Gymnasiums[ov.GymnasiumID] = g
			}
		}
		for _, d := range ov.ClosedDates {
			if universe.ClosedDates == nil {
				universe.ClosedDates = make(map[string]map[time.Time]bool)
			}
			if universe.ClosedDates[ov.GymnasiumID] == nil {
				universe.ClosedDates[ov.GymnasiumID] = make(map[time.Time]bool)
			}
			universe.ClosedDates[ov.GymnasiumID][d.Time] = true
		}
	}
}

// GenerateIncremental regenerates matches for one or more newly added
// teams without disturbing any pre-existing (confirmed/archived) match:
// the anchors become pre-filters on the candidate set and reduce
// gymnasium capacity, rather than being re-decided by the model.
func GenerateIncremental(ctx context.Context, loader entities.Loader, cfg *config.Config, competitionCodes []string, historyCutoff time.Time) (*Result, error) {
	universe, err := entities.Project(loader, competitionCodes, historyCutoff, cfg.Rules.SharedRosterRatio)
	if err != nil {
		return nil, &SchedulerError{Kind: KindFatal, Detail: "projecting entities", Err: err}
	}
	ApplyConfig(universe, cfg)

	blocked, gymUsage := placement.BuildBlocked(universe.PreExisting, universe.Gymnasiums)
	if err := checkAnchorCapacity(gymUsage, universe.Gymnasiums); err != nil {
		return nil, err
	}
	result, err := solveUniverse(ctx, universe, cfg, &incrementalState{blocked: blocked, gymUsage: gymUsage})
	if err != nil {
		return nil, err
	}
	result.Scheduled = append(result.Scheduled, clonePreExisting(universe.PreExisting)...)
	sortMatches(result.Scheduled)
	return result, nil
}

// clonePreExisting deep-copies the anchored matches before they're merged
// into the result, so nothing downstream (sorting, a failed later mutation)
// can alias and accidentally rewrite a confirmed fixture.
func clonePreExisting(matches []entities.Match) []entities.Match {
	var cloned []entities.Match
	if err := deepcopy.Copy(&cloned, matches); err != nil {
		cloned = append([]entities.Match(nil), matches...)
	}
	return cloned
}

type incrementalState struct {
	blocked  *placement.Blocked
	gymUsage map[string]map[time.Time]int
}

// checkAnchorCapacity rejects corrupt input where confirmed matches alone
// already overrun a gymnasium's court count: reducing capacity below zero
// would hide the corruption inside an innocently tight model.
func checkAnchorCapacity(gymUsage map[string]map[time.Time]int, gyms map[string]entities.Gymnasium) error {
	for gymID, byDate := range gymUsage {
		courts := 1
		if g, ok := gyms[gymID]; ok && g.Courts > 0 {
			courts = g.Courts
		}
		for d, used := range byDate {
			if used > courts {
				return &SchedulerError{Kind: KindFatal, Detail: fmt.Sprintf(
					"gymnasium %s already hosts %d confirmed matches on %s, above its %d court(s)",
					gymID, used, d.Format("2006-01-02"), courts)}
			}
		}
	}
	return nil
}

func solveUniverse(ctx context.Context, universe *entities.Universe, cfg *config.Config, inc *incrementalState) (*Result, error) {
	teamsByID := make(map[string]entities.Team)
	var allCandidates []placement.Candidate
	var allPairings []placement.Pairing

	// In incremental mode, pairings the federation has already confirmed are
	// anchors: they are never re-planned, so they produce no pairing, no
	// candidates, and no unscheduled report.
	anchored := make(map[entities.PairKey]bool)
	if inc != nil {
		for _, m := range universe.PreExisting {
			anchored[entities.NormalizedPair(m.HomeTeamID, m.AwayTeamID)] = true
		}
	}

	for _, div := range universe.Divisions {
		if _, ok := universe.Windows[div.CompetitionCode]; !ok {
			return nil, &SchedulerError{Kind: KindFatal, Detail: fmt.Sprintf(
				"no competition window configured for %q", div.CompetitionCode)}
		}
		for _, team := range div.Teams {
			teamsByID[team.ID] = team
		}
		for _, pairing := range placement.Pairings(div) {
			if anchored[entities.NormalizedPair(pairing.TeamA, pairing.TeamB)] {
				continue
			}
			allPairings = append(allPairings, pairing)
			var blocked *placement.Blocked
			if inc != nil {
				blocked = inc.blocked
			}
			allCandidates = append(allCandidates, placement.Generate(universe, pairing, cfg.Calendar, teamsByID, blocked)...)
		}
	}

	var gymUsage map[string]map[time.Time]int
	if inc != nil {
		gymUsage = inc.gymUsage
	}

	s := branch.New()
	model := constraints.Build(s, universe, teamsByID, allCandidates, cfg.Rules, gymUsage)

	timeout := cfg.SolveTimeout()
	if inc != nil {
		timeout = cfg.IncrementalTimeout()
	}
	status, err := s.Solve(ctx, timeout)
	if err != nil {
		return nil, &SchedulerError{Kind: KindFatal, Detail: "solving constraint model", Err: err}
	}
	if status == solver.StatusInfeasible {
		return nil, &SchedulerError{Kind: KindInfeasible, Detail: "no assignment satisfies every posted constraint"}
	}
	if status == solver.StatusTimeout {
		return nil, &SchedulerError{Kind: KindTimeout, Detail: "solver hit the wall-clock cap without finding any feasible assignment"}
	}

	scheduledPairings := make(map[string]bool)
	var scheduled []entities.Match
	for i, c := range model.Candidates {
		if !s.Value(model.VarByIndex[i]) {
			continue
		}
		scheduledPairings[pairingID(c.DivisionID, c.Home, c.Away)] = true
		scheduled = append(scheduled, entities.Match{
			ID:              syntheticCode(c),
			CompetitionCode: teamsByID[c.Home].CompetitionCode,
			DivisionID:      c.DivisionID,
			HomeTeamID:      c.Home,
			AwayTeamID:      c.Away,
			GymnasiumID:     c.GymnasiumID,
			Date:            c.Date,
			StartTime:       c.StartTime,
			Status:          "draft",
		})
	}
	sortMatches(scheduled)

	var unscheduled []placement.Pairing
	for _, p := range allPairings {
		if !scheduledPairings[pairingID(p.DivisionID, p.TeamA, p.TeamB)] && !scheduledPairings[pairingID(p.DivisionID, p.TeamB, p.TeamA)] {
			unscheduled = append(unscheduled, p)
		}
	}
	unscheduledMatches := projectUnscheduledMatches(unscheduled, teamsByID)

	var warnings []string
	if status == solver.StatusFeasible {
		warnings = append(warnings, "solver hit the wall-clock cap; returning the best feasible assignment found")
	}
	if len(unscheduled) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d pairing(s) could not be scheduled", len(unscheduled)))
	}
	for _, v := range validator.ProjectionChecks(universe, scheduled) {
		warnings = append(warnings, "post-projection check: "+v.Message)
	}

	return &Result{
		Scheduled:          scheduled,
		Unscheduled:        unscheduled,
		UnscheduledMatches: unscheduledMatches,
		Warnings:           warnings,
		Status:             status,
	}, nil
}

// projectUnscheduledMatches turns every unresolved match identity into a
// Match with a null date and venue, keyed COMP_DIV_NNN_UNSCHEDULED: home
// is whichever side owns more time slots, falling back deterministically
// to the first team of the pair on a tie.
func projectUnscheduledMatches(unscheduled []placement.Pairing, teamsByID map[string]entities.Team) []entities.Match {
	matches := make([]entities.Match, 0, len(unscheduled))
	for _, p := range unscheduled {
		home, away := p.TeamA, p.TeamB
		if len(teamsByID[p.TeamB].TimeSlots) > len(teamsByID[p.TeamA].TimeSlots) {
			home, away = p.TeamB, p.TeamA
		}
		matches = append(matches, entities.Match{
			ID:              fmt.Sprintf("%s_%03d_UNSCHEDULED", p.DivisionID, pairOrdinal(p.TeamA, p.TeamB)),
			CompetitionCode: teamsByID[home].CompetitionCode,
			DivisionID:      p.DivisionID,
			HomeTeamID:      home,
			AwayTeamID:      away,
			Status:          "draft",
		})
	}
	return matches
}

func pairingID(divisionID, a, b string) string {
	if a > b {
		a, b = b, a
	}
	return divisionID + "|" + a + "|" + b
}

// syntheticCode builds the COMP_DIV_YYYYMMDD_NNN output identifier of a
// scheduled match.
func syntheticCode(c placement.Candidate) string {
	return fmt.Sprintf("%s_%s_%03d", c.DivisionID, c.Date.Format("20060102"), pairOrdinal(c.Home, c.Away))
}

// pairOrdinal is deterministic and collision-resistant within a (division,
// date): derived from the pair's team identities rather than a counter, so
// rebuilding the same model twice reissues the same codes.
func pairOrdinal(home, away string) int {
	h := 0
	for _, r := range home + away {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return h % 1000
}

func sortMatches(matches []entities.Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.DivisionID != b.DivisionID {
			return a.DivisionID < b.DivisionID
		}
		if a.HomeTeamID != b.HomeTeamID {
			return a.HomeTeamID < b.HomeTeamID
		}
		return a.AwayTeamID < b.AwayTeamID
	})
}
