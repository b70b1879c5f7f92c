// Package constraints posts the boolean decision model: one variable per
// candidate placement, and one function per federation rule translating it
// into linear constraints over solver.Model.
package constraints

import (
	"fmt"
	"time"

	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
	"ufolepvolley/scheduler/internal/placement"
	"ufolepvolley/scheduler/internal/solver"
)

// gymDateKey and teamDateKey give the posting functions a stable,
// collision-free way to group candidate variables by resource.
type gymDateKey struct {
	GymID string
	Date  time.Time
}

type teamDateKey struct {
	TeamID string
	Date   time.Time
}

type teamWeekKey struct {
	TeamID string
	Week   string
}

// Model is the built decision model: the posted solver.Model plus the
// bookkeeping needed to project a solution back into matches.
type Model struct {
	Solver     solver.Model
	Candidates []placement.Candidate
	VarByIndex []solver.Var // parallel to Candidates
}

// pairingKey groups candidates by division and unordered team pair, so a
// pairing can be constrained to at most one placement.
func pairingKey(c placement.Candidate) string {
	a, b := c.Home, c.Away
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s|%s", c.DivisionID, a, b)
}

func isoWeek(d time.Time) string {
	y, w := d.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// Build posts the full rule set over candidates and returns the model
// ready to solve. existingGymUsage carries court usage already committed
// by pre-existing matches (incremental mode only; nil/empty for a full
// generation run).
func Build(
	s solver.Model,
	universe *entities.Universe,
	teamsByID map[string]entities.Team,
	allCandidates []placement.Candidate,
	cfg config.Rules,
	existingGymUsage map[string]map[time.Time]int,
) *Model {
	// History-driven alternation: a pairing with a known owed receiver
	// only generates candidates where the owed team hosts. Applied as a
	// candidate filter rather than a posted constraint, the same way the
	// placement package applies incremental-mode blocking before variable
	// creation.
	candidates := applyOwedReceiver(allCandidates, universe.History, teamsByID)

	vars := make([]solver.Var, len(candidates))
	for i, c := range candidates {
		vars[i] = s.NewBoolVar(fmt.Sprintf("c%d_%s_%s_%s", i, c.Home, c.Away, c.Date.Format("20060102")))
	}

	postAtMostOnePerPairing(s, candidates, vars)
	postOneMatchPerTeamPerDate(s, candidates, vars)
	postGymnasiumCapacity(s, candidates, vars, universe.Gymnasiums, existingGymUsage)
	postMaxMatchesPerTeamWeek(s, candidates, vars, cfg.MaxMatchesPerTeamWeek)
	postHomeShareFloor(s, candidates, vars, teamsByID)
	postSharedRosterExclusion(s, candidates, vars, universe.SharedRoster)

	objective := make([]solver.Term, len(vars))
	for i, v := range vars {
		objective[i] = solver.Term(v)
	}
	s.Maximize(objective)

	return &Model{Solver: s, Candidates: candidates, VarByIndex: vars}
}

// applyOwedReceiver keeps, for every pairing whose history ledger shows
// one team has hosted the other fewer times, only the candidates where
// that team is home. The filter applies only when the owed team actually
// owns a slot to host with: a slot-less owed team can never appear as
// home in the first place, so filtering regardless would delete every
// candidate for the pair and leave it permanently unschedulable, and the
// alternation rule constrains who hosts, never whether the match is
// played at all.
func applyOwedReceiver(candidates []placement.Candidate, history map[entities.PairKey]entities.Reception, teamsByID map[string]entities.Team) []placement.Candidate {
	var out []placement.Candidate
	for _, c := range candidates {
		key := entities.NormalizedPair(c.Home, c.Away)
		recep, ok := history[key]
		if !ok {
			out = append(out, c)
			continue
		}
		owed := recep.OwedReceiver(c.Home, c.Away)
		if owed == "" || owed == c.Home || len(teamsByID[owed].TimeSlots) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// A pairing may be realized by at most one candidate. Not exactly-one,
// since a tight calendar can leave a pairing unscheduled; the objective
// pushes the solver to schedule as many as feasible.
func postAtMostOnePerPairing(s solver.Model, candidates []placement.Candidate, vars []solver.Var) {
	groups := make(map[string][]solver.Term)
	for i, c := range candidates {
		k := pairingKey(c)
		groups[k] = append(groups[k], solver.Term(vars[i]))
	}
	for _, terms := range groups {
		s.AddLinearLE(terms, 1)
	}
}

// A team plays at most one match on any given date.
func postOneMatchPerTeamPerDate(s solver.Model, candidates []placement.Candidate, vars []solver.Var) {
	groups := make(map[teamDateKey][]solver.Term)
	for i, c := range candidates {
		groups[teamDateKey{c.Home, c.Date}] = append(groups[teamDateKey{c.Home, c.Date}], solver.Term(vars[i]))
		groups[teamDateKey{c.Away, c.Date}] = append(groups[teamDateKey{c.Away, c.Date}], solver.Term(vars[i]))
	}
	for _, terms := range groups {
		s.AddLinearLE(terms, 1)
	}
}

// A gymnasium hosts at most as many simultaneous matches as it has
// courts, net of whatever pre-existing matches already occupy that day.
func postGymnasiumCapacity(s solver.Model, candidates []placement.Candidate, vars []solver.Var, gyms map[string]entities.Gymnasium, existingUsage map[string]map[time.Time]int) {
	groups := make(map[gymDateKey][]solver.Term)
	for i, c := range candidates {
		k := gymDateKey{c.GymnasiumID, c.Date}
		groups[k] = append(groups[k], solver.Term(vars[i]))
	}
	for k, terms := range groups {
		courts := 1
		if g, ok := gyms[k.GymID]; ok && g.Courts > 0 {
			courts = g.Courts
		}
		used := 0
		if byDate, ok := existingUsage[k.GymID]; ok {
			used = byDate[k.Date]
		}
		limit := courts - used
		if limit < 0 {
			limit = 0
		}
		s.AddLinearLE(terms, limit)
	}
}

// A team plays at most MaxMatchesPerTeamWeek matches in any ISO week.
func postMaxMatchesPerTeamWeek(s solver.Model, candidates []placement.Candidate, vars []solver.Var, limit int) {
	if limit <= 0 {
		limit = 1
	}
	groups := make(map[teamWeekKey][]solver.Term)
	for i, c := range candidates {
		week := isoWeek(c.Date)
		groups[teamWeekKey{c.Home, week}] = append(groups[teamWeekKey{c.Home, week}], solver.Term(vars[i]))
		groups[teamWeekKey{c.Away, week}] = append(groups[teamWeekKey{c.Away, week}], solver.Term(vars[i]))
	}
	for _, terms := range groups {
		s.AddLinearLE(terms, limit)
	}
}

// For every team that owns at least one time slot, home placements must
// not trail away placements by more than one: home(team) >= away(team)-1,
// equivalently away(team) - home(team) <= 1. Teams without slots cannot
// host at all and are exempt.
func postHomeShareFloor(s solver.Model, candidates []placement.Candidate, vars []solver.Var, teamsByID map[string]entities.Team) {
	homeVars := make(map[string][]solver.Var)
	awayVars := make(map[string][]solver.Var)
	for i, c := range candidates {
		homeVars[c.Home] = append(homeVars[c.Home], vars[i])
		awayVars[c.Away] = append(awayVars[c.Away], vars[i])
	}

	teams := make(map[string]bool)
	for team := range homeVars {
		teams[team] = true
	}
	for team := range awayVars {
		teams[team] = true
	}

	for team := range teams {
		t, ok := teamsByID[team]
		if !ok || len(t.TimeSlots) == 0 {
			continue
		}
		var terms []solver.WeightedTerm
		for _, v := range awayVars[team] {
			terms = append(terms, solver.WeightedTerm{V: v, Coeff: 1})
		}
		for _, v := range homeVars[team] {
			terms = append(terms, solver.WeightedTerm{V: v, Coeff: -1})
		}
		if len(terms) > 0 {
			s.AddWeightedLE(terms, 1)
		}
	}
}

// Two teams with enough shared roster overlap cannot each field a
// match on the same date, regardless of opponent, since the same players
// would need to appear on two courts at once.
func postSharedRosterExclusion(s solver.Model, candidates []placement.Candidate, vars []solver.Var, shared map[entities.PairKey]entities.SharedRosterPair) {
	if len(shared) == 0 {
		return
	}
	byTeamDate := make(map[teamDateKey][]solver.Term)
	for i, c := range candidates {
		byTeamDate[teamDateKey{c.Home, c.Date}] = append(byTeamDate[teamDateKey{c.Home, c.Date}], solver.Term(vars[i]))
		byTeamDate[teamDateKey{c.Away, c.Date}] = append(byTeamDate[teamDateKey{c.Away, c.Date}], solver.Term(vars[i]))
	}

	dates := make(map[time.Time]bool)
	for _, c := range candidates {
		dates[c.Date] = true
	}

	for pair := range shared {
		for d := range dates {
			var terms []solver.Term
			terms = append(terms, byTeamDate[teamDateKey{pair.A, d}]...)
			terms = append(terms, byTeamDate[teamDateKey{pair.B, d}]...)
			if len(terms) > 1 {
				s.AddLinearLE(terms, 1)
			}
		}
	}
}
