// Package placement enumerates candidate fixtures: every legal
// (match, date, gymnasium, start time) combination a pairing in a division
// could be played at, before any constraint is applied.
package placement

import (
	"fmt"
	"sort"
	"time"

	"ufolepvolley/scheduler/internal/calendar"
	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
)

// Pairing is an unordered matchup within a division; home/away is decided
// per candidate, not per pairing, since either team's standing slots can
// host it.
type Pairing struct {
	DivisionID string
	TeamA      string
	TeamB      string
}

// Candidate is one legal way a pairing could be realized as a match.
type Candidate struct {
	MatchID     string
	DivisionID  string
	Home        string
	Away        string
	Date        time.Time
	GymnasiumID string
	StartTime   string
}

// Pairings generates the round-robin pairings for a division: a single
// round-robin across all teams (every pair plays once; home/away is
// resolved later by whichever team's time slot the candidate uses).
func Pairings(div entities.Division) []Pairing {
	var pairs []Pairing
	teams := div.Teams
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			pairs = append(pairs, Pairing{DivisionID: div.ID, TeamA: teams[i].ID, TeamB: teams[j].ID})
		}
	}
	return pairs
}

// Blocked captures the incremental-mode pre-filters derived from
// already-confirmed matches: dates and ISO weeks a team is no longer free
// on, and the (gymnasium, date) cells whose courts are all committed.
type Blocked struct {
	TeamDates map[string]map[time.Time]bool
	TeamWeeks map[string]map[string]bool // teamID -> "YYYY-Www"
	GymFull   map[string]map[time.Time]bool
}

func isoWeekKey(d time.Time) string {
	y, w := d.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// Generate produces every candidate for a pairing: legal dates from the
// division's competition window crossed with each team's standing time
// slots (both teams' slots, since either may end up hosting), filtered by
// gymnasium availability and, in incremental mode, by Blocked.
func Generate(universe *entities.Universe, pairing Pairing, cfg config.Calendar, teamsByID map[string]entities.Team, blocked *Blocked) []Candidate {
	a := teamsByID[pairing.TeamA]
	b := teamsByID[pairing.TeamB]
	window := universe.Windows[a.CompetitionCode]

	dates := calendar.LegalDates(window.StartDate, window.EndDate, window.AllowedWeekdays, cfg)

	var candidates []Candidate
	consider := func(home, away entities.Team) {
		for _, ts := range home.TimeSlots {
			for _, d := range dates {
				if d.Weekday() != ts.Weekday {
					continue
				}
				if !universe.GymCourtAvailable(ts.GymnasiumID, d) {
					continue
				}
				if blocked != nil && isBlocked(blocked, home.ID, away.ID, ts.GymnasiumID, d) {
					continue
				}
				candidates = append(candidates, Candidate{
					MatchID:     fmt.Sprintf("%s_%s_%s", pairing.DivisionID, home.ID, away.ID),
					DivisionID:  pairing.DivisionID,
					Home:        home.ID,
					Away:        away.ID,
					Date:        d,
					GymnasiumID: ts.GymnasiumID,
					StartTime:   ts.StartTime,
				})
			}
		}
	}
	consider(a, b)
	consider(b, a)

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].Date.Equal(candidates[j].Date) {
			return candidates[i].Date.Before(candidates[j].Date)
		}
		return candidates[i].StartTime < candidates[j].StartTime
	})
	return candidates
}

func isBlocked(b *Blocked, home, away, gymID string, d time.Time) bool {
	week := isoWeekKey(d)
	if b.TeamDates[home][d] || b.TeamDates[away][d] {
		return true
	}
	if b.TeamWeeks[home][week] || b.TeamWeeks[away][week] {
		return true
	}
	return b.GymFull[gymID][d]
}

// BuildBlocked derives the incremental-mode pre-filter state from a set of
// already-confirmed matches and each gymnasium's court count.
func BuildBlocked(preExisting []entities.Match, gymnasiums map[string]entities.Gymnasium) (*Blocked, map[string]map[time.Time]int) {
	b := &Blocked{
		TeamDates: make(map[string]map[time.Time]bool),
		TeamWeeks: make(map[string]map[string]bool),
		GymFull:   make(map[string]map[time.Time]bool),
	}
	usage := make(map[string]map[time.Time]int)
	for _, m := range preExisting {
		for _, team := range []string{m.HomeTeamID, m.AwayTeamID} {
			if b.TeamDates[team] == nil {
				b.TeamDates[team] = make(map[time.Time]bool)
			}
			b.TeamDates[team][m.Date] = true
			if b.TeamWeeks[team] == nil {
				b.TeamWeeks[team] = make(map[string]bool)
			}
			b.TeamWeeks[team][isoWeekKey(m.Date)] = true
		}
		if usage[m.GymnasiumID] == nil {
			usage[m.GymnasiumID] = make(map[time.Time]int)
		}
		usage[m.GymnasiumID][m.Date]++
	}
	for gymID, byDate := range usage {
		courts := 1
		if g, ok := gymnasiums[gymID]; ok && g.Courts > 0 {
			courts = g.Courts
		}
		for d, used := range byDate {
			if used >= courts {
				if b.GymFull[gymID] == nil {
					b.GymFull[gymID] = make(map[time.Time]bool)
				}
				b.GymFull[gymID][d] = true
			}
		}
	}
	return b, usage
}
