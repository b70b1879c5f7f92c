// Package validator re-checks a produced schedule against the federation
// rules, independently of whatever the solver itself believed it
// enforced. Each rule is a standalone function over the same []Violation
// shape.
package validator

import (
	"fmt"
	"time"

	"ufolepvolley/scheduler/internal/calendar"
	"ufolepvolley/scheduler/internal/config"
	"ufolepvolley/scheduler/internal/entities"
)

// Violation describes one property failure found in a produced schedule.
type Violation struct {
	Type    string // "error" for a hard rule, "warning" for an equity target
	Message string
}

// Validate runs every testable property against the scheduled matches.
// unscheduled carries the projected null-date/venue rows for pairings the
// solver could not place, needed only by the completeness count. cal
// carries the holiday/vacation constants the schedule was generated under.
func Validate(universe *entities.Universe, scheduled, unscheduled []entities.Match, maxMatchesPerTeamWeek int, cal config.Calendar) []Violation {
	var v []Violation
	v = append(v, checkNoDuplicatePairing(scheduled)...)
	v = append(v, checkNoTeamDoubleBooked(scheduled)...)
	v = append(v, checkGymnasiumCapacity(scheduled, universe.Gymnasiums)...)
	v = append(v, checkMaxMatchesPerTeamWeek(scheduled, maxMatchesPerTeamWeek)...)
	v = append(v, checkHomeShareFloor(scheduled, slotOwningTeams(universe))...)
	v = append(v, checkSharedRosterExclusion(scheduled, universe.SharedRoster)...)
	v = append(v, checkPreExistingUntouched(scheduled, universe.PreExisting)...)
	v = append(v, checkCanonicalOrder(scheduled)...)
	v = append(v, checkMatchCountComplete(scheduled, unscheduled, universe.Divisions)...)
	v = append(v, checkSlotConsistency(scheduled, universe)...)
	v = append(v, checkLegalDates(scheduled, universe.Windows, cal)...)
	return v
}

// ProjectionChecks is the driver's post-projection pass: it re-checks venue
// capacity, the home/away floor, and slot consistency on the produced
// matches alone, independently of the solver's own bookkeeping.
func ProjectionChecks(universe *entities.Universe, scheduled []entities.Match) []Violation {
	var v []Violation
	v = append(v, checkGymnasiumCapacity(scheduled, universe.Gymnasiums)...)
	v = append(v, checkHomeShareFloor(scheduled, slotOwningTeams(universe))...)
	v = append(v, checkSlotConsistency(scheduled, universe)...)
	return v
}

// slotOwningTeams returns the set of team IDs that own at least one time
// slot: the only teams the home/away balance floor applies to, since a
// team without a slot can never host.
func slotOwningTeams(universe *entities.Universe) map[string]bool {
	owners := make(map[string]bool)
	for _, div := range universe.Divisions {
		for _, t := range div.Teams {
			if len(t.TimeSlots) > 0 {
				owners[t.ID] = true
			}
		}
	}
	return owners
}

// A pairing never appears twice in the schedule.
func checkNoDuplicatePairing(scheduled []entities.Match) []Violation {
	seen := make(map[string]bool)
	var out []Violation
	for _, m := range scheduled {
		key := pairingKey(m.DivisionID, m.HomeTeamID, m.AwayTeamID)
		if seen[key] {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("pairing %s scheduled more than once", key)})
		}
		seen[key] = true
	}
	return out
}

// No team plays twice on the same date.
func checkNoTeamDoubleBooked(scheduled []entities.Match) []Violation {
	seen := make(map[string]bool)
	var out []Violation
	for _, m := range scheduled {
		for _, team := range []string{m.HomeTeamID, m.AwayTeamID} {
			key := team + "|" + m.Date.Format("2006-01-02")
			if seen[key] {
				out = append(out, Violation{Type: "error", Message: fmt.Sprintf("team %s double-booked on %s", team, m.Date.Format("2006-01-02"))})
			}
			seen[key] = true
		}
	}
	return out
}

// A gymnasium never hosts more matches on a date than it has courts.
func checkGymnasiumCapacity(scheduled []entities.Match, gyms map[string]entities.Gymnasium) []Violation {
	type key struct {
		gym  string
		date time.Time
	}
	counts := make(map[key]int)
	for _, m := range scheduled {
		counts[key{m.GymnasiumID, m.Date}]++
	}
	var out []Violation
	for k, count := range counts {
		courts := 1
		if g, ok := gyms[k.gym]; ok && g.Courts > 0 {
			courts = g.Courts
		}
		if count > courts {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf(
				"gymnasium %s hosts %d matches on %s, only %d court(s) available", k.gym, count, k.date.Format("2006-01-02"), courts)})
		}
	}
	return out
}

// No team exceeds the configured weekly match cap.
func checkMaxMatchesPerTeamWeek(scheduled []entities.Match, limit int) []Violation {
	if limit <= 0 {
		limit = 1
	}
	type key struct {
		team string
		week string
	}
	counts := make(map[key]int)
	for _, m := range scheduled {
		y, w := m.Date.ISOWeek()
		week := fmt.Sprintf("%d-W%02d", y, w)
		counts[key{m.HomeTeamID, week}]++
		counts[key{m.AwayTeamID, week}]++
	}
	var out []Violation
	for k, count := range counts {
		if count > limit {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("team %s plays %d matches in week %s, max %d", k.team, count, k.week, limit)})
		}
	}
	return out
}

// For every slot-owning team, home placements must not trail away
// placements by more than one. Reported as a warning, not an error, since
// an undersupplied calendar can make this mathematically unreachable even
// when every hard constraint holds.
func checkHomeShareFloor(scheduled []entities.Match, slotOwners map[string]bool) []Violation {
	home := make(map[string]int)
	away := make(map[string]int)
	for _, m := range scheduled {
		home[m.HomeTeamID]++
		away[m.AwayTeamID]++
	}
	var out []Violation
	for team := range slotOwners {
		if home[team]-away[team] < -1 {
			out = append(out, Violation{Type: "warning", Message: fmt.Sprintf(
				"team %s home/away balance %d/%d breaks the home >= away-1 floor", team, home[team], away[team])})
		}
	}
	return out
}

// Two teams sharing enough roster overlap never both play on the same date.
func checkSharedRosterExclusion(scheduled []entities.Match, shared map[entities.PairKey]entities.SharedRosterPair) []Violation {
	if len(shared) == 0 {
		return nil
	}
	byDate := make(map[time.Time]map[string]bool)
	for _, m := range scheduled {
		if byDate[m.Date] == nil {
			byDate[m.Date] = make(map[string]bool)
		}
		byDate[m.Date][m.HomeTeamID] = true
		byDate[m.Date][m.AwayTeamID] = true
	}
	var out []Violation
	for pair := range shared {
		for d, teams := range byDate {
			if teams[pair.A] && teams[pair.B] {
				out = append(out, Violation{Type: "error", Message: fmt.Sprintf(
					"shared-roster teams %s and %s both scheduled on %s", pair.A, pair.B, d.Format("2006-01-02"))})
			}
		}
	}
	return out
}

// Pre-existing (confirmed/archived) matches must appear in the
// schedule byte-for-byte unchanged; an incremental run never re-plans them.
func checkPreExistingUntouched(scheduled []entities.Match, preExisting []entities.Match) []Violation {
	byID := make(map[string]entities.Match)
	for _, m := range scheduled {
		byID[m.ID] = m
	}
	var out []Violation
	for _, want := range preExisting {
		got, ok := byID[want.ID]
		if !ok {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("pre-existing match %s missing from output", want.ID)})
			continue
		}
		if !got.Date.Equal(want.Date) || got.StartTime != want.StartTime || got.GymnasiumID != want.GymnasiumID {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("pre-existing match %s was altered", want.ID)})
		}
	}
	return out
}

// Output is sorted by (date, start_time, division, home, away).
func checkCanonicalOrder(scheduled []entities.Match) []Violation {
	var out []Violation
	for i := 1; i < len(scheduled); i++ {
		if lessCanonical(scheduled[i], scheduled[i-1]) {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %d (%s) out of canonical order", i, scheduled[i].ID)})
		}
	}
	return out
}

// For every division, scheduled plus unscheduled match count equals
// |D|*(|D|-1)/2, the full round-robin of that division's teams.
func checkMatchCountComplete(scheduled, unscheduled []entities.Match, divisions []entities.Division) []Violation {
	counts := make(map[string]int)
	for _, m := range scheduled {
		counts[m.DivisionID]++
	}
	for _, m := range unscheduled {
		counts[m.DivisionID]++
	}
	var out []Violation
	for _, div := range divisions {
		n := len(div.Teams)
		want := n * (n - 1) / 2
		if counts[div.ID] != want {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf(
				"division %s has %d scheduled+unscheduled match(es), full round-robin of %d teams needs %d", div.ID, counts[div.ID], n, want)})
		}
	}
	return out
}

// Every newly scheduled match sits on one of its home team's own slots:
// same gymnasium, same start time, a date whose weekday matches the slot's,
// and an opponent from the same division. Teams the universe knows nothing
// about (or whose slot list is empty) are skipped rather than flagged, so
// the check stays usable on partial fixtures.
func checkSlotConsistency(scheduled []entities.Match, universe *entities.Universe) []Violation {
	slots := make(map[string][]entities.TimeSlot)
	division := make(map[string]string)
	for _, div := range universe.Divisions {
		for _, t := range div.Teams {
			slots[t.ID] = t.TimeSlots
			division[t.ID] = div.ID
		}
	}
	var out []Violation
	for _, m := range scheduled {
		if m.PreExisting || m.Date.IsZero() {
			continue
		}
		if m.HomeTeamID == m.AwayTeamID {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s pairs team %s against itself", m.ID, m.HomeTeamID)})
			continue
		}
		if dh, da := division[m.HomeTeamID], division[m.AwayTeamID]; dh != "" && da != "" && dh != da {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s crosses divisions %s and %s", m.ID, dh, da)})
		}
		owned := slots[m.HomeTeamID]
		if len(owned) == 0 {
			continue
		}
		matched := false
		for _, s := range owned {
			if s.GymnasiumID == m.GymnasiumID && s.StartTime == m.StartTime && s.Weekday == m.Date.Weekday() {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf(
				"match %s at %s %s on %s fits none of home team %s's slots",
				m.ID, m.GymnasiumID, m.StartTime, m.Date.Format("2006-01-02"), m.HomeTeamID)})
		}
	}
	return out
}

// No newly scheduled date falls on a holiday, inside a vacation
// interval, outside its competition window, or on a weekday the window's
// mask excludes. Anchored matches are exempt: they were fixed before this
// run and are not the scheduler's to re-litigate.
func checkLegalDates(scheduled []entities.Match, windows map[string]entities.Window, cal config.Calendar) []Violation {
	holidays := make(map[time.Time]bool, len(cal.Holidays))
	for _, h := range cal.Holidays {
		holidays[h.Time] = true
	}
	var out []Violation
	for _, m := range scheduled {
		if m.PreExisting || m.Date.IsZero() {
			continue
		}
		day := m.Date.Format("2006-01-02")
		if holidays[m.Date] {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s scheduled on public holiday %s", m.ID, day)})
		}
		for _, v := range cal.Vacations {
			if v.Contains(m.Date) {
				out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s scheduled on %s, inside the %s vacation", m.ID, day, v.Name)})
				break
			}
		}
		w, ok := windows[m.CompetitionCode]
		if !ok {
			continue
		}
		if m.Date.Before(w.StartDate) || m.Date.After(w.EndDate) {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s scheduled on %s, outside the %s competition window", m.ID, day, m.CompetitionCode)})
		}
		if !calendar.AllowedSet(w.AllowedWeekdays)[m.Date.Weekday()] {
			out = append(out, Violation{Type: "error", Message: fmt.Sprintf("match %s scheduled on a %s, outside the allowed weekdays", m.ID, m.Date.Weekday())})
		}
	}
	return out
}

func lessCanonical(a, b entities.Match) bool {
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
}

func pairingKey(divisionID, a, b string) string {
	if a > b {
		a, b = b, a
	}
	return divisionID + "|" + a + "|" + b
}
