// Package entities projects raw standing/club/gym data into the closed
// universe a scheduling run operates over: divisions capped at eight
// teams, history-derived reception counts, and shared-roster pairs.
package entities

import (
	"fmt"
	"sort"
	"time"
)

// Club is a physical affiliate that one or more teams compete under.
type Club struct {
	ID                string
	Name              string
	AffiliationNumber string
	Contact           string
}

// Gymnasium is a venue with a fixed number of simultaneously usable courts.
// Lat/Lng are nil when the federation has no geocoded address on file.
type Gymnasium struct {
	ID      string
	ClubID  string
	Name    string
	Address string
	Courts  int
	Lat     *float64
	Lng     *float64
}

// TimeSlot is a standing weekly commitment: a team plays home matches on a
// given weekday, at a given hour, in a given gymnasium.
type TimeSlot struct {
	ID          string
	TeamID      string
	GymnasiumID string
	Weekday     time.Weekday
	StartTime   string // "HH:MM"
}

// Team is a club's entry in a single division of a single competition.
type Team struct {
	ID              string
	Name            string
	ClubID          string
	DivisionID      string
	DivisionTag     string
	CompetitionCode string
	Men             int
	Women           int
	TotalPlayers    int
	TimeSlots       []TimeSlot
}

// RosterComplete reports whether a team has enough registered players to
// play, per the competition-code-dependent completeness rule: the
// knockout-hybrid code requires gender-balanced minima, every other code
// requires a flat headcount floor.
func (t Team) RosterComplete() bool {
	if t.CompetitionCode == "kh" {
		return t.Men >= 2 && t.Women >= 2
	}
	return t.TotalPlayers >= 6
}

// Classement is a team's standing entry in one division tag of one
// competition. A team may carry more than one classement (e.g. a
// half-season playoff tag alongside its regular-division tag); Project
// resolves them down to a single DivisionTag per team.
type Classement struct {
	DivisionTag string
}

// exclusionDivisionTags are division tags that represent prior-half-season
// playoffs rather than an actual division; they must never be selected as a
// team's resolved DivisionTag, and a team whose only classement carries one
// is dropped entirely.
var exclusionDivisionTags = map[string]bool{
	"7d": true,
	"7o": true,
}

// resolveDivisionTag implements the standing-selection rule: prefer a
// non-exclusion tag over an exclusion tag, ties (several non-exclusion
// tags) broken by insertion order. Returns ok=false if every classement is
// an exclusion tag (or there are none), meaning the team is dropped.
func resolveDivisionTag(classements []Classement) (string, bool) {
	for _, c := range classements {
		if !exclusionDivisionTags[c.DivisionTag] {
			return c.DivisionTag, true
		}
	}
	return "", false
}

// Division is a competition's pool of teams, already filtered to [3, 8]
// members by Project.
type Division struct {
	ID              string
	Name            string
	CompetitionCode string
	Teams           []Team
}

// Window is a competition's scheduling horizon.
type Window struct {
	CompetitionCode string
	StartDate       time.Time
	EndDate         time.Time
	AllowedWeekdays []string
}

// PairKey identifies an unordered pair of teams.
type PairKey struct {
	A, B string
}

// NormalizedPair returns a PairKey with A < B, so map lookups don't care
// about argument order.
func NormalizedPair(a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Reception tracks, for one pair of teams, how many times each has hosted
// the other within the history cutoff window.
type Reception map[string]int // teamID -> times hosted the other

// OwedReceiver returns the team ID that has hosted the other fewer times,
// or "" if they're tied (no team is owed).
func (r Reception) OwedReceiver(a, b string) string {
	if r[a] < r[b] {
		return a
	}
	if r[b] < r[a] {
		return b
	}
	return ""
}

// SharedRosterPair marks two teams whose playing rosters overlap enough
// that they cannot field two matches on the same date without risking a
// player double-booking.
type SharedRosterPair struct {
	TeamA, TeamB string
	Ratio        float64
}

// Match is a scheduled or to-be-scheduled fixture.
type Match struct {
	ID              string
	CompetitionCode string
	DivisionID      string
	HomeTeamID      string
	AwayTeamID      string
	GymnasiumID     string
	Date            time.Time
	StartTime       string
	PreExisting     bool
	Status          string // "draft", "confirmed", "archived"
}

// RawTeam is what a Loader returns before division assembly and
// completeness filtering are applied. Classements carries every standing
// entry the team holds, in insertion order, before exclusion-tag
// resolution; DivisionID/DivisionTag on the embedded Team are not yet
// meaningful until Project resolves them.
type RawTeam struct {
	Team
	Classements []Classement
}

// Loader is the narrow external-collaborator boundary between the
// scheduler and whatever holds club/standing/history data at rest. The
// relational hydration behind a concrete implementation is out of scope;
// only this interface is.
type Loader interface {
	Clubs() map[string]Club
	Gymnasiums() map[string]Gymnasium
	TeamsRaw() []RawTeam
	CompetitionWindows() map[string]Window
	History(cutoff time.Time) map[PairKey]Reception
	SharedRosterPairs(ratio float64) []SharedRosterPair
	GymAvailable(gymID string, d time.Time) bool
	PreExistingMatches(competitionCode string) []Match
}

// Universe is the closed, projected snapshot a scheduling run operates on.
type Universe struct {
	Clubs        map[string]Club
	Gymnasiums   map[string]Gymnasium
	Divisions    []Division
	Windows      map[string]Window
	History      map[PairKey]Reception
	SharedRoster map[PairKey]SharedRosterPair
	PreExisting  []Match

	// ClosedDates holds per-gymnasium closure dates declared in the season
	// configuration, on top of whatever the loader's own blacklist reports.
	ClosedDates map[string]map[time.Time]bool

	loader Loader
}

// GymCourtAvailable reports whether the gymnasium is open on the given
// date: neither a closure declared in the season configuration nor one the
// loader reports. It does not account for how many of the gymnasium's
// courts are already booked that day.
func (u *Universe) GymCourtAvailable(gymID string, d time.Time) bool {
	if u.ClosedDates[gymID][d] {
		return false
	}
	if u.loader == nil {
		return true
	}
	return u.loader.GymAvailable(gymID, d)
}

// ErrDivisionTooLarge is returned when a division's standing teams exceed
// the federation ceiling of eight.
type ErrDivisionTooLarge struct {
	DivisionID string
	Count      int
}

func (e *ErrDivisionTooLarge) Error() string {
	return fmt.Sprintf("division %q has %d teams, federation ceiling is 8", e.DivisionID, e.Count)
}

// Project builds a Universe from a Loader, restricted to the given
// competition codes, performing standing selection (resolving each team's
// classements down to a single non-exclusion division tag, dropping teams
// with none), division formation (fatal above 8, dropped below 3), and
// history/shared-roster derivation as of cutoff. Roster completeness gates
// only which teams can be paired into a shared-roster exclusion; it never
// removes a team from its division.
func Project(loader Loader, competitionCodes []string, cutoff time.Time, sharedRosterRatio float64) (*Universe, error) {
	wanted := make(map[string]bool, len(competitionCodes))
	for _, c := range competitionCodes {
		wanted[c] = true
	}

	windows := make(map[string]Window)
	for code, w := range loader.CompetitionWindows() {
		if wanted[code] {
			windows[code] = w
		}
	}

	byDivision := make(map[string][]Team)
	rosterComplete := make(map[string]bool)
	for _, rt := range loader.TeamsRaw() {
		if !wanted[rt.CompetitionCode] {
			continue
		}
		rosterComplete[rt.ID] = rt.RosterComplete()
		tag, ok := resolveDivisionTag(rt.Classements)
		if !ok {
			continue // sole classement (or lack thereof) is an exclusion tag
		}
		team := rt.Team
		team.DivisionTag = tag
		team.DivisionID = rt.CompetitionCode + "_" + tag
		byDivision[team.DivisionID] = append(byDivision[team.DivisionID], team)
	}

	divisionIDs := make([]string, 0, len(byDivision))
	for id := range byDivision {
		divisionIDs = append(divisionIDs, id)
	}
	sort.Strings(divisionIDs)

	var divisions []Division
	for _, divID := range divisionIDs {
		teams := byDivision[divID]
		if len(teams) < 3 {
			continue
		}
		if len(teams) > 8 {
			return nil, &ErrDivisionTooLarge{DivisionID: divID, Count: len(teams)}
		}
		divisions = append(divisions, Division{
			ID:              divID,
			CompetitionCode: teams[0].CompetitionCode,
			Teams:           teams,
		})
	}

	// Shared-roster pairs are only meaningful between teams whose own
	// roster meets the completeness rule; an incomplete-roster team still
	// plays (division formation above never drops it), it just can't be the
	// subject of a shared-roster exclusion.
	shared := make(map[PairKey]SharedRosterPair)
	for _, p := range loader.SharedRosterPairs(sharedRosterRatio) {
		if !rosterComplete[p.TeamA] || !rosterComplete[p.TeamB] {
			continue
		}
		shared[NormalizedPair(p.TeamA, p.TeamB)] = p
	}

	var preExisting []Match
	for code := range wanted {
		preExisting = append(preExisting, loader.PreExistingMatches(code)...)
	}

	return &Universe{
		Clubs:        loader.Clubs(),
		Gymnasiums:   loader.Gymnasiums(),
		Divisions:    divisions,
		Windows:      windows,
		History:      loader.History(cutoff),
		SharedRoster: shared,
		PreExisting:  preExisting,
		loader:       loader,
	}, nil
}
