package store

import (
	"database/sql"
	"fmt"
	"time"

	"ufolepvolley/scheduler/internal/entities"
	"ufolepvolley/scheduler/internal/strategy"
)

// PostgresLoader implements entities.Loader against the federation's
// relational schema. Most table names are kept as named constants; column
// names, and the competition_windows and gymnasium_closures tables, are
// written inline in the queries.
const (
	tableClubs            = "clubs"
	tableGyms             = "gymnasiums"
	tableTeams            = "teams"
	tableSlots            = "time_slots"
	tableMatches          = "matches"
	tableRosters          = "roster_entries"
	tableClassements      = "classements"
	tableKnockoutForm     = "knockout_registrations"
	historyCutoffFallback = "2025-09-01"
	defaultKnockoutHour   = "20:00"
)

// PostgresLoader reads standings, clubs, gymnasiums, and match history
// straight from the relational store. Hydration logic here is
// intentionally thin: the heavier business rules (completeness,
// shared-roster overlap, history alternation) live in entities.Project.
type PostgresLoader struct {
	db *sql.DB
}

// NewPostgresLoader wraps an already-open database handle.
func NewPostgresLoader(db *sql.DB) *PostgresLoader {
	return &PostgresLoader{db: db}
}

func (l *PostgresLoader) Clubs() map[string]entities.Club {
	out := make(map[string]entities.Club)
	rows, err := l.db.Query(fmt.Sprintf("SELECT id, name, affiliation_number, contact FROM %s", tableClubs))
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var c entities.Club
		var affiliation, contact sql.NullString
		if rows.Scan(&c.ID, &c.Name, &affiliation, &contact) == nil {
			c.AffiliationNumber = affiliation.String
			c.Contact = contact.String
			out[c.ID] = c
		}
	}
	return out
}

func (l *PostgresLoader) Gymnasiums() map[string]entities.Gymnasium {
	out := make(map[string]entities.Gymnasium)
	rows, err := l.db.Query(fmt.Sprintf("SELECT id, club_id, name, address, courts, lat, lng FROM %s", tableGyms))
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var g entities.Gymnasium
		var address sql.NullString
		var lat, lng sql.NullFloat64
		if rows.Scan(&g.ID, &g.ClubID, &g.Name, &address, &g.Courts, &lat, &lng) == nil {
			g.Address = address.String
			if lat.Valid && lng.Valid {
				g.Lat, g.Lng = &lat.Float64, &lng.Float64
			}
			out[g.ID] = g
		}
	}
	return out
}

func (l *PostgresLoader) TeamsRaw() []entities.RawTeam {
	var out []entities.RawTeam
	query := fmt.Sprintf(`
		SELECT t.id, t.club_id, t.competition_code, t.men, t.women, t.total_players
		FROM %s t`, tableTeams)
	rows, err := l.db.Query(query)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var rt entities.RawTeam
		if err := rows.Scan(&rt.ID, &rt.ClubID, &rt.CompetitionCode, &rt.Men, &rt.Women, &rt.TotalPlayers); err != nil {
			continue
		}
		rt.TimeSlots = l.slotsForTeam(rt.ID, rt.CompetitionCode)
		rt.Classements = l.classementsForTeam(rt.ID)
		out = append(out, rt)
	}
	return out
}

// classementsForTeam reads every standing entry a team holds, in the order
// the federation's classement table lists them — the insertion order the
// tie-break of Project's standing selection relies on.
func (l *PostgresLoader) classementsForTeam(teamID string) []entities.Classement {
	var out []entities.Classement
	rows, err := l.db.Query(fmt.Sprintf(
		"SELECT division_tag FROM %s WHERE team_id = $1 ORDER BY id", tableClassements), teamID)
	if err != nil {
		return nil
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if rows.Scan(&tag) == nil {
			out = append(out, entities.Classement{DivisionTag: tag})
		}
	}
	return out
}

// slotsForTeam dispatches to the competition's time-slot loading regime
// (strategy.Get), mirroring _load_creneaux's three code paths: a plain
// team reads its own reception-window slots, a cup team reuses its club's
// men's-competition slots filtered to cup registration, and a
// knockout-hybrid team reads its registration-form slots instead of
// time_slots at all.
func (l *PostgresLoader) slotsForTeam(teamID, competitionCode string) []entities.TimeSlot {
	switch strategy.Get(competitionCode) {
	case strategy.Knockout:
		return l.knockoutSlots(teamID)
	case strategy.Cup:
		return l.cupSlots(teamID)
	default:
		return l.regularSlots(teamID)
	}
}

// regularSlots reads a team's own standing weekly commitment.
func (l *PostgresLoader) regularSlots(teamID string) []entities.TimeSlot {
	var slots []entities.TimeSlot
	rows, err := l.db.Query(fmt.Sprintf(
		"SELECT gymnasium_id, weekday, start_time FROM %s WHERE team_id = $1", tableSlots), teamID)
	if err != nil {
		return nil
	}
	defer rows.Close()
	for rows.Next() {
		var gymID, startTime string
		var weekday int
		if rows.Scan(&gymID, &weekday, &startTime) == nil {
			slots = append(slots, entities.TimeSlot{
				TeamID: teamID, GymnasiumID: gymID,
				Weekday: time.Weekday(weekday), StartTime: startTime,
			})
		}
	}
	return slots
}

// cupSlots reuses the men's-competition slots of the same club, restricted
// to teams that separately registered for the cup.
func (l *PostgresLoader) cupSlots(teamID string) []entities.TimeSlot {
	var slots []entities.TimeSlot
	query := fmt.Sprintf(`
		SELECT ts.gymnasium_id, ts.weekday, ts.start_time
		FROM %s ts
		JOIN %s host ON host.id = ts.team_id
		JOIN %s cup ON cup.club_id = host.club_id
		WHERE cup.id = $1 AND host.competition_code = 'm' AND host.is_cup_registered = true`,
		tableSlots, tableTeams, tableTeams)
	rows, err := l.db.Query(query, teamID)
	if err != nil {
		return nil
	}
	defer rows.Close()
	for rows.Next() {
		var gymID, startTime string
		var weekday int
		if rows.Scan(&gymID, &weekday, &startTime) == nil {
			slots = append(slots, entities.TimeSlot{
				TeamID: teamID, GymnasiumID: gymID,
				Weekday: time.Weekday(weekday), StartTime: startTime,
			})
		}
	}
	return slots
}

// knockoutSlots reads up to two (gymnasium, weekday, time) slots from the
// knockout-hybrid registration form, defaulting a missing time to 20:00.
func (l *PostgresLoader) knockoutSlots(teamID string) []entities.TimeSlot {
	var slots []entities.TimeSlot
	query := fmt.Sprintf(`
		SELECT gymnasium_id_1, weekday_1, start_time_1, gymnasium_id_2, weekday_2, start_time_2
		FROM %s WHERE team_id = $1`, tableKnockoutForm)
	var gym1, gym2 sql.NullString
	var weekday1, weekday2 sql.NullInt64
	var time1, time2 sql.NullString
	err := l.db.QueryRow(query, teamID).Scan(&gym1, &weekday1, &time1, &gym2, &weekday2, &time2)
	if err != nil {
		return nil
	}
	if gym1.Valid && weekday1.Valid {
		slots = append(slots, entities.TimeSlot{
			TeamID: teamID, GymnasiumID: gym1.String,
			Weekday: time.Weekday(weekday1.Int64), StartTime: orDefault(time1, defaultKnockoutHour),
		})
	}
	if gym2.Valid && weekday2.Valid {
		slots = append(slots, entities.TimeSlot{
			TeamID: teamID, GymnasiumID: gym2.String,
			Weekday: time.Weekday(weekday2.Int64), StartTime: orDefault(time2, defaultKnockoutHour),
		})
	}
	return slots
}

func orDefault(s sql.NullString, fallback string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return fallback
}

func (l *PostgresLoader) CompetitionWindows() map[string]entities.Window {
	out := make(map[string]entities.Window)
	rows, err := l.db.Query("SELECT competition_code, start_date, end_date FROM competition_windows")
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var w entities.Window
		if rows.Scan(&w.CompetitionCode, &w.StartDate, &w.EndDate) == nil {
			out[w.CompetitionCode] = w
		}
	}
	return out
}

// History builds the reception ledger from confirmed matches since
// cutoff. A zero cutoff falls back to the season opening, so a careless
// caller can't drag a prior championship's receptions into this season's
// alternation ledger.
func (l *PostgresLoader) History(cutoff time.Time) map[entities.PairKey]entities.Reception {
	if cutoff.IsZero() {
		if t, err := time.Parse("2006-01-02", historyCutoffFallback); err == nil {
			cutoff = t
		}
	}
	out := make(map[entities.PairKey]entities.Reception)
	rows, err := l.db.Query(fmt.Sprintf(
		`SELECT home_team_id, away_team_id FROM %s WHERE match_date >= $1 AND status IN ('confirmed', 'archived')`,
		tableMatches), cutoff)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var home, away string
		if rows.Scan(&home, &away) != nil {
			continue
		}
		key := entities.NormalizedPair(home, away)
		if out[key] == nil {
			out[key] = entities.Reception{}
		}
		out[key][home]++
	}
	return out
}

// SharedRosterPairs computes, for every pair of registered rosters, the
// fraction of the smaller roster's players who also appear on the other
// team's roster, and keeps the pairs at or above ratio.
func (l *PostgresLoader) SharedRosterPairs(ratio float64) []entities.SharedRosterPair {
	rosters := make(map[string]map[string]bool)
	rows, err := l.db.Query(fmt.Sprintf("SELECT team_id, player_id FROM %s", tableRosters))
	if err != nil {
		return nil
	}
	defer rows.Close()
	for rows.Next() {
		var teamID, playerID string
		if rows.Scan(&teamID, &playerID) != nil {
			continue
		}
		if rosters[teamID] == nil {
			rosters[teamID] = make(map[string]bool)
		}
		rosters[teamID][playerID] = true
	}

	teamIDs := make([]string, 0, len(rosters))
	for id := range rosters {
		teamIDs = append(teamIDs, id)
	}

	var pairs []entities.SharedRosterPair
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			a, b := teamIDs[i], teamIDs[j]
			overlap := 0
			smaller := len(rosters[a])
			if len(rosters[b]) < smaller {
				smaller = len(rosters[b])
			}
			if smaller == 0 {
				continue
			}
			for p := range rosters[a] {
				if rosters[b][p] {
					overlap++
				}
			}
			r := float64(overlap) / float64(smaller)
			if r >= ratio {
				pairs = append(pairs, entities.SharedRosterPair{TeamA: a, TeamB: b, Ratio: r})
			}
		}
	}
	return pairs
}

func (l *PostgresLoader) GymAvailable(gymID string, d time.Time) bool {
	var count int
	err := l.db.QueryRow(
		"SELECT COUNT(*) FROM gymnasium_closures WHERE gymnasium_id = $1 AND closed_date = $2",
		gymID, d).Scan(&count)
	if err != nil {
		return true
	}
	return count == 0
}

// DraftMatches returns every draft-status match for a competition, split
// into dated (scheduled) and undated (unscheduled) rows: a prior
// generation run persists both kinds under the same 'draft' status.
func (l *PostgresLoader) DraftMatches(competitionCode string) (scheduled, unscheduled []entities.Match) {
	rows, err := l.db.Query(fmt.Sprintf(
		`SELECT id, division_id, home_team_id, away_team_id, gymnasium_id, match_date, start_time, status
		 FROM %s WHERE competition_code = $1 AND status = 'draft'`, tableMatches), competitionCode)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()
	for rows.Next() {
		var m entities.Match
		var gym sql.NullString
		var date sql.NullTime
		if rows.Scan(&m.ID, &m.DivisionID, &m.HomeTeamID, &m.AwayTeamID, &gym, &date, &m.StartTime, &m.Status) != nil {
			continue
		}
		m.CompetitionCode = competitionCode
		m.GymnasiumID = gym.String
		if date.Valid {
			m.Date = date.Time
			scheduled = append(scheduled, m)
		} else {
			unscheduled = append(unscheduled, m)
		}
	}
	return scheduled, unscheduled
}

func (l *PostgresLoader) PreExistingMatches(competitionCode string) []entities.Match {
	var out []entities.Match
	rows, err := l.db.Query(fmt.Sprintf(
		`SELECT id, division_id, home_team_id, away_team_id, gymnasium_id, match_date, start_time, status
		 FROM %s WHERE competition_code = $1 AND status IN ('confirmed', 'archived')`, tableMatches), competitionCode)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var m entities.Match
		if rows.Scan(&m.ID, &m.DivisionID, &m.HomeTeamID, &m.AwayTeamID, &m.GymnasiumID, &m.Date, &m.StartTime, &m.Status) == nil {
			m.CompetitionCode = competitionCode
			m.PreExisting = true
			out = append(out, m)
		}
	}
	return out
}
