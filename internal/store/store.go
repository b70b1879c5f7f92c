// Package store provides the two output artifacts of the scheduling
// pipeline: writing the draft schedule back into the relational store, and
// producing a deterministic SQL dump of the same rows. It also implements
// entities.Loader against that store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"ufolepvolley/scheduler/internal/entities"
)

// Writer performs the relational side effects of a scheduling run.
type Writer struct {
	db *sql.DB
}

// NewWriter opens a Postgres connection using lib/pq.
func NewWriter(dsn string) (*Writer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Writer{db: db}, nil
}

func (w *Writer) Close() error { return w.db.Close() }

// ReplaceDraftMatches deletes every draft-status match for the given
// competitions and inserts the new set, inside a single transaction.
// Confirmed and archived matches are never touched: the WHERE clause
// excludes them by construction, not by an application-side filter.
func (w *Writer) ReplaceDraftMatches(ctx context.Context, competitionCodes []string, matches []entities.Match) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	del, args := deleteDraftStatement(competitionCodes)
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("clearing prior draft matches: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (id, competition_code, division_id, home_team_id, away_team_id, gymnasium_id, match_date, start_time, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'draft')`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range canonicalOrder(matches) {
		if _, err := stmt.ExecContext(ctx, m.ID, m.CompetitionCode, m.DivisionID, m.HomeTeamID, m.AwayTeamID, nullableString(m.GymnasiumID), nullableDate(m.Date), m.StartTime); err != nil {
			return fmt.Errorf("inserting match %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// nullableString maps an unscheduled match's empty venue id to a real SQL
// NULL rather than an empty string.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableDate maps an unscheduled match's zero-value date to a real SQL
// NULL rather than the year-1 sentinel time.Time's zero value formats to.
func nullableDate(d time.Time) any {
	if d.IsZero() {
		return nil
	}
	return d
}

func deleteDraftStatement(competitionCodes []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(competitionCodes))
	for i, code := range competitionCodes {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		args[i] = code
	}
	return fmt.Sprintf(`DELETE FROM matches WHERE status = 'draft' AND competition_code IN (%s)`, placeholders), args
}

// DumpSQL writes a byte-stable text dump of the same statements
// ReplaceDraftMatches would execute, for review or offline application.
func DumpSQL(w io.Writer, competitionCodes []string, matches []entities.Match) error {
	inList := ""
	for i, code := range competitionCodes {
		if i > 0 {
			inList += ", "
		}
		inList += "'" + code + "'"
	}
	if _, err := fmt.Fprintf(w, "DELETE FROM matches WHERE status = 'draft' AND competition_code IN (%s);\n", inList); err != nil {
		return err
	}

	ordered := canonicalOrder(matches)
	if len(ordered) == 0 {
		return nil
	}

	if _, err := fmt.Fprint(w, "INSERT INTO matches (id, competition_code, division_id, home_team_id, away_team_id, gymnasium_id, match_date, start_time, status) VALUES\n"); err != nil {
		return err
	}
	for i, m := range ordered {
		sep := ",\n"
		if i == len(ordered)-1 {
			sep = ";\n"
		}
		if _, err := fmt.Fprintf(w, "  ('%s', '%s', '%s', '%s', '%s', %s, %s, '%s', 'draft')%s",
			m.ID, m.CompetitionCode, m.DivisionID, m.HomeTeamID, m.AwayTeamID,
			sqlLiteralString(m.GymnasiumID), sqlLiteralDate(m.Date), m.StartTime, sep); err != nil {
			return err
		}
	}
	return nil
}

// sqlLiteralString renders a venue id as a quoted literal, or NULL when the
// match has none (an unscheduled pairing).
func sqlLiteralString(s string) string {
	if s == "" {
		return "NULL"
	}
	return "'" + s + "'"
}

// sqlLiteralDate renders a match date as a quoted literal, or NULL when the
// match is unscheduled.
func sqlLiteralDate(d time.Time) string {
	if d.IsZero() {
		return "NULL"
	}
	return "'" + d.Format("2006-01-02") + "'"
}

// canonicalOrder sorts dated (scheduled) matches by (date, start_time,
// division, home, away), then appends null-date (unscheduled) matches
// ordered by (division, home, away) so the dump stays byte-stable without
// a sortable position for a date that doesn't exist.
func canonicalOrder(matches []entities.Match) []entities.Match {
	var dated, undated []entities.Match
	for _, m := range matches {
		if m.Date.IsZero() {
			undated = append(undated, m)
		} else {
			dated = append(dated, m)
		}
	}
	sort.Slice(dated, func(i, j int) bool {
		a, b := dated[i], dated[j]
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
	sort.Slice(undated, func(i, j int) bool {
		a, b := undated[i], undated[j]
		if a.DivisionID != b.DivisionID {
			return a.DivisionID < b.DivisionID
		}
		if a.HomeTeamID != b.HomeTeamID {
			return a.HomeTeamID < b.HomeTeamID
		}
		return a.AwayTeamID < b.AwayTeamID
	})
	return append(dated, undated...)
}
