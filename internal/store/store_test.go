package store

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ufolepvolley/scheduler/internal/entities"
)

func TestDumpSQLOrdersRowsCanonically(t *testing.T) {
	matches := []entities.Match{
		{ID: "d1_20250920_001", CompetitionCode: "sm", DivisionID: "d1", HomeTeamID: "b", AwayTeamID: "a",
			GymnasiumID: "g1", Date: time.Date(2025, time.September, 20, 0, 0, 0, 0, time.UTC), StartTime: "18:00"},
		{ID: "d1_20250913_002", CompetitionCode: "sm", DivisionID: "d1", HomeTeamID: "a", AwayTeamID: "c",
			GymnasiumID: "g1", Date: time.Date(2025, time.September, 13, 0, 0, 0, 0, time.UTC), StartTime: "18:00"},
	}

	var buf bytes.Buffer
	if err := DumpSQL(&buf, []string{"sm"}, matches); err != nil {
		t.Fatalf("DumpSQL error: %v", err)
	}

	out := buf.String()
	idxFirst := strings.Index(out, "d1_20250913_002")
	idxSecond := strings.Index(out, "d1_20250920_001")
	if idxFirst == -1 || idxSecond == -1 || idxFirst > idxSecond {
		t.Errorf("expected earlier date to appear first in dump, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "DELETE FROM matches WHERE status = 'draft' AND competition_code IN ('sm');") {
		t.Errorf("expected dump to lead with the draft-scoped DELETE, got:\n%s", out)
	}
}

func TestDumpSQLEmitsNullForUnscheduledDateAndVenue(t *testing.T) {
	matches := []entities.Match{
		{ID: "d1_000_UNSCHEDULED", CompetitionCode: "sm", DivisionID: "d1", HomeTeamID: "a", AwayTeamID: "b"},
	}

	var buf bytes.Buffer
	if err := DumpSQL(&buf, []string{"sm"}, matches); err != nil {
		t.Fatalf("DumpSQL error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "NULL, NULL") {
		t.Errorf("expected venue and date to render as NULL for an unscheduled match, got:\n%s", out)
	}
}

func TestDumpSQLHandlesNoMatches(t *testing.T) {
	var buf bytes.Buffer
	if err := DumpSQL(&buf, []string{"sm"}, nil); err != nil {
		t.Fatalf("DumpSQL error: %v", err)
	}
	if strings.Contains(buf.String(), "INSERT") {
		t.Error("expected no INSERT statement when there are no matches")
	}
}
