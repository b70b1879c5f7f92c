package excelreport

import (
	"testing"
	"time"

	"ufolepvolley/scheduler/internal/entities"
)

func TestGenerateProducesMasterAndTeamSheets(t *testing.T) {
	universe := &entities.Universe{
		Gymnasiums: map[string]entities.Gymnasium{"g1": {ID: "g1", Courts: 1}},
		Divisions: []entities.Division{
			{ID: "d1", Teams: []entities.Team{{ID: "a"}, {ID: "b"}}},
		},
	}
	scheduled := []entities.Match{
		{ID: "m1", HomeTeamID: "a", AwayTeamID: "b", GymnasiumID: "g1", Date: time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC), StartTime: "18:00"},
	}

	f, err := Generate(universe, scheduled, 1)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	sheets := f.GetSheetList()
	want := map[string]bool{"Master Schedule": false, "a": false, "b": false, "Summary": false}
	for _, s := range sheets {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected sheet %q to exist, got sheets %v", name, sheets)
		}
	}
}
