// Package excelreport renders a produced schedule into a human-readable
// workbook: a master calendar sheet (one row per date/time, one column per
// gymnasium) and one per-team sheet derived from it via a dynamic-array
// formula.
package excelreport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ufolepvolley/scheduler/internal/entities"
)

// Generate builds a workbook from a universe and the matches scheduled
// against it (both placed and unplaced pairings get a row/mention).
func Generate(universe *entities.Universe, scheduled []entities.Match, unscheduledCount int) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetDefaultFont("Arial")

	lastRow, gymOrder, err := writeMasterSheet(f, universe, scheduled)
	if err != nil {
		return nil, fmt.Errorf("writing master sheet: %w", err)
	}

	teams := allTeamIDs(universe)
	if err := writeTeamSheets(f, teams, gymOrder, lastRow); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}

	if err := writeSummarySheet(f, unscheduledCount, len(scheduled)); err != nil {
		return nil, fmt.Errorf("writing summary sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func allTeamIDs(universe *entities.Universe) []string {
	var ids []string
	for _, div := range universe.Divisions {
		for _, t := range div.Teams {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func gymnasiumColumnName(id string, allIDs []string) string {
	return id
}

func writeMasterSheet(f *excelize.File, universe *entities.Universe, scheduled []entities.Match) (int, []string, error) {
	sheet := "Master Schedule"
	f.NewSheet(sheet)

	var gymIDs []string
	for id := range universe.Gymnasiums {
		gymIDs = append(gymIDs, id)
	}
	sort.Strings(gymIDs)
	gymCols := make([]string, len(gymIDs))
	for i, id := range gymIDs {
		gymCols[i] = gymnasiumColumnName(id, gymIDs)
	}

	headers := []string{"Date", "Day", "Time"}
	headers = append(headers, gymCols...)
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#2E5E3E"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if headerStyle != 0 {
		for i := range headers {
			f.SetCellStyle(sheet, cellRef(i+1, 1), cellRef(i+1, 1), headerStyle)
		}
	}

	cellStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 14, Family: "Arial"}})
	gymCellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Family: "Arial"}, Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	type slotKey struct {
		date time.Time
		time string
		gym  string
	}
	byCell := make(map[slotKey]entities.Match)
	for _, m := range scheduled {
		byCell[slotKey{m.Date, m.StartTime, m.GymnasiumID}] = m
	}

	type timeSlot struct {
		date time.Time
		time string
	}
	seen := make(map[timeSlot]bool)
	var rows []timeSlot
	for _, m := range scheduled {
		ts := timeSlot{m.Date, m.StartTime}
		if !seen[ts] {
			seen[ts] = true
			rows = append(rows, ts)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].date.Equal(rows[j].date) {
			return rows[i].date.Before(rows[j].date)
		}
		return rows[i].time < rows[j].time
	})

	for i, ts := range rows {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), ts.date.Format("02/01/2006"))
		f.SetCellValue(sheet, cellRef(2, row), ts.date.Format("Mon"))
		f.SetCellValue(sheet, cellRef(3, row), ts.time)

		for gi, gymID := range gymIDs {
			col := gi + 4
			if m, ok := byCell[slotKey{ts.date, ts.time, gymID}]; ok {
				f.SetCellValue(sheet, cellRef(col, row), fmt.Sprintf("%s @ %s", m.AwayTeamID, m.HomeTeamID))
			}
		}

		if cellStyle != 0 {
			for col := 1; col <= 3; col++ {
				f.SetCellStyle(sheet, cellRef(col, row), cellRef(col, row), cellStyle)
			}
			for col := 4; col <= len(headers); col++ {
				f.SetCellStyle(sheet, cellRef(col, row), cellRef(col, row), gymCellStyle)
			}
		}
	}

	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 8)
	f.SetColWidth(sheet, "C", "C", 10)
	for i := range gymIDs {
		col := colLetter(i + 4)
		f.SetColWidth(sheet, col, col, 26)
	}

	return len(rows) + 1, gymIDs, nil
}

func writeTeamSheets(f *excelize.File, teams []string, gymIDs []string, lastMasterRow int) error {
	masterSheet := "Master Schedule"

	for _, team := range teams {
		sheet := team
		f.NewSheet(sheet)

		headers := []string{"Date", "Day", "Time", "Gymnasium", "Opponent", "Home/Away", "Match"}
		for i, h := range headers {
			f.SetCellValue(sheet, cellRef(i+1, 1), h)
		}
		headerStyle, _ := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#2E5E3E"}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if headerStyle != 0 {
			for i := range headers {
				f.SetCellStyle(sheet, cellRef(i+1, 1), cellRef(i+1, 1), headerStyle)
			}
		}

		if lastMasterRow > 1 {
			formula := buildTeamFormula(team, masterSheet, gymIDs, lastMasterRow)
			f.SetCellFormula(sheet, "A2", formula)
		}

		cellStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 14, Family: "Arial"}})
		if cellStyle != 0 {
			lastCol := colLetter(len(headers))
			f.SetColStyle(sheet, fmt.Sprintf("A:%s", lastCol), cellStyle)
		}
		widths := map[string]float64{"A": 16, "B": 8, "C": 10, "D": 24, "E": 16, "F": 12, "G": 24}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, unscheduled, scheduledCount int) error {
	sheet := "Summary"
	f.NewSheet(sheet)
	f.SetCellValue(sheet, "A1", "Matches scheduled")
	f.SetCellValue(sheet, "B1", scheduledCount)
	f.SetCellValue(sheet, "A2", "Pairings unscheduled")
	f.SetCellValue(sheet, "B2", unscheduled)
	return nil
}

// buildTeamFormula builds a team sheet's LET/FILTER/HSTACK dynamic-array
// formula over the master sheet's gymnasium columns. Requires Excel 365 /
// Excel 2021+ dynamic-array support.
func buildTeamFormula(team, masterSheet string, gymIDs []string, lastRow int) string {
	ms := fmt.Sprintf("'%s'", masterSheet)
	colRange := func(col string) string {
		return fmt.Sprintf("%s!%s$2:%s$%d", ms, col, col, lastRow)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf(`team,"%s"`, team))
	parts = append(parts, fmt.Sprintf("d,%s", colRange("A")))
	parts = append(parts, fmt.Sprintf("dy,%s", colRange("B")))
	parts = append(parts, fmt.Sprintf("tm,%s", colRange("C")))

	for i := range gymIDs {
		col := colLetter(i + 4)
		parts = append(parts, fmt.Sprintf("c%d,%s", i+1, colRange(col)))
	}
	for i := range gymIDs {
		parts = append(parts, fmt.Sprintf("m%d,ISNUMBER(SEARCH(team,c%d))", i+1, i+1))
	}

	matchExprs := make([]string, len(gymIDs))
	for i := range gymIDs {
		matchExprs[i] = fmt.Sprintf("m%d", i+1)
	}
	found := "FALSE"
	if len(matchExprs) > 0 {
		found = fmt.Sprintf("(%s)>0", strings.Join(matchExprs, "+"))
	}
	parts = append(parts, fmt.Sprintf("found,%s", found))

	gameExpr := `""`
	for i := len(gymIDs) - 1; i >= 0; i-- {
		gameExpr = fmt.Sprintf("IF(m%d,c%d,%s)", i+1, i+1, gameExpr)
	}
	parts = append(parts, fmt.Sprintf("game,%s", gameExpr))

	gymExpr := `""`
	for i := len(gymIDs) - 1; i >= 0; i-- {
		gymExpr = fmt.Sprintf(`IF(m%d,"%s",%s)`, i+1, gymIDs[i], gymExpr)
	}
	parts = append(parts, fmt.Sprintf("gym,%s", gymExpr))

	parts = append(parts, `opp,IFERROR(IF(LEFT(game,FIND(" @ ",game)-1)=team,MID(game,FIND(" @ ",game)+3,100),LEFT(game,FIND(" @ ",game)-1)),"")`)
	parts = append(parts, `ha,IFERROR(IF(LEFT(game,FIND(" @ ",game)-1)=team,"Away","Home"),"")`)

	parts = append(parts, `FILTER(HSTACK(d,dy,tm,gym,opp,ha,game),found,"No matches scheduled")`)

	return "LET(" + strings.Join(parts, ",") + ")"
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
