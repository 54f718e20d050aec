package excel

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
)

// -------------------- DOWNLOAD --------------------

// DownloadSheet fetches an exported Google Sheet (the committee keeps the
// shared-section reservations there) to a local file.
func DownloadSheet(url string) (string, error) {
	log.Println("📥 Downloading sheet from:", url)

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	filePath := "reservations.xlsx"
	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	log.Println("✅ Sheet saved to", filePath)
	return filePath, nil
}

// -------------------- GRID IMPORT --------------------

// ParseGrid reads an uploaded timetable workbook into a grid. Layout: row 1
// holds the day names starting at column B, column A holds the slot labels,
// and each cell lists one course per line as "CODE - Name @ Location".
// More than one line in a cell is read as a conflict marker.
func ParseGrid(r io.Reader) (grid.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheetName)
	}

	// Column index -> day, from the header row. Only days actually present
	// in the header become defined on the grid; the validator catches a
	// workbook that dropped a day.
	colToDay := map[int]grid.Day{}
	for colIndex, header := range rows[0] {
		if colIndex == 0 {
			continue
		}
		for _, d := range grid.Days {
			if strings.EqualFold(strings.TrimSpace(header), string(d)) {
				colToDay[colIndex] = d
			}
		}
	}

	g := grid.Grid{}
	for _, d := range colToDay {
		g[d] = map[grid.Slot]grid.Cell{}
	}

	for rowIndex, row := range rows {
		if rowIndex == 0 || len(row) == 0 {
			continue
		}
		slot := grid.Slot(strings.TrimSpace(row[0]))
		if !grid.KnownSlot(slot) {
			if strings.TrimSpace(row[0]) != "" {
				log.Printf("⚠️ Skipped row %d: unknown slot label %q\n", rowIndex+1, row[0])
			}
			continue
		}
		for colIndex, cellValue := range row {
			day, ok := colToDay[colIndex]
			if !ok || strings.TrimSpace(cellValue) == "" {
				continue
			}
			cell := parseCell(cellValue)
			if !cell.IsEmpty() {
				g = g.Set(day, slot, cell)
			}
		}
	}

	return g, nil
}

// parseCell splits "CODE - Name @ Location" lines into assignments.
func parseCell(value string) grid.Cell {
	var cell grid.Cell
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		a := grid.CourseAssignment{}
		if at := strings.LastIndex(line, "@"); at != -1 {
			a.Location = strings.TrimSpace(line[at+1:])
			line = strings.TrimSpace(line[:at])
		}
		if dash := strings.Index(line, " - "); dash != -1 {
			a.CourseCode = strings.TrimSpace(line[:dash])
			a.DisplayName = strings.TrimSpace(line[dash+3:])
		} else {
			a.CourseCode = line
			a.DisplayName = line
		}
		cell.Courses = append(cell.Courses, a)
	}
	return cell
}

// -------------------- GRID EXPORT --------------------

// WriteGrid renders a grid into a workbook in the same layout ParseGrid
// reads.
func WriteGrid(g grid.Grid, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	for i, d := range grid.Days {
		colName, _ := excelize.ColumnNumberToName(i + 2)
		if err := f.SetCellValue(sheetName, colName+"1", string(d)); err != nil {
			return nil, err
		}
	}
	for rowIndex, slot := range grid.Slots {
		row := rowIndex + 2
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), string(slot)); err != nil {
			return nil, err
		}
		for colIndex, d := range grid.Days {
			cell := g.Get(d, slot)
			if cell.IsEmpty() {
				continue
			}
			var lines []string
			for _, a := range cell.Courses {
				line := a.CourseCode
				if a.DisplayName != "" && a.DisplayName != a.CourseCode {
					line += " - " + a.DisplayName
				}
				if a.Location != "" {
					line += " @ " + a.Location
				}
				lines = append(lines, line)
			}
			colName, _ := excelize.ColumnNumberToName(colIndex + 2)
			if err := f.SetCellValue(sheetName, fmt.Sprintf("%s%d", colName, row), strings.Join(lines, "\n")); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// -------------------- RESERVATIONS --------------------

// ParseReservations reads the shared-section sheet: one reservation per row
// as Level | CourseCode | Day | Slot, header on row 1.
func ParseReservations(path string) ([]models.FixedReservation, error) {
	log.Println("📖 Opening reservation sheet:", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	var out []models.FixedReservation
	for rowIndex, row := range rows {
		if rowIndex == 0 || len(row) < 4 {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			log.Printf("⚠️ Skipped reservation row %d: bad level %q\n", rowIndex+1, row[0])
			continue
		}
		slot := grid.Slot(strings.TrimSpace(row[3]))
		if !grid.KnownSlot(slot) {
			log.Printf("⚠️ Skipped reservation row %d: unknown slot %q\n", rowIndex+1, row[3])
			continue
		}
		out = append(out, models.FixedReservation{
			Level:      level,
			CourseCode: strings.TrimSpace(row[1]),
			Day:        grid.Day(strings.TrimSpace(row[2])),
			Slot:       slot,
		})
	}

	log.Printf("🎉 Parsed %d reservations\n", len(out))
	return out, nil
}
