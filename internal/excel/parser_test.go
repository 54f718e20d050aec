package excel

import (
	"bytes"
	"testing"

	"github.com/in-nis/timetable-back/internal/grid"
)

func TestGridWriteParseRoundTrip(t *testing.T) {
	g := grid.New().
		Set(grid.Sunday, "08:00", grid.Cell{Courses: []grid.CourseAssignment{
			{CourseCode: "CSC111", DisplayName: "Intro CS", Location: "Lab 1"},
		}}).
		Set(grid.Monday, "09:40", grid.Cell{Courses: []grid.CourseAssignment{
			{CourseCode: "MAT101", DisplayName: "Math"},
		}}).
		Set(grid.Thursday, "13:50", grid.Cell{Courses: []grid.CourseAssignment{
			{CourseCode: "ENG102", DisplayName: "English"},
			{CourseCode: "HIS110", DisplayName: "History", Location: "Room 4"},
		}})

	f, err := WriteGrid(g, "Level 4A")
	if err != nil {
		t.Fatalf("WriteGrid: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	back, err := ParseGrid(&buf)
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if !back.Equal(g) {
		t.Fatal("grid changed across the workbook round trip")
	}
	for _, d := range grid.Days {
		if !back.HasDay(d) {
			t.Fatalf("exported workbook should define every day, missing %s", d)
		}
	}

	cell := back.Get(grid.Thursday, "13:50")
	if !cell.IsConflict() {
		t.Fatal("multi-line cell should read back as a conflict marker")
	}
}

func TestParseCellFormats(t *testing.T) {
	t.Run("code only", func(t *testing.T) {
		c := parseCell("PE100")
		a, ok := c.Single()
		if !ok || a.CourseCode != "PE100" || a.DisplayName != "PE100" {
			t.Fatalf("got %+v", c)
		}
	})

	t.Run("code name and location", func(t *testing.T) {
		c := parseCell("CSC111 - Intro CS @ Lab 1")
		a, ok := c.Single()
		if !ok {
			t.Fatalf("got %+v", c)
		}
		if a.CourseCode != "CSC111" || a.DisplayName != "Intro CS" || a.Location != "Lab 1" {
			t.Fatalf("got %+v", a)
		}
	})

	t.Run("blank lines ignored", func(t *testing.T) {
		c := parseCell("\nCSC111 - Intro CS\n\n")
		if _, ok := c.Single(); !ok {
			t.Fatalf("got %+v", c)
		}
	})
}
