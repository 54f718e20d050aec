package validate

import (
	"strings"
	"testing"

	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
)

func course(code string) grid.Cell {
	return grid.Cell{Courses: []grid.CourseAssignment{{CourseCode: code, DisplayName: code}}}
}

func level4Requirements() []models.CourseRequirement {
	return []models.CourseRequirement{
		{Level: 4, CourseCode: "CSC111", DisplayName: "Intro CS", Duration: 3},
		{Level: 4, CourseCode: "MAT101", DisplayName: "Math", Duration: 2},
	}
}

func validLevel4Grid() grid.Grid {
	return grid.New().
		Set(grid.Sunday, "08:00", course("CSC111")).
		Set(grid.Monday, "08:00", course("CSC111")).
		Set(grid.Tuesday, "08:00", course("CSC111")).
		Set(grid.Wednesday, "08:00", course("MAT101")).
		Set(grid.Thursday, "08:00", course("MAT101"))
}

func TestGridAcceptsValidCandidate(t *testing.T) {
	res := Grid(validLevel4Grid(), level4Requirements(), nil)
	if !res.IsValid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("valid result must carry an empty error list, got %v", res.Errors)
	}
}

func TestGridRejectsMissingDay(t *testing.T) {
	g := validLevel4Grid()
	delete(g, grid.Thursday)
	g = g.Set(grid.Wednesday, "08:50", course("MAT101")) // keep counts right

	res := Grid(g, level4Requirements(), nil)
	if res.IsValid {
		t.Fatal("a dropped day must fail validation, not default to empty")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "missing day Thursday") {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors should name the missing day, got %v", res.Errors)
	}
}

func TestGridOccurrenceCountIsExact(t *testing.T) {
	t.Run("too few", func(t *testing.T) {
		g := validLevel4Grid().Set(grid.Tuesday, "08:00", grid.Cell{})
		res := Grid(g, level4Requirements(), nil)
		if res.IsValid {
			t.Fatal("missing occurrence must fail")
		}
		if !strings.Contains(res.Errors[0], "CSC111 must appear exactly 3 times per week, found 2") {
			t.Fatalf("unexpected error: %v", res.Errors)
		}
	})

	t.Run("too many", func(t *testing.T) {
		g := validLevel4Grid().Set(grid.Tuesday, "08:50", course("MAT101"))
		res := Grid(g, level4Requirements(), nil)
		if res.IsValid {
			t.Fatal("extra occurrence must fail too; the count is exact in both directions")
		}
	})
}

func TestGridReservationChecks(t *testing.T) {
	fixed := []models.FixedReservation{
		{Level: 4, CourseCode: "SRV100", Day: grid.Sunday, Slot: "13:50"},
	}

	t.Run("missing fixed section", func(t *testing.T) {
		res := Grid(validLevel4Grid(), level4Requirements(), fixed)
		if res.IsValid {
			t.Fatal("empty reserved coordinate must fail")
		}
		if !strings.Contains(res.Errors[0], "missing fixed section: SRV100") {
			t.Fatalf("unexpected error: %v", res.Errors)
		}
	})

	t.Run("conflicting course at reserved coordinate", func(t *testing.T) {
		g := validLevel4Grid().
			Set(grid.Sunday, "13:50", course("ART105"))
		res := Grid(g, level4Requirements(), fixed)
		if res.IsValid {
			t.Fatal("different course at reserved coordinate must fail")
		}
		e := res.Errors[0]
		if !strings.Contains(e, "SRV100") || !strings.Contains(e, "ART105") {
			t.Fatalf("conflict error must name both courses, got %q", e)
		}
	})

	t.Run("reservation satisfied", func(t *testing.T) {
		g := validLevel4Grid().Set(grid.Sunday, "13:50", course("SRV100"))
		res := Grid(g, level4Requirements(), fixed)
		if !res.IsValid {
			t.Fatalf("expected valid, got %v", res.Errors)
		}
	})
}

// A required occurrence parked on a coordinate outside the week domain must
// fail validation: the delta engine only visits the fixed coordinate set, so
// such a cell could never be reconstructed from the ledger.
func TestGridRejectsStrayCoordinates(t *testing.T) {
	t.Run("unknown day", func(t *testing.T) {
		g := validLevel4Grid().Set(grid.Tuesday, "08:00", grid.Cell{})
		g["Friday"] = map[grid.Slot]grid.Cell{"08:00": course("CSC111")} // third CSC111 occurrence

		res := Grid(g, level4Requirements(), nil)
		if res.IsValid {
			t.Fatal("a grid with a day outside the school week must fail validation")
		}
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, "outside the school week: Friday") {
				found = true
			}
		}
		if !found {
			t.Fatalf("errors should name the stray day, got %v", res.Errors)
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		g := validLevel4Grid()
		g[grid.Sunday]["23:00"] = course("ART105")

		res := Grid(g, level4Requirements(), nil)
		if res.IsValid {
			t.Fatal("a grid with a slot outside the teaching day must fail validation")
		}
		if !strings.Contains(res.Errors[0], "outside the school week: Sunday 23:00") {
			t.Fatalf("errors should name the stray coordinate, got %v", res.Errors)
		}
	})
}

// A grid short one occurrence AND conflicting with a reservation must report
// both problems; the validator never short-circuits.
func TestGridAccumulatesAllErrors(t *testing.T) {
	fixed := []models.FixedReservation{
		{Level: 4, CourseCode: "SRV100", Day: grid.Sunday, Slot: "13:50"},
	}
	g := validLevel4Grid().
		Set(grid.Tuesday, "08:00", grid.Cell{}).    // CSC111 now 2/3
		Set(grid.Sunday, "13:50", course("ART105")) // wrong course on reservation

	res := Grid(g, level4Requirements(), fixed)
	if res.IsValid {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected both problems reported, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "CSC111") {
		t.Fatalf("first error should be the occurrence mismatch, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[1], "conflict at Sunday 13:50") {
		t.Fatalf("second error should be the reservation conflict, got %v", res.Errors)
	}
}
