package validate

import (
	"fmt"

	"github.com/in-nis/timetable-back/internal/grid"
	"github.com/in-nis/timetable-back/internal/models"
)

// Result carries the outcome of a constraint validation run. Errors holds
// every problem found, in check order; the validator never stops at the
// first failure.
type Result struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Grid checks a candidate grid against the level's course-hour requirements
// and externally fixed reservations. Candidates come from the generation
// oracle or an upload, so nothing about them is trusted.
//
// Checks, in order:
//  1. every school day must be defined on the candidate, and no
//     coordinate may sit outside the fixed week domain
//  2. each required course must appear exactly Duration times
//  3. each reserved coordinate must hold exactly the reserved course
func Grid(g grid.Grid, required []models.CourseRequirement, fixed []models.FixedReservation) Result {
	var errs []string

	for _, d := range grid.Days {
		if !g.HasDay(d) {
			errs = append(errs, fmt.Sprintf("grid is missing day %s", d))
		}
	}
	// Stray coordinates would pass the occurrence count below yet be
	// invisible to the delta engine, so they are a structural error.
	for _, c := range g.StrayCoordinates() {
		errs = append(errs, fmt.Sprintf("grid addresses coordinate outside the school week: %s", c))
	}

	counts := g.CourseCounts()
	for _, req := range required {
		actual := counts[req.CourseCode]
		if actual != req.Duration {
			errs = append(errs, fmt.Sprintf(
				"course %s must appear exactly %d times per week, found %d",
				req.CourseCode, req.Duration, actual))
		}
	}

	for _, r := range fixed {
		cell := g.Get(r.Day, r.Slot)
		if cell.IsEmpty() {
			errs = append(errs, fmt.Sprintf(
				"missing fixed section: %s must be scheduled at %s %s",
				r.CourseCode, r.Day, r.Slot))
			continue
		}
		if !cellHolds(cell, r.CourseCode) {
			errs = append(errs, fmt.Sprintf(
				"conflict at %s %s: reserved for %s but grid has %s",
				r.Day, r.Slot, r.CourseCode, cellCodes(cell)))
		}
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func cellHolds(c grid.Cell, code string) bool {
	single, ok := c.Single()
	return ok && single.CourseCode == code
}

func cellCodes(c grid.Cell) string {
	out := ""
	for i, a := range c.Courses {
		if i > 0 {
			out += ", "
		}
		out += a.CourseCode
	}
	return out
}
