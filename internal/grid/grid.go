package grid

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Day is a school weekday. The school week runs Sunday through Thursday.
type Day string

const (
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
)

// Days lists the five school days in week order.
var Days = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday}

// Slot labels a 50-minute teaching period by its start time.
type Slot string

// Slots lists the daily teaching periods in order.
var Slots = []Slot{"08:00", "08:50", "09:40", "10:30", "11:20", "12:10", "13:00", "13:50"}

// KnownDay reports whether d is one of the five school days.
func KnownDay(d Day) bool {
	for _, known := range Days {
		if d == known {
			return true
		}
	}
	return false
}

// KnownSlot reports whether s is one of the fixed teaching periods.
func KnownSlot(s Slot) bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// CourseAssignment is one course placed into a cell.
type CourseAssignment struct {
	CourseCode  string `json:"course_code"`
	DisplayName string `json:"display_name"`
	Location    string `json:"location,omitempty"`
}

// Cell is the content of one (day, slot) coordinate. No assignments means
// the cell is empty; two or more is a conflict marker.
type Cell struct {
	Courses []CourseAssignment `json:"courses,omitempty"`
}

// IsEmpty reports whether the cell holds no assignment.
func (c Cell) IsEmpty() bool { return len(c.Courses) == 0 }

// IsConflict reports whether the cell holds competing assignments.
func (c Cell) IsConflict() bool { return len(c.Courses) > 1 }

// Single returns the sole assignment of a non-conflict, non-empty cell.
func (c Cell) Single() (CourseAssignment, bool) {
	if len(c.Courses) != 1 {
		return CourseAssignment{}, false
	}
	return c.Courses[0], true
}

func sortedAssignments(in []CourseAssignment) []CourseAssignment {
	out := make([]CourseAssignment, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseCode != out[j].CourseCode {
			return out[i].CourseCode < out[j].CourseCode
		}
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// Equal compares two cells structurally. Conflict lists are compared
// order-insensitively so the same set of competing courses is one value.
func (c Cell) Equal(o Cell) bool {
	if len(c.Courses) != len(o.Courses) {
		return false
	}
	a, b := sortedAssignments(c.Courses), sortedAssignments(o.Courses)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Grid is the full weekly cell assignment of one timetable, keyed by day
// then slot. Grids are value types: Set returns a modified copy and never
// mutates the receiver. A missing coordinate reads as the empty cell.
type Grid map[Day]map[Slot]Cell

// New returns an empty grid with all five school days defined.
func New() Grid {
	g := make(Grid, len(Days))
	for _, d := range Days {
		g[d] = map[Slot]Cell{}
	}
	return g
}

// HasDay reports whether the day is defined on the grid at all. The
// constraint validator distinguishes a defined-but-empty day from a day the
// generator dropped entirely.
func (g Grid) HasDay(d Day) bool {
	_, ok := g[d]
	return ok
}

// Get returns the cell at the coordinate. Absent coordinates are empty.
func (g Grid) Get(d Day, s Slot) Cell {
	if g == nil {
		return Cell{}
	}
	return g[d][s]
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for d, slots := range g {
		cp := make(map[Slot]Cell, len(slots))
		for s, c := range slots {
			courses := make([]CourseAssignment, len(c.Courses))
			copy(courses, c.Courses)
			cp[s] = Cell{Courses: courses}
		}
		out[d] = cp
	}
	return out
}

// Set returns a copy of the grid with the cell at (d, s) replaced. Setting
// an empty cell removes the slot entry so empty and absent stay one value.
func (g Grid) Set(d Day, s Slot, c Cell) Grid {
	out := g.Clone()
	if out[d] == nil {
		out[d] = map[Slot]Cell{}
	}
	if c.IsEmpty() {
		delete(out[d], s)
	} else {
		out[d][s] = c
	}
	return out
}

// Equal is deep structural equality over every (day, slot) coordinate.
func (g Grid) Equal(o Grid) bool {
	for _, d := range Days {
		for _, s := range Slots {
			if !g.Get(d, s).Equal(o.Get(d, s)) {
				return false
			}
		}
	}
	return true
}

// StrayCoordinates lists map keys outside the fixed week domain, sorted.
// Diff, Equal and the apply operations only ever visit the fixed
// coordinate set, so a cell parked on a stray key is unrepresentable in
// the ledger and must be rejected before the grid is persisted.
func (g Grid) StrayCoordinates() []string {
	var out []string
	for d, slots := range g {
		if !KnownDay(d) {
			out = append(out, string(d))
			continue
		}
		for s := range slots {
			if !KnownSlot(s) {
				out = append(out, fmt.Sprintf("%s %s", d, s))
			}
		}
	}
	sort.Strings(out)
	return out
}

// CourseCounts tallies how many times each course code appears across the
// whole grid. Conflict cells count every competing course.
func (g Grid) CourseCounts() map[string]int {
	counts := map[string]int{}
	for _, slots := range g {
		for _, cell := range slots {
			for _, a := range cell.Courses {
				counts[a.CourseCode]++
			}
		}
	}
	return counts
}

// Value implements driver.Valuer so gorm can store a grid in a json column.
func (g Grid) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan implements sql.Scanner.
func (g *Grid) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	case nil:
		*g = nil
		return nil
	default:
		return fmt.Errorf("grid: cannot scan %T", src)
	}
}
