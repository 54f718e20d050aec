package grid

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Change records how a single coordinate moved between two grid states.
// A nil side means the cell was absent (creation or deletion of content).
type Change struct {
	Day  Day   `json:"day"`
	Slot Slot  `json:"slot"`
	Old  *Cell `json:"old,omitempty"`
	New  *Cell `json:"new,omitempty"`
}

// Delta is a sparse structural difference between two grids: one Change per
// coordinate whose cell differs, nothing for coordinates that match. Its
// size is proportional to the edit, never to the grid.
type Delta []Change

// IsEmpty reports whether the delta changes nothing. Callers must treat an
// empty delta as "no-op, do not write a history entry".
func (d Delta) IsEmpty() bool { return len(d) == 0 }

func cellPtr(c Cell) *Cell {
	if c.IsEmpty() {
		return nil
	}
	cp := Cell{Courses: make([]CourseAssignment, len(c.Courses))}
	copy(cp.Courses, c.Courses)
	return &cp
}

func cellVal(p *Cell) Cell {
	if p == nil {
		return Cell{}
	}
	return *p
}

// Diff computes the sparse difference transforming a into b. Coordinates
// are visited in week order then slot order so the encoding is stable.
func Diff(a, b Grid) Delta {
	var d Delta
	for _, day := range Days {
		for _, slot := range Slots {
			oldCell, newCell := a.Get(day, slot), b.Get(day, slot)
			if oldCell.Equal(newCell) {
				continue
			}
			d = append(d, Change{
				Day:  day,
				Slot: slot,
				Old:  cellPtr(oldCell),
				New:  cellPtr(newCell),
			})
		}
	}
	return d
}

// ApplyForward replays the delta onto g, setting every changed coordinate
// to its new side. ApplyForward(a, Diff(a, b)) equals b.
func ApplyForward(g Grid, d Delta) Grid {
	out := g.Clone()
	for _, ch := range d {
		out = out.Set(ch.Day, ch.Slot, cellVal(ch.New))
	}
	return out
}

// ApplyReverse rolls the delta back, setting every changed coordinate to
// its old side. This is the operation used to walk backward through
// history: ApplyReverse(b, Diff(a, b)) equals a.
func ApplyReverse(g Grid, d Delta) Grid {
	out := g.Clone()
	for _, ch := range d {
		out = out.Set(ch.Day, ch.Slot, cellVal(ch.Old))
	}
	return out
}

// Value implements driver.Valuer so gorm can store a delta in a json column.
func (d Delta) Value() (driver.Value, error) {
	if d == nil {
		return json.Marshal(Delta{})
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *Delta) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = nil
		return nil
	default:
		return fmt.Errorf("delta: cannot scan %T", src)
	}
}
