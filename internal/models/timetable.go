package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/in-nis/timetable-back/internal/grid"
)

type TimetableStatus string

const (
	StatusDraft     TimetableStatus = "Draft"
	StatusPublished TimetableStatus = "Published"
	StatusArchived  TimetableStatus = "Archived"
)

// Timetable is the mutable current record of one level+section schedule.
// The grid and edit counter only change inside the ledger transaction.
type Timetable struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Level          int             `gorm:"not null;index:idx_level_section,unique" json:"level"` // 3..8
	Section        string          `gorm:"size:8;not null;index:idx_level_section,unique" json:"section"`
	Grid           grid.Grid       `gorm:"type:jsonb;not null" json:"grid"`
	EditCounter    int             `gorm:"not null;default:1" json:"edit_counter"`
	PublishCounter int             `gorm:"not null;default:0" json:"publish_counter"`
	Status         TimetableStatus `gorm:"size:16;not null;default:Draft" json:"status"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (t *Timetable) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TimetableHistory is one append-only record of a single accepted edit.
// For a given timetable the history versions are exactly {1..EditCounter},
// no gaps, no duplicates; rows are never updated or deleted.
type TimetableHistory struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TimetableID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_history_version,unique" json:"timetable_id"`
	HistoryVersion int        `gorm:"not null;index:idx_history_version,unique" json:"history_version"`
	Delta          grid.Delta `gorm:"type:jsonb;not null" json:"delta"`
	Timestamp      time.Time  `gorm:"not null" json:"timestamp"`
	AuthorID       string     `gorm:"size:255;not null" json:"author_id"`
	Summary        string     `gorm:"size:255" json:"summary"`
}

func (h *TimetableHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
