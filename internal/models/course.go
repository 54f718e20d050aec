package models

import "github.com/in-nis/timetable-back/internal/grid"

// CourseRequirement is a course that must appear on every timetable of the
// level, exactly Duration times per week.
type CourseRequirement struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Level       int    `gorm:"not null;index" json:"level"`
	CourseCode  string `gorm:"size:32;not null" json:"course_code"`
	DisplayName string `gorm:"size:255" json:"display_name"`
	Duration    int    `gorm:"not null" json:"duration"` // weekly occurrences
}

// FixedReservation pins a course to an exact coordinate. These are sections
// scheduled outside this system (shared service courses) and the generator
// must place them exactly where the reservation says.
type FixedReservation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      int       `gorm:"not null;index" json:"level"`
	CourseCode string    `gorm:"size:32;not null" json:"course_code"`
	Day        grid.Day  `gorm:"size:16;not null" json:"day"`
	Slot       grid.Slot `gorm:"size:8;not null" json:"slot"`
}
