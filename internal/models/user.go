package models

import "time"

const (
	RoleViewer = "viewer"
	RoleEditor = "editor" // timetable committee members
)

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	AccessToken  string    `gorm:"not null"`
	RefreshToken string
	TokenType    string
	Expiry       time.Time

	Role string `gorm:"size:16;default:viewer"`
}
