package models

import "gorm.io/gorm"

type User struct {
	ID           string `json:"_id" gorm:"primaryKey;size:36"`
	Username     string `json:"username" gorm:"not null;index"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"column:password;not null"`
	IsAdmin      bool   `json:"isAdmin" gorm:"default:false"`

	Timestamps
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// UserSummary is the public projection of a user embedded in other responses.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
