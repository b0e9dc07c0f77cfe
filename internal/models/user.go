package models

import "time"

// User is a registered diary owner.
type User struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)"`
	Email             string    `gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash      string    `gorm:"type:varchar(255);not null"` // never serialized
	IsVerified        bool      `gorm:"not null;default:false"`
	VerificationToken *string   `gorm:"uniqueIndex;type:varchar(128)"` // set iff !IsVerified
	CreatedAt         time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime:false"`
}

// UserView is the public projection of a User.
type UserView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// View projects the user for responses.
func (u *User) View() UserView {
	return UserView{ID: u.ID, Email: u.Email, IsVerified: u.IsVerified}
}
