package models

import (
	"strings"
	"time"
)

// Login methods recorded on a profile.
const (
	LoginMethodGoogle = "google"
	LoginMethodManual = "manual"
)

// UserProfile is the per-user profile document.
type UserProfile struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"user_id" bson:"_id"`
	DisplayName string    `gorm:"size:255" json:"display_name" bson:"display_name"`
	StudentID   string    `gorm:"size:64;index" json:"student_id,omitempty" bson:"student_id,omitempty"`
	Course      string    `gorm:"size:64" json:"course,omitempty" bson:"course,omitempty"`
	Email       string    `gorm:"size:255" json:"email,omitempty" bson:"email,omitempty"`
	PhotoURL    string    `gorm:"size:512" json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	LoginMethod string    `gorm:"size:16;not null" json:"login_method" bson:"login_method"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// TableName keeps the collection name shared with the mongo backend.
func (UserProfile) TableName() string {
	return "users"
}

// IsComplete reports whether the profile lets the user past the profile screen.
func (p UserProfile) IsComplete(requireStudentID bool) bool {
	if strings.TrimSpace(p.DisplayName) == "" {
		return false
	}
	if requireStudentID && strings.TrimSpace(p.StudentID) == "" {
		return false
	}
	return true
}

// ValidLoginMethod reports whether method is one of the known login methods.
func ValidLoginMethod(method string) bool {
	return method == LoginMethodGoogle || method == LoginMethodManual
}
