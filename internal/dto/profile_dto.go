package dto

import "time"

// ProfileRequest completes or edits the profile of the signed-in user.
type ProfileRequest struct {
	DisplayName string `json:"display_name" validate:"max=64"`
	StudentID   string `json:"student_id" validate:"max=32"`
	Course      string `json:"course" validate:"max=64"`
}

// ProfileResponse is the public view of a profile document.
type ProfileResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	StudentID   string    `json:"student_id,omitempty"`
	Course      string    `json:"course,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	LoginMethod string    `json:"login_method"`
	Complete    bool      `json:"complete"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PendingIdentityResponse carries the Google profile hints staged for a user
// who still has to confirm a student id.
type PendingIdentityResponse struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}
