package dto

import "time"

// ManualSignInRequest carries the student id and name typed on the login page.
// Blank values are reported per field by the survey form validator; the tags
// only bound lengths.
type ManualSignInRequest struct {
	StudentID   string `json:"student_id" validate:"max=32"`
	DisplayName string `json:"display_name" validate:"max=64"`
}

// GoogleFallbackRequest reports a failed popup so the flow can continue by redirect.
type GoogleFallbackRequest struct {
	State string `json:"state" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// GoogleCallbackRequest mirrors the query string Google redirects back with.
type GoogleCallbackRequest struct {
	State            string `query:"state"`
	Code             string `query:"code"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}

// ConsentResponse describes where the browser should open the Google consent screen.
type ConsentResponse struct {
	State string `json:"state"`
	URL   string `json:"url"`
	Mode  string `json:"mode"`
}

// SessionResponse is an issued session token.
type SessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Method    string    `json:"login_method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignInResponse is returned by every successful sign-in path.
type SignInResponse struct {
	Session SessionResponse `json:"session"`
	Screen  ScreenResponse  `json:"screen"`
}

// CancelledResponse signals a sign-in the user dismissed; clients show no error.
type CancelledResponse struct {
	Cancelled bool   `json:"cancelled"`
	Code      string `json:"code,omitempty"`
}
