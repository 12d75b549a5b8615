package identity

import (
	"errors"
	"fmt"
)

// Provider error codes reported by the client or produced by the Google flow.
const (
	CodePopupBlocked      = "auth/popup-blocked"
	CodePopupClosedByUser = "auth/popup-closed-by-user"
	CodeCancelledPopup    = "auth/cancelled-popup-request"
	CodeAccessDenied      = "auth/access-denied"
	CodeInvalidState      = "auth/invalid-state"
	CodeExchangeFailed    = "auth/code-exchange-failed"
	CodeUserInfoFailed    = "auth/userinfo-failed"
	CodeInAppBrowser      = "auth/in-app-browser"
	CodeNotConfigured     = "auth/provider-not-configured"
)

var (
	// ErrNoRedirectResult means there is no parked redirect sign-in to consume.
	ErrNoRedirectResult = errors.New("no pending redirect result")
	// ErrSessionRevoked means the session token is well formed but signed out.
	ErrSessionRevoked = errors.New("session signed out")
	// ErrInvalidToken covers malformed, expired or foreign session tokens.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// ProviderError is a sign-in failure classified by provider code.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerError(code, message string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the provider code from err, or "" when err is not a ProviderError.
func ErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}

// IsBenignCancellation reports whether code is a user cancellation that should not
// be rendered as an error banner.
func IsBenignCancellation(code string) bool {
	return code == CodePopupClosedByUser
}

// ShouldFallbackToRedirect reports whether a failed popup attempt should be retried
// as a full-page redirect.
func ShouldFallbackToRedirect(code string) bool {
	switch code {
	case CodePopupBlocked, CodePopupClosedByUser, CodeCancelledPopup:
		return true
	default:
		return false
	}
}
