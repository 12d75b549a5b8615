package repository

import (
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound reports that no document exists for the requested user.
	ErrNotFound = errors.New("document not found")
	// ErrDecode reports a stored document that exists but cannot be read back
	// into a valid profile or survey response.
	ErrDecode = errors.New("document could not be decoded")
)

func isScanError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
