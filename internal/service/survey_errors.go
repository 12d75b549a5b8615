package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

var (
	// ErrBusy indicates another submit or profile save of the same user is in flight.
	ErrBusy = errors.New("another request for this user is in progress")
	// ErrNothingToEdit indicates the user has no stored survey response.
	ErrNothingToEdit = errors.New("no survey response to edit")
)

// ProfileWriteError wraps a store failure on the first profile write after a
// sign-in. Its detail is shown to the user, unlike other store failures.
type ProfileWriteError struct {
	Err error
}

func (e *ProfileWriteError) Error() string {
	return fmt.Sprintf("failed to save profile: %v", e.Err)
}

func (e *ProfileWriteError) Unwrap() error {
	return e.Err
}

// Actor is the verified caller of a session-protected operation.
type Actor struct {
	UID       string
	SessionID string
	Method    identity.Method
}

// NewValidator returns a validator that reports json field names, so tag
// failures line up with the survey form's per-field errors.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return validate
}

// fieldErrorsFromValidator turns struct tag failures into per-field messages.
func fieldErrorsFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := survey.FieldErrors{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "필수 항목입니다."
		case "max":
			fields[fe.Field()] = fmt.Sprintf("%s자 이하로 입력해 주세요.", fe.Param())
		default:
			fields[fe.Field()] = "올바르지 않은 값입니다."
		}
	}
	return fields
}

// busyLock serialises writes of one user across API nodes.
type busyLock struct {
	redis *redis.Client
	ttl   time.Duration
}

func (l busyLock) acquire(ctx context.Context, uid string) (func(), error) {
	key := "survey:busy:" + uid
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire busy lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		// Only release our own lock; an expired one may have been retaken.
		current, err := l.redis.Get(context.Background(), key).Result()
		if err == nil && current == token {
			l.redis.Del(context.Background(), key)
		}
	}, nil
}
