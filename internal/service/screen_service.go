package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/flow"
	"github.com/noah-isme/gema-survey-api/internal/identity"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

const (
	screenWatchBufferSize = 8
	screenChannel         = "survey:screen-events"
	screenTxAttempts      = 5
)

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ScreenSnapshot is the per-user screen state kept between requests.
type ScreenSnapshot struct {
	State     flow.State     `json:"state"`
	Prefill   survey.Answers `json:"prefill,omitempty"`
	Score     *survey.Result `json:"score,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SnapshotOption mutates the snapshot stored together with a transition.
type SnapshotOption func(*ScreenSnapshot)

// WithPrefill seeds the survey form of the next needs_survey screen.
func WithPrefill(answers survey.Answers) SnapshotOption {
	return func(s *ScreenSnapshot) {
		s.Prefill = answers.Clone()
	}
}

// WithScore keeps the result shown on the completed screen.
func WithScore(result survey.Result) SnapshotOption {
	return func(s *ScreenSnapshot) {
		r := result
		s.Score = &r
	}
}

// ClearSurveyState drops prefill and score.
func ClearSurveyState() SnapshotOption {
	return func(s *ScreenSnapshot) {
		s.Prefill = nil
		s.Score = nil
	}
}

// ScreenChange is delivered to watchers after every stored transition.
type ScreenChange struct {
	UID   string     `json:"uid"`
	State flow.State `json:"state"`
}

// ScreenService owns the screen state machine of every user.
type ScreenService interface {
	Resolve(ctx context.Context, uid string) (dto.ScreenResponse, error)
	Current(ctx context.Context, uid string) (ScreenSnapshot, error)
	Check(ctx context.Context, uid string, ev flow.Event) error
	Apply(ctx context.Context, uid string, ev flow.Event, opts ...SnapshotOption) (ScreenSnapshot, error)
	Enter(ctx context.Context, uid string, profileComplete bool) (ScreenSnapshot, error)
	Watch(uid string) (<-chan ScreenChange, func())
	Start(ctx context.Context)
}

// PendingReader exposes staged Google identities.
type PendingReader interface {
	Pending(ctx context.Context, uid string) (identity.Identity, bool, error)
}

type screenService struct {
	profiles         repository.ProfileRepository
	pending          PendingReader
	redis            *redis.Client
	catalog          *survey.Catalog
	requireStudentID bool
	ttl              time.Duration
	logger           zerolog.Logger
	tracer           trace.Tracer
	nodeID           string
	now              func() time.Time

	mu       sync.RWMutex
	watchers map[string]map[chan ScreenChange]struct{}
}

type screenEvent struct {
	Source string       `json:"source"`
	Change ScreenChange `json:"change"`
}

// NewScreenService constructs the screen state service. ttl bounds how long
// an idle user's screen state is kept.
func NewScreenService(profiles repository.ProfileRepository, pending PendingReader, redisClient *redis.Client, catalog *survey.Catalog, requireStudentID bool, ttl time.Duration, logger zerolog.Logger) ScreenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &screenService{
		profiles:         profiles,
		pending:          pending,
		redis:            redisClient,
		catalog:          catalog,
		requireStudentID: requireStudentID,
		ttl:              ttl,
		logger:           logger.With().Str("component", "screen_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/screen"),
		nodeID:           uuid.NewString(),
		now:              time.Now,
		watchers:         make(map[string]map[chan ScreenChange]struct{}),
	}
}

func (s *screenService) Start(ctx context.Context) {
	if s.redis != nil {
		go s.consumeRedis(ctx)
	}
}

// Resolve restores the screen of a verified session and renders it.
func (s *screenService) Resolve(ctx context.Context, uid string) (dto.ScreenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "screen.resolve", trace.WithAttributes(attribute.String("survey.user_id", uid)))
	defer span.End()

	snapshot, err := s.Current(ctx, uid)
	if err != nil {
		span.RecordError(err)
		return dto.ScreenResponse{}, err
	}

	profile, err := s.loadProfile(ctx, uid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile read failed")
		return dto.ScreenResponse{}, err
	}
	complete := profile != nil && profile.IsComplete(s.requireStudentID)

	switch snapshot.State {
	case flow.StateLoading:
		snapshot, err = s.restore(ctx, uid, flow.Restored(true, complete))
	case flow.StateAnonymous:
		snapshot, err = s.restore(ctx, uid, flow.SignedIn(complete))
	}
	if err != nil {
		span.RecordError(err)
		return dto.ScreenResponse{}, err
	}

	return s.render(ctx, uid, snapshot, profile)
}

// restore applies a session restore, unless a concurrent request already
// moved the user past loading or anonymous.
func (s *screenService) restore(ctx context.Context, uid string, ev flow.Event) (ScreenSnapshot, error) {
	snapshot, err := s.Apply(ctx, uid, ev)
	if !errors.Is(err, flow.ErrInvalidTransition) {
		return snapshot, err
	}
	current, readErr := s.Current(ctx, uid)
	if readErr != nil {
		return ScreenSnapshot{}, readErr
	}
	if current.State.Authenticated() {
		return current, nil
	}
	return snapshot, err
}

func (s *screenService) Current(ctx context.Context, uid string) (ScreenSnapshot, error) {
	return s.read(ctx, s.redis, uid)
}

func (s *screenService) read(ctx context.Context, getter stringGetter, uid string) (ScreenSnapshot, error) {
	raw, err := getter.Get(ctx, screenKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return ScreenSnapshot{State: flow.StateLoading}, nil
	}
	if err != nil {
		return ScreenSnapshot{}, fmt.Errorf("load screen state: %w", err)
	}

	var snapshot ScreenSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil || !snapshot.State.Valid() {
		s.logger.Warn().Str("uid", uid).Msg("discarding unreadable screen state")
		return ScreenSnapshot{State: flow.StateLoading}, nil
	}
	return snapshot, nil
}

// Check reports whether ev is legal from the current state without storing anything.
func (s *screenService) Check(ctx context.Context, uid string, ev flow.Event) error {
	snapshot, err := s.Current(ctx, uid)
	if err != nil {
		return err
	}
	_, err = flow.Transition(snapshot.State, ev)
	return err
}

// Apply runs the transition as a WATCH/MULTI transaction on the user's key,
// so concurrent requests never overwrite each other's state.
func (s *screenService) Apply(ctx context.Context, uid string, ev flow.Event, opts ...SnapshotOption) (ScreenSnapshot, error) {
	key := screenKey(uid)
	var snapshot ScreenSnapshot

	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, uid)
		if err != nil {
			return err
		}
		snapshot = current

		next, err := flow.Transition(current.State, ev)
		if err != nil {
			return err
		}
		snapshot.State = next
		for _, opt := range opts {
			opt(&snapshot)
		}
		snapshot.UpdatedAt = s.now().UTC()

		payload, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < screenTxAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, flow.ErrInvalidTransition) {
			return snapshot, err
		}
		if err != nil {
			return ScreenSnapshot{}, fmt.Errorf("store screen state: %w", err)
		}

		observability.ScreenTransitions().WithLabelValues(string(ev.Kind), string(snapshot.State)).Inc()
		s.logger.Debug().Str("uid", uid).Str("event", string(ev.Kind)).Str("state", string(snapshot.State)).Msg("screen transition")
		s.notify(ctx, ScreenChange{UID: uid, State: snapshot.State})
		return snapshot, nil
	}

	return ScreenSnapshot{}, fmt.Errorf("screen state of %s kept changing: %w", uid, ErrBusy)
}

// Enter places a freshly signed-in user on the profile or survey screen,
// closing out whatever screen a previous session left behind.
func (s *screenService) Enter(ctx context.Context, uid string, profileComplete bool) (ScreenSnapshot, error) {
	current, err := s.Current(ctx, uid)
	if err != nil {
		return ScreenSnapshot{}, err
	}
	if current.State.Authenticated() {
		if _, err := s.Apply(ctx, uid, flow.On(flow.EventSignedOut), ClearSurveyState()); err != nil {
			return ScreenSnapshot{}, err
		}
	}
	return s.Apply(ctx, uid, flow.SignedIn(profileComplete), ClearSurveyState())
}

func (s *screenService) Watch(uid string) (<-chan ScreenChange, func()) {
	ch := make(chan ScreenChange, screenWatchBufferSize)

	s.mu.Lock()
	if _, ok := s.watchers[uid]; !ok {
		s.watchers[uid] = make(map[chan ScreenChange]struct{})
	}
	s.watchers[uid][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.watchers[uid]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(s.watchers, uid)
				}
			}
		})
	}
}

func (s *screenService) render(ctx context.Context, uid string, snapshot ScreenSnapshot, profile *models.UserProfile) (dto.ScreenResponse, error) {
	resp := dto.ScreenResponse{
		State:          string(snapshot.State),
		CatalogVersion: s.catalog.Version,
	}
	if profile != nil {
		view := toProfileResponse(*profile, s.requireStudentID)
		resp.Profile = &view
	}

	switch snapshot.State {
	case flow.StateNeedsProfile:
		if s.pending != nil {
			staged, ok, err := s.pending.Pending(ctx, uid)
			if err != nil {
				return dto.ScreenResponse{}, err
			}
			if ok {
				resp.Pending = &dto.PendingIdentityResponse{Email: staged.Email, DisplayName: staged.DisplayName, PhotoURL: staged.PhotoURL}
			}
		}
	case flow.StateNeedsSurvey:
		if len(snapshot.Prefill) > 0 {
			resp.Prefill = snapshot.Prefill.Clone()
		}
	case flow.StateCompleted:
		resp.Score = snapshot.Score
	}
	return resp, nil
}

func (s *screenService) loadProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *screenService) notify(ctx context.Context, change ScreenChange) {
	s.deliver(change)

	payload, err := json.Marshal(screenEvent{Source: s.nodeID, Change: change})
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, screenChannel, payload).Err(); err != nil {
		s.logger.Warn().Err(err).Str("uid", change.UID).Msg("failed to publish screen change")
	}
}

func (s *screenService) deliver(change ScreenChange) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.watchers[change.UID] {
		select {
		case ch <- change:
		default:
		}
	}
}

func (s *screenService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, screenChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("screen change subscription closed")
			return
		}

		var event screenEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn().Err(err).Msg("invalid screen change payload")
			continue
		}
		if event.Source == s.nodeID || event.Change.UID == "" {
			continue
		}
		s.deliver(event.Change)
	}
}

func toProfileResponse(profile models.UserProfile, requireStudentID bool) dto.ProfileResponse {
	return dto.ProfileResponse{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		StudentID:   profile.StudentID,
		Course:      profile.Course,
		Email:       profile.Email,
		PhotoURL:    profile.PhotoURL,
		LoginMethod: profile.LoginMethod,
		Complete:    profile.IsComplete(requireStudentID),
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
}

func screenKey(uid string) string { return "survey:screen:" + uid }
