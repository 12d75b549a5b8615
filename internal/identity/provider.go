// Package identity signs users in with Google or anonymously and manages the
// resulting session tokens.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Method records how an identity signed in.
type Method string

const (
	MethodGoogle Method = "google"
	MethodManual Method = "manual"
)

// Mode selects how the Google consent screen is opened.
type Mode string

const (
	ModePopup    Mode = "popup"
	ModeRedirect Mode = "redirect"
)

// ParseMode defaults to popup for anything but "redirect".
func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeRedirect)) {
		return ModeRedirect
	}
	return ModePopup
}

// googleNamespace scopes the deterministic uids minted for Google subjects.
var googleNamespace = uuid.MustParse("6f1c3c1e-4a0b-5d2e-9a52-3c7b1f0e8d41")

// Identity is a signed-in user together with the optional profile hints the
// provider supplied.
type Identity struct {
	UID         string `json:"uid"`
	Method      Method `json:"method"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Consent is a started Google sign-in.
type Consent struct {
	State string `json:"state"`
	URL   string `json:"url"`
	Mode  Mode   `json:"mode"`
}

// Session is an issued session token.
type Session struct {
	ID        string    `json:"session_id"`
	UID       string    `json:"uid"`
	Method    Method    `json:"method"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider is the identity boundary used by the controller services.
type Provider interface {
	BeginGoogle(ctx context.Context, mode Mode, userAgent string) (Consent, error)
	CompleteGoogle(ctx context.Context, state, code string) (Identity, Mode, error)
	FailGoogle(ctx context.Context, state, code, message string) (Mode, error)
	FallbackToRedirect(ctx context.Context, state, providerCode string) (Consent, error)
	RedirectResult(ctx context.Context, state string) (Identity, error)
	SignInAnonymously(ctx context.Context) (Identity, error)
	IssueSession(ctx context.Context, id Identity) (Session, error)
	Verify(ctx context.Context, token string) (*Claims, error)
	SignOut(ctx context.Context, sessionID, uid string) error
	StagePending(ctx context.Context, id Identity) error
	Pending(ctx context.Context, uid string) (Identity, bool, error)
	ClearPending(ctx context.Context, uid string) error
	Subscribe(uid string) (<-chan SessionEvent, func())
	Start(ctx context.Context)
}

// Config tunes the provider.
type Config struct {
	TokenSecret  string
	TokenIssuer  string
	SessionTTL   time.Duration
	StateTTL     time.Duration
	PendingTTL   time.Duration
	EventSubject string
}

type consentState struct {
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type parkedResult struct {
	Identity *Identity      `json:"identity,omitempty"`
	Error    *ProviderError `json:"error,omitempty"`
}

type service struct {
	google  GoogleClient
	redis   *redis.Client
	tokens  tokenIssuer
	broker  *sessionBroker
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
	newUUID func() string
}

// NewProvider wires a Provider. google may be nil when OAuth is not configured;
// natsConn may be nil for single-node deployments.
func NewProvider(google GoogleClient, redisClient *redis.Client, natsConn *nats.Conn, cfg Config, logger zerolog.Logger) (Provider, error) {
	if redisClient == nil {
		return nil, errors.New("identity provider requires redis")
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("identity provider requires a token secret")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 30 * time.Minute
	}
	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = "survey-api"
	}

	logger = logger.With().Str("component", "identity_provider").Logger()
	s := &service{
		google:  google,
		redis:   redisClient,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newUUID: uuid.NewString,
	}
	s.tokens = tokenIssuer{secret: []byte(cfg.TokenSecret), issuer: cfg.TokenIssuer, ttl: cfg.SessionTTL, now: s.clock}
	s.broker = newSessionBroker(natsConn, cfg.EventSubject, uuid.NewString(), logger)
	return s, nil
}

func (s *service) clock() time.Time {
	return s.now()
}

func (s *service) Start(ctx context.Context) {
	s.broker.start(ctx)
}

func (s *service) BeginGoogle(ctx context.Context, mode Mode, userAgent string) (Consent, error) {
	if IsInAppBrowser(userAgent) {
		return Consent{}, providerError(CodeInAppBrowser, "google sign-in is not available inside in-app browsers", nil)
	}
	if s.google == nil {
		return Consent{}, providerError(CodeNotConfigured, "google sign-in is not configured", nil)
	}

	state := s.newUUID()
	if err := s.saveState(ctx, state, mode); err != nil {
		return Consent{}, err
	}

	return Consent{State: state, URL: s.google.AuthCodeURL(state), Mode: mode}, nil
}

func (s *service) FallbackToRedirect(ctx context.Context, state, providerCode string) (Consent, error) {
	s.logger.Warn().Str("code", providerCode).Str("state", state).Msg("google popup sign-in failed")

	if !ShouldFallbackToRedirect(providerCode) {
		return Consent{}, providerError(providerCode, "popup sign-in failed", nil)
	}
	if s.google == nil {
		return Consent{}, providerError(CodeNotConfigured, "google sign-in is not configured", nil)
	}

	if _, err := s.loadState(ctx, state); err != nil {
		return Consent{}, err
	}
	if err := s.saveState(ctx, state, ModeRedirect); err != nil {
		return Consent{}, err
	}

	s.logger.Info().Str("state", state).Msg("switching google sign-in to redirect")
	return Consent{State: state, URL: s.google.AuthCodeURL(state), Mode: ModeRedirect}, nil
}

func (s *service) CompleteGoogle(ctx context.Context, state, code string) (Identity, Mode, error) {
	consent, err := s.consumeState(ctx, state)
	if err != nil {
		return Identity{}, ModePopup, err
	}
	if s.google == nil {
		return Identity{}, consent.Mode, providerError(CodeNotConfigured, "google sign-in is not configured", nil)
	}

	user, err := s.google.Exchange(ctx, code)
	if err != nil {
		var perr *ProviderError
		if !errors.As(err, &perr) {
			perr = providerError(CodeExchangeFailed, err.Error(), err)
		}
		if consent.Mode == ModeRedirect {
			if parkErr := s.park(ctx, state, parkedResult{Error: perr}); parkErr != nil {
				return Identity{}, consent.Mode, parkErr
			}
		}
		return Identity{}, consent.Mode, perr
	}

	id := Identity{
		UID:         uuid.NewSHA1(googleNamespace, []byte("google:"+user.Subject)).String(),
		Method:      MethodGoogle,
		Email:       strings.TrimSpace(user.Email),
		DisplayName: strings.TrimSpace(user.Name),
		PhotoURL:    strings.TrimSpace(user.Picture),
	}

	if consent.Mode == ModeRedirect {
		if err := s.park(ctx, state, parkedResult{Identity: &id}); err != nil {
			return Identity{}, consent.Mode, err
		}
	}
	return id, consent.Mode, nil
}

// FailGoogle records a consent screen error (for example access_denied) so the
// redirect result reports it once.
func (s *service) FailGoogle(ctx context.Context, state, code, message string) (Mode, error) {
	consent, err := s.consumeState(ctx, state)
	if err != nil {
		return ModePopup, err
	}
	perr := providerError(code, message, nil)
	if consent.Mode == ModeRedirect {
		if err := s.park(ctx, state, parkedResult{Error: perr}); err != nil {
			return consent.Mode, err
		}
	}
	return consent.Mode, perr
}

func (s *service) RedirectResult(ctx context.Context, state string) (Identity, error) {
	if strings.TrimSpace(state) == "" {
		return Identity{}, ErrNoRedirectResult
	}

	raw, err := s.redis.GetDel(ctx, resultKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrNoRedirectResult
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load redirect result: %w", err)
	}

	var parked parkedResult
	if err := json.Unmarshal([]byte(raw), &parked); err != nil {
		return Identity{}, fmt.Errorf("decode redirect result: %w", err)
	}
	if parked.Error != nil {
		return Identity{}, parked.Error
	}
	if parked.Identity == nil {
		return Identity{}, ErrNoRedirectResult
	}
	return *parked.Identity, nil
}

func (s *service) SignInAnonymously(ctx context.Context) (Identity, error) {
	return Identity{UID: s.newUUID(), Method: MethodManual}, nil
}

func (s *service) IssueSession(ctx context.Context, id Identity) (Session, error) {
	if id.UID == "" {
		return Session{}, errors.New("identity uid is required")
	}

	sessionID := s.newUUID()
	token, expires, err := s.tokens.sign(id.UID, sessionID, id.Method)
	if err != nil {
		return Session{}, err
	}

	if err := s.redis.Set(ctx, sessionKey(sessionID), id.UID, s.cfg.SessionTTL).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}

	s.broker.publish(SessionEvent{UID: id.UID, SessionID: sessionID, Kind: SessionSignedIn, Method: id.Method, At: s.now().UTC()})
	return Session{ID: sessionID, UID: id.UID, Method: id.Method, Token: token, ExpiresAt: expires}, nil
}

func (s *service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.parse(token)
	if err != nil {
		return nil, err
	}

	uid, err := s.redis.Get(ctx, sessionKey(claims.SessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if uid != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *service) SignOut(ctx context.Context, sessionID, uid string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.broker.publish(SessionEvent{UID: uid, SessionID: sessionID, Kind: SessionSignedOut, At: s.now().UTC()})
	return nil
}

func (s *service) StagePending(ctx context.Context, id Identity) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, pendingKey(id.UID), payload, s.cfg.PendingTTL).Err(); err != nil {
		return fmt.Errorf("stage pending identity: %w", err)
	}
	return nil
}

func (s *service) Pending(ctx context.Context, uid string) (Identity, bool, error) {
	raw, err := s.redis.Get(ctx, pendingKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("load pending identity: %w", err)
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, false, fmt.Errorf("decode pending identity: %w", err)
	}
	return id, true, nil
}

func (s *service) ClearPending(ctx context.Context, uid string) error {
	return s.redis.Del(ctx, pendingKey(uid)).Err()
}

func (s *service) Subscribe(uid string) (<-chan SessionEvent, func()) {
	return s.broker.subscribe(uid)
}

func (s *service) saveState(ctx context.Context, state string, mode Mode) error {
	payload, err := json.Marshal(consentState{Mode: mode, CreatedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, stateKey(state), payload, s.cfg.StateTTL).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

func (s *service) loadState(ctx context.Context, state string) (consentState, error) {
	raw, err := s.redis.Get(ctx, stateKey(state)).Result()
	return s.decodeState(raw, err)
}

func (s *service) consumeState(ctx context.Context, state string) (consentState, error) {
	if strings.TrimSpace(state) == "" {
		return consentState{}, providerError(CodeInvalidState, "missing oauth state", nil)
	}
	raw, err := s.redis.GetDel(ctx, stateKey(state)).Result()
	return s.decodeState(raw, err)
}

func (s *service) decodeState(raw string, err error) (consentState, error) {
	if errors.Is(err, redis.Nil) {
		return consentState{}, providerError(CodeInvalidState, "unknown or expired oauth state", nil)
	}
	if err != nil {
		return consentState{}, fmt.Errorf("load oauth state: %w", err)
	}

	var consent consentState
	if err := json.Unmarshal([]byte(raw), &consent); err != nil {
		return consentState{}, providerError(CodeInvalidState, "corrupt oauth state", err)
	}
	return consent, nil
}

func (s *service) park(ctx context.Context, state string, result parkedResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, resultKey(state), payload, s.cfg.StateTTL).Err(); err != nil {
		return fmt.Errorf("park redirect result: %w", err)
	}
	return nil
}

func stateKey(state string) string { return "oauth:state:" + state }

func resultKey(state string) string { return "oauth:result:" + state }

func sessionKey(sessionID string) string { return "session:" + sessionID }

func pendingKey(uid string) string { return "identity:pending:" + uid }
