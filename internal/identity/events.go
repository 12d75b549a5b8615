package identity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const sessionEventBufferSize = 8

// SessionEventKind tells subscribers whether an identity appeared or went away.
type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is published on every sign-in and sign-out.
type SessionEvent struct {
	UID       string           `json:"uid"`
	SessionID string           `json:"session_id"`
	Kind      SessionEventKind `json:"kind"`
	Method    Method           `json:"method,omitempty"`
	At        time.Time        `json:"at"`
}

type sessionEnvelope struct {
	Source string       `json:"source"`
	Event  SessionEvent `json:"event"`
}

// sessionBroker fans session events out to local subscribers and, when a NATS
// connection is present, to the other API nodes.
type sessionBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan SessionEvent]struct{}
	nats        *nats.Conn
	subject     string
	nodeID      string
	logger      zerolog.Logger
}

func newSessionBroker(conn *nats.Conn, subject, nodeID string, logger zerolog.Logger) *sessionBroker {
	return &sessionBroker{
		subscribers: make(map[string]map[chan SessionEvent]struct{}),
		nats:        conn,
		subject:     subject,
		nodeID:      nodeID,
		logger:      logger,
	}
}

func (b *sessionBroker) subscribe(uid string) (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, sessionEventBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[uid]; !ok {
		b.subscribers[uid] = make(map[chan SessionEvent]struct{})
	}
	b.subscribers[uid][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[uid]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subscribers, uid)
				}
			}
		})
	}
	return ch, cancel
}

func (b *sessionBroker) publish(ev SessionEvent) {
	b.deliver(ev)

	if b.nats == nil || b.subject == "" {
		return
	}
	payload, err := json.Marshal(sessionEnvelope{Source: b.nodeID, Event: ev})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to encode session event")
		return
	}
	if err := b.nats.Publish(b.subject, payload); err != nil {
		b.logger.Warn().Err(err).Str("uid", ev.UID).Msg("failed to publish session event to nats")
	}
}

func (b *sessionBroker) deliver(ev SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[ev.UID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *sessionBroker) start(ctx context.Context) {
	if b.nats == nil || b.subject == "" {
		return
	}

	sub, err := b.nats.Subscribe(b.subject, func(msg *nats.Msg) {
		b.handleRemote(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to session events subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain session events subscription")
		}
	}()
}

func (b *sessionBroker) handleRemote(payload []byte) {
	var envelope sessionEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("invalid session event payload")
		return
	}
	if envelope.Source == b.nodeID || envelope.Event.UID == "" {
		return
	}
	b.deliver(envelope.Event)
}
