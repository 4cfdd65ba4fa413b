package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TransitionEvent announces an applied lifecycle transition to other components and nodes.
type TransitionEvent struct {
	ApplicationID uint      `json:"application_id"`
	StudentID     uint      `json:"student_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
}

// EventPublisher fans transition events out.
type EventPublisher interface {
	PublishTransition(ctx context.Context, event TransitionEvent) error
}

// TransitionHandler reacts to a transition event. Handlers run on the publishing goroutine and must not block.
type TransitionHandler func(event TransitionEvent)

type transitionEnvelope struct {
	Source string          `json:"source"`
	Event  TransitionEvent `json:"event"`
	SentAt time.Time       `json:"sent_at"`
}

// EventBus delivers transition events to local handlers and, when configured, to peer nodes over
// a redis channel and a NATS subject. Events published by this node are not delivered twice.
type EventBus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu       sync.RWMutex
	handlers []TransitionHandler
}

// NewEventBus constructs the bus. Either transport may be nil.
func NewEventBus(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *EventBus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":transitions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".transitions"
	}

	return &EventBus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_bus").Logger(),
		nodeID:       uuid.NewString(),
	}
}

// Subscribe registers a local handler.
func (b *EventBus) Subscribe(handler TransitionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Start consumes events from peer nodes until ctx is cancelled.
func (b *EventBus) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

// PublishTransition dispatches locally first, then to the configured transports.
func (b *EventBus) PublishTransition(ctx context.Context, event TransitionEvent) error {
	b.dispatch(event)

	payload, err := json.Marshal(transitionEnvelope{Source: b.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *EventBus) dispatch(event TransitionEvent) {
	b.mu.RLock()
	handlers := append([]TransitionHandler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (b *EventBus) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			b.logger.Error().Err(err).Msg("transition redis subscription closed")
			return
		}
		b.handlePayload([]byte(msg.Payload))
	}
}

func (b *EventBus) consumeNATS(ctx context.Context) {
	// Every node must see every event, so no queue group.
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handlePayload(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats transitions subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain transition nats subscription")
		}
	}()
}

func (b *EventBus) handlePayload(payload []byte) {
	var envelope transitionEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("invalid transition event payload")
		return
	}
	if envelope.Source == b.nodeID {
		return
	}
	b.dispatch(envelope.Event)
}
