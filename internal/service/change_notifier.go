package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/dto"
	"github.com/noah-isme/globalpath-api/internal/models"
	"github.com/noah-isme/globalpath-api/internal/observability"
)

// DefaultNotifierInterval is the polling period used when none is configured.
const DefaultNotifierInterval = 5 * time.Second

const notifierBufferSize = 8

// SubmissionFeed yields the reviewer-visible applications submitted after since.
type SubmissionFeed interface {
	SubmittedSince(ctx context.Context, since time.Time) ([]models.Application, error)
}

// ChangeNotifier counts applications submitted after a reviewer's checkpoint.
//
// Each tick re-reads the visible set and records every application whose submission time is strictly
// after the checkpoint. The recorded set only grows until Acknowledge moves the checkpoint to now, so
// repeated ticks over the same data report the same count and missed ticks lose nothing. When the
// feed fails, the tick evaluates the last successful snapshot instead.
type ChangeNotifier struct {
	reviewerID  uint
	feed        SubmissionFeed
	checkpoints CheckpointStore
	interval    time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	tickMu sync.Mutex

	mu         sync.RWMutex
	checkpoint time.Time
	seen       map[uint]struct{}
	snapshot   []models.Application
	lastTick   time.Time
	stale      bool

	nudge chan struct{}

	subMu       sync.Mutex
	subscribers map[chan dto.ReviewerNotificationResponse]struct{}
}

// NewChangeNotifier constructs a notifier for one reviewer. Call Load before the first Tick.
func NewChangeNotifier(reviewerID uint, feed SubmissionFeed, checkpoints CheckpointStore, interval time.Duration, logger zerolog.Logger) *ChangeNotifier {
	if interval <= 0 {
		interval = DefaultNotifierInterval
	}
	return &ChangeNotifier{
		reviewerID:  reviewerID,
		feed:        feed,
		checkpoints: checkpoints,
		interval:    interval,
		logger:      logger.With().Str("component", "change_notifier").Uint("reviewer_id", reviewerID).Logger(),
		now:         time.Now,
		seen:        make(map[uint]struct{}),
		nudge:       make(chan struct{}, 1),
		subscribers: make(map[chan dto.ReviewerNotificationResponse]struct{}),
	}
}

// Load restores the persisted checkpoint. A reviewer without one starts from now, so the backlog that
// existed before their first session is not reported as new.
func (n *ChangeNotifier) Load(ctx context.Context) error {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()

	at, ok, err := n.checkpoints.Load(ctx, n.reviewerID)
	if err != nil {
		return err
	}
	if !ok {
		at = n.now().UTC()
		if err := n.checkpoints.Save(ctx, n.reviewerID, at); err != nil {
			return err
		}
	}

	n.mu.Lock()
	n.checkpoint = at
	n.seen = make(map[uint]struct{})
	n.mu.Unlock()
	return nil
}

// Tick re-evaluates the visible set against the checkpoint.
func (n *ChangeNotifier) Tick(ctx context.Context) dto.ReviewerNotificationResponse {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()

	n.mu.RLock()
	checkpoint := n.checkpoint
	previous := len(n.seen)
	wasStale := n.stale
	n.mu.RUnlock()

	apps, err := n.feed.SubmittedSince(ctx, checkpoint)
	stale := false
	if err != nil {
		n.logger.Warn().Err(err).Msg("notifier tick using last snapshot")
		n.mu.RLock()
		apps = n.snapshot
		n.mu.RUnlock()
		stale = true
	}

	n.mu.Lock()
	if !stale {
		n.snapshot = apps
	}
	for _, app := range apps {
		if isNewSince(app, n.checkpoint) {
			n.seen[app.ID] = struct{}{}
		}
	}
	n.lastTick = n.now().UTC()
	n.stale = stale
	count := len(n.seen)
	n.mu.Unlock()

	n.record(count)
	state := n.Snapshot()
	if count != previous || stale != wasStale {
		n.broadcast(state)
	}
	return state
}

// Acknowledge advances the checkpoint to now and resets the count. The in-memory reset holds even
// when persisting the checkpoint fails; the error is returned so the caller can retry.
func (n *ChangeNotifier) Acknowledge(ctx context.Context) (dto.ReviewerNotificationResponse, error) {
	n.tickMu.Lock()
	defer n.tickMu.Unlock()

	at := n.now().UTC()
	n.mu.Lock()
	if at.Before(n.checkpoint) {
		at = n.checkpoint
	}
	n.checkpoint = at
	n.seen = make(map[uint]struct{})
	n.mu.Unlock()

	n.record(0)
	state := n.Snapshot()
	n.broadcast(state)

	if err := n.checkpoints.Save(ctx, n.reviewerID, at); err != nil {
		n.logger.Warn().Err(err).Msg("failed to persist notifier checkpoint")
		return state, err
	}
	return state, nil
}

// Snapshot returns the current badge state without polling.
func (n *ChangeNotifier) Snapshot() dto.ReviewerNotificationResponse {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return dto.ReviewerNotificationResponse{
		ReviewerID: n.reviewerID,
		NewCount:   len(n.seen),
		Checkpoint: n.checkpoint,
		LastTick:   n.lastTick,
		Stale:      n.stale,
	}
}

// Nudge requests an early tick. Nudges coalesce while one is pending.
func (n *ChangeNotifier) Nudge() {
	select {
	case n.nudge <- struct{}{}:
	default:
	}
}

// Run ticks on the interval, and on every nudge, until ctx is cancelled.
func (n *ChangeNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Tick(ctx)
		case <-n.nudge:
			n.Tick(ctx)
		}
	}
}

// Subscribe streams badge updates. The returned func unsubscribes and closes the channel.
func (n *ChangeNotifier) Subscribe() (<-chan dto.ReviewerNotificationResponse, func()) {
	ch := make(chan dto.ReviewerNotificationResponse, notifierBufferSize)

	n.subMu.Lock()
	n.subscribers[ch] = struct{}{}
	n.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subMu.Lock()
			delete(n.subscribers, ch)
			n.subMu.Unlock()
			close(ch)
		})
	}
}

func (n *ChangeNotifier) broadcast(state dto.ReviewerNotificationResponse) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for ch := range n.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

func (n *ChangeNotifier) record(count int) {
	observability.NotifierNewApplications().
		WithLabelValues(strconv.FormatUint(uint64(n.reviewerID), 10)).
		Set(float64(count))
}

func isNewSince(app models.Application, checkpoint time.Time) bool {
	if app.Status == models.ApplicationStatusDraft || app.SubmittedAt == nil {
		return false
	}
	return app.SubmittedAt.After(checkpoint)
}

// NotifierRegistry owns one ChangeNotifier per reviewer session.
type NotifierRegistry struct {
	feed        SubmissionFeed
	checkpoints CheckpointStore
	interval    time.Duration
	logger      zerolog.Logger

	mu        sync.Mutex
	notifiers map[uint]*ChangeNotifier
	runCtx    context.Context
}

// NewNotifierRegistry constructs an empty registry.
func NewNotifierRegistry(feed SubmissionFeed, checkpoints CheckpointStore, interval time.Duration, logger zerolog.Logger) *NotifierRegistry {
	if checkpoints == nil {
		checkpoints = NewMemoryCheckpointStore()
	}
	return &NotifierRegistry{
		feed:        feed,
		checkpoints: checkpoints,
		interval:    interval,
		logger:      logger,
		notifiers:   make(map[uint]*ChangeNotifier),
	}
}

// Start runs the polling loop of every current and future notifier until ctx is cancelled.
func (r *NotifierRegistry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runCtx = ctx
	for _, notifier := range r.notifiers {
		go notifier.Run(ctx)
	}
}

// Get returns the reviewer's notifier, creating and loading it on first use. Loading happens outside
// the registry lock; when two sessions race, the first notifier stored wins.
func (r *NotifierRegistry) Get(ctx context.Context, reviewerID uint) (*ChangeNotifier, error) {
	r.mu.Lock()
	notifier, ok := r.notifiers[reviewerID]
	r.mu.Unlock()
	if ok {
		return notifier, nil
	}

	created := NewChangeNotifier(reviewerID, r.feed, r.checkpoints, r.interval, r.logger)
	if err := created.Load(ctx); err != nil {
		return nil, err
	}
	created.Tick(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.notifiers[reviewerID]; ok {
		return existing, nil
	}
	r.notifiers[reviewerID] = created
	if r.runCtx != nil {
		go created.Run(r.runCtx)
	}
	return created, nil
}

// NudgeAll asks every notifier for an early tick.
func (r *NotifierRegistry) NudgeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notifier := range r.notifiers {
		notifier.Nudge()
	}
}

// HandleTransition nudges notifiers when an application enters the review queue.
func (r *NotifierRegistry) HandleTransition(event TransitionEvent) {
	if event.To == models.ApplicationStatusSubmitted {
		r.NudgeAll()
	}
}
