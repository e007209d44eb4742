package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opsgate/internal/recorder/metrics"
	id "opsgate/pkg/domain"
	"opsgate/pkg/requestcontext"
)

// Store is the append-only persistence port for the action log.
type Store interface {
	Append(ctx context.Context, entry *ActionLogEntry) error
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]*ActionLogEntry, error)
}

// defaultInboxSize bounds the number of entries queued ahead of the worker.
const defaultInboxSize = 1024

// Recorder appends action-log entries off the caller's path. Record enqueues
// and returns immediately; a worker goroutine drains the inbox into the
// store. Failures at any stage follow the log-and-continue policy.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan *ActionLogEntry
}

type Option func(*Recorder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithInboxSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.inbox = make(chan *ActionLogEntry, n)
		}
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("action log store is required")
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		inbox:  make(chan *ActionLogEntry, defaultInboxSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record queues one audit entry for the session. It never blocks and never
// returns an error: when the inbox is full the entry is dropped, logged, and
// counted. The primary operation's outcome is unaffected either way.
func (r *Recorder) Record(ctx context.Context, sessionID id.SessionID, actionType, resourceType, resourceID string, details json.RawMessage) {
	entry := &ActionLogEntry{
		ID:           uuid.New(),
		SessionID:    sessionID,
		ActionType:   actionType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		PerformedAt:  requestcontext.Now(ctx),
	}
	select {
	case r.inbox <- entry:
	default:
		if r.metrics != nil {
			r.metrics.EntriesDropped.Inc()
		}
		r.logger.ErrorContext(ctx, "action log inbox full, entry dropped",
			"session_id", sessionID.String(),
			"action_type", actionType,
		)
	}
}

// Run drains the inbox until the context ends, then flushes what is already
// queued. Store failures are swallowed per the log-and-continue policy.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case entry := <-r.inbox:
			r.append(entry)
		}
	}
}

// drain writes out queued entries after shutdown begins, bounded so a wedged
// store cannot stall process exit.
func (r *Recorder) drain() {
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case entry := <-r.inbox:
			if time.Now().After(deadline) {
				return
			}
			r.append(entry)
		default:
			return
		}
	}
}

func (r *Recorder) append(entry *ActionLogEntry) {
	// Fresh context: the originating request is long gone by the time the
	// worker gets here.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.store.Append(ctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.AppendFailures.Inc()
		}
		r.logger.Error("action log append failed, entry lost",
			"error", err,
			"session_id", entry.SessionID.String(),
			"action_type", entry.ActionType,
		)
		return
	}
	if r.metrics != nil {
		r.metrics.EntriesAppended.Inc()
	}
}

// ListBySession reads the audit trail for one session.
func (r *Recorder) ListBySession(ctx context.Context, sessionID id.SessionID) ([]*ActionLogEntry, error) {
	return r.store.ListBySession(ctx, sessionID)
}
