package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "opsgate/pkg/domain"
	"opsgate/pkg/requestcontext"
)

// blockingStore records appends and can be told to fail.
type blockingStore struct {
	mu       sync.Mutex
	entries  []*ActionLogEntry
	failWith error
	appended chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{appended: make(chan struct{}, 64)}
}

func (s *blockingStore) Append(_ context.Context, entry *ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.appended <- struct{}{} }()
	if s.failWith != nil {
		return s.failWith
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *blockingStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]*ActionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ActionLogEntry
	for _, entry := range s.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *blockingStore) stored() []*ActionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ActionLogEntry(nil), s.entries...)
}

type RecorderSuite struct {
	suite.Suite
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) waitAppend(store *blockingStore) {
	select {
	case <-store.appended:
	case <-time.After(2 * time.Second):
		s.FailNow("append did not happen")
	}
}

func (s *RecorderSuite) TestRecord() {
	s.Run("entries flow through the worker into the store", func() {
		store := newBlockingStore()
		rec, err := New(store, slog.Default())
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go rec.Run(ctx)

		t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		sessionID := id.NewSessionID()
		rec.Record(requestcontext.WithTime(context.Background(), t0), sessionID,
			"user.update", "user", "u-42", json.RawMessage(`{"field":"email"}`))
		s.waitAppend(store)

		entries := store.stored()
		s.Require().Len(entries, 1)
		s.Equal(sessionID, entries[0].SessionID)
		s.Equal("user.update", entries[0].ActionType)
		s.Equal(t0, entries[0].PerformedAt)
		s.NotEqual("", entries[0].ID.String())
	})

	s.Run("a failing store never surfaces to the caller", func() {
		store := newBlockingStore()
		store.failWith = errors.New("disk full")
		rec, err := New(store, slog.Default())
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go rec.Run(ctx)

		// Record has no error return by construction; the assertion is that
		// the entry is attempted and lost without panicking.
		rec.Record(context.Background(), id.NewSessionID(), "user.read", "", "", nil)
		s.waitAppend(store)
		s.Empty(store.stored())
	})

	s.Run("a full inbox drops the entry instead of blocking", func() {
		store := newBlockingStore()
		rec, err := New(store, slog.Default(), WithInboxSize(1))
		s.Require().NoError(err)

		// No worker running: the first entry fills the inbox, the second
		// must return immediately.
		done := make(chan struct{})
		go func() {
			rec.Record(context.Background(), id.NewSessionID(), "a", "", "", nil)
			rec.Record(context.Background(), id.NewSessionID(), "b", "", "", nil)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			s.FailNow("Record blocked on a full inbox")
		}
	})

	s.Run("shutdown flushes queued entries", func() {
		store := newBlockingStore()
		rec, err := New(store, slog.Default())
		s.Require().NoError(err)

		sessionID := id.NewSessionID()
		rec.Record(context.Background(), sessionID, "user.read", "", "", nil)
		rec.Record(context.Background(), sessionID, "user.update", "", "", nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec.Run(ctx) // returns after draining

		s.Len(store.stored(), 2)
	})
}

func (s *RecorderSuite) TestListBySession() {
	store := newBlockingStore()
	rec, err := New(store, slog.Default())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	mine := id.NewSessionID()
	rec.Record(context.Background(), mine, "user.read", "user", "u-1", nil)
	rec.Record(context.Background(), id.NewSessionID(), "user.read", "user", "u-2", nil)
	s.waitAppend(store)
	s.waitAppend(store)

	entries, err := rec.ListBySession(context.Background(), mine)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("u-1", entries[0].ResourceID)
}
