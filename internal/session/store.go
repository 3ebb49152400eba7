// Package session holds the negotiation currently being worked.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/storage"
)

// NotFoundNotice is shown briefly when a stored or requested session is gone.
const NotFoundNotice = "会话不存在或已被删除"

// Backend is the subset of the REST client the store needs.
type Backend interface {
	CreateSession(ctx context.Context, firstMessage string) (int64, error)
	GetSession(ctx context.Context, id int64) (*model.Session, error)
	UpdateSession(ctx context.Context, id int64, update model.SessionUpdate) error
	DeleteSession(ctx context.Context, id int64) error
	AddMessage(ctx context.Context, sessionID int64, role model.Role, content string) (*model.Message, error)
	Summarize(ctx context.Context, sessionID int64, llm model.LLMConfig) (*model.RequirementSummary, error)
	RetentionTemplate(ctx context.Context) (*model.RetentionTemplate, error)
}

// EventKind identifies a store change.
type EventKind int

const (
	// EventLoaded fires after a session replaced the current one.
	EventLoaded EventKind = iota
	// EventUpdated fires after the current session changed in place.
	EventUpdated
	// EventCleared fires after the current session was dropped.
	EventCleared
	// EventNotFound fires when a requested session no longer exists.
	EventNotFound
	// EventError fires when a backend call failed.
	EventError
)

// Event describes a store change. Session is a copy and may be nil.
type Event struct {
	Session *model.Session
	Err     error
	Notice  string
	Kind    EventKind
}

// Store is the single source of truth for the current session.
type Store struct {
	backend    Backend
	state      storage.Store
	logger     *slog.Logger
	current    *model.Session
	selections map[int64]string
	events     common.Notifier[Event]
	mu         sync.Mutex
	creating   bool
}

// NewStore creates a store with no current session.
func NewStore(backend Backend, state storage.Store, logger *slog.Logger) *Store {
	if state == nil {
		state = storage.NewMemoryStore()
	}
	return &Store{
		backend:    backend,
		state:      state,
		logger:     common.LoggerOrDefault(logger),
		selections: make(map[int64]string),
	}
}

// Subscribe registers fn for store events.
func (s *Store) Subscribe(fn func(Event)) func() {
	return s.events.Subscribe(fn)
}

// Current returns a copy of the current session, or nil.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// SessionID returns the id of the current session.
func (s *Store) SessionID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, false
	}
	return s.current.ID, true
}

// Restore loads the session named by the stored pointer. A missing, malformed
// or stale pointer leaves the store empty and is not an error.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	id, ok, err := storage.CurrentSessionID(ctx, s.state)
	if err != nil {
		return false, fmt.Errorf("failed to read session pointer: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.Load(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Load fetches session id and makes it current. A missing session clears the
// stored pointer and leaves no session loaded.
func (s *Store) Load(ctx context.Context, id int64) error {
	sess, err := s.backend.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.dropStale(ctx, id)
			return fmt.Errorf("session %d: %w", id, err)
		}
		s.events.Notify(Event{Kind: EventError, Err: err})
		return fmt.Errorf("failed to load session %d: %w", id, err)
	}

	sess.Normalize()
	if verr := sess.Validate(); verr != nil {
		s.logger.Warn("Loaded session violates turn invariants", "session_id", id, "error", verr)
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != sess.ID {
		s.selections = make(map[int64]string)
	}
	s.current = sess
	snapshot := sess.Clone()
	s.mu.Unlock()

	s.persistPointer(ctx, sess.ID)
	s.events.Notify(Event{Kind: EventLoaded, Session: snapshot})
	return nil
}

func (s *Store) dropStale(ctx context.Context, id int64) {
	s.mu.Lock()
	s.current = nil
	s.selections = make(map[int64]string)
	s.mu.Unlock()

	if err := storage.ClearCurrentSessionID(ctx, s.state); err != nil {
		s.logger.Warn("Failed to clear session pointer", "error", err)
	}
	s.logger.Info("Session no longer exists", "session_id", id)
	s.events.Notify(Event{Kind: EventNotFound, Notice: NotFoundNotice})
}

func (s *Store) persistPointer(ctx context.Context, id int64) {
	if err := storage.SetCurrentSessionID(ctx, s.state, id); err != nil {
		s.logger.Warn("Failed to persist session pointer", "session_id", id, "error", err)
	}
}

// Create allocates a new session and loads it. Only one creation may be in
// flight at a time.
func (s *Store) Create(ctx context.Context, firstMessage string) (int64, error) {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return 0, fmt.Errorf("create session: %w", common.ErrBusy)
	}
	s.creating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.creating = false
		s.mu.Unlock()
	}()

	id, err := s.backend.CreateSession(ctx, strings.TrimSpace(firstMessage))
	if err != nil {
		s.events.Notify(Event{Kind: EventError, Err: err})
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.Load(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// ApplyAnalysisResult merges a send-and-analyze result into the current
// session, re-fetching when the result cannot be merged in place.
func (s *Store) ApplyAnalysisResult(ctx context.Context, res *model.AnalyzeResult) error {
	if res == nil {
		return nil
	}
	msg := res.Message

	s.mu.Lock()
	cur := s.current
	if cur == nil || (msg.SessionID != 0 && msg.SessionID != cur.ID) {
		s.mu.Unlock()
		target := msg.SessionID
		if target == 0 && cur != nil {
			target = cur.ID
		}
		if target == 0 {
			return common.ErrNoSession
		}
		return s.Load(ctx, target)
	}

	next := cur.Clone()
	if !mergeTurn(next, msg, res.Analysis) {
		id := cur.ID
		s.mu.Unlock()
		s.logger.Debug("Analysis result not mergeable, reloading", "session_id", id, "message_id", msg.ID)
		return s.Load(ctx, id)
	}
	s.current = next
	snapshot := next.Clone()
	s.mu.Unlock()

	if res.Error != "" {
		s.logger.Info("Message stored without analysis", "session_id", next.ID, "message_id", msg.ID, "error", res.Error)
	}
	s.events.Notify(Event{Kind: EventUpdated, Session: snapshot})
	return nil
}

// mergeTurn attaches analysis to the turn holding msg, appending the turn when
// it is new. It returns false when the result would break turn ordering.
func mergeTurn(sess *model.Session, msg model.Message, analysis *model.Analysis) bool {
	if msg.ID == 0 {
		return false
	}
	if analysis != nil && analysis.MessageID != 0 && analysis.MessageID != msg.ID {
		return false
	}
	if msg.Role == model.RoleSeller {
		analysis = nil
	}

	if idx := sess.TurnIndex(msg.ID); idx >= 0 {
		if analysis != nil {
			sess.Messages[idx].Analysis = analysis
		}
	} else {
		if n := len(sess.Messages); n > 0 && sess.Messages[n-1].Message.ID > msg.ID {
			return false
		}
		sess.Messages = append(sess.Messages, model.MessageTurn{Message: msg, Analysis: analysis})
	}

	if !msg.CreatedAt.IsZero() && msg.CreatedAt.After(sess.UpdatedAt.Time) {
		sess.UpdatedAt = msg.CreatedAt
	}
	sess.RecomputeLatestAnalysis()
	return true
}

// EndRequest records the outcome of a negotiation.
type EndRequest struct {
	DealPrice          *float64
	RequirementSummary *model.RequirementSummary
	ArticleType        string
	DealStatus         model.DealStatus
}

// EndSession closes the current session with the given outcome and reloads it.
func (s *Store) EndSession(ctx context.Context, req EndRequest) error {
	id, ok := s.SessionID()
	if !ok {
		return fmt.Errorf("end session: %w", common.ErrNoSession)
	}
	if !req.DealStatus.Valid() {
		return common.NewValidationError("deal status", fmt.Sprintf("unknown value %q", req.DealStatus))
	}
	if req.DealPrice != nil && *req.DealPrice < 0 {
		return common.NewValidationError("deal price", "must not be negative")
	}

	closed := model.SessionClosed
	deal := req.DealStatus
	update := model.SessionUpdate{
		Status:             &closed,
		DealStatus:         &deal,
		DealPrice:          req.DealPrice,
		RequirementSummary: req.RequirementSummary,
	}
	if t := strings.TrimSpace(req.ArticleType); t != "" {
		update.ArticleType = &t
	}

	if err := s.backend.UpdateSession(ctx, id, update); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.dropStale(ctx, id)
			return fmt.Errorf("session %d: %w", id, err)
		}
		s.events.Notify(Event{Kind: EventError, Err: err})
		return fmt.Errorf("failed to end session %d: %w", id, err)
	}
	return s.Load(ctx, id)
}

// Clear drops the current session and selections and removes the stored
// pointer. Backend state is untouched. Calling Clear twice is harmless.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.selections = make(map[int64]string)
	s.mu.Unlock()

	if err := storage.ClearCurrentSessionID(ctx, s.state); err != nil {
		return fmt.Errorf("failed to clear session pointer: %w", err)
	}
	if had {
		s.events.Notify(Event{Kind: EventCleared})
	}
	return nil
}

// Delete removes session id from the backend, clearing it if it is current.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	if cur, ok := s.SessionID(); ok && cur == id {
		return s.Clear(ctx)
	}
	return nil
}
