// Package orchestrator drives the send-and-analyze flow for buyer messages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/quotedesk/internal/backend"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/storage"
)

// State is the orchestrator's position in the send flow.
type State int

const (
	// Idle means no send is in flight and nothing failed.
	Idle State = iota
	// Sending means a message is on its way to the backend.
	Sending
	// Failed means the last send did not produce an analysis.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Analyzer sends a buyer message for analysis.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID int64, req backend.AnalyzeRequest) (*model.AnalyzeResult, error)
}

// Sessions is the part of the session store the orchestrator drives.
type Sessions interface {
	SessionID() (int64, bool)
	Create(ctx context.Context, firstMessage string) (int64, error)
	Load(ctx context.Context, id int64) error
	ApplyAnalysisResult(ctx context.Context, res *model.AnalyzeResult) error
}

// PriceUpdater receives extractions that name an article type.
type PriceUpdater interface {
	Update(info model.ExtractedInfo)
}

// Failure describes a send that did not produce an analysis. MessageID is
// set when the backend stored the message before the analysis failed.
type Failure struct {
	Err       error
	Content   string
	Hint      common.Hint
	SessionID int64
	MessageID int64
}

// Snapshot is a consistent view of the orchestrator.
type Snapshot struct {
	Failed    *Failure
	Hint      *common.Hint
	LastError error
	Pending   string
	State     State
}

// EventKind identifies an orchestrator notification.
type EventKind int

const (
	// EventStateChanged fires on every state transition.
	EventStateChanged EventKind = iota
	// EventOpenSettings asks the UI to show the LLM settings.
	EventOpenSettings
)

// Event is delivered to subscribers.
type Event struct {
	Snapshot Snapshot
	Kind     EventKind
}

// Config wires an Orchestrator.
type Config struct {
	Analyzer Analyzer
	Sessions Sessions
	Prices   PriceUpdater
	// State, when set, keeps the last failure across restarts.
	State  storage.Store
	LLM    func() model.LLMConfig
	Logger *slog.Logger
}

// Orchestrator sends buyer messages one at a time and tracks the outcome.
type Orchestrator struct {
	analyzer  Analyzer
	sessions  Sessions
	prices    PriceUpdater
	state     storage.Store
	llm       func() model.LLMConfig
	logger    *slog.Logger
	failed    *Failure
	lastError error
	events    common.Notifier[Event]
	pending   string
	current   State
	mu        sync.Mutex
}

// New creates an idle orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Analyzer == nil || cfg.Sessions == nil {
		return nil, fmt.Errorf("%w: orchestrator needs an analyzer and a session store", common.ErrInvalidConfig)
	}
	llm := cfg.LLM
	if llm == nil {
		llm = func() model.LLMConfig { return model.LLMConfig{} }
	}
	return &Orchestrator{
		analyzer: cfg.Analyzer,
		sessions: cfg.Sessions,
		prices:   cfg.Prices,
		state:    cfg.State,
		llm:      llm,
		logger:   common.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Subscribe registers fn for orchestrator events.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	return o.events.Subscribe(fn)
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{State: o.current, Pending: o.pending, LastError: o.lastError}
	if o.failed != nil {
		f := *o.failed
		snap.Failed = &f
		h := f.Hint
		snap.Hint = &h
	}
	return snap
}

// SendMessage sends content as a new buyer message, creating a session first
// when none is loaded. The returned error is also recorded in the snapshot.
func (o *Orchestrator) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return common.NewValidationError("message", "must not be empty")
	}
	return o.send(ctx, content, 0)
}

// Retry resends the failed message. When the backend already stored it, only
// the analysis is rerun so no duplicate turn appears. The message always goes
// to the session it failed in; only a deleted session starts a new one.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	f := o.failed
	o.mu.Unlock()
	if f == nil {
		return common.ErrNoFailedMessage
	}

	if f.SessionID != 0 {
		if cur, ok := o.sessions.SessionID(); !ok || cur != f.SessionID {
			if err := o.sessions.Load(ctx, f.SessionID); err != nil {
				if !errors.Is(err, common.ErrNotFound) {
					retry := *f
					retry.Err = err
					return o.fail(ctx, o.logger, &retry)
				}
				// Load cleared the stale session, so send starts a fresh one.
				o.logger.Info("Failed message's session is gone, sending as new", "session_id", f.SessionID)
				return o.send(ctx, f.Content, 0)
			}
		}
	}
	return o.send(ctx, f.Content, f.MessageID)
}

// Dismiss drops the failed message and returns to Idle.
func (o *Orchestrator) Dismiss(ctx context.Context) error {
	o.mu.Lock()
	if o.current != Failed {
		o.mu.Unlock()
		return nil
	}
	o.current = Idle
	o.failed = nil
	o.lastError = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return o.persistFailure(ctx, nil)
}

// RestoreFailure reloads a failure kept by an earlier process.
func (o *Orchestrator) RestoreFailure(ctx context.Context) (bool, error) {
	if o.state == nil {
		return false, nil
	}
	saved, err := storage.LoadFailedSend(ctx, o.state)
	if err != nil {
		return false, fmt.Errorf("failed to load failed message: %w", err)
	}
	if saved == nil {
		return false, nil
	}

	o.mu.Lock()
	if o.current == Sending {
		o.mu.Unlock()
		return false, common.ErrBusy
	}
	o.current = Failed
	o.failed = &Failure{
		Content:   saved.Content,
		SessionID: saved.SessionID,
		MessageID: saved.MessageID,
		Hint:      common.ClassifyFailure(saved.Error),
	}
	if saved.Error != "" {
		o.failed.Err = errors.New(saved.Error)
	}
	o.lastError = o.failed.Err
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return true, nil
}

func (o *Orchestrator) send(ctx context.Context, content string, messageID int64) error {
	llm := o.llm()
	if llm.IsZero() {
		o.events.Notify(Event{Kind: EventOpenSettings, Snapshot: o.Snapshot()})
		return common.ErrMissingLLMConfig
	}

	o.mu.Lock()
	if o.current == Sending {
		o.mu.Unlock()
		return common.ErrBusy
	}
	o.current = Sending
	o.pending = content
	o.failed = nil
	o.lastError = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	requestID := uuid.NewString()
	logger := o.logger.With("request_id", requestID)

	sessionID, ok := o.sessions.SessionID()
	if !ok {
		id, err := o.sessions.Create(ctx, "")
		if err != nil {
			return o.fail(ctx, logger, &Failure{Content: content, Err: err})
		}
		sessionID = id
	}

	logger.Debug("Sending message for analysis", "session_id", sessionID, "message_id", messageID)
	res, err := o.analyzer.Analyze(ctx, sessionID, backend.AnalyzeRequest{
		LLMConfig: llm,
		Content:   content,
		Role:      model.RoleBuyer,
		MessageID: messageID,
	})
	if err != nil {
		f := &Failure{Content: content, SessionID: sessionID, Err: err}
		if errors.Is(err, common.ErrNotFound) {
			// The session or the stored message is gone; a retry sends fresh.
			if lerr := o.sessions.Load(ctx, sessionID); lerr != nil {
				f.SessionID = 0
			}
		} else if messageID != 0 {
			f.MessageID = messageID
		}
		return o.fail(ctx, logger, f)
	}

	if aerr := o.sessions.ApplyAnalysisResult(ctx, res); aerr != nil {
		logger.Warn("Failed to merge analysis result", "session_id", sessionID, "error", aerr)
	}

	if res.Analysis == nil {
		msg := res.Error
		if msg == "" {
			msg = "analysis missing from response"
		}
		return o.fail(ctx, logger, &Failure{
			Content:   content,
			SessionID: sessionID,
			MessageID: res.Message.ID,
			Err:       fmt.Errorf("%w: %s", common.ErrUpstreamAnalysis, msg),
		})
	}

	if o.prices != nil && res.Analysis.HasArticleType() {
		o.prices.Update(res.Analysis.ExtractedInfo)
	}

	o.mu.Lock()
	o.current = Idle
	o.pending = ""
	snap = o.snapshotLocked()
	o.mu.Unlock()

	logger.Info("Message analyzed", "session_id", sessionID, "message_id", res.Message.ID, "analysis_id", res.Analysis.ID)
	o.notify(snap)
	if err := o.persistFailure(ctx, nil); err != nil {
		logger.Warn("Failed to clear stored failure", "error", err)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, f *Failure) error {
	f.Hint = common.ClassifyFailure(f.Err.Error())

	o.mu.Lock()
	o.current = Failed
	o.pending = ""
	o.failed = f
	o.lastError = f.Err
	snap := o.snapshotLocked()
	o.mu.Unlock()

	logger.Warn("Message analysis failed",
		"session_id", f.SessionID,
		"message_id", f.MessageID,
		"kind", f.Hint.Kind,
		"error", f.Err)
	o.notify(snap)

	if err := o.persistFailure(ctx, f); err != nil {
		logger.Warn("Failed to store failed message", "error", err)
	}
	return f.Err
}

func (o *Orchestrator) persistFailure(ctx context.Context, f *Failure) error {
	if o.state == nil {
		return nil
	}
	if f == nil {
		return storage.SaveFailedSend(ctx, o.state, nil)
	}
	return storage.SaveFailedSend(ctx, o.state, &storage.FailedSend{
		Content:   f.Content,
		Error:     f.Err.Error(),
		SessionID: f.SessionID,
		MessageID: f.MessageID,
	})
}

func (o *Orchestrator) notify(snap Snapshot) {
	o.events.Notify(Event{Kind: EventStateChanged, Snapshot: snap})
}
