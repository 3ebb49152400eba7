package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
)

// DefaultRetentionLine is offered when no retention template can be loaded.
const DefaultRetentionLine = "亲，看到您还没有下单，是有什么顾虑吗？我们可以再聊聊~"

// SelectReply records text as the reply chosen for buyer message messageID.
// A later selection for the same message replaces the earlier one.
func (s *Store) SelectReply(messageID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return common.NewValidationError("reply", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("select reply: %w", common.ErrNoSession)
	}
	idx := s.current.TurnIndex(messageID)
	if idx < 0 || s.current.Messages[idx].Message.Role != model.RoleBuyer {
		return common.NewValidationError("message", fmt.Sprintf("%d is not a buyer message in session %d", messageID, s.current.ID))
	}
	s.selections[messageID] = text
	return nil
}

// SelectedReply returns the reply chosen for messageID.
func (s *Store) SelectedReply(messageID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.selections[messageID]
	return text, ok
}

// Selections returns a copy of every chosen reply keyed by buyer message id.
func (s *Store) Selections() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.selections))
	for k, v := range s.selections {
		out[k] = v
	}
	return out
}

// AddSellerMessage records a reply the seller sent to the buyer.
func (s *Store) AddSellerMessage(ctx context.Context, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.NewValidationError("message", "must not be empty")
	}
	id, ok := s.SessionID()
	if !ok {
		return nil, fmt.Errorf("add message: %w", common.ErrNoSession)
	}

	msg, err := s.backend.AddMessage(ctx, id, model.RoleSeller, content)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.dropStale(ctx, id)
			return nil, fmt.Errorf("session %d: %w", id, err)
		}
		s.events.Notify(Event{Kind: EventError, Err: err})
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	if msg.SessionID == 0 {
		msg.SessionID = id
	}
	if msg.Role == "" {
		msg.Role = model.RoleSeller
	}
	if err := s.ApplyAnalysisResult(ctx, &model.AnalyzeResult{Message: *msg}); err != nil {
		return msg, err
	}
	return msg, nil
}

// SendReply selects suggested reply index of buyer message messageID and
// records it as sent.
func (s *Store) SendReply(ctx context.Context, messageID int64, index int) (*model.Message, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("send reply: %w", common.ErrNoSession)
	}
	var analysis *model.Analysis
	if idx := s.current.TurnIndex(messageID); idx >= 0 {
		analysis = s.current.Messages[idx].Analysis
	}
	s.mu.Unlock()

	text, ok := analysis.Reply(index)
	if !ok {
		return nil, common.NewValidationError("reply", fmt.Sprintf("message %d has no suggested reply %d", messageID, index))
	}
	if err := s.SelectReply(messageID, text); err != nil {
		return nil, err
	}
	return s.AddSellerMessage(ctx, text)
}

// Summarize asks the backend to condense the current session's requirements.
func (s *Store) Summarize(ctx context.Context, llm model.LLMConfig) (*model.RequirementSummary, error) {
	id, ok := s.SessionID()
	if !ok {
		return nil, fmt.Errorf("summarize: %w", common.ErrNoSession)
	}
	if llm.IsZero() {
		return nil, common.ErrMissingLLMConfig
	}
	rs, err := s.backend.Summarize(ctx, id, llm)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize session %d: %w", id, err)
	}
	return rs, nil
}

// RetentionLine returns the configured retention template, falling back to
// DefaultRetentionLine when it cannot be loaded.
func (s *Store) RetentionLine(ctx context.Context) string {
	tpl, err := s.backend.RetentionTemplate(ctx)
	if err != nil {
		s.logger.Debug("Using built-in retention line", "error", err)
		return DefaultRetentionLine
	}
	if tpl == nil || strings.TrimSpace(tpl.Content) == "" {
		return DefaultRetentionLine
	}
	return tpl.Content
}
