// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// SessionStatus indicates whether a negotiation is still being worked.
type SessionStatus string

const (
	// SessionActive is a negotiation that is still open.
	SessionActive SessionStatus = "active"
	// SessionClosed is a negotiation the seller has ended.
	SessionClosed SessionStatus = "closed"
)

// DealStatus is the negotiation outcome recorded when a session is closed.
type DealStatus string

const (
	// DealPending means no outcome has been recorded.
	DealPending DealStatus = "pending"
	// DealSuccess means the buyer placed an order.
	DealSuccess DealStatus = "success"
	// DealFailed means the buyer walked away.
	DealFailed DealStatus = "failed"
)

// Valid reports whether d is a known deal status.
func (d DealStatus) Valid() bool {
	switch d {
	case DealPending, DealSuccess, DealFailed:
		return true
	}
	return false
}

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	return s == SessionActive || s == SessionClosed
}

// Role identifies who wrote a message.
type Role string

const (
	// RoleBuyer marks text pasted in from the buyer.
	RoleBuyer Role = "buyer"
	// RoleSeller marks a reply the seller sent.
	RoleSeller Role = "seller"
)

// Message is a single chat line stored by the backend.
type Message struct {
	CreatedAt Timestamp `json:"createdAt"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ID        int64     `json:"id"`
	SessionID int64     `json:"sessionId"`
}

// MessageTurn pairs a message with the analysis it produced, if any.
type MessageTurn struct {
	Analysis *Analysis `json:"analysis"`
	Message  Message   `json:"message"`
}

// Session is one continuous buyer negotiation.
type Session struct {
	CreatedAt          Timestamp           `json:"createdAt"`
	UpdatedAt          Timestamp           `json:"updatedAt"`
	DealPrice          *float64            `json:"dealPrice"`
	ArticleType        *string             `json:"articleType"`
	RequirementSummary *RequirementSummary `json:"requirementSummary"`
	LatestAnalysis     *Analysis           `json:"latestAnalysis"`
	Status             SessionStatus       `json:"status"`
	DealStatus         DealStatus          `json:"dealStatus"`
	Messages           []MessageTurn       `json:"messages"`
	ID                 int64               `json:"id"`
}

// IsClosed reports whether the seller has ended the negotiation.
func (s *Session) IsClosed() bool {
	return s.Status == SessionClosed
}

// EffectiveDealStatus returns the deal status only when it is meaningful.
// Active sessions always report pending.
func (s *Session) EffectiveDealStatus() DealStatus {
	if !s.IsClosed() || s.DealStatus == "" {
		return DealPending
	}
	return s.DealStatus
}

// TurnIndex returns the position of the turn holding messageID, or -1.
func (s *Session) TurnIndex(messageID int64) int {
	for i := range s.Messages {
		if s.Messages[i].Message.ID == messageID {
			return i
		}
	}
	return -1
}

// RecomputeLatestAnalysis points LatestAnalysis at the analysis of the most
// recent buyer turn that has one.
func (s *Session) RecomputeLatestAnalysis() {
	s.LatestAnalysis = nil
	for i := len(s.Messages) - 1; i >= 0; i-- {
		turn := s.Messages[i]
		if turn.Message.Role == RoleBuyer && turn.Analysis != nil {
			s.LatestAnalysis = turn.Analysis
			return
		}
	}
}

// Normalize strips analyses from seller turns and recomputes LatestAnalysis.
func (s *Session) Normalize() {
	for i := range s.Messages {
		if s.Messages[i].Message.Role == RoleSeller {
			s.Messages[i].Analysis = nil
		}
	}
	s.RecomputeLatestAnalysis()
}

// LatestArticleType returns the article type to show for this session,
// preferring the recorded one over the latest extraction.
func (s *Session) LatestArticleType() string {
	if s.ArticleType != nil && *s.ArticleType != "" {
		return *s.ArticleType
	}
	if s.LatestAnalysis != nil && s.LatestAnalysis.ExtractedInfo.ArticleType != nil {
		return *s.LatestAnalysis.ExtractedInfo.ArticleType
	}
	return ""
}

// Validate checks the turn invariants of a session.
func (s *Session) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("session ID must be positive")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid session status %q", s.Status)
	}
	seen := make(map[int64]struct{}, len(s.Messages))
	for i, turn := range s.Messages {
		if turn.Message.Role == RoleSeller && turn.Analysis != nil {
			return fmt.Errorf("seller message %d at index %d carries an analysis", turn.Message.ID, i)
		}
		if turn.Analysis != nil && turn.Analysis.MessageID != 0 && turn.Analysis.MessageID != turn.Message.ID {
			return fmt.Errorf("analysis %d at index %d belongs to message %d", turn.Analysis.ID, i, turn.Analysis.MessageID)
		}
		if _, dup := seen[turn.Message.ID]; dup {
			return fmt.Errorf("duplicate message %d", turn.Message.ID)
		}
		seen[turn.Message.ID] = struct{}{}
	}
	return nil
}

// Clone returns a copy that shares no slices with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]MessageTurn, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// SessionSummary is one row of the session history list.
type SessionSummary struct {
	CreatedAt      Timestamp     `json:"createdAt"`
	UpdatedAt      Timestamp     `json:"updatedAt"`
	DealPrice      *float64      `json:"dealPrice"`
	ArticleType    *string       `json:"articleType"`
	Status         SessionStatus `json:"status"`
	DealStatus     DealStatus    `json:"dealStatus"`
	PreviewMessage string        `json:"previewMessage"`
	ID             int64         `json:"id"`
	MessageCount   int           `json:"messageCount"`
}

// SessionPage is one page of session summaries.
type SessionPage struct {
	Items      []SessionSummary `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// SessionFilter selects which sessions a list query returns.
type SessionFilter struct {
	Status     SessionStatus
	DealStatus DealStatus
	Search     string
	Page       int
	PageSize   int
}

// RequirementSummary is the condensed list of what the buyer asked for.
type RequirementSummary struct {
	WordCount    *int     `json:"wordCount,omitempty"`
	Deadline     *string  `json:"deadline,omitempty"`
	Topic        *string  `json:"topic,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	ArticleType  string   `json:"articleType"`
	Requirements []string `json:"requirements"`
}

// RetentionTemplate is the default line sent to buyers who did not order.
type RetentionTemplate struct {
	CreatedAt Timestamp `json:"createdAt"`
	Content   string    `json:"content"`
	ID        int64     `json:"id"`
	IsDefault bool      `json:"isDefault"`
}

// LLMConfig is forwarded to the backend with every analysis request.
type LLMConfig struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
	ModelID string `json:"modelId"`
}

// IsZero reports whether no usable LLM configuration is present.
func (c LLMConfig) IsZero() bool {
	return c.APIKey == "" || c.ModelID == ""
}

// SessionUpdate carries the fields of a partial session update. Nil fields
// are left unchanged by the backend.
type SessionUpdate struct {
	Status             *SessionStatus
	DealStatus         *DealStatus
	DealPrice          *float64
	ArticleType        *string
	RequirementSummary *RequirementSummary
}

// IsEmpty reports whether the update changes nothing.
func (u SessionUpdate) IsEmpty() bool {
	return u.Status == nil && u.DealStatus == nil && u.DealPrice == nil &&
		u.ArticleType == nil && u.RequirementSummary == nil
}
