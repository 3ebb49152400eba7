package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Veraticus/quotedesk/internal/model"
)

type createSessionRequest struct {
	FirstMessage string `json:"firstMessage,omitempty"`
}

type createSessionResponse struct {
	CreatedAt model.Timestamp `json:"createdAt"`
	ID        int64           `json:"id"`
}

// sessionWire is the session detail as the backend encodes it. The
// requirement summary travels as a JSON string.
type sessionWire struct {
	CreatedAt          model.Timestamp     `json:"createdAt"`
	UpdatedAt          model.Timestamp     `json:"updatedAt"`
	DealPrice          *float64            `json:"dealPrice"`
	ArticleType        *string             `json:"articleType"`
	RequirementSummary *string             `json:"requirementSummary"`
	LatestAnalysis     *model.Analysis     `json:"latestAnalysis"`
	Status             model.SessionStatus `json:"status"`
	DealStatus         model.DealStatus    `json:"dealStatus"`
	Messages           []model.MessageTurn `json:"messages"`
	ID                 int64               `json:"id"`
}

func (w *sessionWire) toModel() *model.Session {
	s := &model.Session{
		ID:             w.ID,
		Status:         w.Status,
		DealStatus:     w.DealStatus,
		DealPrice:      w.DealPrice,
		ArticleType:    w.ArticleType,
		Messages:       w.Messages,
		LatestAnalysis: w.LatestAnalysis,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	if s.Messages == nil {
		s.Messages = []model.MessageTurn{}
	}
	if w.RequirementSummary != nil && *w.RequirementSummary != "" {
		var rs model.RequirementSummary
		if err := json.Unmarshal([]byte(*w.RequirementSummary), &rs); err == nil {
			s.RequirementSummary = &rs
		} else {
			// Older records stored free text.
			notes := *w.RequirementSummary
			s.RequirementSummary = &model.RequirementSummary{Notes: &notes, Requirements: []string{}}
		}
	}
	return s
}

type updateSessionRequest struct {
	Status             *model.SessionStatus `json:"status,omitempty"`
	DealStatus         *model.DealStatus    `json:"dealStatus,omitempty"`
	DealPrice          *float64             `json:"dealPrice,omitempty"`
	ArticleType        *string              `json:"articleType,omitempty"`
	RequirementSummary *string              `json:"requirementSummary,omitempty"`
}

type addMessageRequest struct {
	Content string     `json:"content"`
	Role    model.Role `json:"role"`
}

func sessionPath(id int64, suffix string) string {
	return "/sessions/" + strconv.FormatInt(id, 10) + suffix
}

// CreateSession creates a session, optionally seeded with the first buyer
// message, and returns its id.
func (c *Client) CreateSession(ctx context.Context, firstMessage string) (int64, error) {
	var resp createSessionResponse
	err := c.do(ctx, "create session", http.MethodPost, "/sessions",
		createSessionRequest{FirstMessage: firstMessage}, &resp, nil)
	if err != nil {
		return 0, err
	}
	if resp.ID <= 0 {
		return 0, fmt.Errorf("create session: backend returned invalid id %d", resp.ID)
	}
	return resp.ID, nil
}

// ListSessions returns one page of session summaries.
func (c *Client) ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error) {
	query := map[string]string{}
	if filter.Page > 0 {
		query["page"] = strconv.Itoa(filter.Page)
	}
	if filter.PageSize > 0 {
		query["pageSize"] = strconv.Itoa(filter.PageSize)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.DealStatus != "" {
		query["dealStatus"] = string(filter.DealStatus)
	}
	if filter.Search != "" {
		query["search"] = filter.Search
	}

	var page model.SessionPage
	if err := c.get(ctx, "list sessions", "/sessions", &page, query); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []model.SessionSummary{}
	}
	return &page, nil
}

// GetSession fetches a full session with its turns.
func (c *Client) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	var w sessionWire
	if err := c.get(ctx, "get session", sessionPath(id, ""), &w, nil); err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

// UpdateSession applies a partial update.
func (c *Client) UpdateSession(ctx context.Context, id int64, update model.SessionUpdate) error {
	req := updateSessionRequest{
		Status:      update.Status,
		DealStatus:  update.DealStatus,
		DealPrice:   update.DealPrice,
		ArticleType: update.ArticleType,
	}
	if update.RequirementSummary != nil {
		data, err := json.Marshal(update.RequirementSummary)
		if err != nil {
			return fmt.Errorf("update session: failed to encode requirement summary: %w", err)
		}
		s := string(data)
		req.RequirementSummary = &s
	}
	return c.do(ctx, "update session", http.MethodPatch, sessionPath(id, ""), req, nil, nil)
}

// DeleteSession deletes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, "delete session", http.MethodDelete, sessionPath(id, ""), nil, nil, nil)
}

// AddMessage appends a message without analysis.
func (c *Client) AddMessage(ctx context.Context, sessionID int64, role model.Role, content string) (*model.Message, error) {
	var msg model.Message
	err := c.do(ctx, "add message", http.MethodPost, sessionPath(sessionID, "/messages"),
		addMessageRequest{Content: content, Role: role}, &msg, nil)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns every message of a session in order.
func (c *Client) ListMessages(ctx context.Context, sessionID int64) ([]model.Message, error) {
	var msgs []model.Message
	if err := c.get(ctx, "list messages", sessionPath(sessionID, "/messages"), &msgs, nil); err != nil {
		return nil, err
	}
	return msgs, nil
}
