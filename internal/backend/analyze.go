package backend

import (
	"context"
	"net/http"

	"github.com/Veraticus/quotedesk/internal/model"
)

// AnalyzeRequest asks the backend to persist a buyer message and analyze it.
// When MessageID is set the backend re-analyzes that stored message instead
// of appending a new one.
type AnalyzeRequest struct {
	LLMConfig model.LLMConfig `json:"llmConfig"`
	Content   string          `json:"content"`
	Role      model.Role      `json:"role"`
	MessageID int64           `json:"messageId,omitempty"`
}

type summarizeRequest struct {
	LLMConfig model.LLMConfig `json:"llmConfig"`
}

// Analyze sends a buyer message for analysis. A response with Error set is
// not a Go error: the message was stored but the LLM step failed.
func (c *Client) Analyze(ctx context.Context, sessionID int64, req AnalyzeRequest) (*model.AnalyzeResult, error) {
	if req.Role == "" {
		req.Role = model.RoleBuyer
	}
	var result model.AnalyzeResult
	if err := c.do(ctx, "analyze message", http.MethodPost, sessionPath(sessionID, "/analyze"), req, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summarize asks the backend to condense the session's requirements.
func (c *Client) Summarize(ctx context.Context, sessionID int64, llm model.LLMConfig) (*model.RequirementSummary, error) {
	var rs model.RequirementSummary
	err := c.do(ctx, "summarize requirements", http.MethodPost, sessionPath(sessionID, "/summarize"),
		summarizeRequest{LLMConfig: llm}, &rs, nil)
	if err != nil {
		return nil, err
	}
	if rs.Requirements == nil {
		rs.Requirements = []string{}
	}
	return &rs, nil
}

// TestConnection checks that the backend can reach the configured LLM.
func (c *Client) TestConnection(ctx context.Context, llm model.LLMConfig) error {
	return c.do(ctx, "test connection", http.MethodPost, "/test-connection", llm, nil, nil)
}
