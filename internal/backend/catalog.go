package backend

import (
	"context"
	"net/http"

	"github.com/Veraticus/quotedesk/internal/model"
)

type retentionUpdate struct {
	Content string `json:"content"`
}

// ListServices returns the price list.
func (c *Client) ListServices(ctx context.Context) ([]model.ServiceEntry, error) {
	var entries []model.ServiceEntry
	if err := c.get(ctx, "list services", "/services", &entries, nil); err != nil {
		return nil, err
	}
	return entries, nil
}

// RefreshServices makes the backend reload its price list and returns it.
func (c *Client) RefreshServices(ctx context.Context) ([]model.ServiceEntry, error) {
	var entries []model.ServiceEntry
	if err := c.do(ctx, "refresh services", http.MethodPost, "/services/refresh", nil, &entries, nil); err != nil {
		return nil, err
	}
	return entries, nil
}

// RetentionTemplate returns the default retention line.
func (c *Client) RetentionTemplate(ctx context.Context) (*model.RetentionTemplate, error) {
	var tpl model.RetentionTemplate
	if err := c.get(ctx, "get retention template", "/retention-template", &tpl, nil); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// UpdateRetentionTemplate replaces the default retention line.
func (c *Client) UpdateRetentionTemplate(ctx context.Context, content string) error {
	return c.do(ctx, "update retention template", http.MethodPut, "/retention-template",
		retentionUpdate{Content: content}, nil, nil)
}
