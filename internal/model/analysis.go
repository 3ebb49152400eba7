package model

import "strings"

// ExtractedInfo holds what the LLM pulled out of the buyer's text.
type ExtractedInfo struct {
	ArticleType         *string  `json:"articleType,omitempty"`
	Topic               *string  `json:"topic,omitempty"`
	WordCount           *float64 `json:"wordCount,omitempty"`
	Deadline            *string  `json:"deadline,omitempty"`
	HasReference        *bool    `json:"hasReference,omitempty"`
	SpecialRequirements []string `json:"specialRequirements"`
}

// ArticleTypeOrEmpty returns the trimmed article type, or "".
func (e ExtractedInfo) ArticleTypeOrEmpty() string {
	if e.ArticleType == nil {
		return ""
	}
	return strings.TrimSpace(*e.ArticleType)
}

// WordCountOrZero returns the extracted word count, or 0.
func (e ExtractedInfo) WordCountOrZero() float64 {
	if e.WordCount == nil {
		return 0
	}
	return *e.WordCount
}

// PriceEstimate is the backend's own rough quote, shown as a reference.
type PriceEstimate struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Basis    *string  `json:"basis,omitempty"`
	CanQuote bool     `json:"canQuote"`
}

// Analysis is the LLM output attached to one buyer message.
type Analysis struct {
	CreatedAt        Timestamp      `json:"createdAt"`
	PriceEstimate    *PriceEstimate `json:"priceEstimate,omitempty"`
	ExtractedInfo    ExtractedInfo  `json:"extractedInfo"`
	SuggestedReplies []string       `json:"suggestedReplies"`
	MissingInfo      []string       `json:"missingInfo"`
	QuickTags        []string       `json:"quickTags,omitempty"`
	ID               int64          `json:"id"`
	SessionID        int64          `json:"sessionId"`
	MessageID        int64          `json:"messageId"`
	CanQuote         bool           `json:"canQuote"`
}

// HasArticleType reports whether an article type was extracted.
func (a *Analysis) HasArticleType() bool {
	return a != nil && a.ExtractedInfo.ArticleTypeOrEmpty() != ""
}

// Reply returns the suggested reply at index i.
func (a *Analysis) Reply(i int) (string, bool) {
	if a == nil || i < 0 || i >= len(a.SuggestedReplies) {
		return "", false
	}
	return a.SuggestedReplies[i], true
}

// AnalyzeResult is what one send-and-analyze round trip returns. The message
// is always persisted; Analysis is nil and Error set when the LLM step failed.
type AnalyzeResult struct {
	Analysis *Analysis `json:"analysis"`
	Error    string    `json:"error,omitempty"`
	Message  Message   `json:"message"`
}
