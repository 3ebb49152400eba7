// Package testutil provides an in-memory backend and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/quotedesk/internal/backend"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
)

// Extractor produces the analysis fields for a buyer message.
type Extractor func(content string) (model.ExtractedInfo, []string)

// FakeBackend is an in-memory stand-in for the REST backend. It records
// every call and lets tests inject failures per operation.
type FakeBackend struct {
	sessions  map[int64]*model.Session
	failures  map[string]error
	gates     map[string]chan struct{}
	entered   map[string]chan struct{}
	retention *model.RetentionTemplate
	extract   Extractor
	// AnalysisError, when set, makes Analyze store the message but report
	// this upstream failure instead of an analysis.
	AnalysisError string
	services      []model.ServiceEntry
	calls         []string
	nextSession   int64
	nextMessage   int64
	nextAnalysis  int64
	mu            sync.Mutex
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		sessions: make(map[int64]*model.Session),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
		extract: func(string) (model.ExtractedInfo, []string) {
			return model.ExtractedInfo{SpecialRequirements: []string{}}, []string{"亲，请问具体要求是什么呢？"}
		},
	}
}

// WithServices sets the price list.
func (f *FakeBackend) WithServices(entries ...model.ServiceEntry) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services = entries
	return f
}

// WithExtractor sets how buyer messages are analyzed.
func (f *FakeBackend) WithExtractor(e Extractor) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extract = e
	return f
}

// WithRetention sets the retention template. Nil makes the endpoint 404.
func (f *FakeBackend) WithRetention(content string) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = &model.RetentionTemplate{ID: 1, Content: content, IsDefault: true}
	return f
}

// FailNext makes the next call of op return err.
func (f *FakeBackend) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// SetAnalysisError sets or clears the upstream analysis failure.
func (f *FakeBackend) SetAnalysisError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AnalysisError = msg
}

// Gate blocks calls of op until the returned release function is called.
// The returned entered channel receives once per blocked call.
func (f *FakeBackend) Gate(op string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	e := make(chan struct{}, 16)
	f.gates[op] = g
	f.entered[op] = e
	var once sync.Once
	return e, func() { once.Do(func() { close(g) }) }
}

// Calls returns the operations invoked so far.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how often op was invoked.
func (f *FakeBackend) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// Seed stores a session as if created earlier and returns its id.
func (f *FakeBackend) Seed(s model.Session) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextSession++
		s.ID = f.nextSession
	} else if s.ID > f.nextSession {
		f.nextSession = s.ID
	}
	if s.Status == "" {
		s.Status = model.SessionActive
	}
	if s.DealStatus == "" {
		s.DealStatus = model.DealPending
	}
	for i := range s.Messages {
		if s.Messages[i].Message.ID > f.nextMessage {
			f.nextMessage = s.Messages[i].Message.ID
		}
	}
	s.RecomputeLatestAnalysis()
	f.sessions[s.ID] = s.Clone()
	return s.ID
}

// Session returns a copy of the stored session.
func (f *FakeBackend) Session(id int64) (*model.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	return s.Clone(), ok
}

// enter records op, honors gates and returns an injected failure, if any.
func (f *FakeBackend) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gates[op]
	entered := f.entered[op]
	err := f.failures[op]
	delete(f.failures, op)
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func notFound(op string) error {
	return &common.HTTPError{Op: op, Status: 404, Detail: "会话不存在"}
}

// CreateSession implements the backend contract.
func (f *FakeBackend) CreateSession(ctx context.Context, firstMessage string) (int64, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSession++
	now := model.NewTimestamp(time.Now())
	s := &model.Session{
		ID:         f.nextSession,
		Status:     model.SessionActive,
		DealStatus: model.DealPending,
		Messages:   []model.MessageTurn{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if firstMessage != "" {
		s.Messages = append(s.Messages, model.MessageTurn{Message: f.newMessageLocked(s.ID, model.RoleBuyer, firstMessage)})
	}
	f.sessions[s.ID] = s
	return s.ID, nil
}

// GetSession implements the backend contract.
func (f *FakeBackend) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	if err := f.enter(ctx, "get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, notFound("get session")
	}
	return s.Clone(), nil
}

// UpdateSession implements the backend contract.
func (f *FakeBackend) UpdateSession(ctx context.Context, id int64, u model.SessionUpdate) error {
	if err := f.enter(ctx, "update"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return notFound("update session")
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.DealStatus != nil {
		s.DealStatus = *u.DealStatus
	}
	if u.DealPrice != nil {
		v := *u.DealPrice
		s.DealPrice = &v
	}
	if u.ArticleType != nil {
		v := *u.ArticleType
		s.ArticleType = &v
	}
	if u.RequirementSummary != nil {
		rs := *u.RequirementSummary
		s.RequirementSummary = &rs
	}
	s.UpdatedAt = model.NewTimestamp(time.Now())
	return nil
}

// DeleteSession implements the backend contract.
func (f *FakeBackend) DeleteSession(ctx context.Context, id int64) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return notFound("delete session")
	}
	delete(f.sessions, id)
	return nil
}

// AddMessage implements the backend contract.
func (f *FakeBackend) AddMessage(ctx context.Context, sessionID int64, role model.Role, content string) (*model.Message, error) {
	if err := f.enter(ctx, "add-message"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, notFound("add message")
	}
	msg := f.newMessageLocked(sessionID, role, content)
	s.Messages = append(s.Messages, model.MessageTurn{Message: msg})
	return &msg, nil
}

// Analyze implements the backend contract.
func (f *FakeBackend) Analyze(ctx context.Context, sessionID int64, req backend.AnalyzeRequest) (*model.AnalyzeResult, error) {
	if err := f.enter(ctx, "analyze"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, notFound("analyze message")
	}

	idx := -1
	if req.MessageID != 0 {
		idx = s.TurnIndex(req.MessageID)
		if idx < 0 {
			return nil, &common.HTTPError{Op: "analyze message", Status: 404, Detail: "消息不存在"}
		}
	} else {
		s.Messages = append(s.Messages, model.MessageTurn{Message: f.newMessageLocked(sessionID, model.RoleBuyer, req.Content)})
		idx = len(s.Messages) - 1
	}
	msg := s.Messages[idx].Message

	if f.AnalysisError != "" {
		return &model.AnalyzeResult{Message: msg, Error: f.AnalysisError}, nil
	}

	info, replies := f.extract(msg.Content)
	f.nextAnalysis++
	a := &model.Analysis{
		ID:               f.nextAnalysis,
		SessionID:        sessionID,
		MessageID:        msg.ID,
		SuggestedReplies: replies,
		ExtractedInfo:    info,
		MissingInfo:      []string{},
		CanQuote:         info.ArticleType != nil,
		CreatedAt:        model.NewTimestamp(time.Now()),
	}
	s.Messages[idx].Analysis = a
	s.RecomputeLatestAnalysis()
	return &model.AnalyzeResult{Message: msg, Analysis: a}, nil
}

// Summarize implements the backend contract.
func (f *FakeBackend) Summarize(ctx context.Context, sessionID int64, _ model.LLMConfig) (*model.RequirementSummary, error) {
	if err := f.enter(ctx, "summarize"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, notFound("summarize requirements")
	}
	rs := &model.RequirementSummary{ArticleType: s.LatestArticleType(), Requirements: []string{}}
	for _, turn := range s.Messages {
		if turn.Message.Role == model.RoleBuyer {
			rs.Requirements = append(rs.Requirements, turn.Message.Content)
		}
	}
	return rs, nil
}

// ListSessions implements the backend contract. Search matches message text.
func (f *FakeBackend) ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error) {
	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0, len(f.sessions))
	for id := range f.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var rows []model.SessionSummary
	for _, id := range ids {
		s := f.sessions[id]
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.DealStatus != "" && s.DealStatus != filter.DealStatus {
			continue
		}
		if filter.Search != "" && !sessionContains(s, filter.Search) {
			continue
		}
		row := model.SessionSummary{
			ID:           s.ID,
			Status:       s.Status,
			DealStatus:   s.DealStatus,
			DealPrice:    s.DealPrice,
			ArticleType:  s.ArticleType,
			MessageCount: len(s.Messages),
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		}
		if len(s.Messages) > 0 {
			row.PreviewMessage = s.Messages[0].Message.Content
		}
		rows = append(rows, row)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	total := len(rows)
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]model.SessionSummary, end-start)
	copy(items, rows[start:end])
	return &model.SessionPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}, nil
}

// ListServices implements the catalog source contract.
func (f *FakeBackend) ListServices(ctx context.Context) ([]model.ServiceEntry, error) {
	if err := f.enter(ctx, "services"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ServiceEntry, len(f.services))
	copy(out, f.services)
	return out, nil
}

// RefreshServices implements the catalog source contract.
func (f *FakeBackend) RefreshServices(ctx context.Context) ([]model.ServiceEntry, error) {
	if err := f.enter(ctx, "refresh-services"); err != nil {
		return nil, err
	}
	return f.ListServices(ctx)
}

// RetentionTemplate implements the backend contract.
func (f *FakeBackend) RetentionTemplate(ctx context.Context) (*model.RetentionTemplate, error) {
	if err := f.enter(ctx, "retention"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retention == nil {
		return nil, &common.HTTPError{Op: "get retention template", Status: 404, Detail: "挽留话术不存在"}
	}
	tpl := *f.retention
	return &tpl, nil
}

// UpdateRetentionTemplate implements the backend contract.
func (f *FakeBackend) UpdateRetentionTemplate(ctx context.Context, content string) error {
	if err := f.enter(ctx, "update-retention"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retention = &model.RetentionTemplate{ID: 1, Content: content, IsDefault: true}
	return nil
}

func (f *FakeBackend) newMessageLocked(sessionID int64, role model.Role, content string) model.Message {
	f.nextMessage++
	return model.Message{
		ID:        f.nextMessage,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: model.NewTimestamp(time.Now()),
	}
}

func sessionContains(s *model.Session, q string) bool {
	for _, turn := range s.Messages {
		if strings.Contains(turn.Message.Content, q) {
			return true
		}
	}
	return s.ArticleType != nil && strings.Contains(*s.ArticleType, q)
}

// ErrTransport is a canned network failure.
var ErrTransport = fmt.Errorf("analyze message: %w: connection refused", common.ErrTransport)
