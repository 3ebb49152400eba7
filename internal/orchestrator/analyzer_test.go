package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotedesk/internal/backend"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/session"
	"github.com/Veraticus/quotedesk/internal/storage"
	"github.com/Veraticus/quotedesk/internal/testutil"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, sessionID int64, req backend.AnalyzeRequest) (*model.AnalyzeResult, error) {
	args := m.Called(ctx, sessionID, req)
	if res, ok := args.Get(0).(*model.AnalyzeResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPrices struct {
	mock.Mock
}

func (m *mockPrices) Update(info model.ExtractedInfo) {
	m.Called(info)
}

func newMockedOrchestrator(t *testing.T) (*Orchestrator, *mockAnalyzer, *mockPrices, *testutil.FakeBackend) {
	t.Helper()
	be := testutil.NewFakeBackend()
	analyzer := &mockAnalyzer{}
	prices := &mockPrices{}
	llm := model.LLMConfig{APIKey: "sk-test", ModelID: "m1"}
	orch, err := New(Config{
		Analyzer: analyzer,
		Sessions: session.NewStore(be, storage.NewMemoryStore(), nil),
		Prices:   prices,
		LLM:      func() model.LLMConfig { return llm },
	})
	require.NoError(t, err)
	return orch, analyzer, prices, be
}

func TestSendMessage_RequestShape(t *testing.T) {
	orch, analyzer, prices, _ := newMockedOrchestrator(t)

	info := model.ExtractedInfo{ArticleType: testutil.String("实习报告"), WordCount: testutil.Float(3000)}
	analyzer.On("Analyze", mock.Anything, int64(1), mock.MatchedBy(func(req backend.AnalyzeRequest) bool {
		return req.Content == "写3000字实习报告" &&
			req.Role == model.RoleBuyer &&
			req.MessageID == 0 &&
			req.LLMConfig.ModelID == "m1"
	})).Return(&model.AnalyzeResult{
		Message:  model.Message{ID: 7, SessionID: 1, Role: model.RoleBuyer, Content: "写3000字实习报告"},
		Analysis: &model.Analysis{ID: 3, SessionID: 1, MessageID: 7, ExtractedInfo: info, SuggestedReplies: []string{"好的"}},
	}, nil).Once()
	prices.On("Update", mock.MatchedBy(func(got model.ExtractedInfo) bool {
		return got.ArticleTypeOrEmpty() == "实习报告" && got.WordCountOrZero() == 3000
	})).Once()

	require.NoError(t, orch.SendMessage(context.Background(), "  写3000字实习报告 "))

	analyzer.AssertExpectations(t)
	prices.AssertExpectations(t)
	assert.Equal(t, Idle, orch.Snapshot().State)
}

func TestSendMessage_MissingAnalysisIsAFailure(t *testing.T) {
	orch, analyzer, prices, _ := newMockedOrchestrator(t)

	analyzer.On("Analyze", mock.Anything, int64(1), mock.Anything).Return(&model.AnalyzeResult{
		Message: model.Message{ID: 4, SessionID: 1, Role: model.RoleBuyer, Content: "在吗"},
	}, nil).Once()

	err := orch.SendMessage(context.Background(), "在吗")
	require.ErrorIs(t, err, common.ErrUpstreamAnalysis)

	snap := orch.Snapshot()
	assert.Equal(t, Failed, snap.State)
	require.NotNil(t, snap.Failed)
	assert.Equal(t, int64(4), snap.Failed.MessageID)
	require.NotNil(t, snap.Hint)
	assert.Equal(t, common.FailureGeneric, snap.Hint.Kind)
	prices.AssertNotCalled(t, "Update", mock.Anything)
}

func TestRetry_TargetsStoredMessage(t *testing.T) {
	orch, analyzer, prices, _ := newMockedOrchestrator(t)
	ctx := context.Background()

	stored := model.Message{ID: 9, SessionID: 1, Role: model.RoleBuyer, Content: "做个ppt"}
	analyzer.On("Analyze", mock.Anything, int64(1), mock.MatchedBy(func(req backend.AnalyzeRequest) bool {
		return req.MessageID == 0
	})).Return(&model.AnalyzeResult{Message: stored, Error: "Error code: 503"}, nil).Once()
	analyzer.On("Analyze", mock.Anything, int64(1), mock.MatchedBy(func(req backend.AnalyzeRequest) bool {
		return req.MessageID == 9 && req.Content == "做个ppt"
	})).Return(&model.AnalyzeResult{
		Message:  stored,
		Analysis: &model.Analysis{ID: 1, SessionID: 1, MessageID: 9},
	}, nil).Once()

	err := orch.SendMessage(ctx, "做个ppt")
	require.ErrorIs(t, err, common.ErrUpstreamAnalysis)
	assert.Equal(t, common.FailureServiceUnavailable, orch.Snapshot().Hint.Kind)

	require.NoError(t, orch.Retry(ctx))
	analyzer.AssertExpectations(t)
	prices.AssertNotCalled(t, "Update", mock.Anything)
	assert.Equal(t, Idle, orch.Snapshot().State)
}
