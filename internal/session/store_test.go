package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotedesk/internal/backend"
	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/storage"
	"github.com/Veraticus/quotedesk/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *testutil.FakeBackend, *storage.MemoryStore) {
	t.Helper()
	be := testutil.NewFakeBackend()
	state := storage.NewMemoryStore()
	return NewStore(be, state, nil), be, state
}

func recordEvents(s *Store) *[]Event {
	var mu sync.Mutex
	events := &[]Event{}
	s.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, e)
	})
	return events
}

func TestStore_CreateAndLoad(t *testing.T) {
	s, _, state := newTestStore(t)
	ctx := context.Background()
	events := recordEvents(s)

	id, err := s.Create(ctx, "")
	require.NoError(t, err)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, id, cur.ID)
	assert.Equal(t, model.SessionActive, cur.Status)

	stored, ok, err := storage.CurrentSessionID(ctx, state)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, stored)

	require.Len(t, *events, 1)
	assert.Equal(t, EventLoaded, (*events)[0].Kind)
}

func TestStore_CreateFailureLeavesPointerUntouched(t *testing.T) {
	s, be, state := newTestStore(t)
	ctx := context.Background()
	be.FailNext("create", errors.New("boom"))

	_, err := s.Create(ctx, "")
	require.Error(t, err)
	assert.Nil(t, s.Current())

	_, ok, err := storage.CurrentSessionID(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConcurrentCreateIsRejected(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()
	entered, release := be.Gate("create")

	done := make(chan error, 1)
	go func() {
		_, err := s.Create(ctx, "")
		done <- err
	}()
	<-entered

	_, err := s.Create(ctx, "")
	assert.ErrorIs(t, err, common.ErrBusy)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, be.CallCount("create"))
}

func TestStore_LoadNotFound(t *testing.T) {
	s, be, state := newTestStore(t)
	ctx := context.Background()

	id := be.Seed(model.Session{})
	require.NoError(t, s.Load(ctx, id))
	events := recordEvents(s)

	err := s.Load(ctx, 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, s.Current())

	_, ok, err := storage.CurrentSessionID(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, *events, 1)
	assert.Equal(t, EventNotFound, (*events)[0].Kind)
	assert.Equal(t, NotFoundNotice, (*events)[0].Notice)
}

func TestStore_LoadTransportErrorKeepsState(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()
	id := be.Seed(model.Session{})
	require.NoError(t, s.Load(ctx, id))

	be.FailNext("get", testutil.ErrTransport)
	err := s.Load(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, id, cur.ID)
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("no pointer", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		ok, err := s.Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("valid pointer", func(t *testing.T) {
		s, be, state := newTestStore(t)
		id := be.Seed(model.Session{})
		require.NoError(t, storage.SetCurrentSessionID(ctx, state, id))

		ok, err := s.Restore(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, id, s.Current().ID)
	})

	t.Run("stale pointer degrades to no session", func(t *testing.T) {
		s, _, state := newTestStore(t)
		require.NoError(t, storage.SetCurrentSessionID(ctx, state, 77))

		ok, err := s.Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, s.Current())

		_, present, err := storage.CurrentSessionID(ctx, state)
		require.NoError(t, err)
		assert.False(t, present)
	})

	t.Run("malformed pointer", func(t *testing.T) {
		s, _, state := newTestStore(t)
		require.NoError(t, state.Set(ctx, storage.KeyCurrentSession, "not-a-number"))

		ok, err := s.Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_EndSessionRoundTrip(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, s.EndSession(ctx, EndRequest{
		DealStatus:  model.DealSuccess,
		DealPrice:   testutil.Float(500),
		ArticleType: "report",
	}))

	// A fresh store sees the same state after load.
	fresh := NewStore(be, storage.NewMemoryStore(), nil)
	require.NoError(t, fresh.Load(ctx, id))
	cur := fresh.Current()
	require.NotNil(t, cur)
	assert.Equal(t, model.SessionClosed, cur.Status)
	assert.Equal(t, model.DealSuccess, cur.DealStatus)
	require.NotNil(t, cur.DealPrice)
	assert.InDelta(t, 500.0, *cur.DealPrice, 1e-9)
	require.NotNil(t, cur.ArticleType)
	assert.Equal(t, "report", *cur.ArticleType)
}

func TestStore_EndSessionValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	err := s.EndSession(ctx, EndRequest{DealStatus: model.DealSuccess})
	assert.ErrorIs(t, err, common.ErrNoSession)

	_, err = s.Create(ctx, "")
	require.NoError(t, err)

	err = s.EndSession(ctx, EndRequest{DealStatus: "won"})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = s.EndSession(ctx, EndRequest{DealStatus: model.DealSuccess, DealPrice: testutil.Float(-1)})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestStore_EndSessionWithSummary(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, "")
	require.NoError(t, err)

	rs := &model.RequirementSummary{ArticleType: "ppt", Requirements: []string{"20页"}}
	require.NoError(t, s.EndSession(ctx, EndRequest{DealStatus: model.DealFailed, RequirementSummary: rs}))

	stored, ok := be.Session(id)
	require.True(t, ok)
	require.NotNil(t, stored.RequirementSummary)
	assert.Equal(t, []string{"20页"}, stored.RequirementSummary.Requirements)
	assert.Nil(t, stored.ArticleType)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s, _, state := newTestStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "")
	require.NoError(t, err)
	events := recordEvents(s)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	assert.Nil(t, s.Current())
	assert.Empty(t, s.Selections())
	_, ok, err := storage.CurrentSessionID(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, *events, 1)
	assert.Equal(t, EventCleared, (*events)[0].Kind)
}

func TestStore_Delete(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()
	other := be.Seed(model.Session{})
	id, err := s.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, other))
	assert.NotNil(t, s.Current())

	require.NoError(t, s.Delete(ctx, id))
	assert.Nil(t, s.Current())

	err = s.Delete(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_ApplyAnalysisResult(t *testing.T) {
	ctx := context.Background()

	t.Run("appends new buyer turn", func(t *testing.T) {
		s, be, _ := newTestStore(t)
		be.WithExtractor(testutil.KeywordExtractor)
		id, err := s.Create(ctx, "")
		require.NoError(t, err)

		res, err := be.Analyze(ctx, id, backend.AnalyzeRequest{Content: "写3000字报告"})
		require.NoError(t, err)
		getsBefore := be.CallCount("get")

		require.NoError(t, s.ApplyAnalysisResult(ctx, res))
		assert.Equal(t, getsBefore, be.CallCount("get"), "merge should not refetch")

		cur := s.Current()
		require.Len(t, cur.Messages, 1)
		assert.Same(t, res.Analysis, cur.LatestAnalysis)
		assert.Equal(t, "报告", cur.LatestAnalysis.ExtractedInfo.ArticleTypeOrEmpty())
	})

	t.Run("attaches analysis to existing turn", func(t *testing.T) {
		s, be, _ := newTestStore(t)
		id, err := s.Create(ctx, "")
		require.NoError(t, err)

		be.SetAnalysisError("HTTP 500")
		failed, err := be.Analyze(ctx, id, backend.AnalyzeRequest{Content: "hi"})
		require.NoError(t, err)
		require.NoError(t, s.ApplyAnalysisResult(ctx, failed))
		require.Len(t, s.Current().Messages, 1)
		assert.Nil(t, s.Current().LatestAnalysis)

		be.SetAnalysisError("")
		ok, err := be.Analyze(ctx, id, backend.AnalyzeRequest{Content: "hi", MessageID: failed.Message.ID})
		require.NoError(t, err)
		require.NoError(t, s.ApplyAnalysisResult(ctx, ok))

		cur := s.Current()
		require.Len(t, cur.Messages, 1)
		require.NotNil(t, cur.LatestAnalysis)
		assert.Equal(t, failed.Message.ID, cur.LatestAnalysis.MessageID)
	})

	t.Run("other session triggers reload", func(t *testing.T) {
		s, be, _ := newTestStore(t)
		first, err := s.Create(ctx, "")
		require.NoError(t, err)
		second := be.Seed(model.Session{})

		res, err := be.Analyze(ctx, second, backend.AnalyzeRequest{Content: "hi"})
		require.NoError(t, err)
		require.NoError(t, s.ApplyAnalysisResult(ctx, res))

		assert.NotEqual(t, first, s.Current().ID)
		assert.Equal(t, second, s.Current().ID)
		assert.Len(t, s.Current().Messages, 1)
	})

	t.Run("out of order message triggers reload", func(t *testing.T) {
		s, be, _ := newTestStore(t)
		id := be.Seed(model.Session{Messages: []model.MessageTurn{
			testutil.BuyerTurn(0, 10, "a", nil),
		}})
		require.NoError(t, s.Load(ctx, id))
		gets := be.CallCount("get")

		res := &model.AnalyzeResult{Message: model.Message{ID: 5, SessionID: id, Role: model.RoleBuyer, Content: "old"}}
		require.NoError(t, s.ApplyAnalysisResult(ctx, res))
		assert.Equal(t, gets+1, be.CallCount("get"))
	})

	t.Run("seller turn never carries analysis", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		id, err := s.Create(ctx, "")
		require.NoError(t, err)

		res := &model.AnalyzeResult{
			Message:  model.Message{ID: 99, SessionID: id, Role: model.RoleSeller, Content: "ok"},
			Analysis: &model.Analysis{ID: 1, MessageID: 99},
		}
		require.NoError(t, s.ApplyAnalysisResult(ctx, res))
		cur := s.Current()
		require.Len(t, cur.Messages, 1)
		assert.Nil(t, cur.Messages[0].Analysis)
		assert.Nil(t, cur.LatestAnalysis)
		require.NoError(t, cur.Validate())
	})

	t.Run("no session", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		err := s.ApplyAnalysisResult(ctx, &model.AnalyzeResult{Message: model.Message{ID: 1}})
		assert.ErrorIs(t, err, common.ErrNoSession)
	})
}

func TestStore_LoadNormalizesSellerAnalyses(t *testing.T) {
	s, be, _ := newTestStore(t)
	ctx := context.Background()
	buyer := &model.Analysis{ID: 1}
	id := be.Seed(model.Session{Messages: []model.MessageTurn{
		testutil.BuyerTurn(0, 1, "q", buyer),
		{Message: model.Message{ID: 2, Role: model.RoleSeller, Content: "a"}, Analysis: &model.Analysis{ID: 2, MessageID: 2}},
	}})

	require.NoError(t, s.Load(ctx, id))
	cur := s.Current()
	assert.Nil(t, cur.Messages[1].Analysis)
	require.NotNil(t, cur.LatestAnalysis)
	assert.Equal(t, int64(1), cur.LatestAnalysis.ID)
}

func TestStore_CurrentIsACopy(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "")
	require.NoError(t, err)

	cur := s.Current()
	cur.Messages = append(cur.Messages, testutil.SellerTurn(cur.ID, 1, "x"))
	cur.Status = model.SessionClosed

	again := s.Current()
	assert.Empty(t, again.Messages)
	assert.Equal(t, model.SessionActive, again.Status)
}
