package pricing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/storage"
)

type staticEntries []model.ServiceEntry

func (s staticEntries) Entries() []model.ServiceEntry { return s }

func strPtr(s string) *string { return &s }

func TestEstimator_Statuses(t *testing.T) {
	e := NewEstimator(staticEntries(catalogEntries()), nil, nil)

	assert.Equal(t, AwaitingClassification, e.Estimate().Status)
	assert.Nil(t, e.Estimate().Midpoint())

	e.Update(model.ExtractedInfo{ArticleType: strPtr("obscure genre X"), WordCount: price(3000)})
	assert.Equal(t, NoMatch, e.Estimate().Status)

	e.Update(model.ExtractedInfo{ArticleType: strPtr("文献综述")})
	est := e.Estimate()
	assert.Equal(t, InsufficientInput, est.Status)
	assert.Equal(t, int64(1), est.Entry.ID)

	e.Update(model.ExtractedInfo{ArticleType: strPtr("文献综述"), WordCount: price(4000)})
	est = e.Estimate()
	require.Equal(t, Priced, est.Status)
	assert.InDelta(t, 4.0, est.Quantity, 1e-9)
	assert.InDelta(t, 120.0, est.Range.Min, 1e-9)
	assert.InDelta(t, 200.0, est.Range.Max, 1e-9)
	require.NotNil(t, est.Midpoint())
	assert.InDelta(t, 160.0, *est.Midpoint(), 1e-9)
}

func TestEstimator_NoQuote(t *testing.T) {
	entries := staticEntries{{ID: 1, Name: "报告", Unit: model.UnitThousand}}
	e := NewEstimator(entries, nil, nil)
	e.Update(model.ExtractedInfo{ArticleType: strPtr("报告"), WordCount: price(2000)})
	assert.Equal(t, NoQuote, e.Estimate().Status)
}

func TestEstimator_UpdateWithoutArticleTypeKeepsInputs(t *testing.T) {
	e := NewEstimator(staticEntries(catalogEntries()), nil, nil)
	e.Update(model.ExtractedInfo{ArticleType: strPtr("演讲"), WordCount: price(1000)})
	before := e.Estimate()

	e.Update(model.ExtractedInfo{WordCount: price(9000)})
	assert.Equal(t, before, e.Estimate())
}

func TestEstimator_ManualQuantity(t *testing.T) {
	e := NewEstimator(staticEntries(catalogEntries()), nil, nil)
	e.Update(model.ExtractedInfo{ArticleType: strPtr("ppt"), WordCount: price(450)})

	est := e.Estimate()
	assert.InDelta(t, 2.0, est.Quantity, 1e-9)
	assert.False(t, est.Manual)

	e.SetQuantityText("12")
	est = e.Estimate()
	assert.True(t, est.Manual)
	assert.InDelta(t, 60.0, est.Range.Min, 1e-9)
	assert.InDelta(t, 120.0, est.Range.Max, 1e-9)

	e.SetQuantityText("abc")
	assert.Equal(t, InsufficientInput, e.Estimate().Status)

	// A new analysis replaces the manual quantity.
	e.Update(model.ExtractedInfo{ArticleType: strPtr("ppt"), WordCount: price(80)})
	est = e.Estimate()
	assert.False(t, est.Manual)
	assert.InDelta(t, 80.0, est.Quantity, 1e-9)
}

func TestEstimator_CoefficientPersists(t *testing.T) {
	ctx := context.Background()
	state := storage.NewMemoryStore()

	e := NewEstimator(staticEntries(catalogEntries()), state, nil)
	require.NoError(t, e.SetCoefficient(ctx, 1.5))

	restored := NewEstimator(staticEntries(catalogEntries()), state, nil)
	require.NoError(t, restored.LoadCoefficient(ctx))
	assert.InDelta(t, 1.5, restored.Coefficient(), 1e-9)

	require.NoError(t, restored.SetCoefficientText(ctx, "bogus"))
	assert.InDelta(t, 1.0, restored.Coefficient(), 1e-9)

	v, err := storage.Coefficient(ctx, state)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestEstimator_NonFiniteCoefficient(t *testing.T) {
	ctx := context.Background()
	state := storage.NewMemoryStore()
	require.NoError(t, state.Set(ctx, storage.KeyPriceCoefficient, "NaN"))

	e := NewEstimator(staticEntries(catalogEntries()), state, nil)
	require.NoError(t, e.LoadCoefficient(ctx))
	assert.InDelta(t, 1.0, e.Coefficient(), 1e-9)

	require.NoError(t, e.SetCoefficient(ctx, math.Inf(1)))
	assert.InDelta(t, 1.0, e.Coefficient(), 1e-9)

	e.Update(model.ExtractedInfo{ArticleType: strPtr("文献综述"), WordCount: price(4000)})
	est := e.Estimate()
	require.Equal(t, Priced, est.Status)
	assert.InDelta(t, 120.0, est.Range.Min, 1e-9)
	assert.InDelta(t, 200.0, est.Range.Max, 1e-9)
}

func TestEstimator_PriceListeners(t *testing.T) {
	e := NewEstimator(staticEntries(catalogEntries()), nil, nil)

	var mids []*float64
	unsubscribe := e.OnPriceChange(func(m *float64) { mids = append(mids, m) })

	var estimates int
	unsubEst := e.Subscribe(func(Estimate) { estimates++ })
	defer unsubEst()

	e.Update(model.ExtractedInfo{ArticleType: strPtr("文献综述"), WordCount: price(2000)})
	e.SetArticleType("文献综述") // same inputs, same price
	require.NoError(t, e.SetCoefficient(context.Background(), 2.0))
	e.Reset()

	require.Len(t, mids, 3)
	require.NotNil(t, mids[0])
	assert.InDelta(t, 80.0, *mids[0], 1e-9)
	require.NotNil(t, mids[1])
	assert.InDelta(t, 160.0, *mids[1], 1e-9)
	assert.Nil(t, mids[2])
	assert.Equal(t, 4, estimates)

	unsubscribe()
	e.Update(model.ExtractedInfo{ArticleType: strPtr("文献综述"), WordCount: price(2000)})
	assert.Len(t, mids, 3)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "priced", Priced.String())
	assert.Equal(t, "no-match", NoMatch.String())
	assert.Equal(t, "status(42)", Status(42).String())
}
