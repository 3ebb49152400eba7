package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/Veraticus/quotedesk/internal/storage"
)

// Status describes what an Estimate holds.
type Status int

const (
	// AwaitingClassification means no article type has been extracted yet.
	AwaitingClassification Status = iota
	// NoMatch means no catalog entry fits the article type.
	NoMatch
	// InsufficientInput means an entry matched but the quantity is unknown.
	InsufficientInput
	// NoQuote means the matched entry carries no price.
	NoQuote
	// Priced means Range is valid.
	Priced
)

// String returns a short label for logs and rendering.
func (s Status) String() string {
	switch s {
	case AwaitingClassification:
		return "awaiting-classification"
	case NoMatch:
		return "no-match"
	case InsufficientInput:
		return "insufficient-input"
	case NoQuote:
		return "no-quote"
	case Priced:
		return "priced"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Estimate is the current pricing view.
type Estimate struct {
	ArticleType string
	Entry       model.ServiceEntry
	Range       Range
	Quantity    float64
	Coefficient float64
	Status      Status
	Manual      bool
}

// Midpoint returns the representative price, or nil when not priced.
func (e Estimate) Midpoint() *float64 {
	if e.Status != Priced {
		return nil
	}
	m := e.Range.Midpoint()
	return &m
}

// EntrySource supplies the current price list.
type EntrySource interface {
	Entries() []model.ServiceEntry
}

// Estimator keeps pricing inputs between turns and recomputes on change.
type Estimator struct {
	source      EntrySource
	state       storage.Store
	matcher     *Matcher
	logger      *slog.Logger
	lastMid     *float64
	articleType string
	wordCount   float64
	quantity    float64
	coefficient float64
	manual      bool
	mu          sync.Mutex
	changed     common.Notifier[Estimate]
	price       common.Notifier[*float64]
}

// NewEstimator creates an estimator. state may be nil, in which case the
// coefficient is not persisted.
func NewEstimator(source EntrySource, state storage.Store, logger *slog.Logger) *Estimator {
	return &Estimator{
		source:      source,
		state:       state,
		matcher:     NewMatcher(nil),
		logger:      common.LoggerOrDefault(logger),
		coefficient: 1.0,
	}
}

// LoadCoefficient restores the last chosen coefficient from state.
func (e *Estimator) LoadCoefficient(ctx context.Context) error {
	if e.state == nil {
		return nil
	}
	v, err := storage.Coefficient(ctx, e.state)
	if err != nil {
		return fmt.Errorf("failed to load coefficient: %w", err)
	}
	e.mu.Lock()
	e.coefficient = v
	e.mu.Unlock()
	e.recompute()
	return nil
}

// Update takes the extraction from a new analysis. A missing article type
// leaves the previous inputs untouched.
func (e *Estimator) Update(info model.ExtractedInfo) {
	articleType := info.ArticleTypeOrEmpty()
	if articleType == "" {
		return
	}
	e.mu.Lock()
	e.articleType = articleType
	e.wordCount = info.WordCountOrZero()
	e.manual = false
	e.quantity = 0
	e.mu.Unlock()
	e.recompute()
}

// SetArticleType overrides the article type, keeping the word count.
func (e *Estimator) SetArticleType(articleType string) {
	e.mu.Lock()
	e.articleType = articleType
	e.mu.Unlock()
	e.recompute()
}

// SetWordCount overrides the raw word count and drops any manual quantity.
func (e *Estimator) SetWordCount(wc float64) {
	e.mu.Lock()
	e.wordCount = wc
	e.manual = false
	e.quantity = 0
	e.mu.Unlock()
	e.recompute()
}

// SetQuantity sets a manual quantity. Non-positive values clear the price.
func (e *Estimator) SetQuantity(q float64) {
	e.mu.Lock()
	e.quantity = q
	e.manual = true
	e.mu.Unlock()
	e.recompute()
}

// SetQuantityText parses and sets a manual quantity. Invalid text clears the
// price without an error.
func (e *Estimator) SetQuantityText(s string) {
	q, ok := ParseQuantity(s)
	if !ok {
		q = 0
	}
	e.SetQuantity(q)
}

// SetCoefficient sets and persists the difficulty coefficient. Non-positive
// values reset it to 1.0.
func (e *Estimator) SetCoefficient(ctx context.Context, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 1.0
	}
	e.mu.Lock()
	e.coefficient = v
	e.mu.Unlock()
	e.recompute()

	if e.state == nil {
		return nil
	}
	if err := storage.SetCoefficient(ctx, e.state, v); err != nil {
		return fmt.Errorf("failed to save coefficient: %w", err)
	}
	return nil
}

// SetCoefficientText parses free-form input the way the coefficient field does.
func (e *Estimator) SetCoefficientText(ctx context.Context, s string) error {
	return e.SetCoefficient(ctx, ParseCoefficient(s))
}

// Coefficient returns the current difficulty coefficient.
func (e *Estimator) Coefficient() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coefficient
}

// Reset forgets the article type and quantity, keeping the coefficient.
func (e *Estimator) Reset() {
	e.mu.Lock()
	e.articleType = ""
	e.wordCount = 0
	e.quantity = 0
	e.manual = false
	e.mu.Unlock()
	e.recompute()
}

// Refresh recomputes after the price list changed.
func (e *Estimator) Refresh() {
	e.recompute()
}

// Estimate returns the current estimate.
func (e *Estimator) Estimate() Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimateLocked()
}

func (e *Estimator) estimateLocked() Estimate {
	est := Estimate{
		ArticleType: e.articleType,
		Coefficient: e.coefficient,
		Manual:      e.manual,
	}
	if e.articleType == "" {
		est.Status = AwaitingClassification
		return est
	}

	var entries []model.ServiceEntry
	if e.source != nil {
		entries = e.source.Entries()
	}
	m := e.matcher.Match(e.articleType, entries)
	if !m.Found() {
		est.Status = NoMatch
		return est
	}
	est.Entry = m.Entry

	if e.manual {
		est.Quantity = e.quantity
	} else if e.wordCount > 0 {
		est.Quantity = NormalizeQuantity(m.Entry.Unit, e.wordCount)
	}

	if _, _, ok := m.Entry.BasePrices(); !ok {
		est.Status = NoQuote
		return est
	}
	r, ok := Compute(m.Entry, est.Quantity, e.coefficient)
	if !ok {
		if est.Quantity > 0 {
			est.Status = NoQuote
		} else {
			est.Status = InsufficientInput
		}
		return est
	}
	est.Range = r
	est.Status = Priced
	return est
}

// recompute notifies listeners. Price listeners only hear about changes.
func (e *Estimator) recompute() {
	e.mu.Lock()
	est := e.estimateLocked()
	mid := est.Midpoint()
	priceChanged := !sameMid(mid, e.lastMid)
	e.lastMid = mid
	e.mu.Unlock()

	e.logger.Debug("estimate recomputed",
		"article_type", est.ArticleType,
		"status", est.Status.String(),
		"quantity", est.Quantity,
		"coefficient", est.Coefficient)

	e.changed.Notify(est)
	if priceChanged {
		e.price.Notify(mid)
	}
}

func sameMid(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Subscribe registers fn to receive every recomputed estimate.
func (e *Estimator) Subscribe(fn func(Estimate)) func() {
	return e.changed.Subscribe(fn)
}

// OnPriceChange registers fn to receive the midpoint whenever it changes,
// or nil when the estimate stops being priced.
func (e *Estimator) OnPriceChange(fn func(*float64)) func() {
	return e.price.Subscribe(fn)
}
