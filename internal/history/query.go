// Package history queries the paged, filtered list of past sessions.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
)

const (
	// DefaultPageSize is used when no page size is configured.
	DefaultPageSize = 20
	// DefaultDebounce is the quiet period before a search is sent.
	DefaultDebounce = 300 * time.Millisecond
)

// Lister fetches one page of sessions.
type Lister interface {
	ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error)
}

// Options configures a Query.
type Options struct {
	Clock    Clock
	Logger   *slog.Logger
	PageSize int
	Debounce time.Duration
}

// Result is delivered to subscribers after every completed query.
type Result struct {
	Page   *model.SessionPage
	Err    error
	Filter model.SessionFilter
}

// Query holds the history filter and the last page it produced.
type Query struct {
	lister   Lister
	clock    Clock
	logger   *slog.Logger
	timer    Timer
	last     *Result
	events   common.Notifier[Result]
	filter   model.SessionFilter
	debounce time.Duration
	seq      uint64
	mu       sync.Mutex
}

// NewQuery creates a query on the first page with no filters.
func NewQuery(lister Lister, opts Options) *Query {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Query{
		lister:   lister,
		clock:    opts.Clock,
		logger:   common.LoggerOrDefault(opts.Logger),
		debounce: opts.Debounce,
		filter:   model.SessionFilter{Page: 1, PageSize: opts.PageSize},
	}
}

// Subscribe registers fn for query results.
func (q *Query) Subscribe(fn func(Result)) func() {
	return q.events.Subscribe(fn)
}

// Filter returns the current filter.
func (q *Query) Filter() model.SessionFilter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filter
}

// Last returns the most recent result, or nil before the first query.
func (q *Query) Last() *Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return nil
	}
	r := *q.last
	return &r
}

// Refresh reruns the current filter.
func (q *Query) Refresh(ctx context.Context) Result {
	q.mu.Lock()
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx)
}

// SetStatus filters by session status and queries the first page. An empty
// status removes the filter.
func (q *Query) SetStatus(ctx context.Context, status model.SessionStatus) (Result, error) {
	if status != "" && !status.Valid() {
		return Result{}, common.NewValidationError("status", fmt.Sprintf("unknown value %q", status))
	}
	return q.update(ctx, func(f *model.SessionFilter) { f.Status = status }), nil
}

// SetDealStatus filters by deal outcome and queries the first page. An empty
// value removes the filter.
func (q *Query) SetDealStatus(ctx context.Context, deal model.DealStatus) (Result, error) {
	if deal != "" && !deal.Valid() {
		return Result{}, common.NewValidationError("deal status", fmt.Sprintf("unknown value %q", deal))
	}
	return q.update(ctx, func(f *model.SessionFilter) { f.DealStatus = deal }), nil
}

// SetPageSize changes the page size and queries the first page.
func (q *Query) SetPageSize(ctx context.Context, size int) (Result, error) {
	if size <= 0 {
		return Result{}, common.NewValidationError("page size", "must be positive")
	}
	return q.update(ctx, func(f *model.SessionFilter) { f.PageSize = size }), nil
}

// SetFilter replaces the whole filter and queries it as given. A zero page
// or page size falls back to the first page and the current size.
func (q *Query) SetFilter(ctx context.Context, f model.SessionFilter) (Result, error) {
	if f.Status != "" && !f.Status.Valid() {
		return Result{}, common.NewValidationError("status", fmt.Sprintf("unknown value %q", f.Status))
	}
	if f.DealStatus != "" && !f.DealStatus.Valid() {
		return Result{}, common.NewValidationError("deal status", fmt.Sprintf("unknown value %q", f.DealStatus))
	}
	if f.Page < 0 || f.PageSize < 0 {
		return Result{}, common.NewValidationError("page", "must not be negative")
	}
	f.Search = strings.TrimSpace(f.Search)

	q.mu.Lock()
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = q.filter.PageSize
	}
	q.filter = f
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx), nil
}

// SetSearch changes the search text. The query is sent once no further
// search change arrived for the debounce period.
func (q *Query) SetSearch(ctx context.Context, text string) {
	text = strings.TrimSpace(text)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.filter.Search = text
	q.filter.Page = 1
	q.seq++
	gen := q.seq
	q.stopTimerLocked()
	q.timer = q.clock.AfterFunc(q.debounce, func() {
		q.mu.Lock()
		if q.seq != gen {
			// Stopped too late: a newer search or query replaced this one.
			q.mu.Unlock()
			return
		}
		q.timer = nil
		q.mu.Unlock()
		q.run(ctx)
	})
}

// SearchNow sends the search immediately, skipping the debounce.
func (q *Query) SearchNow(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	return q.update(ctx, func(f *model.SessionFilter) { f.Search = text })
}

// SetPage queries page n, keeping the filters.
func (q *Query) SetPage(ctx context.Context, n int) (Result, error) {
	if n < 1 {
		return Result{}, common.NewValidationError("page", "must be at least 1")
	}
	q.mu.Lock()
	q.filter.Page = n
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx), nil
}

// Next queries the following page. It reports false on the last page.
func (q *Query) Next(ctx context.Context) (Result, bool) {
	q.mu.Lock()
	page := q.filter.Page
	if q.last != nil && q.last.Page != nil && page >= q.last.Page.TotalPages {
		q.mu.Unlock()
		return *q.lastOrEmpty(), false
	}
	q.filter.Page = page + 1
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx), true
}

// Prev queries the preceding page. It reports false on the first page.
func (q *Query) Prev(ctx context.Context) (Result, bool) {
	q.mu.Lock()
	if q.filter.Page <= 1 {
		q.mu.Unlock()
		return *q.lastOrEmpty(), false
	}
	q.filter.Page--
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx), true
}

// Close cancels a pending debounced search.
func (q *Query) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.stopTimerLocked()
}

func (q *Query) lastOrEmpty() *Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return &Result{Filter: q.filter}
	}
	r := *q.last
	return &r
}

func (q *Query) update(ctx context.Context, change func(*model.SessionFilter)) Result {
	q.mu.Lock()
	change(&q.filter)
	q.filter.Page = 1
	q.stopTimerLocked()
	q.mu.Unlock()
	return q.run(ctx)
}

func (q *Query) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// run sends the current filter. A result is dropped when a newer query
// started while it was in flight.
func (q *Query) run(ctx context.Context) Result {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	filter := q.filter
	q.mu.Unlock()

	page, err := q.lister.ListSessions(ctx, filter)
	res := Result{Page: page, Err: err, Filter: filter}
	if err != nil {
		res.Err = fmt.Errorf("failed to list sessions: %w", err)
		q.logger.Warn("Session list query failed", "page", filter.Page, "search", filter.Search, "error", err)
	} else {
		q.logger.Debug("Session list loaded", "page", filter.Page, "total", page.Total)
	}

	q.mu.Lock()
	if seq != q.seq {
		q.mu.Unlock()
		q.logger.Debug("Discarding superseded session list result", "page", filter.Page)
		return res
	}
	q.last = &res
	q.mu.Unlock()

	q.events.Notify(res)
	return res
}
