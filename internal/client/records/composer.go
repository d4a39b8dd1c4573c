// Package records turns the record list filters into the backend query and
// keeps the last applied page.
package records

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

// DefaultDebounce is the quiet window before typed search text is applied
const DefaultDebounce = 500 * time.Millisecond

// Field names a FilterState field for SetFilter
type Field string

const (
	FieldSearch        Field = "searchText"
	FieldStatus        Field = "statusFilter"
	FieldStartDate     Field = "startDate"
	FieldEndDate       Field = "endDate"
	FieldQuickFilter   Field = "quickFilterTag"
	FieldSortKey       Field = "sortKey"
	FieldSortDirection Field = "sortDirection"
	FieldPageNumber    Field = "pageNumber"
)

var (
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrStale is returned by FetchPage when a newer fetch was issued while
	// this one was in flight; its result was dropped.
	ErrStale = errors.New("stale response discarded")
)

// FilterState is what the user picked on the records screen
type FilterState struct {
	SearchText     string
	StatusFilter   string
	StartDate      string
	EndDate        string
	QuickFilterTag string
	SortKey        string
	SortDirection  string
	PageNumber     int
}

// Fetcher is the part of the API client the composer needs
type Fetcher interface {
	ListRecords(ctx context.Context, query url.Values) (*models.RecordPage, error)
	DeleteRecord(ctx context.Context, id string) error
}

// ChangeFunc is called after every applied fetch or surfaced error
type ChangeFunc func(page *models.RecordPage, err error)

type Composer struct {
	fetcher  Fetcher
	now      func() time.Time
	debounce time.Duration
	pageSize int
	logger   *log.Logger
	onChange ChangeFunc

	// autoCtx is set by WithAutoFetch: filter changes then fetch on their own
	autoCtx context.Context

	mu            sync.Mutex
	state         FilterState
	appliedSearch string
	seq           uint64
	page          *models.RecordPage
	err           error
	timer         *time.Timer
}

type Option func(*Composer)

func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Composer) { c.debounce = d }
}

// WithPageSize sends an explicit limit; zero leaves it to the backend
func WithPageSize(n int) Option {
	return func(c *Composer) { c.pageSize = n }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

func WithOnChange(fn ChangeFunc) Option {
	return func(c *Composer) { c.onChange = fn }
}

// WithAutoFetch makes every applied filter change issue a fetch in the
// background, bound to ctx.
func WithAutoFetch(ctx context.Context) Option {
	return func(c *Composer) { c.autoCtx = ctx }
}

func New(fetcher Fetcher, opts ...Option) *Composer {
	c := &Composer{
		fetcher:  fetcher,
		now:      timeutil.Now,
		debounce: DefaultDebounce,
		logger:   log.Default(),
		state: FilterState{
			SortKey:       "date",
			SortDirection: "desc",
			PageNumber:    1,
		},
		page: &models.RecordPage{Items: []*models.RepairRecord{}, CurrentPage: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetFilter updates one field. Any field but pageNumber sends the user back
// to page 1. A date edit under a non-custom quick range turns it into custom.
// Search text is applied after the debounce window; everything else applies
// immediately.
func (c *Composer) SetFilter(field Field, value string) error {
	if field == FieldQuickFilter {
		return c.ApplyQuickRange(value)
	}

	c.mu.Lock()
	next := c.state
	value = strings.TrimSpace(value)

	switch field {
	case FieldSearch:
		next.SearchText = value
	case FieldStatus:
		if value != "" && !models.ValidStatus(value) {
			c.mu.Unlock()
			return fmt.Errorf("%w: status %q", ErrInvalidFilter, value)
		}
		next.StatusFilter = value
	case FieldStartDate, FieldEndDate:
		if value != "" {
			if _, err := timeutil.ParseDate(value); err != nil {
				c.mu.Unlock()
				return fmt.Errorf("%w: date %q", ErrInvalidFilter, value)
			}
		}
		if field == FieldStartDate {
			next.StartDate = value
		} else {
			next.EndDate = value
		}
		if next.QuickFilterTag != "" && next.QuickFilterTag != RangeCustom {
			next.QuickFilterTag = RangeCustom
		}
	case FieldSortKey:
		next.SortKey = value
	case FieldSortDirection:
		value = strings.ToLower(value)
		if value != "asc" && value != "desc" {
			c.mu.Unlock()
			return fmt.Errorf("%w: sort direction %q", ErrInvalidFilter, value)
		}
		next.SortDirection = value
	case FieldPageNumber:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			c.mu.Unlock()
			return fmt.Errorf("%w: page %q", ErrInvalidFilter, value)
		}
		next.PageNumber = n
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
	}

	if field != FieldPageNumber {
		next.PageNumber = 1
	}
	c.state = next

	if field == FieldSearch {
		c.scheduleSearchLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.trigger()
	return nil
}

// SetPage is SetFilter(FieldPageNumber, n)
func (c *Composer) SetPage(n int) error {
	return c.SetFilter(FieldPageNumber, strconv.Itoa(n))
}

// SetSearch is SetFilter(FieldSearch, text)
func (c *Composer) SetSearch(text string) {
	_ = c.SetFilter(FieldSearch, text)
}

// ApplyQuickRange sets the tag and its bounds in one step, replacing any
// earlier date edits. custom keeps the current dates.
func (c *Composer) ApplyQuickRange(tag string) error {
	start, end, ok, err := Bounds(tag, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state.QuickFilterTag = tag
	if ok {
		c.state.StartDate = start
		c.state.EndDate = end
	}
	c.state.PageNumber = 1
	c.mu.Unlock()

	c.trigger()
	return nil
}

func (c *Composer) scheduleSearchLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.debounce <= 0 {
		c.appliedSearch = c.state.SearchText
		c.timer = nil
		go c.trigger()
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.appliedSearch = c.state.SearchText
		c.timer = nil
		c.mu.Unlock()
		c.trigger()
	})
}

// FlushSearch applies pending search text without waiting for the window
func (c *Composer) FlushSearch() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.appliedSearch = c.state.SearchText
	c.mu.Unlock()
}

// Close stops a pending debounce timer
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Composer) trigger() {
	if c.autoCtx == nil {
		return
	}
	go func() {
		if _, err := c.FetchPage(c.autoCtx); err != nil && !errors.Is(err, ErrStale) {
			c.logger.Printf("[Records] Fetch failed: %v", err)
		}
	}()
}

// State returns a copy of the filter state as the user edited it
func (c *Composer) State() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Query builds the outgoing query from the applied state. Empty values are
// omitted.
func (c *Composer) Query() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Composer) queryLocked() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", c.appliedSearch)
	set("status", c.state.StatusFilter)
	set("startDate", c.state.StartDate)
	set("endDate", c.state.EndDate)
	set("sortKey", c.state.SortKey)
	set("sortDirection", c.state.SortDirection)
	q.Set("page", strconv.Itoa(c.state.PageNumber))
	if c.pageSize > 0 {
		q.Set("limit", strconv.Itoa(c.pageSize))
	}
	return q
}

// Page returns the last applied page. Pages are replaced, never mutated.
func (c *Composer) Page() *models.RecordPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Err returns the error of the last fetch or delete, nil after a good fetch
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// FetchPage issues the list request for the current filters. Only the most
// recently issued fetch is applied; an older one that finishes later gets
// ErrStale. On failure the previous page stays and the error is kept for Err.
func (c *Composer) FetchPage(ctx context.Context) (*models.RecordPage, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	query := c.queryLocked()
	c.mu.Unlock()

	page, err := c.fetcher.ListRecords(ctx, query)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		c.err = err
	} else {
		if page.Items == nil {
			page.Items = []*models.RepairRecord{}
		}
		c.page = page
		c.err = nil
	}
	current := c.page
	c.mu.Unlock()

	c.notify(current, err)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DeleteRecord deletes and then refetches the current page. Nothing is
// removed locally before the backend confirms.
func (c *Composer) DeleteRecord(ctx context.Context, id string) error {
	if err := c.fetcher.DeleteRecord(ctx, id); err != nil {
		c.mu.Lock()
		c.err = err
		current := c.page
		c.mu.Unlock()
		c.notify(current, err)
		return err
	}
	c.logger.Printf("[Records] Deleted record %s", id)

	if _, err := c.FetchPage(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

func (c *Composer) notify(page *models.RecordPage, err error) {
	if c.onChange != nil {
		c.onChange(page, err)
	}
}
