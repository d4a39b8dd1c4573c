package records

import (
	"context"
	"errors"
	"io"
	"log"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixtrack/internal/client/api"
	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

type call struct {
	query url.Values
}

type fakeFetcher struct {
	mu        sync.Mutex
	calls     []call
	deletes   []string
	deleteErr error
	listErr   error
	// gates lets a test hold a fetch for a given status filter
	gates map[string]chan struct{}
	pages map[string]*models.RecordPage
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		gates: map[string]chan struct{}{},
		pages: map[string]*models.RecordPage{},
	}
}

func (f *fakeFetcher) ListRecords(ctx context.Context, q url.Values) (*models.RecordPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{query: q})
	gate := f.gates[q.Get("status")]
	page := f.pages[q.Get("status")]
	err := f.listErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &models.RecordPage{CurrentPage: 1, TotalPages: 1}
	}
	return page, nil
}

func (f *fakeFetcher) DeleteRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1].query
}

func pageOf(ids ...string) *models.RecordPage {
	items := make([]*models.RepairRecord, 0, len(ids))
	for _, id := range ids {
		items = append(items, &models.RepairRecord{ID: id})
	}
	return &models.RecordPage{Items: items, CurrentPage: 1, TotalPages: 1}
}

func at(year int, month time.Month, day, hour, min int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, hour, min, 0, 0, timeutil.Location())
	}
}

func newComposer(f Fetcher, opts ...Option) *Composer {
	opts = append([]Option{
		WithClock(at(2024, time.March, 15, 10, 0)),
		WithLogger(log.New(io.Discard, "", 0)),
	}, opts...)
	return New(f, opts...)
}

func TestSetFilterResetsPage(t *testing.T) {
	steps := []struct {
		field Field
		value string
	}{
		{FieldStatus, models.StatusPaid},
		{FieldSortKey, "totalPrice"},
		{FieldSortDirection, "asc"},
		{FieldStartDate, "2024-03-01"},
		{FieldEndDate, "2024-03-10"},
		{FieldSearch, "samsung"},
		{FieldStatus, ""},
	}

	c := newComposer(newFakeFetcher())
	defer c.Close()
	for _, s := range steps {
		require.NoError(t, c.SetPage(4))
		assert.Equal(t, 4, c.State().PageNumber)

		require.NoError(t, c.SetFilter(s.field, s.value))
		assert.Equal(t, 1, c.State().PageNumber, "field %s", s.field)
	}

	require.NoError(t, c.SetPage(3))
	require.NoError(t, c.ApplyQuickRange(RangeToday))
	assert.Equal(t, 1, c.State().PageNumber)
}

func TestSetFilterRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
	}{
		{"unknown status", FieldStatus, "Refunded"},
		{"bad date", FieldStartDate, "15/03/2024"},
		{"bad direction", FieldSortDirection, "up"},
		{"page zero", FieldPageNumber, "0"},
		{"page not a number", FieldPageNumber, "two"},
		{"unknown field", Field("color"), "red"},
		{"unknown quick range", FieldQuickFilter, "lastYear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComposer(newFakeFetcher())
			require.NoError(t, c.SetPage(2))
			before := c.State()

			err := c.SetFilter(tt.field, tt.value)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.Equal(t, before, c.State())
		})
	}
}

func TestQuickRanges(t *testing.T) {
	tests := []struct {
		name      string
		now       func() time.Time
		tag       string
		wantStart string
		wantEnd   string
	}{
		{"today", at(2024, time.March, 15, 10, 0), RangeToday, "2024-03-15", "2024-03-15"},
		{"yesterday", at(2024, time.March, 15, 10, 0), RangeYesterday, "2024-03-14", "2024-03-14"},
		{"last7", at(2024, time.March, 15, 10, 0), RangeLast7, "2024-03-09", "2024-03-15"},
		{"this month", at(2024, time.March, 15, 10, 0), RangeThisMonth, "2024-03-01", "2024-03-15"},
		{"all time", at(2024, time.March, 15, 10, 0), RangeAllTime, "", "2024-03-15"},
		{"yesterday across a month", at(2024, time.March, 1, 9, 0), RangeYesterday, "2024-02-29", "2024-02-29"},
		{"last7 across a year", at(2025, time.January, 3, 12, 0), RangeLast7, "2024-12-28", "2025-01-03"},
		{"this month on the first", at(2024, time.April, 1, 0, 0), RangeThisMonth, "2024-04-01", "2024-04-01"},
		{"late evening stays on the local day", at(2024, time.March, 15, 23, 59), RangeToday, "2024-03-15", "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComposer(newFakeFetcher(), WithClock(tt.now))
			require.NoError(t, c.ApplyQuickRange(tt.tag))

			s := c.State()
			assert.Equal(t, tt.tag, s.QuickFilterTag)
			assert.Equal(t, tt.wantStart, s.StartDate)
			assert.Equal(t, tt.wantEnd, s.EndDate)
		})
	}
}

func TestQuickRangeUsesLocalCalendar(t *testing.T) {
	// 20:00 UTC on the 14th is already the 15th in the shop zone
	loc := time.FixedZone("shop", 5*3600+1800)
	prev := timeutil.Location()
	timeutil.SetLocation(loc)
	t.Cleanup(func() { timeutil.SetLocation(prev) })

	start, end, ok, err := Bounds(RangeToday, time.Date(2024, time.March, 14, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-03-15", start)
	assert.Equal(t, "2024-03-15", end)
}

func TestCustomKeepsDates(t *testing.T) {
	c := newComposer(newFakeFetcher())
	require.NoError(t, c.SetFilter(FieldStartDate, "2024-01-05"))
	require.NoError(t, c.SetFilter(FieldEndDate, "2024-01-20"))
	require.NoError(t, c.ApplyQuickRange(RangeCustom))

	s := c.State()
	assert.Equal(t, RangeCustom, s.QuickFilterTag)
	assert.Equal(t, "2024-01-05", s.StartDate)
	assert.Equal(t, "2024-01-20", s.EndDate)
}

func TestDateEditSwitchesToCustom(t *testing.T) {
	c := newComposer(newFakeFetcher())
	require.NoError(t, c.ApplyQuickRange(RangeThisMonth))
	require.NoError(t, c.SetFilter(FieldStartDate, "2024-03-05"))

	s := c.State()
	assert.Equal(t, RangeCustom, s.QuickFilterTag)
	assert.Equal(t, "2024-03-05", s.StartDate)
	assert.Equal(t, "2024-03-15", s.EndDate)

	// a quick range replaces the manual edit
	require.NoError(t, c.ApplyQuickRange(RangeToday))
	s = c.State()
	assert.Equal(t, "2024-03-15", s.StartDate)
	assert.Equal(t, RangeToday, s.QuickFilterTag)
}

func TestQueryOmitsEmptyValues(t *testing.T) {
	c := newComposer(newFakeFetcher(), WithPageSize(20))
	require.NoError(t, c.SetFilter(FieldStatus, models.StatusPending))
	require.NoError(t, c.ApplyQuickRange(RangeAllTime))

	q := c.Query()
	assert.Equal(t, "Pending", q.Get("status"))
	assert.Equal(t, "2024-03-15", q.Get("endDate"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "date", q.Get("sortKey"))
	assert.Equal(t, "desc", q.Get("sortDirection"))
	_, hasStart := q["startDate"]
	_, hasSearch := q["search"]
	assert.False(t, hasStart)
	assert.False(t, hasSearch)
}

func TestSearchIsDebounced(t *testing.T) {
	f := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newComposer(f, WithDebounce(50*time.Millisecond), WithAutoFetch(ctx))
	defer c.Close()

	c.SetSearch("s")
	c.SetSearch("sa")
	c.SetSearch("sam")
	assert.Equal(t, "sam", c.State().SearchText)
	assert.Empty(t, c.Query().Get("search"))
	assert.Zero(t, f.callCount())

	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sam", f.lastQuery().Get("search"))

	// nothing else fires once the window has passed
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, f.callCount())
}

func TestOtherFiltersFetchImmediately(t *testing.T) {
	f := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newComposer(f, WithDebounce(time.Hour), WithAutoFetch(ctx))
	defer c.Close()

	require.NoError(t, c.SetFilter(FieldStatus, models.StatusPaid))
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Paid", f.lastQuery().Get("status"))
}

func TestFlushSearchAppliesPendingText(t *testing.T) {
	f := newFakeFetcher()
	c := newComposer(f, WithDebounce(time.Hour))
	defer c.Close()

	c.SetSearch("  redmi ")
	c.FlushSearch()
	_, err := c.FetchPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "redmi", f.lastQuery().Get("search"))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFakeFetcher()
	slow := make(chan struct{})
	f.gates[models.StatusPending] = slow
	f.pages[models.StatusPending] = pageOf("old")
	f.pages[models.StatusPaid] = pageOf("new")

	c := newComposer(f)
	require.NoError(t, c.SetFilter(FieldStatus, models.StatusPending))

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.FetchPage(context.Background())
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.SetFilter(FieldStatus, models.StatusPaid))
	page, err := c.FetchPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", page.Items[0].ID)

	close(slow)
	assert.ErrorIs(t, <-firstDone, ErrStale)

	require.Len(t, c.Page().Items, 1)
	assert.Equal(t, "new", c.Page().Items[0].ID)
}

func TestFetchErrorKeepsPreviousPage(t *testing.T) {
	f := newFakeFetcher()
	f.pages[""] = pageOf("a", "b")
	c := newComposer(f)

	_, err := c.FetchPage(context.Background())
	require.NoError(t, err)
	prev := c.Page()

	f.listErr = &api.APIError{Status: 502, Message: "Bad Gateway"}
	_, err = c.FetchPage(context.Background())
	require.Error(t, err)
	assert.Same(t, prev, c.Page())
	assert.Equal(t, f.listErr, c.Err())

	f.listErr = nil
	_, err = c.FetchPage(context.Background())
	require.NoError(t, err)
	assert.NoError(t, c.Err())
}

func TestDeleteFailureLeavesPageUnchanged(t *testing.T) {
	f := newFakeFetcher()
	f.pages[""] = pageOf("a", "b")
	var changes int
	c := newComposer(f, WithOnChange(func(*models.RecordPage, error) { changes++ }))

	_, err := c.FetchPage(context.Background())
	require.NoError(t, err)
	before := c.Page()
	fetches := f.callCount()

	f.deleteErr = &api.APIError{Status: 500, Message: "Internal Server Error"}
	err = c.DeleteRecord(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 500, api.StatusOf(err))

	assert.Same(t, before, c.Page())
	assert.Len(t, c.Page().Items, 2)
	assert.Error(t, c.Err())
	assert.Equal(t, fetches, f.callCount())
	assert.Equal(t, 2, changes)
}

func TestDeleteRefetchesAfterSuccess(t *testing.T) {
	f := newFakeFetcher()
	f.pages[""] = pageOf("a", "b")
	c := newComposer(f)
	_, err := c.FetchPage(context.Background())
	require.NoError(t, err)

	f.pages[""] = pageOf("b")
	require.NoError(t, c.DeleteRecord(context.Background(), "a"))

	assert.Equal(t, []string{"a"}, f.deletes)
	assert.Equal(t, 2, f.callCount())
	require.Len(t, c.Page().Items, 1)
	assert.Equal(t, "b", c.Page().Items[0].ID)
}

func TestDeleteSurfacesRefetchError(t *testing.T) {
	f := newFakeFetcher()
	c := newComposer(f)
	f.listErr = errors.New("connection reset")

	err := c.DeleteRecord(context.Background(), "a")
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, []string{"a"}, f.deletes)
}
