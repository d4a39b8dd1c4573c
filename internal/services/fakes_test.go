package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"fixtrack/internal/models"
	"fixtrack/internal/repositories"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[int]*models.User{}}
	for _, u := range users {
		f.nextID++
		u.ID = f.nextID
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(u)
}

func (f *fakeUsers) CreateFirst(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.users) > 0 {
		return repositories.ErrNotEmpty
	}
	return f.insert(u)
}

func (f *fakeUsers) insert(u *models.User) error {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return repositories.ErrDuplicate
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) Get(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeUsers) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeSettings struct {
	settings models.Settings
	err      error
}

func (f *fakeSettings) Get(_ context.Context) (*models.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Update(_ context.Context, s *models.Settings) error {
	if f.err != nil {
		return f.err
	}
	f.settings = *s
	return nil
}

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]*models.RepairRecord
	total   int
	lastF   models.RecordFilter
	err     error
}

func newFakeRecords(recs ...*models.RepairRecord) *fakeRecords {
	f := &fakeRecords{records: map[string]*models.RepairRecord{}}
	for _, r := range recs {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeRecords) Create(_ context.Context, rec *models.RepairRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (*models.RepairRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) Update(_ context.Context, rec *models.RepairRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rec.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRecords) sorted() []*models.RepairRecord {
	out := make([]*models.RepairRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRecords) List(_ context.Context, filter models.RecordFilter) ([]*models.RepairRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastF = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	total := f.total
	if total == 0 {
		total = len(f.records)
	}
	return f.sorted(), total, nil
}

func (f *fakeRecords) All(_ context.Context, filter models.RecordFilter) ([]*models.RepairRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastF = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(), nil
}

type fakeReports struct {
	mu sync.Mutex
	// entered and release, when set, hold Summary until the test lets go
	entered chan struct{}
	release chan struct{}

	summaryCalls  int
	analysisCalls int
	lastMonths    int
	lastTop       int
	lastStart     *time.Time
	lastEnd       *time.Time
}

func (f *fakeReports) Summary(_ context.Context, _ time.Time, months int) (*models.Summary, error) {
	f.mu.Lock()
	f.summaryCalls++
	f.lastMonths = months
	entered, release := f.entered, f.release
	f.entered = nil
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	return &models.Summary{TodayCollection: 500, PendingAmount: 120}, nil
}

func (f *fakeReports) summaries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls
}

func (f *fakeReports) Analysis(_ context.Context, start, end *time.Time, top int) (*models.Analysis, error) {
	f.analysisCalls++
	f.lastStart, f.lastEnd, f.lastTop = start, end, top
	return &models.Analysis{TotalRepairs: 3, TopModels: []models.NameCount{{Name: "Redmi 9", Count: 2}}}, nil
}

type fakePhotos struct {
	keys []string
	err  error
}

func (f *fakePhotos) UploadPhoto(_ context.Context, recordID, kind, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	key := recordID + "/" + kind
	f.keys = append(f.keys, key)
	return "https://photos.example.com/" + key, nil
}

var errBoom = errors.New("boom")
