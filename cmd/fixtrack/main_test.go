package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixtrack/internal/client/api"
	"fixtrack/internal/client/session"
	"fixtrack/internal/client/storage"
	"fixtrack/internal/config"
	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

func token(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

// backend is a canned FixTrack API
type backend struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	queries   []url.Values
	registers []models.RegisterRequest
	calls     map[string]int
	expired   bool
	accounts  map[string]string // username -> role
}

func newBackend(t *testing.T) *backend {
	b := &backend{
		t:        t,
		calls:    map[string]int{},
		accounts: map[string]string{"owner": models.RoleAdmin, "ravi": models.RoleStaff},
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.calls[route]++
	expired := b.expired
	b.mu.Unlock()

	fail := func(status int, msg string) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": msg})
	}

	if route == "POST /api/auth/login" {
		var req models.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		role, ok := b.accounts[req.Identifier]
		if !ok || req.Secret != "secret1" {
			fail(http.StatusUnauthorized, "Invalid username or password")
			return
		}
		json.NewEncoder(w).Encode(models.AuthResponse{
			Token: token(b.t, time.Hour), PrincipalID: "1", DisplayName: req.Identifier, Role: role,
		})
		return
	}

	if route == "POST /api/auth/register" {
		var req models.RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.registers = append(b.registers, req)
		role := models.RoleStaff
		switch {
		case req.FirstAdmin && len(b.accounts) > 0:
			fail(http.StatusConflict, "this shop already has an admin, register with the staff referral code")
			return
		case req.FirstAdmin:
			role = models.RoleAdmin
		case req.RegistrationCode != "JOIN2024":
			fail(http.StatusForbidden, "invalid registration code")
			return
		}
		b.accounts[req.Identifier] = role
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.AuthResponse{
			Token: token(b.t, time.Hour), PrincipalID: "1", DisplayName: req.Identifier, Role: role,
		})
		return
	}

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") || expired {
		fail(http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	switch route {
	case "GET /api/records":
		b.mu.Lock()
		b.queries = append(b.queries, r.URL.Query())
		b.mu.Unlock()
		json.NewEncoder(w).Encode(models.RecordPage{
			Items: []*models.RepairRecord{{
				ID: "r1-aaaa-bbbb", MobileModel: "Redmi 9", CustomerName: "Ravi",
				Complaint: "No charging", TotalPrice: 450, PaymentStatus: models.StatusPaid,
			}},
			CurrentPage: 2, TotalPages: 3,
		})
	case "DELETE /api/records/r1":
		json.NewEncoder(w).Encode(map[string]string{"message": "Record deleted"})
	case "GET /api/records/r1/invoice":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice_R1.pdf"`)
		w.Write([]byte("%PDF-1.3"))
	case "GET /api/summary":
		json.NewEncoder(w).Encode(models.Summary{
			TodayCollection: 1200, MonthlyEarnings: []models.MonthlyEarning{{Month: "2024-03", Total: 1200}},
		})
	case "GET /api/users":
		json.NewEncoder(w).Encode([]*models.User{{ID: 1, Name: "owner", Username: "owner", Role: models.RoleAdmin}})
	default:
		fail(http.StatusNotFound, "not found")
	}
}

// terminal keeps the stores between invocations, like a real machine would
type terminal struct {
	b         *backend
	durable   *storage.MemoryStore
	ephemeral *storage.MemoryStore
}

func newTerminal(t *testing.T) *terminal {
	return &terminal{b: newBackend(t), durable: storage.NewMemoryStore(), ephemeral: storage.NewMemoryStore()}
}

func (tm *terminal) build(cmd *cobra.Command) (*app, error) {
	cfg := &config.Config{}
	cfg.Client.APIURL = tm.b.srv.URL + "/api"
	cfg.Client.PageSize = 10

	client, err := api.New(cfg.Client.APIURL)
	if err != nil {
		return nil, err
	}
	mgr := session.New(client, tm.durable, tm.ephemeral)
	client.SetTokenSource(mgr)
	mgr.Initialize(cmd.Context())

	return &app{cfg: cfg, client: client, session: mgr, in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}, nil
}

func (tm *terminal) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(tm.build)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (tm *terminal) login(t *testing.T, user string) {
	t.Helper()
	_, err := tm.run(t, "", "login", user, "-p", "secret1")
	require.NoError(t, err)
}

func TestLoginRememberSurvivesRestart(t *testing.T) {
	tm := newTerminal(t)

	out, err := tm.run(t, "secret1\n", "login", "owner")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, owner (Admin)")
	assert.Equal(t, 1, tm.durable.Len())
	assert.Equal(t, 0, tm.ephemeral.Len())

	out, err = tm.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "owner (Admin, id 1)")
	assert.Contains(t, out, "Session valid until")

	_, err = tm.run(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, 0, tm.durable.Len())

	_, err = tm.run(t, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginWithoutRememberIsEphemeral(t *testing.T) {
	tm := newTerminal(t)
	_, err := tm.run(t, "", "login", "ravi", "-p", "secret1", "--remember=false")
	require.NoError(t, err)

	assert.Equal(t, 0, tm.durable.Len())
	assert.Equal(t, 1, tm.ephemeral.Len())
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	tm := newTerminal(t)

	_, err := tm.run(t, "", "login", "owner", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password", err.Error())
	assert.Equal(t, 0, tm.durable.Len()+tm.ephemeral.Len())
}

func TestRegisterFirstAdmin(t *testing.T) {
	tm := newTerminal(t)
	tm.b.accounts = map[string]string{}

	out, err := tm.run(t, "", "register", "boss", "-p", "secret1", "--first-admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered boss as Admin")
	assert.Equal(t, 1, tm.durable.Len())

	require.Len(t, tm.b.registers, 1)
	assert.True(t, tm.b.registers[0].FirstAdmin)
	assert.Empty(t, tm.b.registers[0].RegistrationCode)

	out, err = tm.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "boss (Admin")

	_, err = tm.run(t, "", "register", "other", "-p", "secret1", "--first-admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an admin")
}

func TestRegisterStaffNeedsCode(t *testing.T) {
	tm := newTerminal(t)

	_, err := tm.run(t, "", "register", "asha", "-p", "secret1")
	assert.ErrorIs(t, err, session.ErrRegistrationCode)
	assert.Zero(t, tm.b.count("POST /api/auth/register"))

	_, err = tm.run(t, "", "register", "asha", "-p", "secret1", "--code", "JOIN2024", "--first-admin")
	assert.Error(t, err)
	assert.Zero(t, tm.b.count("POST /api/auth/register"))

	out, err := tm.run(t, "", "register", "asha", "-p", "secret1", "--code", "JOIN2024")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered asha as Staff")
	assert.False(t, tm.b.registers[0].FirstAdmin)
}

func TestProtectedCommandsNeedSession(t *testing.T) {
	tm := newTerminal(t)

	for _, args := range [][]string{
		{"records", "list"},
		{"summary"},
		{"records", "invoice", "r1"},
	} {
		_, err := tm.run(t, "", args...)
		assert.ErrorIs(t, err, session.ErrNoSession, args)
	}
	assert.Zero(t, tm.b.count("GET /api/records"))
}

func TestRecordsListSendsComposedQuery(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "ravi")

	out, err := tm.run(t, "", "records", "list",
		"--range", "today", "--status", "Paid", "--search", " redmi ", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "r1-aaaa-")
	assert.Contains(t, out, "Rs. 450.00")
	assert.Contains(t, out, "Page 2 of 3")

	require.Len(t, tm.b.queries, 1)
	q := tm.b.queries[0]
	today := timeutil.FormatDate(timeutil.Now())
	assert.Equal(t, "redmi", q.Get("search"))
	assert.Equal(t, "Paid", q.Get("status"))
	assert.Equal(t, today, q.Get("startDate"))
	assert.Equal(t, today, q.Get("endDate"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "date", q.Get("sortKey"))
}

func TestRecordsListRejectsBadFilter(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "ravi")

	_, err := tm.run(t, "", "records", "list", "--status", "Unpaid")
	assert.Error(t, err)
	_, err = tm.run(t, "", "records", "list", "--range", "fortnight")
	assert.Error(t, err)
	assert.Empty(t, tm.b.queries)
}

func TestRejectedTokenLogsOut(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "ravi")
	tm.b.mu.Lock()
	tm.b.expired = true
	tm.b.mu.Unlock()

	_, err := tm.run(t, "", "summary")
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.Equal(t, 0, tm.durable.Len()+tm.ephemeral.Len())

	_, err = tm.run(t, "", "summary")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStaffCannotRunAdminCommands(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "ravi")

	for _, args := range [][]string{
		{"users", "list"},
		{"records", "delete", "r1"},
		{"settings", "set-code", "SHOP2024"},
	} {
		_, err := tm.run(t, "", args...)
		assert.ErrorIs(t, err, session.ErrForbidden, args)
	}
	assert.Zero(t, tm.b.count("GET /api/users"))
	assert.Zero(t, tm.b.count("DELETE /api/records/r1"))
}

func TestAdminDeleteRefetchesPage(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "owner")

	out, err := tm.run(t, "", "records", "delete", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Record deleted")
	assert.Equal(t, 1, tm.b.count("DELETE /api/records/r1"))
	assert.Equal(t, 1, tm.b.count("GET /api/records"))

	out, err = tm.run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "owner")
}

func TestSummaryAndInvoice(t *testing.T) {
	tm := newTerminal(t)
	tm.login(t, "ravi")

	out, err := tm.run(t, "", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Rs. 1200.00")
	assert.Contains(t, out, "2024-03")

	dir := t.TempDir()
	out, err = tm.run(t, "", "records", "invoice", "r1", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "invoice_R1.pdf")

	data, err := os.ReadFile(filepath.Join(dir, "invoice_R1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestParsePart(t *testing.T) {
	tests := []struct {
		in      string
		want    models.SparePart
		wantErr bool
	}{
		{"Combo=1500", models.SparePart{Name: "Combo", Price: 1500}, false},
		{"battery = 800.5", models.SparePart{Name: "Battery", Price: 800.5}, false},
		{"Custom:Back glass=250", models.SparePart{Name: "Custom", CustomName: "Back glass", Price: 250}, false},
		{"Speaker=120", models.SparePart{Name: "Custom", CustomName: "Speaker", Price: 120}, false},
		{"Combo", models.SparePart{}, true},
		{"=20", models.SparePart{}, true},
		{"IC=free", models.SparePart{}, true},
	}
	for _, tt := range tests {
		got, err := parsePart(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
