package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixtrack/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestLoginPostsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "asha", req.Identifier)
		assert.Equal(t, "pw", req.Secret)

		json.NewEncoder(w).Encode(models.AuthResponse{Token: "t1", PrincipalID: "7", DisplayName: "Asha", Role: "Staff"})
	})

	resp, err := c.Login(context.Background(), "asha", "pw")
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, "Staff", resp.Role)
}

func TestErrorsCarryBackendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid username or password"}`))
	})

	_, err := c.Login(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "Invalid username or password", MessageOf(err, "login failed"))
}

func TestErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.DeleteRecord(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, "Internal Server Error", err.Error())
}

func TestTransportErrorUsesFallbackMessage(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api")
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Equal(t, 0, StatusOf(err))
	assert.Equal(t, "login failed", MessageOf(err, "login failed"))
}

func TestTokenReadAtDispatch(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`{"items":[],"currentPage":1,"totalPages":0}`))
	})

	var token atomic.Value
	token.Store("first")
	c.SetTokenSource(TokenFunc(func() string { return token.Load().(string) }))

	_, err := c.ListRecords(context.Background(), nil)
	require.NoError(t, err)
	token.Store("")
	_, err = c.ListRecords(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", ""}, seen)
}

func TestListRecordsPagedAndLegacyForms(t *testing.T) {
	legacy := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Paid", r.URL.Query().Get("status"))
		if legacy {
			w.Write([]byte(`[{"id":"a","mobileModel":"A52"},{"id":"b","mobileModel":"A53"}]`))
			return
		}
		w.Write([]byte(`{"items":[{"id":"a","mobileModel":"A52"}],"currentPage":2,"totalPages":3}`))
	})
	q := url.Values{"status": {"Paid"}}

	page, err := c.ListRecords(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)

	legacy = true
	page, err = c.ListRecords(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 2)
}

func TestCreateRecordSendsComputedTotal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.RecordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 350.0, req.TotalPrice)
		json.NewEncoder(w).Encode(models.RepairRecord{ID: "r1", TotalPrice: req.TotalPrice})
	})

	rec, err := c.CreateRecord(context.Background(), &models.RecordRequest{
		MobileModel:   "A52",
		CustomerName:  "Ravi",
		Complaint:     "Battery drain",
		ServiceCharge: 200,
		TotalPrice:    5,
		SpareParts:    []models.SparePart{{Name: "Battery", Price: 100}, {Name: "IC", Price: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, 350.0, rec.TotalPrice)
}

func TestCreateRecordValidatesBeforeSending(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.CreateRecord(context.Background(), &models.RecordRequest{CustomerName: "Ravi"})
	assert.ErrorIs(t, err, models.ErrModelRequired)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDownloadInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records/r1/invoice", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice_r1.pdf"`)
		w.Write([]byte("%PDF-1.3"))
	})

	var buf bytes.Buffer
	name, err := c.DownloadInvoice(context.Background(), "r1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "invoice_r1.pdf", name)
	assert.Equal(t, "%PDF-1.3", buf.String())
}

func TestExportRejectsUnknownKind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Export(context.Background(), "csv", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestAnalysisOmitsEmptyBounds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("startDate"))
		_, has := r.URL.Query()["endDate"]
		assert.False(t, has)
		w.Write([]byte(`{"totalRepairs":4}`))
	})

	a, err := c.Analysis(context.Background(), "2024-03-01", "")
	require.NoError(t, err)
	assert.Equal(t, 4, a.TotalRepairs)
}
