package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"fixtrack/internal/models"
)

// Export kinds accepted by /records/export/:type
const (
	ExportExcel = "excel"
	ExportPDF   = "pdf"
)

func (c *Client) Login(ctx context.Context, identifier, secret string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil,
		models.LoginRequest{Identifier: identifier, Secret: secret}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, identifier, secret, registrationCode string) (*models.AuthResponse, error) {
	return c.register(ctx, models.RegisterRequest{Identifier: identifier, Secret: secret, RegistrationCode: registrationCode})
}

// RegisterFirstAdmin claims a shop that has no accounts yet
func (c *Client) RegisterFirstAdmin(ctx context.Context, identifier, secret string) (*models.AuthResponse, error) {
	return c.register(ctx, models.RegisterRequest{Identifier: identifier, Secret: secret, FirstAdmin: true})
}

func (c *Client) register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecords fetches one page. Older backends answer with a bare array,
// which is folded into a single page.
func (c *Client) ListRecords(ctx context.Context, query url.Values) (*models.RecordPage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/records", query, nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []*models.RepairRecord
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return &models.RecordPage{Items: items, CurrentPage: 1, TotalPages: 1}, nil
	}
	var page models.RecordPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if page.Items == nil {
		page.Items = []*models.RepairRecord{}
	}
	return &page, nil
}

func (c *Client) GetRecord(ctx context.Context, id string) (*models.RepairRecord, error) {
	var out models.RepairRecord
	if err := c.doJSON(ctx, http.MethodGet, "/records/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecord normalizes and validates req before sending it, so the total
// that leaves the client is always serviceCharge + parts
func (c *Client) CreateRecord(ctx context.Context, req *models.RecordRequest) (*models.RepairRecord, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out models.RepairRecord
	if err := c.doJSON(ctx, http.MethodPost, "/records", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRecord(ctx context.Context, id string, req *models.RecordRequest) (*models.RepairRecord, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out models.RepairRecord
	if err := c.doJSON(ctx, http.MethodPut, "/records/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/records/"+url.PathEscape(id), nil, nil, nil)
}

// DownloadInvoice writes the PDF invoice of a record into w
func (c *Client) DownloadInvoice(ctx context.Context, id string, w io.Writer) (string, error) {
	return c.download(ctx, "/records/"+url.PathEscape(id)+"/invoice", w)
}

// Export writes the full records export of the given kind into w
func (c *Client) Export(ctx context.Context, kind string, w io.Writer) (string, error) {
	if kind != ExportExcel && kind != ExportPDF {
		return "", fmt.Errorf("unknown export type %q", kind)
	}
	return c.download(ctx, "/records/export/"+kind, w)
}

func (c *Client) Summary(ctx context.Context) (*models.Summary, error) {
	var out models.Summary
	if err := c.doJSON(ctx, http.MethodGet, "/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analysis fetches the service analysis; empty bounds are omitted
func (c *Client) Analysis(ctx context.Context, startDate, endDate string) (*models.Analysis, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("startDate", startDate)
	}
	if endDate != "" {
		q.Set("endDate", endDate)
	}
	var out models.Analysis
	if err := c.doJSON(ctx, http.MethodGet, "/analysis", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddStaff(ctx context.Context, req models.CreateStaffRequest) (*models.User, error) {
	var out models.User
	if err := c.doJSON(ctx, http.MethodPost, "/users/staff", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	var out models.Settings
	if err := c.doJSON(ctx, http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, s models.Settings) (*models.Settings, error) {
	var out models.Settings
	if err := c.doJSON(ctx, http.MethodPut, "/settings", nil, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
