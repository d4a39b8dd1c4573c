package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"

	"fixtrack/internal/models"
)

// Photo form fields
const (
	BeforePhoto = "beforePhoto"
	AfterPhoto  = "afterPhoto"
)

// Photo is an image sent with a record form
type Photo struct {
	Field    string // BeforePhoto or AfterPhoto
	Filename string
	Body     io.Reader
}

// SaveRecordWithPhotos creates (empty id) or updates a record using the
// multipart form, with spareParts as a JSON string and photos as file parts.
func (c *Client) SaveRecordWithPhotos(ctx context.Context, id string, req *models.RecordRequest, photos []Photo) (*models.RepairRecord, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeRecordForm(mw, req); err != nil {
		return nil, err
	}
	for _, p := range photos {
		if p.Field != BeforePhoto && p.Field != AfterPhoto {
			return nil, fmt.Errorf("unknown photo field %q", p.Field)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Field, filepath.Base(p.Filename)))
		if ct := mime.TypeByExtension(filepath.Ext(p.Filename)); ct != "" {
			h.Set("Content-Type", ct)
		} else {
			h.Set("Content-Type", "application/octet-stream")
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, p.Body); err != nil {
			return nil, fmt.Errorf("read %s: %w", p.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	method, path := http.MethodPost, "/records"
	if id != "" {
		method, path = http.MethodPut, "/records/"+url.PathEscape(id)
	}
	httpReq, err := c.newRequest(ctx, method, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	resp, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.RepairRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return &out, nil
}

func writeRecordForm(mw *multipart.Writer, req *models.RecordRequest) error {
	parts, err := json.Marshal(req.SpareParts)
	if err != nil {
		return err
	}
	fields := [][2]string{
		{"date", req.Date},
		{"mobileModel", req.MobileModel},
		{"customerName", req.CustomerName},
		{"customerPhone", req.CustomerPhone},
		{"complaint", req.Complaint},
		{"paymentStatus", req.PaymentStatus},
		{"serviceCharge", strconv.FormatFloat(req.ServiceCharge, 'f', -1, 64)},
		{"totalPrice", strconv.FormatFloat(req.TotalPrice, 'f', -1, 64)},
		{"spareParts", string(parts)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}
