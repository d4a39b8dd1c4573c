package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	rec := &RepairRecord{
		ServiceCharge: 200,
		SpareParts:    []SparePart{{Name: "Battery", Price: 100}, {Name: "Switch", Price: 50}},
		TotalPrice:    9999,
	}
	assert.Equal(t, 350.0, rec.ComputeTotal())
	assert.Equal(t, 350.0, rec.TotalPrice)
	assert.Equal(t, 150.0, rec.PartsTotal())
}

func TestTotalPriceRoundsToPaise(t *testing.T) {
	parts := []SparePart{{Name: "IC", Price: 0.1}, {Name: "IC", Price: 0.2}}
	assert.Equal(t, 10.3, TotalPrice(10, parts))
	assert.Equal(t, 0.0, TotalPrice(0, nil))
}

func TestRecordRequestNormalizeIgnoresSubmittedTotal(t *testing.T) {
	req := &RecordRequest{
		MobileModel:   "  Redmi Note 9 ",
		CustomerName:  "Asha",
		Complaint:     "No display",
		ServiceCharge: 200,
		TotalPrice:    1,
		SpareParts: []SparePart{
			{Name: "Combo", Price: 100},
			{Name: "", Price: 0},
			{Name: "Battery", Price: 50},
		},
	}
	req.Normalize()

	assert.Equal(t, "Redmi Note 9", req.MobileModel)
	assert.Equal(t, StatusPending, req.PaymentStatus)
	assert.Len(t, req.SpareParts, 2)
	assert.Equal(t, 350.0, req.TotalPrice)
	require.NoError(t, req.Validate())
}

func TestRecordRequestValidate(t *testing.T) {
	valid := func() *RecordRequest {
		return &RecordRequest{
			MobileModel:   "Galaxy M31",
			CustomerName:  "Ravi",
			Complaint:     "Charging port",
			PaymentStatus: StatusPaid,
		}
	}

	tests := []struct {
		name   string
		mutate func(*RecordRequest)
		want   error
	}{
		{"valid without phone", func(*RecordRequest) {}, nil},
		{"missing model", func(r *RecordRequest) { r.MobileModel = "" }, ErrModelRequired},
		{"missing customer", func(r *RecordRequest) { r.CustomerName = "" }, ErrCustomerRequired},
		{"missing complaint", func(r *RecordRequest) { r.Complaint = "" }, ErrComplaintMissing},
		{"bad status", func(r *RecordRequest) { r.PaymentStatus = "paid" }, ErrInvalidStatus},
		{"negative charge", func(r *RecordRequest) { r.ServiceCharge = -1 }, ErrNegativeAmount},
		{"negative part", func(r *RecordRequest) {
			r.SpareParts = []SparePart{{Name: "IC", Price: -5}}
		}, ErrNegativeAmount},
		{"custom part without name", func(r *RecordRequest) {
			r.SpareParts = []SparePart{{Name: CustomPartName, Price: 5}}
		}, ErrPartName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSparePartDisplayName(t *testing.T) {
	assert.Equal(t, "Battery", SparePart{Name: "Battery"}.DisplayName())
	assert.Equal(t, "Speaker grill", SparePart{Name: CustomPartName, CustomName: " Speaker grill "}.DisplayName())
	assert.Equal(t, CustomPartName, SparePart{Name: CustomPartName}.DisplayName())
}
