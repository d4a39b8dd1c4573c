package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixtrack/internal/models"
)

// Listing limits
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = 1_000_000
)

// sortColumns whitelists the sort keys the client may send
var sortColumns = map[string]string{
	"date":          "date",
	"mobileModel":   "LOWER(mobile_model)",
	"customerName":  "LOWER(customer_name)",
	"totalPrice":    "total_price",
	"serviceCharge": "service_charge",
	"paymentStatus": "payment_status",
	"createdAt":     "created_at",
}

const recordColumns = `id, date, mobile_model, customer_name, customer_phone, complaint,
	spare_parts, service_charge::float8, total_price::float8, payment_status,
	before_photo_url, after_photo_url, COALESCE(created_by, 0), created_at, updated_at`

type RecordRepository struct {
	DB *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{DB: db}
}

func scanRecord(row pgx.Row) (*models.RepairRecord, error) {
	var rec models.RepairRecord
	err := row.Scan(
		&rec.ID,
		&rec.Date,
		&rec.MobileModel,
		&rec.CustomerName,
		&rec.CustomerPhone,
		&rec.Complaint,
		&rec.SpareParts,
		&rec.ServiceCharge,
		&rec.TotalPrice,
		&rec.PaymentStatus,
		&rec.BeforePhotoURL,
		&rec.AfterPhotoURL,
		&rec.CreatedByID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.SpareParts == nil {
		rec.SpareParts = []models.SparePart{}
	}
	return &rec, nil
}

func (r *RecordRepository) Create(ctx context.Context, rec *models.RepairRecord) error {
	var createdBy any
	if rec.CreatedByID > 0 {
		createdBy = rec.CreatedByID
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO repair_records(id, date, mobile_model, customer_name, customer_phone, complaint,
			spare_parts, service_charge, total_price, payment_status, before_photo_url, after_photo_url, created_by)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
         RETURNING created_at, updated_at`,
		rec.ID, rec.Date, rec.MobileModel, rec.CustomerName, rec.CustomerPhone, rec.Complaint,
		rec.SpareParts, rec.ServiceCharge, rec.TotalPrice, rec.PaymentStatus,
		rec.BeforePhotoURL, rec.AfterPhotoURL, createdBy,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	return mapError(err)
}

func (r *RecordRepository) Get(ctx context.Context, id string) (*models.RepairRecord, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+recordColumns+` FROM repair_records WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, mapError(err)
	}
	return rec, nil
}

// Update overwrites the editable fields. Photo URLs are only replaced when
// the new value is non-empty.
func (r *RecordRepository) Update(ctx context.Context, rec *models.RepairRecord) error {
	err := r.DB.QueryRow(ctx,
		`UPDATE repair_records SET
			date=$2, mobile_model=$3, customer_name=$4, customer_phone=$5, complaint=$6,
			spare_parts=$7, service_charge=$8, total_price=$9, payment_status=$10,
			before_photo_url=COALESCE(NULLIF($11, ''), before_photo_url),
			after_photo_url=COALESCE(NULLIF($12, ''), after_photo_url),
			updated_at=NOW()
         WHERE id=$1
         RETURNING before_photo_url, after_photo_url, COALESCE(created_by, 0), created_at, updated_at`,
		rec.ID, rec.Date, rec.MobileModel, rec.CustomerName, rec.CustomerPhone, rec.Complaint,
		rec.SpareParts, rec.ServiceCharge, rec.TotalPrice, rec.PaymentStatus,
		rec.BeforePhotoURL, rec.AfterPhotoURL,
	).Scan(&rec.BeforePhotoURL, &rec.AfterPhotoURL, &rec.CreatedByID, &rec.CreatedAt, &rec.UpdatedAt)
	return mapError(err)
}

func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM repair_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of records matching f and the total match count
func (r *RecordRepository) List(ctx context.Context, f models.RecordFilter) ([]*models.RepairRecord, int, error) {
	q := BuildListQuery(f)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM repair_records`+q.Where, q.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT `+recordColumns+` FROM repair_records`+q.Where+q.OrderBy+q.Page,
		q.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []*models.RepairRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// All returns every record matching f without paging, for exports
func (r *RecordRepository) All(ctx context.Context, f models.RecordFilter) ([]*models.RepairRecord, error) {
	q := BuildListQuery(f)
	rows, err := r.DB.Query(ctx, `SELECT `+recordColumns+` FROM repair_records`+q.Where+q.OrderBy, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.RepairRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListQuery holds the SQL fragments of a records listing
type ListQuery struct {
	Where   string
	OrderBy string
	Page    string
	Args    []any
	Limit   int
	Offset  int
}

// BuildListQuery turns a filter into SQL. Sort keys outside the whitelist
// fall back to date; values only ever travel as parameters.
func BuildListQuery(f models.RecordFilter) ListQuery {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		conds = append(conds, fmt.Sprintf(
			"(mobile_model ILIKE %[1]s OR customer_name ILIKE %[1]s OR customer_phone ILIKE %[1]s OR complaint ILIKE %[1]s)", p))
	}
	if f.Status != "" {
		conds = append(conds, "payment_status = "+arg(f.Status))
	}
	if f.StartDate != nil {
		conds = append(conds, "date >= "+arg(f.StartDate.Format("2006-01-02"))+"::date")
	}
	if f.EndDate != nil {
		conds = append(conds, "date <= "+arg(f.EndDate.Format("2006-01-02"))+"::date")
	}

	q := ListQuery{}
	if len(conds) > 0 {
		q.Where = " WHERE " + strings.Join(conds, " AND ")
	}

	col, ok := sortColumns[f.SortKey]
	if !ok {
		col = "date"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortDirection, "asc") {
		dir = "ASC"
	}
	q.OrderBy = fmt.Sprintf(" ORDER BY %s %s, created_at %s", col, dir, dir)

	q.Limit = f.Limit
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	q.Offset = (page - 1) * q.Limit
	q.Page = fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	q.Args = args
	return q
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
