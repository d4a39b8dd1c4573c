package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

// ReportRepository runs the aggregate queries behind /summary and /analysis
type ReportRepository struct {
	DB *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{DB: db}
}

// Summary aggregates collections as of today. Profit is the service charge
// share of paid jobs.
func (r *ReportRepository) Summary(ctx context.Context, today time.Time, months int) (*models.Summary, error) {
	todayStr := timeutil.FormatDate(today)
	monthStart := timeutil.FormatDate(timeutil.StartOfMonth(today))

	s := &models.Summary{MonthlyEarnings: []models.MonthlyEarning{}}
	err := r.DB.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Paid' AND date = $1::date), 0)::float8,
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Paid' AND date BETWEEN $2::date AND $1::date), 0)::float8,
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Paid'), 0)::float8,
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Pending'), 0)::float8,
			COALESCE(SUM(service_charge) FILTER (WHERE payment_status = 'Paid' AND date = $1::date), 0)::float8,
			COALESCE(SUM(service_charge) FILTER (WHERE payment_status = 'Paid' AND date BETWEEN $2::date AND $1::date), 0)::float8
		FROM repair_records`, todayStr, monthStart,
	).Scan(
		&s.TodayCollection,
		&s.MonthCollection,
		&s.TotalCollection,
		&s.PendingAmount,
		&s.TodayProfit,
		&s.MonthProfit,
	)
	if err != nil {
		return nil, err
	}

	from := timeutil.FormatDate(timeutil.StartOfMonth(today).AddDate(0, -(months - 1), 0))
	rows, err := r.DB.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM') AS month, COALESCE(SUM(total_price), 0)::float8
		FROM repair_records
		WHERE payment_status = 'Paid' AND date BETWEEN $1::date AND $2::date
		GROUP BY month
		ORDER BY month`, from, todayStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.MonthlyEarning
		if err := rows.Scan(&m.Month, &m.Total); err != nil {
			return nil, err
		}
		s.MonthlyEarnings = append(s.MonthlyEarnings, m)
	}
	return s, rows.Err()
}

// Analysis aggregates records whose date falls in [start, end]; nil bounds
// are open.
func (r *ReportRepository) Analysis(ctx context.Context, start, end *time.Time, top int) (*models.Analysis, error) {
	var startArg, endArg any
	a := &models.Analysis{TopModels: []models.NameCount{}, TopParts: []models.NameCount{}}
	if start != nil {
		a.StartDate = timeutil.FormatDate(*start)
		startArg = a.StartDate
	}
	if end != nil {
		a.EndDate = timeutil.FormatDate(*end)
		endArg = a.EndDate
	}

	const rangeCond = `($1::date IS NULL OR date >= $1::date) AND ($2::date IS NULL OR date <= $2::date)`

	err := r.DB.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_status = 'Paid'),
			COUNT(*) FILTER (WHERE payment_status = 'Pending'),
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Paid'), 0)::float8,
			COALESCE(SUM(service_charge) FILTER (WHERE payment_status = 'Paid'), 0)::float8,
			COALESCE(SUM(total_price) FILTER (WHERE payment_status = 'Pending'), 0)::float8
		FROM repair_records
		WHERE `+rangeCond, startArg, endArg,
	).Scan(
		&a.TotalRepairs,
		&a.PaidRepairs,
		&a.PendingRepairs,
		&a.TotalRevenue,
		&a.ServiceRevenue,
		&a.PendingAmount,
	)
	if err != nil {
		return nil, err
	}
	a.PartsRevenue = a.TotalRevenue - a.ServiceRevenue

	a.TopModels, err = r.nameCounts(ctx, `
		SELECT mobile_model, COUNT(*) AS n
		FROM repair_records
		WHERE `+rangeCond+`
		GROUP BY mobile_model
		ORDER BY n DESC, mobile_model
		LIMIT $3`, startArg, endArg, top)
	if err != nil {
		return nil, err
	}

	a.TopParts, err = r.nameCounts(ctx, `
		SELECT
			CASE WHEN p->>'name' = 'Custom' AND COALESCE(p->>'customName', '') <> ''
				THEN p->>'customName' ELSE p->>'name' END AS part,
			COUNT(*) AS n
		FROM repair_records, jsonb_array_elements(spare_parts) AS p
		WHERE `+rangeCond+`
		GROUP BY part
		ORDER BY n DESC, part
		LIMIT $3`, startArg, endArg, top)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ReportRepository) nameCounts(ctx context.Context, query string, args ...any) ([]models.NameCount, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.NameCount{}
	for rows.Next() {
		var nc models.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}
