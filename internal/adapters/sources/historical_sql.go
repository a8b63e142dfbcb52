package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

const defaultHistoryWindowDays = 90

// OpenPostgres opens a pgx-backed pool. The caller must import
// github.com/jackc/pgx/v5/stdlib to register the driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}
	return db, nil
}

// SQLHistorical computes delivery statistics for a driver from the
// delivery_history table:
//
//	driver_id text, load_id text, delivered_at timestamptz,
//	duration_minutes double precision, on_time boolean
type SQLHistorical struct {
	DB         *sql.DB
	WindowDays int
}

// NewSQLHistorical creates a fetcher over db that looks back 90 days.
func NewSQLHistorical(db *sql.DB) *SQLHistorical {
	return &SQLHistorical{DB: db, WindowDays: defaultHistoryWindowDays}
}

const historySummaryQuery = `
	SELECT COALESCE(AVG(duration_minutes), 0),
	       COALESCE(AVG(CASE WHEN on_time THEN 1.0 ELSE 0.0 END), 0),
	       COUNT(*)
	FROM delivery_history
	WHERE driver_id = $1
	  AND delivered_at >= now() - make_interval(days => $2);
`

// Each factor is the bucket's mean duration over the overall mean. Bucket
// names match the calendar bands used for enrichment.
const historyFactorQuery = `
	WITH recent AS (
		SELECT duration_minutes, delivered_at
		FROM delivery_history
		WHERE driver_id = $1
		  AND delivered_at >= now() - make_interval(days => $2)
	), overall AS (
		SELECT NULLIF(AVG(duration_minutes), 0) AS mean FROM recent
	), buckets AS (
		SELECT 'day_of_week' AS dimension,
		       lower(trim(to_char(delivered_at, 'Day'))) AS bucket,
		       duration_minutes
		FROM recent
		UNION ALL
		SELECT 'time_of_day',
		       CASE
		           WHEN EXTRACT(HOUR FROM delivered_at) BETWEEN 12 AND 16 THEN 'afternoon'
		           WHEN EXTRACT(HOUR FROM delivered_at) BETWEEN 17 AND 20 THEN 'evening'
		           WHEN EXTRACT(HOUR FROM delivered_at) >= 21
		             OR EXTRACT(HOUR FROM delivered_at) < 6 THEN 'night'
		           ELSE 'morning'
		       END,
		       duration_minutes
		FROM recent
		UNION ALL
		SELECT 'seasonal',
		       CASE
		           WHEN EXTRACT(MONTH FROM delivered_at) BETWEEN 3 AND 5 THEN 'spring'
		           WHEN EXTRACT(MONTH FROM delivered_at) BETWEEN 6 AND 8 THEN 'summer'
		           WHEN EXTRACT(MONTH FROM delivered_at) BETWEEN 9 AND 11 THEN 'fall'
		           ELSE 'winter'
		       END,
		       duration_minutes
		FROM recent
	)
	SELECT b.dimension, b.bucket, AVG(b.duration_minutes) / o.mean
	FROM buckets b CROSS JOIN overall o
	WHERE o.mean IS NOT NULL
	GROUP BY b.dimension, b.bucket, o.mean;
`

// Fetch returns the statistics in the historical provider's payload shape.
// A driver with no recent deliveries is an error so the source falls back.
func (s *SQLHistorical) Fetch(ctx context.Context, fc model.FetchContext) (model.RawData, error) {
	if s.DB == nil {
		return nil, errors.New("historical fetcher: db is nil")
	}
	window := s.WindowDays
	if window <= 0 {
		window = defaultHistoryWindowDays
	}

	var (
		avg, onTime float64
		count       int64
	)
	if err := s.DB.QueryRowContext(ctx, historySummaryQuery, fc.DriverID, window).Scan(&avg, &onTime, &count); err != nil {
		return nil, fmt.Errorf("%w: query delivery history: %w", ErrUpstream, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no deliveries for driver %q in %d days", ErrUpstream, fc.DriverID, window)
	}

	rows, err := s.DB.QueryContext(ctx, historyFactorQuery, fc.DriverID, window)
	if err != nil {
		return nil, fmt.Errorf("%w: query delivery factors: %w", ErrUpstream, err)
	}
	defer rows.Close()

	dims := map[string]map[string]any{
		"day_of_week": {},
		"time_of_day": {},
		"seasonal":    {},
	}
	for rows.Next() {
		var dim, bucket string
		var f float64
		if err := rows.Scan(&dim, &bucket, &f); err != nil {
			return nil, fmt.Errorf("%w: scan delivery factors: %w", ErrUpstream, err)
		}
		if m, ok := dims[dim]; ok {
			m[bucket] = f
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate delivery factors: %w", ErrUpstream, err)
	}

	return model.RawData{
		"average_delivery_minutes": avg,
		"on_time_rate":             onTime,
		"sample_size":              float64(count),
		"day_of_week_factors":      dims["day_of_week"],
		"time_of_day_factors":      dims["time_of_day"],
		"seasonal_factors":         dims["seasonal"],
	}, nil
}
