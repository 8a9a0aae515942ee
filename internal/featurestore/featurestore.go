// Package featurestore builds the historical feature windows that
// prediction models consume. Each window is a fixed number of hourly
// feature rows for one city district, ending at the forecast target.
package featurestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hailcast/hailcast-api/internal/platform/logger"
	"github.com/hailcast/hailcast-api/internal/store"
)

// ErrNoDataForLocality is returned when a district has no recorded
// history at all. A short history is padded instead; an empty one
// cannot be.
var ErrNoDataForLocality = errors.New("no feature data for locality")

// featureColumns is the fixed feature set, in model input order.
var featureColumns = []string{
	"trips_count",
	"hour_sin",
	"hour_cos",
	"dow_sin",
	"dow_cos",
	"temp",
	"precipitation",
	"wind_speed",
}

// FeatureCount is the width of each feature row.
const FeatureCount = 8

// PostgresFeatureStore reads hourly demand features from the
// demand_features table.
type PostgresFeatureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFeatureStore creates a feature store over the given database handle.
func NewPostgresFeatureStore(db store.DBTX, log *slog.Logger) *PostgresFeatureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresFeatureStore{
		db:     db,
		logger: log.With(slog.String("component", "feature_store")),
	}
}

// CreateFeatureWindow returns pastSteps hourly feature rows for the
// district, in chronological order, ending at or before target. When
// fewer rows exist, the window is front-padded with column-wise means
// of the available history. Returns ErrNoDataForLocality when the
// district has no rows at all.
func (s *PostgresFeatureStore) CreateFeatureWindow(
	ctx context.Context,
	city string,
	district int,
	target time.Time,
	pastSteps int,
) ([][]float64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if pastSteps <= 0 {
		return nil, fmt.Errorf("pastSteps must be positive, got %d", pastSteps)
	}

	query := `
		SELECT trips_count, hour_sin, hour_cos, dow_sin, dow_cos, temp, precipitation, wind_speed
		FROM demand_features
		WHERE city = $1 AND district = $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query, city, district, target, pastSteps)
	if err != nil {
		return nil, fmt.Errorf("querying feature history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Rows arrive newest-first; collect then reverse.
	var history [][]float64
	for rows.Next() {
		row := make([]float64, FeatureCount)
		if err := rows.Scan(&row[0], &row[1], &row[2], &row[3], &row[4], &row[5], &row[6], &row[7]); err != nil {
			return nil, fmt.Errorf("scanning feature row: %w", err)
		}
		history = append(history, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading feature history: %w", err)
	}

	if len(history) == 0 {
		log.Warn("no feature history for locality",
			slog.String("city", city),
			slog.Int("district", district))
		return nil, fmt.Errorf("%w: city=%s district=%d", ErrNoDataForLocality, city, district)
	}

	reverse(history)

	window := padWindow(history, pastSteps)

	log.Debug("feature window built",
		slog.String("city", city),
		slog.Int("district", district),
		slog.Int("available", len(history)),
		slog.Int("past_steps", pastSteps))
	return window, nil
}

// reverse flips rows in place from newest-first to chronological order.
func reverse(rows [][]float64) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// padWindow front-pads a chronological history to pastSteps rows using
// the column-wise means of the available rows. A history that is
// already long enough is returned as its trailing pastSteps rows.
func padWindow(history [][]float64, pastSteps int) [][]float64 {
	if len(history) >= pastSteps {
		return history[len(history)-pastSteps:]
	}

	means := columnMeans(history)

	window := make([][]float64, 0, pastSteps)
	for i := len(history); i < pastSteps; i++ {
		pad := make([]float64, len(means))
		copy(pad, means)
		window = append(window, pad)
	}
	return append(window, history...)
}

// columnMeans computes the per-column mean over all rows.
func columnMeans(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}

	means := make([]float64, len(rows[0]))
	for _, row := range rows {
		for col, v := range row {
			means[col] += v
		}
	}
	for col := range means {
		means[col] /= float64(len(rows))
	}
	return means
}
