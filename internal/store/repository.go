package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/helios/internal/contracts"
)

// Repository persists emitted recommendations for the history endpoint
// and the status command
// ⭐ SSOT: recommendation persistence happens here and nowhere else
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new recommendation repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StoredRecommendation is one persisted alert row
type StoredRecommendation struct {
	ID               int64                  `json:"id"`
	Symbol           string                 `json:"symbol"`
	Strategy         contracts.StrategyName `json:"strategy"`
	Strike           float64                `json:"strike"`
	Expiry           time.Time              `json:"expiry"`
	EntryPrice       float64                `json:"entry_price"`
	TargetPrice      float64                `json:"target_price"`
	StopLoss         float64                `json:"stop_loss"`
	FinalProbability float64                `json:"final_probability"`
	MonteCarloProb   float64                `json:"monte_carlo_probability"`
	HistoricalProb   float64                `json:"historical_probability"`
	TechnicalProb    float64                `json:"technical_probability"`
	Confidence       string                 `json:"confidence"`
	Risk             string                 `json:"risk"`
	SentAt           time.Time              `json:"sent_at"`
}

// EnsureSchema creates the recommendations table when missing. Called
// once at startup; no migration tooling for a single table.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			strike DOUBLE PRECISION NOT NULL,
			expiry DATE NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			target_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			final_probability DOUBLE PRECISION NOT NULL,
			monte_carlo_prob DOUBLE PRECISION NOT NULL,
			historical_prob DOUBLE PRECISION NOT NULL,
			technical_prob DOUBLE PRECISION NOT NULL,
			confidence TEXT NOT NULL,
			risk TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_recommendations_symbol_sent
			ON recommendations (symbol, sent_at DESC);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure recommendations schema: %w", err)
	}
	return nil
}

// Save persists one emitted recommendation
func (r *Repository) Save(ctx context.Context, a contracts.Analysis) error {
	query := `
		INSERT INTO recommendations (
			symbol, strategy, strike, expiry,
			entry_price, target_price, stop_loss,
			final_probability, monte_carlo_prob, historical_prob, technical_prob,
			confidence, risk, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	`

	breakdown := a.Score.ComponentBreakdown
	_, err := r.pool.Exec(ctx, query,
		a.Symbol,
		string(a.Strategy.Strategy),
		a.Strategy.StrikeTarget,
		a.Strategy.Expiry,
		a.Strategy.EntryPrice,
		a.Strategy.TargetPrice,
		a.Strategy.StopLoss,
		a.Score.FinalProbability,
		breakdown["monte_carlo"],
		breakdown["historical"],
		breakdown["technical"],
		string(a.Score.Confidence),
		string(a.Strategy.Risk),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}

// ListRecent returns the newest recommendations, optionally filtered
// by symbol
func (r *Repository) ListRecent(ctx context.Context, symbol string, limit int) ([]StoredRecommendation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, symbol, strategy, strike, expiry,
		       entry_price, target_price, stop_loss,
		       final_probability, monte_carlo_prob, historical_prob, technical_prob,
		       confidence, risk, sent_at
		FROM recommendations
	`
	args := []interface{}{}
	if symbol != "" {
		query += " WHERE symbol = $1"
		args = append(args, symbol)
	}
	query += fmt.Sprintf(" ORDER BY sent_at DESC LIMIT %d", limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var results []StoredRecommendation
	for rows.Next() {
		var rec StoredRecommendation
		var strategy string
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &strategy, &rec.Strike, &rec.Expiry,
			&rec.EntryPrice, &rec.TargetPrice, &rec.StopLoss,
			&rec.FinalProbability, &rec.MonteCarloProb, &rec.HistoricalProb, &rec.TechnicalProb,
			&rec.Confidence, &rec.Risk, &rec.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Strategy = contracts.StrategyName(strategy)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recommendations: %w", err)
	}
	return results, nil
}

// CountToday returns how many recommendations were stored today (UTC)
func (r *Repository) CountToday(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM recommendations WHERE sent_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count, nil
}

// LastForSymbol returns the most recent stored recommendation for a
// symbol, or pgx.ErrNoRows wrapped when none exists
func (r *Repository) LastForSymbol(ctx context.Context, symbol string) (StoredRecommendation, error) {
	recs, err := r.ListRecent(ctx, symbol, 1)
	if err != nil {
		return StoredRecommendation{}, err
	}
	if len(recs) == 0 {
		return StoredRecommendation{}, fmt.Errorf("no recommendation for %s: %w", symbol, pgx.ErrNoRows)
	}
	return recs[0], nil
}
