package screener

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists screening snapshots for audit and history.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the snapshot tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS screening_runs (
			id              BIGSERIAL PRIMARY KEY,
			run_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			markets         TEXT,
			min_liquidity   DOUBLE PRECISION,
			fast            BOOLEAN,
			scanned         INT,
			truncated       BOOLEAN,
			truncate_reason TEXT,
			row_count       INT
		);

		CREATE TABLE IF NOT EXISTS screening_results (
			run_id            BIGINT NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
			rank              INT NOT NULL,
			code              TEXT NOT NULL,
			name              TEXT,
			market            TEXT,
			avg_trading_value DOUBLE PRECISION,
			momentum_3m       DOUBLE PRECISION,
			momentum_6m       DOUBLE PRECISION,
			momentum_12m      DOUBLE PRECISION,
			per               DOUBLE PRECISION,
			pbr               DOUBLE PRECISION,
			dividend_yield    DOUBLE PRECISION,
			score             DOUBLE PRECISION,
			PRIMARY KEY (run_id, rank)
		);
	`

	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create screening schema: %w", err)
	}
	return nil
}

// SaveRun stores one screening run with its ranked rows and returns the run id.
func (r *Repository) SaveRun(ctx context.Context, cfg Config, result *Result) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO screening_runs (
			markets, min_liquidity, fast, scanned, truncated, truncate_reason, row_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		strings.Join(cfg.Markets, ","),
		cfg.MinLiquidity,
		cfg.FastLiquidity,
		result.Scanned,
		result.Truncated,
		result.TruncateReason,
		len(result.Rows),
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert screening run: %w", err)
	}

	for i, row := range result.Rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO screening_results (
				run_id, rank, code, name, market,
				avg_trading_value, momentum_3m, momentum_6m, momentum_12m,
				per, pbr, dividend_yield, score
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			runID, i+1, row.Code, row.Name, row.Market,
			row.AvgTradingValue, row.Momentum3m, row.Momentum6m, row.Momentum12m,
			row.PER, row.PBR, row.DividendYield, row.Score,
		)
		if err != nil {
			return 0, fmt.Errorf("insert screening result %s: %w", row.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit snapshot tx: %w", err)
	}

	return runID, nil
}
