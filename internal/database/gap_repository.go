package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
)

// GapRepository stores the gaps of the latest analysis.
type GapRepository struct {
	db *sqlx.DB
}

// NewGapRepository creates a new repository instance
func NewGapRepository(db *sqlx.DB) *GapRepository {
	return &GapRepository{db: db}
}

// NewResearchGaps builds rows for the report's gaps, stamped with now.
func NewResearchGaps(report *domain.GapReport, now time.Time) []domain.ResearchGap {
	combinations := report.GapCombinations()
	gaps := make([]domain.ResearchGap, 0, len(combinations))
	for _, c := range combinations {
		gaps = append(gaps, domain.ResearchGap{
			ID:          uuid.NewString(),
			Service:     c.Service,
			Location:    c.Location,
			Combination: c.DisplayText(),
			FoundAt:     now.UTC(),
		})
	}
	return gaps
}

// ReplaceAll deletes every stored gap and inserts gaps, in one transaction.
func (r *GapRepository) ReplaceAll(ctx context.Context, gaps []domain.ResearchGap) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM research_gaps`); err != nil {
		return fmt.Errorf("failed to clear research gaps: %w", err)
	}

	query := tx.Rebind(`
		INSERT INTO research_gaps (id, service, location, combination, found_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	for i := range gaps {
		g := &gaps[i]
		if _, err = tx.ExecContext(ctx, query, g.ID, g.Service, g.Location, g.Combination, g.FoundAt); err != nil {
			return fmt.Errorf("failed to insert research gap %q: %w", g.Combination, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit research gaps: %w", err)
	}
	return nil
}

// List returns stored gaps, newest first.
func (r *GapRepository) List(ctx context.Context) ([]domain.ResearchGap, error) {
	gaps := []domain.ResearchGap{}
	query := `
		SELECT id, service, location, combination, found_at
		FROM research_gaps
		ORDER BY found_at DESC, combination ASC
	`

	if err := r.db.SelectContext(ctx, &gaps, query); err != nil {
		return nil, fmt.Errorf("failed to list research gaps: %w", err)
	}
	return gaps, nil
}

// Count returns the number of stored gaps.
func (r *GapRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM research_gaps`); err != nil {
		return 0, fmt.Errorf("failed to count research gaps: %w", err)
	}
	return n, nil
}

// Ping verifies the connection.
func (r *GapRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
