package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/taskd/internal/model"
)

const costColumns = "id, ref_type, ref_id, description, amount, kind, recorded_by, created_at"

// CreateCost inserts a cost entry and returns its assigned ID.
func (s *SQLiteStore) CreateCost(ctx context.Context, cost model.Cost) (int64, error) {
	if cost.CreatedAt.IsZero() {
		cost.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO costs (ref_type, ref_id, description, amount, kind, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cost.RefType, cost.RefID, cost.Description, cost.Amount,
		cost.Kind, cost.RecordedBy, cost.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating cost: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading cost id: %w", err)
	}
	return id, nil
}

// ListCostsByReference returns the entries booked against one project or
// task, oldest first.
func (s *SQLiteStore) ListCostsByReference(ctx context.Context, refType model.CostRef, refID int64) ([]model.Cost, error) {
	costs := []model.Cost{}
	err := s.db.SelectContext(ctx, &costs,
		"SELECT "+costColumns+" FROM costs WHERE ref_type = ? AND ref_id = ? ORDER BY created_at, id",
		refType, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying costs of %s %d: %w", refType, refID, err)
	}
	return costs, nil
}

// ListCostsByUser returns the entries recorded by one user, oldest first.
func (s *SQLiteStore) ListCostsByUser(ctx context.Context, userID int64) ([]model.Cost, error) {
	costs := []model.Cost{}
	err := s.db.SelectContext(ctx, &costs,
		"SELECT "+costColumns+" FROM costs WHERE recorded_by = ? ORDER BY created_at, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying costs recorded by user %d: %w", userID, err)
	}
	return costs, nil
}

// TotalCostsByKind sums the amounts of one kind booked against a reference.
// It returns 0 when there are none.
func (s *SQLiteStore) TotalCostsByKind(
	ctx context.Context,
	refType model.CostRef,
	refID int64,
	kind model.CostKind,
) (float64, error) {
	var total float64
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(amount), 0) FROM costs WHERE ref_type = ? AND ref_id = ? AND kind = ?",
		refType, refID, kind,
	)
	if err != nil {
		return 0, fmt.Errorf("summing %s costs of %s %d: %w", kind, refType, refID, err)
	}
	return total, nil
}
