// Package costs records monetary entries against projects and tasks and
// derives their balance.
package costs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
)

// Store is the subset of persistence the service needs.
type Store interface {
	CreateCost(ctx context.Context, cost model.Cost) (int64, error)
	ListCostsByReference(ctx context.Context, refType model.CostRef, refID int64) ([]model.Cost, error)
	ListCostsByUser(ctx context.Context, userID int64) ([]model.Cost, error)
	TotalCostsByKind(ctx context.Context, refType model.CostRef, refID int64, kind model.CostKind) (float64, error)
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
}

// Service manages cost entries.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService returns a Service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "costs").Logger(),
		now:   time.Now,
	}
}

// Record stores a positive amount of a known kind against an existing
// project or task. RecordedBy and CreatedAt are set by the caller and
// the service respectively.
func (s *Service) Record(ctx context.Context, cost model.Cost) (*model.Cost, error) {
	cost.Description = strings.TrimSpace(cost.Description)
	if !cost.Kind.Valid() {
		return nil, fmt.Errorf("cost kind %q: %w", cost.Kind, model.ErrInvalidInput)
	}
	if cost.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", model.ErrInvalidInput)
	}
	if cost.RecordedBy <= 0 {
		return nil, fmt.Errorf("recorded_by %d: %w", cost.RecordedBy, model.ErrInvalidInput)
	}
	if err := s.checkRef(ctx, cost.RefType, cost.RefID); err != nil {
		return nil, err
	}
	cost.CreatedAt = s.now()

	id, err := s.store.CreateCost(ctx, cost)
	if err != nil {
		return nil, err
	}
	cost.ID = id

	s.log.Info().
		Int64("cost_id", id).
		Str("ref_type", string(cost.RefType)).
		Int64("ref_id", cost.RefID).
		Str("kind", string(cost.Kind)).
		Float64("amount", cost.Amount).
		Msg("cost recorded")

	return &cost, nil
}

// ListByReference returns the entries booked against a project or task.
func (s *Service) ListByReference(ctx context.Context, refType model.CostRef, refID int64) ([]model.Cost, error) {
	if !refType.Valid() || refID <= 0 {
		return nil, fmt.Errorf("reference %s %d: %w", refType, refID, model.ErrInvalidInput)
	}
	return s.store.ListCostsByReference(ctx, refType, refID)
}

// ListByUser returns the entries a user recorded.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]model.Cost, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id %d: %w", userID, model.ErrInvalidInput)
	}
	return s.store.ListCostsByUser(ctx, userID)
}

// Balance sums a reference's entries by kind. The balance is advances
// minus delays minus planned expenses.
func (s *Service) Balance(ctx context.Context, refType model.CostRef, refID int64) (*model.CostBalance, error) {
	if !refType.Valid() || refID <= 0 {
		return nil, fmt.Errorf("reference %s %d: %w", refType, refID, model.ErrInvalidInput)
	}

	b := model.CostBalance{RefType: refType, RefID: refID}
	totals := []struct {
		kind model.CostKind
		dst  *float64
	}{
		{model.CostAdvance, &b.Advances},
		{model.CostDelay, &b.Delays},
		{model.CostPlannedExpense, &b.PlannedExpense},
	}
	for _, t := range totals {
		sum, err := s.store.TotalCostsByKind(ctx, refType, refID, t.kind)
		if err != nil {
			return nil, err
		}
		*t.dst = sum
	}
	b.Balance = b.Total()

	return &b, nil
}

func (s *Service) checkRef(ctx context.Context, refType model.CostRef, refID int64) error {
	if !refType.Valid() {
		return fmt.Errorf("reference type %q: %w", refType, model.ErrInvalidInput)
	}
	if refID <= 0 {
		return fmt.Errorf("reference id %d: %w", refID, model.ErrInvalidInput)
	}

	var err error
	switch refType {
	case model.CostRefProject:
		_, err = s.store.GetProjectByID(ctx, refID)
	case model.CostRefTask:
		_, err = s.store.GetTaskByID(ctx, refID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d does not exist: %w", strings.ToLower(string(refType)), refID, model.ErrInvalidInput)
	}
	return err
}
