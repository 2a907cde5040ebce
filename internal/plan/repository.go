package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/wielermanager/internal/contracts"
)

// Repository stores plans in PostgreSQL
// ⭐ SSOT: plan rows are written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new plan repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts a plan together with the request that produced it
func (r *Repository) Save(ctx context.Context, plan *contracts.Plan, req *contracts.PlanRequest) error {
	id, err := uuid.Parse(plan.ID)
	if err != nil {
		return fmt.Errorf("invalid plan id %q: %w", plan.ID, err)
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	query := `
		INSERT INTO game.plans (
			id, fingerprint, strategy, status, objective, request_data, plan_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			objective = EXCLUDED.objective,
			plan_data = EXCLUDED.plan_data
	`
	_, err = r.pool.Exec(ctx, query,
		id, plan.Fingerprint, string(plan.Strategy), string(plan.Status), plan.Objective,
		reqJSON, planJSON, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// Get retrieves a plan by id
func (r *Repository) Get(ctx context.Context, id string) (*contracts.Plan, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return r.scanOne(ctx, `SELECT plan_data FROM game.plans WHERE id = $1`, planID)
}

// Latest retrieves the newest plan of a strategy
func (r *Repository) Latest(ctx context.Context, strategy contracts.Strategy) (*contracts.Plan, error) {
	return r.scanOne(ctx, `
		SELECT plan_data FROM game.plans
		WHERE strategy = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, string(strategy))
}

// Request retrieves the request a plan was produced from
func (r *Repository) Request(ctx context.Context, id string) (*contracts.PlanRequest, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}

	var data []byte
	err = r.pool.QueryRow(ctx, `SELECT request_data FROM game.plans WHERE id = $1`, planID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan request: %w", err)
	}

	var req contracts.PlanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

func (r *Repository) scanOne(ctx context.Context, query string, arg interface{}) (*contracts.Plan, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrPlanNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	var plan contracts.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &plan, nil
}
