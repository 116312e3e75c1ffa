package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// MasterRepository handles the registration reference lists.
type MasterRepository struct {
	pool *pgxpool.Pool
}

// NewMasterRepository creates a new MasterRepository.
func NewMasterRepository(pool *pgxpool.Pool) *MasterRepository {
	return &MasterRepository{pool: pool}
}

// ListColleges returns all colleges ordered by name.
func (r *MasterRepository) ListColleges(ctx context.Context) ([]model.College, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM colleges ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.College, error) {
		var c model.College
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

// ListBranches returns all branches ordered by name.
func (r *MasterRepository) ListBranches(ctx context.Context) ([]model.Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM branches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Branch, error) {
		var b model.Branch
		err := row.Scan(&b.ID, &b.Name)
		return b, err
	})
}

// ListYears returns all years of passing, most recent first.
func (r *MasterRepository) ListYears(ctx context.Context) ([]model.YearOfPassing, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, year FROM years_of_passing ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.YearOfPassing, error) {
		var y model.YearOfPassing
		err := row.Scan(&y.ID, &y.Year)
		return y, err
	})
}

// CollegeExists reports whether a college with id exists.
func (r *MasterRepository) CollegeExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM colleges WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// BranchExists reports whether a branch with id exists.
func (r *MasterRepository) BranchExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM branches WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// GetOrCreateYear returns the id of year, inserting it if missing.
func (r *MasterRepository) GetOrCreateYear(ctx context.Context, year int) (int64, error) {
	var id int64
	// DO UPDATE (not DO NOTHING) so RETURNING yields the existing row too.
	err := r.pool.QueryRow(ctx,
		`INSERT INTO years_of_passing (year) VALUES ($1)
		 ON CONFLICT (year) DO UPDATE SET year = EXCLUDED.year
		 RETURNING id`, year,
	).Scan(&id)
	return id, err
}

// UpsertCollege inserts a college by name and returns its id.
func (r *MasterRepository) UpsertCollege(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO colleges (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name,
	).Scan(&id)
	return id, err
}

// UpsertBranch inserts a branch by name and returns its id.
func (r *MasterRepository) UpsertBranch(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO branches (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name,
	).Scan(&id)
	return id, err
}

// CollegeByName looks up a college id by its exact name.
func (r *MasterRepository) CollegeByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM colleges WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// BranchByName looks up a branch id by its exact name.
func (r *MasterRepository) BranchByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM branches WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}
