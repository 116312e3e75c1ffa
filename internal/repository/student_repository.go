package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// StudentRepository is the identity directory backed by the students table.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `s.id, s.name, s.phone, s.email, s.college_id, s.branch_id, y.year, s.qualification, s.created_at, s.updated_at`

func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.CollegeID, &s.BranchID, &s.YearOfPassing, &s.Qualification, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+`
		 FROM students s LEFT JOIN years_of_passing y ON y.id = s.year_of_passing_id
		 WHERE s.id = $1`, id))
}

// FindByPhoneAndName resolves a login identity. Phone must already be normalized.
func (r *StudentRepository) FindByPhoneAndName(ctx context.Context, phone, name string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+`
		 FROM students s LEFT JOIN years_of_passing y ON y.id = s.year_of_passing_id
		 WHERE s.phone = $1 AND s.name = $2`, phone, name))
}

// PhoneExists reports whether a student is registered with phone.
func (r *StudentRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

// EmailExists reports whether a student is registered with email.
func (r *StudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

// Create inserts a student. yearID references years_of_passing.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student, yearID *int64) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (name, phone, email, college_id, branch_id, year_of_passing_id, qualification)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.Name, s.Phone, s.Email, s.CollegeID, s.BranchID, yearID, s.Qualification,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "students_email_key" {
			return ErrDuplicateEmail
		}
		return ErrDuplicatePhone
	}
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}
