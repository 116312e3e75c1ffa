package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
)

// StudentRegistry is the write side of the identity directory.
type StudentRegistry interface {
	PhoneExists(ctx context.Context, phone string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, s *model.Student, yearID *int64) error
}

// MasterStore serves the registration reference lists.
type MasterStore interface {
	ListColleges(ctx context.Context) ([]model.College, error)
	ListBranches(ctx context.Context) ([]model.Branch, error)
	ListYears(ctx context.Context) ([]model.YearOfPassing, error)
	CollegeExists(ctx context.Context, id int64) (bool, error)
	BranchExists(ctx context.Context, id int64) (bool, error)
	GetOrCreateYear(ctx context.Context, year int) (int64, error)
}

// RegistrationService registers students and answers availability checks.
type RegistrationService struct {
	students StudentRegistry
	master   MasterStore
	log      zerolog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(students StudentRegistry, master MasterStore, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		students: students,
		master:   master,
		log:      log.With().Str("component", "registration_service").Logger(),
	}
}

// Register validates the form and creates the student. All uniqueness and
// required-field problems are reported together.
func (s *RegistrationService) Register(ctx context.Context, req *model.RegisterStudentRequest) (*model.Student, error) {
	phone := NormalizePhone(req.Phone)
	email := strings.TrimSpace(req.Email)
	fields := map[string]string{}

	phoneTaken, err := s.students.PhoneExists(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if phoneTaken {
		fields["phone"] = "Phone number already exists"
	}

	emailTaken, err := s.students.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if emailTaken {
		fields["email"] = "Email ID already exists"
	}

	if strings.TrimSpace(req.YearOfPassing) == "" {
		fields["year_of_passing"] = "Please select Year of Passing"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	year, err := parseYear(req.YearOfPassing)
	if err != nil {
		return nil, fieldError("year_of_passing", "Invalid date selected")
	}

	if ok, err := s.master.CollegeExists(ctx, req.CollegeID); err != nil {
		return nil, fmt.Errorf("check college: %w", err)
	} else if !ok {
		return nil, fieldError("college_id", "Selected college does not exist")
	}
	if ok, err := s.master.BranchExists(ctx, req.BranchID); err != nil {
		return nil, fmt.Errorf("check branch: %w", err)
	} else if !ok {
		return nil, fieldError("branch_id", "Selected branch does not exist")
	}

	yearID, err := s.master.GetOrCreateYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("resolve year of passing: %w", err)
	}

	qualification := strings.TrimSpace(req.Qualification)
	if qualification == "" {
		qualification = "Not Specified"
	}

	student := &model.Student{
		Name:          strings.TrimSpace(req.Name),
		Phone:         phone,
		Email:         &email,
		CollegeID:     &req.CollegeID,
		BranchID:      &req.BranchID,
		YearOfPassing: &year,
		Qualification: qualification,
	}

	err = s.students.Create(ctx, student, &yearID)
	switch {
	case errors.Is(err, repository.ErrDuplicatePhone):
		return nil, fieldError("phone", "Phone number already exists")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, fieldError("email", "Email ID already exists")
	case err != nil:
		return nil, fmt.Errorf("create student: %w", err)
	}

	s.log.Info().Int64("student_id", student.ID).Msg("Student registered")
	return student, nil
}

// parseYear accepts "2024" or a date such as "2024-05-31".
func parseYear(raw string) (int, error) {
	head := strings.SplitN(strings.TrimSpace(raw), "-", 2)[0]
	year, err := strconv.Atoi(head)
	if err != nil {
		return 0, err
	}
	if year < 1900 || year > 2100 {
		return 0, fmt.Errorf("year out of range: %d", year)
	}
	return year, nil
}

// CheckUser reports whether email and/or phone are already registered.
// Empty inputs are reported as not existing.
func (s *RegistrationService) CheckUser(ctx context.Context, email, phone string) (*model.CheckUserResponse, error) {
	res := &model.CheckUserResponse{}

	if email = strings.TrimSpace(email); email != "" {
		exists, err := s.students.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		res.EmailExists = exists
	}

	if phone = NormalizePhone(phone); phone != "" {
		exists, err := s.students.PhoneExists(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		res.PhoneExists = exists
	}

	return res, nil
}

// MasterData returns the registration form's reference lists.
func (s *RegistrationService) MasterData(ctx context.Context) (*model.MasterData, error) {
	colleges, err := s.master.ListColleges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	branches, err := s.master.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	years, err := s.master.ListYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}

	return &model.MasterData{Colleges: colleges, Branches: branches, Years: years}, nil
}
