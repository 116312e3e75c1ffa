package service

import (
	"context"
	"testing"

	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
	"github.com/stemsi/scholarship-exam/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationFixture struct {
	svc     *RegistrationService
	master  *memstore.Master
	college int64
	branch  int64
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	db := memstore.New()
	f := &registrationFixture{master: db.Master()}
	f.college = f.master.AddCollege("Government Engineering College")
	f.branch = f.master.AddBranch("Computer Science")
	f.svc = NewRegistrationService(db.Students(), f.master, nopLog)
	return f
}

func (f *registrationFixture) request() *model.RegisterStudentRequest {
	return &model.RegisterStudentRequest{
		Name:          "Meera Nair",
		Email:         "meera@example.com",
		Phone:         "+91 90000 12345",
		CollegeID:     f.college,
		BranchID:      f.branch,
		YearOfPassing: "2025-05-31",
	}
}

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the student", func(t *testing.T) {
		f := newRegistrationFixture(t)

		st, err := f.svc.Register(ctx, f.request())
		require.NoError(t, err)
		assert.NotZero(t, st.ID)
		assert.Equal(t, "9000012345", st.Phone)
		assert.Equal(t, "Not Specified", st.Qualification)
		require.NotNil(t, st.YearOfPassing)
		assert.Equal(t, 2025, *st.YearOfPassing)

		years, err := f.master.ListYears(ctx)
		require.NoError(t, err)
		require.Len(t, years, 1)
		assert.Equal(t, 2025, years[0].Year)
	})

	t.Run("reports every duplicate at once", func(t *testing.T) {
		f := newRegistrationFixture(t)
		_, err := f.svc.Register(ctx, f.request())
		require.NoError(t, err)

		req := f.request()
		req.Email = "MEERA@example.com"
		req.YearOfPassing = ""
		_, err = f.svc.Register(ctx, req)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, map[string]string{
			"phone":           "Phone number already exists",
			"email":           "Email ID already exists",
			"year_of_passing": "Please select Year of Passing",
		}, ve.Fields)
	})

	t.Run("bare year is accepted", func(t *testing.T) {
		f := newRegistrationFixture(t)
		req := f.request()
		req.YearOfPassing = "2024"
		st, err := f.svc.Register(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 2024, *st.YearOfPassing)
	})

	t.Run("unparseable year", func(t *testing.T) {
		f := newRegistrationFixture(t)
		req := f.request()
		req.YearOfPassing = "last-year"
		_, err := f.svc.Register(ctx, req)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "Invalid date selected", ve.Fields["year_of_passing"])
	})

	t.Run("unknown college or branch", func(t *testing.T) {
		f := newRegistrationFixture(t)
		req := f.request()
		req.CollegeID = 9999
		_, err := f.svc.Register(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)

		req = f.request()
		req.BranchID = 9999
		_, err = f.svc.Register(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate detected on insert", func(t *testing.T) {
		f := newRegistrationFixture(t)
		racing := NewRegistrationService(racingRegistry{}, f.master, nopLog)
		_, err := racing.Register(ctx, f.request())

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "Phone number already exists", ve.Fields["phone"])
	})
}

// racingRegistry loses the insert to a concurrent registration that passed
// the same existence checks.
type racingRegistry struct{}

func (racingRegistry) PhoneExists(context.Context, string) (bool, error) { return false, nil }
func (racingRegistry) EmailExists(context.Context, string) (bool, error) { return false, nil }
func (racingRegistry) Create(context.Context, *model.Student, *int64) error {
	return repository.ErrDuplicatePhone
}

func TestRegistrationService_CheckUser(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	_, err := f.svc.Register(ctx, f.request())
	require.NoError(t, err)

	res, err := f.svc.CheckUser(ctx, "meera@example.com", "9000012345")
	require.NoError(t, err)
	assert.True(t, res.EmailExists)
	assert.True(t, res.PhoneExists)

	res, err = f.svc.CheckUser(ctx, "", "+91 90000 12345")
	require.NoError(t, err)
	assert.False(t, res.EmailExists)
	assert.True(t, res.PhoneExists)

	res, err = f.svc.CheckUser(ctx, "other@example.com", "")
	require.NoError(t, err)
	assert.False(t, res.EmailExists)
	assert.False(t, res.PhoneExists)
}

func TestRegistrationService_MasterData(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	_, err := f.master.GetOrCreateYear(ctx, 2023)
	require.NoError(t, err)
	_, err = f.master.GetOrCreateYear(ctx, 2025)
	require.NoError(t, err)

	data, err := f.svc.MasterData(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Colleges, 1)
	assert.Len(t, data.Branches, 1)
	require.Len(t, data.Years, 2)
	assert.Equal(t, 2025, data.Years[0].Year)
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":       "9876543210",
		"+919876543210":    "9876543210",
		"+91 98765 43210":  "9876543210",
		"  98765\t43210  ": "9876543210",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}
