package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests are skipped when no database is configured.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	m, err := migrate.New("file://../../migrations", url)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	m.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("database unreachable: %v", err)
	}

	_, err = pool.Exec(ctx, `TRUNCATE answer_records, exam_attempt_questions, exam_attempts,
		one_time_passcodes, questions, students, years_of_passing, branches, colleges
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func createStudent(t *testing.T, pool *pgxpool.Pool, phone string) *model.Student {
	t.Helper()
	s := &model.Student{Name: "Student " + phone, Phone: phone, Qualification: "Not Specified"}
	require.NoError(t, NewStudentRepository(pool).Create(context.Background(), s, nil))
	return s
}

func createQuestions(t *testing.T, pool *pgxpool.Pool, n int) []int64 {
	t.Helper()
	repo := NewQuestionRepository(pool)
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		q := &model.Question{
			QuestionText:  fmt.Sprintf("Question %d", i),
			Option1:       fmt.Sprintf("A%d", i),
			Option2:       fmt.Sprintf("B%d", i),
			Option3:       fmt.Sprintf("C%d", i),
			Option4:       fmt.Sprintf("D%d", i),
			CorrectAnswer: fmt.Sprintf("A%d", i),
		}
		require.NoError(t, repo.Create(context.Background(), q))
		ids = append(ids, q.ID)
	}
	return ids
}

func TestStudentRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewStudentRepository(pool)

	email := "Meera@Example.com"
	s := &model.Student{Name: "Meera Pillai", Phone: "9000000001", Email: &email, Qualification: "B.Tech"}
	require.NoError(t, repo.Create(ctx, s, nil))
	assert.NotZero(t, s.ID)

	found, err := repo.FindByPhoneAndName(ctx, "9000000001", "Meera Pillai")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	_, err = repo.FindByPhoneAndName(ctx, "9000000001", "Someone Else")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.EmailExists(ctx, "meera@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, &model.Student{Name: "Copy", Phone: "9000000001", Qualification: "x"}, nil)
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	err = repo.Create(ctx, &model.Student{Name: "Copy", Phone: "9000000002", Email: &email, Qualification: "x"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAttemptRepositoryOneActivePerStudent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewAttemptRepository(pool)
	student := createStudent(t, pool, "9000000010")
	qids := createQuestions(t, pool, 5)

	const racers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &model.ExamAttempt{StudentID: student.ID, QuestionIDs: qids})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, conflicts)

	n, err := repo.CountIncompleteByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := repo.GetIncompleteByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, qids, active.QuestionIDs)

	// Completing frees the slot for a retake.
	_, err = repo.Complete(ctx, student.ID, func(*model.ExamAttempt, []model.AnswerRecord) int { return 0 })
	require.NoError(t, err)
	done, err := repo.HasCompleted(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, done)
	require.NoError(t, repo.Create(ctx, &model.ExamAttempt{StudentID: student.ID, QuestionIDs: qids}))
}

func TestAnswerRepositoryUpsertAndClose(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	attempts := NewAttemptRepository(pool)
	answers := NewAnswerRepository(pool)
	student := createStudent(t, pool, "9000000020")
	qids := createQuestions(t, pool, 3)

	a := &model.ExamAttempt{StudentID: student.ID, QuestionIDs: qids}
	require.NoError(t, attempts.Create(ctx, a))

	require.NoError(t, answers.Upsert(ctx, a.ID, qids[0], "B0"))
	require.NoError(t, answers.Upsert(ctx, a.ID, qids[0], "A0"))
	require.NoError(t, answers.Upsert(ctx, a.ID, qids[1], "C1"))

	saved, err := answers.ListByAttempt(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	byQuestion := map[int64]string{}
	for _, r := range saved {
		byQuestion[r.QuestionID] = r.SelectedAnswer
	}
	assert.Equal(t, "A0", byQuestion[qids[0]])
	assert.Equal(t, "C1", byQuestion[qids[1]])

	completed, err := attempts.Complete(ctx, student.ID, func(_ *model.ExamAttempt, rs []model.AnswerRecord) int {
		return len(rs)
	})
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	assert.Equal(t, 2, completed.Score)
	assert.NotNil(t, completed.CompletedAt)

	err = answers.Upsert(ctx, a.ID, qids[2], "A2")
	assert.ErrorIs(t, err, ErrAttemptClosed)

	_, err = attempts.Complete(ctx, student.ID, func(*model.ExamAttempt, []model.AnswerRecord) int { return 99 })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewOTPRepository(pool)
	student := createStudent(t, pool, "9000000030")
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := &model.OneTimePasscode{StudentID: student.ID, CodeHash: "h1", CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Replace(ctx, first))
	second := &model.OneTimePasscode{StudentID: student.ID, CodeHash: "h2", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, repo.Replace(ctx, second))

	var pending int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM one_time_passcodes WHERE student_id = $1 AND NOT is_verified`, student.ID,
	).Scan(&pending))
	assert.Equal(t, 1, pending)

	t.Run("concurrent increments are serialized", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Resolve(ctx, student.ID, func(*model.OneTimePasscode) model.OTPAction {
					return model.OTPActionIncrementAttempts
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		otp, err := repo.Resolve(ctx, student.ID, func(*model.OneTimePasscode) model.OTPAction { return model.OTPActionNone })
		require.NoError(t, err)
		assert.Equal(t, "h2", otp.CodeHash)
		assert.Equal(t, 20, otp.Attempts)
	})

	t.Run("verified passcodes are terminal", func(t *testing.T) {
		otp, err := repo.Resolve(ctx, student.ID, func(*model.OneTimePasscode) model.OTPAction { return model.OTPActionMarkVerified })
		require.NoError(t, err)
		assert.True(t, otp.IsVerified)

		_, err = repo.Resolve(ctx, student.ID, func(*model.OneTimePasscode) model.OTPAction { return model.OTPActionNone })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("purge removes only expired unverified rows", func(t *testing.T) {
		expired := &model.OneTimePasscode{StudentID: student.ID, CodeHash: "h3", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
		require.NoError(t, repo.Replace(ctx, expired))

		n, err := repo.PurgeExpired(ctx, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		var remaining int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM one_time_passcodes WHERE student_id = $1`, student.ID,
		).Scan(&remaining))
		assert.Equal(t, 1, remaining, "verified audit row stays")
	})
}

func TestMasterRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewMasterRepository(pool)

	id1, err := repo.GetOrCreateYear(ctx, 2025)
	require.NoError(t, err)
	id2, err := repo.GetOrCreateYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	c1, err := repo.UpsertCollege(ctx, "Model Engineering College")
	require.NoError(t, err)
	c2, err := repo.UpsertCollege(ctx, "Model Engineering College")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	ok, err := repo.CollegeExists(ctx, c1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.BranchExists(ctx, 424242)
	require.NoError(t, err)
	assert.False(t, ok)
}
