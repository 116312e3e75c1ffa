package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/handler"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository/memstore"
	"github.com/stemsi/scholarship-exam/internal/router"
	"github.com/stemsi/scholarship-exam/internal/service"
	"github.com/stemsi/scholarship-exam/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// inbox keeps the last text sent to each phone.
type inbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (i *inbox) Send(_ context.Context, phone, message string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last[phone] = message
}

func (i *inbox) code(t *testing.T, phone string) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	code := codePattern.FindString(i.last[phone])
	require.NotEmpty(t, code, "no OTP sent to %s", phone)
	return code
}

type testServer struct {
	engine  *gin.Engine
	db      *memstore.DB
	inbox   *inbox
	student *model.Student
	college int64
	branch  int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{
		GinMode:   gin.TestMode,
		JWTSecret: "router-test-secret",
		JWTExpiry: time.Hour,
		OTP:       config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 5, HashCost: bcrypt.MinCost},
		Exam:      config.DefaultExamConfig(),
	}

	db := memstore.New()
	db.Questions().Seed(30)
	s := &testServer{
		db:      db,
		inbox:   &inbox{last: map[string]string{}},
		student: db.Students().Add("Kiran Das", "9123456780"),
		college: db.Master().AddCollege("Government Engineering College"),
		branch:  db.Master().AddBranch("Electronics"),
	}

	otp := service.NewOTPService(db.OTPs(), s.inbox, cfg.OTP, log)
	auth := service.NewAuthService(cfg, db.Students(), otp, memstore.NewSessions(), log)
	exams := service.NewExamSessionService(db.Attempts(), db.Answers(), db.Questions(), nil, cfg.Exam, log)
	answers := service.NewAnswerService(db.Attempts(), db.Answers())
	registration := service.NewRegistrationService(db.Students(), db.Master(), log)

	s.engine = router.SetupRouter(auth, &router.Handlers{
		Auth:         handler.NewAuthHandler(auth, log),
		Exam:         handler.NewExamHandler(exams, answers, log),
		Registration: handler.NewRegistrationHandler(registration, log),
	}, nil, cfg, log)
	return s
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"name": s.student.Name, "phone": "+91 91234 56780"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		PendingToken string    `json:"pending_token"`
		ExpiresAt    time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.PendingToken)
	return data.PendingToken
}

func (s *testServer) authenticate(t *testing.T) string {
	t.Helper()
	pending := s.login(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
		map[string]string{"pending_token": pending, "code": s.inbox.code(t, s.student.Phone)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func wrongCode(code string) string {
	n, _ := strconv.Atoi(code)
	if n == 999999 {
		return "100000"
	}
	return strconv.Itoa(n + 1)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, env.Metadata.RequestID)
	assert.Equal(t, env.Metadata.RequestID, rec.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	t.Run("validation", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"name": "Kiran Das", "phone": "abc"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Fields, "phone")
	})

	t.Run("unknown student", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"name": "Nobody", "phone": "9123456780"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
		assert.Equal(t, "Invalid name or phone number.", env.Error.Message)
	})

	t.Run("auth responses are not cached", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"name": "Nobody", "phone": "9123456780"}, "")
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})
}

func TestVerifyOTP(t *testing.T) {
	s := newTestServer(t)

	t.Run("wrong then right code", func(t *testing.T) {
		pending := s.login(t)
		code := s.inbox.code(t, s.student.Phone)

		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
			map[string]string{"pending_token": pending, "code": wrongCode(code)}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "OTP_INVALID", env.Error.Code)

		rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
			map[string]string{"pending_token": pending, "code": code}, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, env = s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
			map[string]string{"pending_token": pending, "code": code}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "SESSION_EXPIRED", env.Error.Code)
	})

	t.Run("too many attempts", func(t *testing.T) {
		pending := s.login(t)
		code := s.inbox.code(t, s.student.Phone)
		for i := 0; i < 5; i++ {
			rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
				map[string]string{"pending_token": pending, "code": wrongCode(code)}, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
		}

		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
			map[string]string{"pending_token": pending, "code": code}, "")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "OTP_TOO_MANY_ATTEMPTS", env.Error.Code)
	})

	t.Run("malformed code", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp",
			map[string]string{"pending_token": "x", "code": "12ab56"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Fields, "code")
	})
}

func TestStudentRoutesRequireStudentToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/student/exam", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/student/exam", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

	pending := s.login(t)
	rec, env = s.do(t, http.MethodGet, "/api/v1/student/exam", nil, pending)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STUDENT_ACCESS_ONLY", env.Error.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	first := s.authenticate(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/auth/me", nil, first)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Student model.Student `json:"student"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, s.student.ID, me.Student.ID)

	second := s.authenticate(t)
	rec, env = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, first)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_INVALIDATED", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, second)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, second)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExamFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.authenticate(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/student/exam", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotContains(t, string(env.Data), "correct_answer")

	var state model.ExamState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.Len(t, state.Questions, 25)
	assert.Empty(t, state.Answers)

	bank, err := s.db.Questions().ListAll(context.Background())
	require.NoError(t, err)
	correct := map[int64]string{}
	for _, q := range bank {
		correct[q.ID] = q.CorrectAnswer
	}

	// Two right, one wrong.
	saves := []model.SaveAnswerRequest{
		{QuestionID: state.Questions[0].ID, Answer: correct[state.Questions[0].ID]},
		{QuestionID: state.Questions[1].ID, Answer: correct[state.Questions[1].ID]},
		{QuestionID: state.Questions[2].ID, Answer: "definitely wrong"},
	}
	for _, save := range saves {
		rec, env = s.do(t, http.MethodPost, "/api/v1/student/exam/answers", save, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"ok":true}`, string(env.Data))
	}

	t.Run("resume returns saved answers", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/student/exam", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)
		var resumed model.ExamState
		require.NoError(t, json.Unmarshal(env.Data, &resumed))
		assert.Equal(t, state.AttemptID, resumed.AttemptID)
		assert.Len(t, resumed.Answers, 3)
		assert.Equal(t, "definitely wrong", resumed.Answers[state.Questions[2].ID])
	})

	t.Run("foreign question is rejected", func(t *testing.T) {
		inAttempt := map[int64]bool{}
		for _, q := range state.Questions {
			inAttempt[q.ID] = true
		}
		var foreign int64
		for _, q := range bank {
			if !inAttempt[q.ID] {
				foreign = q.ID
				break
			}
		}
		rec, env := s.do(t, http.MethodPost, "/api/v1/student/exam/answers",
			model.SaveAnswerRequest{QuestionID: foreign, Answer: "x"}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Fields, "question_id")
	})

	rec, env = s.do(t, http.MethodPost, "/api/v1/student/exam/submit", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result model.ExamResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 25, result.Total)

	rec, env = s.do(t, http.MethodPost, "/api/v1/student/exam/answers", saves[2], token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ATTEMPT_COMPLETED", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/student/exam/submit", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_ACTIVE_ATTEMPT", env.Error.Code)
}

func TestRegistration(t *testing.T) {
	s := newTestServer(t)

	form := map[string]any{
		"name":            "Lakshmi Iyer",
		"email":           "lakshmi@example.com",
		"phone":           "9000011111",
		"college_id":      s.college,
		"branch_id":       s.branch,
		"year_of_passing": "2025-04-30",
	}

	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", form, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/register", form, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Phone number already exists", env.Error.Fields["phone"])
	assert.Equal(t, "Email ID already exists", env.Error.Fields["email"])

	rec, env = s.do(t, http.MethodGet, "/api/v1/public/check-user?email=lakshmi@example.com&phone=9999999999", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email_exists":true,"phone_exists":false}`, string(env.Data))

	rec, env = s.do(t, http.MethodGet, "/api/v1/public/master-data", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	var data model.MasterData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Colleges, 1)
	assert.Len(t, data.Branches, 1)
	require.Len(t, data.Years, 1)
	assert.Equal(t, 2025, data.Years[0].Year)
}
