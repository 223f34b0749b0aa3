package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/kvstore"
	"github.com/shift-marketplace/backend/internal/service"
)

type fakeStore struct {
	mu           sync.Mutex
	users        map[int64]*domain.User
	facilities   map[int64]*domain.Facility
	jobs         map[int64]*domain.Job
	applications map[int64][]int64 // ユーザー ID -> 勤務日 ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[int64]*domain.User),
		facilities:   make(map[int64]*domain.Facility),
		jobs:         make(map[int64]*domain.Job),
		applications: make(map[int64][]int64),
	}
}

func (s *fakeStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = int64(len(s.users) + 1)
	user.IsActive = true
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) CreateFacility(ctx context.Context, facility *domain.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	facility.ID = int64(len(s.facilities) + 1)
	s.facilities[facility.ID] = facility
	return nil
}

func (s *fakeStore) GetFacilityByID(ctx context.Context, id int64) (*domain.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (s *fakeStore) CreateJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = int64(len(s.jobs) + 100)
	for i := range job.WorkDates {
		job.WorkDates[i].ID = job.ID*10 + int64(i)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) GetJobByID(ctx context.Context, id int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	cp.WorkDates = slices.Clone(job.WorkDates)
	return &cp, nil
}

func (s *fakeStore) ListOpenJobs(ctx context.Context, from time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *domain.Job) int { return int(a.ID - b.ID) })
	return jobs, nil
}

func (s *fakeStore) appliedLocked(userID, jobID int64) []int64 {
	job, ok := s.jobs[jobID]
	if !ok {
		return []int64{}
	}
	ids := make([]int64, 0)
	for _, id := range s.applications[userID] {
		if _, ok := job.WorkDate(id); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *fakeStore) GetAppliedWorkDateIDs(ctx context.Context, userID, jobID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appliedLocked(userID, jobID), nil
}

func (s *fakeStore) CountAppliedWorkDates(ctx context.Context, userID, jobID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appliedLocked(userID, jobID)), nil
}

func (s *fakeStore) GetScheduledCommitments(ctx context.Context, userID int64, dates []string) ([]domain.ScheduledCommitment, error) {
	return []domain.ScheduledCommitment{}, nil
}

func (s *fakeStore) InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[userID] = append(s.applications[userID], workDateIDs...)
	stored := s.jobs[job.ID]
	for i := range stored.WorkDates {
		if slices.Contains(workDateIDs, stored.WorkDates[i].ID) && !stored.RequiresInterview {
			stored.WorkDates[i].MatchedCount++
		}
	}
	return []domain.Application{}, nil
}

func (s *fakeStore) GetApplicationsByJobID(ctx context.Context, jobID int64) ([]domain.ApplicationExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	rows := make([]domain.ApplicationExportRow, 0)
	for userID, ids := range s.applications {
		for _, id := range ids {
			wd, ok := job.WorkDate(id)
			if !ok {
				continue
			}
			rows = append(rows, domain.ApplicationExportRow{
				ApplicationID: int64(len(rows) + 1),
				WorkDate:      wd.WorkDate,
				UserID:        userID,
				FullName:      s.users[userID].FullName,
				PhoneNumber:   s.users[userID].PhoneNumber,
				Status:        domain.ApplicationStatusScheduled,
				CreatedAt:     time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
			})
		}
	}
	return rows, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	return nil
}

type testEnv struct {
	cfg     *config.Config
	store   *fakeStore
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 1
	cfg.Apply.RateLimit = 1
	cfg.Apply.RateBurst = 5

	store := newFakeStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	birth := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

	store.users[1] = &domain.User{ID: 1, Username: "worker", PasswordHash: string(hash), FullName: "佐藤翔", Email: "w@example.com",
		Role: domain.RoleWorker, PhoneNumber: "090-0000-0000", Address: "東京都", BirthDate: &birth, Qualification: "看護師", IsActive: true}
	store.users[2] = &domain.User{ID: 2, Username: "newbie", PasswordHash: string(hash), FullName: "鈴木葵", Email: "n@example.com",
		Role: domain.RoleWorker, IsActive: true}
	store.users[3] = &domain.User{ID: 3, Username: "owner", PasswordHash: string(hash), Email: "o@example.com",
		Role: domain.RoleFacility, IsActive: true}
	store.facilities[1] = &domain.Facility{ID: 1, Name: "ケアセンター", OwnerUserID: 3}
	store.jobs[10] = &domain.Job{
		ID: 10, FacilityID: 1, Title: "入浴介助", JobType: domain.JobTypeNormal,
		StartTime: "09:00", EndTime: "11:00", RecruitmentCount: 1,
		WorkDates: []domain.WorkDateSlot{
			{ID: 1, WorkDate: "2025-06-01", MatchedCount: 1},
			{ID: 2, WorkDate: "2025-06-02"},
		},
	}

	svc := service.NewApplicationService(store, kvstore.NewMemoryStore(), nopPublisher{}, nil, zap.NewNop())
	h, err := NewHandler(cfg, store, svc, zap.NewNop())
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{cfg: cfg, store: store, handler: h}
}

func (e *testEnv) tokenFor(t *testing.T, user *domain.User) *http.Cookie {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	})
	ss, err := token.SignedString([]byte(e.cfg.JWT.Secret))
	require.NoError(t, err)
	return &http.Cookie{Name: tokenCookieName, Value: ss}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		req.AddCookie(e.tokenFor(t, e.store.users[userID]))
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

type decodedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decodedResponse {
	t.Helper()
	var res decodedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "worker", "password": "password123"}, 0)
	res := decode(t, rec)
	assert.True(t, res.Success)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, tokenCookieName, rec.Result().Cookies()[0].Name)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "worker", "password": "wrong"}, 0)
	res = decode(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "worker"}, 0)
	assert.False(t, decode(t, rec).Success)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/jobs/10", nil, 0)
	res := decode(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "ログインしていません", res.Message)
}

func TestGetJobView(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/jobs/10", nil, 1)
	res := decode(t, rec)
	require.True(t, res.Success, res.Message)

	var view struct {
		Slots []struct {
			WorkDateID int64  `json:"workDateID"`
			Status     string `json:"status"`
			Label      string `json:"label"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &view))
	require.Len(t, view.Slots, 2)
	assert.Equal(t, "full", view.Slots[0].Status)
	assert.Equal(t, "募集終了", view.Slots[0].Label)
	assert.Equal(t, "available", view.Slots[1].Status)

	rec = env.do(t, http.MethodGet, "/jobs/abc", nil, 1)
	assert.False(t, decode(t, rec).Success)
}

func TestApplyToJob(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 1)
	res := decode(t, rec)
	require.True(t, res.Success, res.Message)

	var result service.ApplyResult
	require.NoError(t, json.Unmarshal(res.Data, &result))
	assert.True(t, result.IsMatched)
	assert.Equal(t, []int64{2}, result.WorkDateIDs)

	// 応募済みになった勤務日は再度応募できない
	rec = env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 1)
	res = decode(t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, string(res.Data), "already_applied")
}

func TestApplyToJob_ProfileIncomplete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 2)
	res := decode(t, rec)
	assert.False(t, res.Success)

	var data missingFieldsResponse
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, []string{"phoneNumber", "address", "birthDate", "qualification"}, data.MissingFields)

	// プロフィール入力後に戻ると選択が復元される
	rec = env.do(t, http.MethodGet, "/jobs/10", nil, 2)
	res = decode(t, rec)
	var view struct {
		PendingSelection []int64 `json:"pendingSelection"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &view))
	assert.Equal(t, []int64{2}, view.PendingSelection)
}

func TestApplyToJob_WorkerOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 3)
	res := decode(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "権限がありません", res.Message)
}

func TestApplyToJob_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.handler.applyLimiter = newUserLimiter(0.001, 1)

	env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{}}, 1)
	rec := env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 1)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUpdateMyProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/my-info/profile", map[string]string{
		"phoneNumber":   "080-1111-2222",
		"address":       "大阪府",
		"birthDate":     "1995-07-07",
		"qualification": "介護福祉士",
	}, 2)
	res := decode(t, rec)
	require.True(t, res.Success, res.Message)

	var data struct {
		MissingFields []string `json:"missingFields"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Empty(t, data.MissingFields)
	assert.Equal(t, "大阪府", env.store.users[2].Address)

	rec = env.do(t, http.MethodPatch, "/my-info/profile", map[string]string{"birthDate": "07/07/1995"}, 2)
	assert.False(t, decode(t, rec).Success)
}

func TestMutedFacilities(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/my-info/muted-facilities/1", nil, 1)
	require.True(t, decode(t, rec).Success)

	rec = env.do(t, http.MethodGet, "/jobs", nil, 1)
	res := decode(t, rec)
	require.True(t, res.Success)
	assert.JSONEq(t, `[]`, string(res.Data))

	rec = env.do(t, http.MethodDelete, "/my-info/muted-facilities/1", nil, 1)
	require.True(t, decode(t, rec).Success)

	rec = env.do(t, http.MethodGet, "/jobs", nil, 1)
	res = decode(t, rec)
	var jobs []domain.Job
	require.NoError(t, json.Unmarshal(res.Data, &jobs))
	assert.Len(t, jobs, 1)

	rec = env.do(t, http.MethodPut, "/my-info/muted-facilities/99", nil, 1)
	assert.False(t, decode(t, rec).Success)
}

func TestCreateJob(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"facilityID":       1,
		"title":            "送迎補助",
		"startTime":        "08:00",
		"endTime":          "10:00",
		"recruitmentCount": 2,
		"recurrence": map[string]string{
			"rule":  "FREQ=DAILY;COUNT=3",
			"from":  "2025-07-01",
			"until": "2025-07-31",
		},
	}
	rec := env.do(t, http.MethodPost, "/jobs", body, 3)
	res := decode(t, rec)
	require.True(t, res.Success, res.Message)

	var job domain.Job
	require.NoError(t, json.Unmarshal(res.Data, &job))
	assert.Len(t, job.WorkDates, 3)

	// ワーカーは求人を作成できない
	rec = env.do(t, http.MethodPost, "/jobs", body, 1)
	assert.Equal(t, "権限がありません", decode(t, rec).Message)

	body["endTime"] = "07:00"
	rec = env.do(t, http.MethodPost, "/jobs", body, 3)
	assert.False(t, decode(t, rec).Success)
}

func TestExportApplications(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/jobs/10/applications", map[string]any{"workDateIDs": []int64{2}}, 1)

	rec := env.do(t, http.MethodGet, "/jobs/10/applications/export", nil, 3)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "応募ID,勤務日"))
	assert.Contains(t, lines[1], "2025-06-02")
	assert.Contains(t, lines[1], "佐藤翔")
}
