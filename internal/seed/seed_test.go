package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/domain"
)

type fakeStore struct {
	nextID       int64
	users        []*domain.User
	facilities   []*domain.Facility
	jobs         []*domain.Job
	applications map[int64][]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{applications: make(map[int64][]int64)}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) CreateUser(ctx context.Context, user *domain.User) error {
	user.ID = s.id()
	s.users = append(s.users, user)
	return nil
}

func (s *fakeStore) CreateFacility(ctx context.Context, facility *domain.Facility) error {
	facility.ID = s.id()
	s.facilities = append(s.facilities, facility)
	return nil
}

func (s *fakeStore) CreateJob(ctx context.Context, job *domain.Job) error {
	job.ID = s.id()
	for i := range job.WorkDates {
		job.WorkDates[i].ID = s.id()
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *fakeStore) InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error) {
	s.applications[userID] = append(s.applications[userID], workDateIDs...)
	return nil, nil
}

func TestDemoFixture(t *testing.T) {
	f, err := DemoFixture()
	require.NoError(t, err)

	assert.Len(t, f.Users, 5)
	assert.Len(t, f.Facilities, 1)
	assert.Len(t, f.Jobs, 4)
	assert.Equal(t, "2025-06-01", f.Jobs[0].WorkDates[0].Date)
	require.NotNil(t, f.Jobs[2].WeeklyFrequency)
	assert.Equal(t, int32(2), *f.Jobs[2].WeeklyFrequency)
}

func TestParseFixture_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseFixture(strings.NewReader("users:\n  - username: a\n    nickname: b\n"))
	assert.Error(t, err)
}

func TestParseFixture_Empty(t *testing.T) {
	f, err := ParseFixture(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}

func TestSeeder_ApplyFixture(t *testing.T) {
	store := newFakeStore()
	s := NewSeeder(store, zap.NewNop(), "password", "example.com")

	f, err := DemoFixture()
	require.NoError(t, err)

	res, err := s.ApplyFixture(context.Background(), f)
	require.NoError(t, err)

	assert.Len(t, res.Users, 5)
	assert.Equal(t, res.Users["suzuki"], store.facilities[0].OwnerUserID)

	sato := store.users[1]
	assert.Equal(t, "sato@example.com", sato.Email)
	assert.Empty(t, sato.MissingProfileFields())
	assert.NotEmpty(t, store.users[4].MissingProfileFields())

	morning := res.Jobs["morning"]
	assert.Equal(t, domain.JobTypeNormal, morning.JobType)
	assert.Equal(t, []int64{morning.WorkDates[0].ID}, store.applications[res.Users["takahashi"]])
	assert.Equal(t, []int64{res.Jobs["early"].WorkDates[0].ID}, store.applications[res.Users["sato"]])
}

func TestSeeder_ApplyFixtureUnknownReference(t *testing.T) {
	s := NewSeeder(newFakeStore(), zap.NewNop(), "password", "example.com")

	_, err := s.ApplyFixture(context.Background(), &Fixture{
		Facilities: []FixtureFacility{{Name: "x", Owner: "nobody"}},
	})
	assert.EqualError(t, err, `facility x: unknown owner "nobody"`)
}

func TestSeeder_ApplyFixtureInvalidJob(t *testing.T) {
	s := NewSeeder(newFakeStore(), zap.NewNop(), "password", "example.com")

	_, err := s.ApplyFixture(context.Background(), &Fixture{
		Users:      []FixtureUser{{Username: "owner", Role: "facility"}},
		Facilities: []FixtureFacility{{Name: "f", Owner: "owner"}},
		Jobs: []FixtureJob{{
			Key: "bad", Facility: "f", Title: "t",
			StartTime: "12:00", EndTime: "09:00", RecruitmentCount: 1,
			WorkDates: []FixtureWorkDate{{Date: "2025-06-01"}},
		}},
	})
	assert.ErrorContains(t, err, "job bad")
}

func TestSeeder_RandomData(t *testing.T) {
	store := newFakeStore()
	s := NewSeeder(store, zap.NewNop(), "password", "example.com")
	ctx := context.Background()

	assert.Equal(t, 2, s.RandomWorkers(ctx, 2))

	facilityIDs := s.RandomFacilities(ctx, 2, 1)
	assert.Len(t, facilityIDs, 2)

	created := s.RandomJobs(ctx, facilityIDs, 3, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 14)
	assert.Equal(t, 6, created)
	for _, job := range store.jobs {
		assert.NotEmpty(t, job.WorkDates)
	}
}
