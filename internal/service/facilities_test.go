package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/kvstore"
)

func TestMutedFacilities(t *testing.T) {
	store := facilityStore(20)
	kv := kvstore.NewMemoryStore()
	svc := NewApplicationService(store, kv, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.MuteFacility(ctx, 7, 3))
	assert.ErrorIs(t, svc.MuteFacility(ctx, 7, 4), ErrFacilityNotFound)

	muted, err := svc.MutedFacilities(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, muted)

	require.NoError(t, svc.UnmuteFacility(ctx, 7, 3))
	muted, err = svc.MutedFacilities(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, muted)
}

func TestListJobs_FiltersMutedFacilities(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := facilityStore(20)
	store.ListOpenJobsFunc = func(ctx context.Context, from time.Time) ([]*domain.Job, error) {
		assert.Equal(t, now, from)
		return []*domain.Job{
			{ID: 1, FacilityID: 3},
			{ID: 2, FacilityID: 5},
		}, nil
	}
	kv := kvstore.NewMemoryStore()
	svc := NewApplicationService(store, kv, nil, nil, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	jobs, err := svc.ListJobs(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	require.NoError(t, svc.MuteFacility(ctx, 7, 3))
	require.NoError(t, kv.AddMember(ctx, mutedFacilitiesKey(7), "garbage"))

	jobs, err = svc.ListJobs(ctx, 7)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(2), jobs[0].ID)

	// 他のワーカーには影響しない
	jobs, err = svc.ListJobs(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
