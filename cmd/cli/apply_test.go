package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-marketplace/backend/internal/domain"
)

func TestResolveWorkDateIDs(t *testing.T) {
	job := &domain.Job{
		ID: 10,
		WorkDates: []domain.WorkDateSlot{
			{ID: 1, WorkDate: "2025-06-07"},
			{ID: 2, WorkDate: "2025-06-14"},
		},
	}

	ids, err := resolveWorkDateIDs(job, []string{"2025-06-14", "2025-06-07"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids)

	ids, err = resolveWorkDateIDs(job, []string{"2025-06-07", "2025-06-07"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	_, err = resolveWorkDateIDs(job, []string{"2025-06-08"})
	assert.EqualError(t, err, "求人 10 に勤務日 2025-06-08 はありません")
}
