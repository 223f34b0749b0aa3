package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomSubset(t *testing.T) {
	arr := []int{1, 2, 3, 4, 5}
	for i := 0; i < 50; i++ {
		subset := GenerateRandomSubset(arr)
		assert.NotEmpty(t, subset)
		assert.LessOrEqual(t, len(subset), len(arr))
		for _, v := range subset {
			assert.Contains(t, arr, v)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, arr)
}

func TestGenerateRandomJob_IsValid(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		job := GenerateRandomJob(1, from, 14)
		require.NoError(t, ValidateJobTime(job))
		require.NoError(t, ValidateWorkDates(job.WorkDates))
	}
}

func TestGenerateUsernameFromName(t *testing.T) {
	username := GenerateUsernameFromName("")
	assert.Regexp(t, `^worker[0-9]{1,3}$`, username)
}
