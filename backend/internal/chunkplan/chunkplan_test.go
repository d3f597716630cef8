package chunkplan_test

import (
	"testing"

	"github.com/docuflowhq/docuflow/backend/internal/chunkplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_SingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := chunkplan.Plan(15, 20, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].TotalChunks)
	assert.Equal(t, 1, chunks[0].StartPage)
	assert.Equal(t, 15, chunks[0].EndPage)
	assert.Equal(t, 0, chunks[0].OverlapPages)
}

func TestPlan_OverlappingChunks(t *testing.T) {
	t.Parallel()

	chunks, err := chunkplan.Plan(45, 20, 10)
	require.NoError(t, err)

	// stride of 10: pages 1-20, 11-30, 21-40, 31-45
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 4, c.TotalChunks)
		assert.Equal(t, 10, c.OverlapPages)
	}
	assert.Equal(t, 1, chunks[0].StartPage)
	assert.Equal(t, 20, chunks[0].EndPage)
	assert.Equal(t, 11, chunks[1].StartPage)
	assert.Equal(t, 30, chunks[1].EndPage)
	assert.Equal(t, 31, chunks[3].StartPage)
	assert.Equal(t, 45, chunks[3].EndPage)
}

func TestPlan_CoversEveryPage(t *testing.T) {
	t.Parallel()

	chunks, err := chunkplan.Plan(101, 20, 5)
	require.NoError(t, err)

	covered := make(map[int]bool)
	for _, c := range chunks {
		require.LessOrEqual(t, c.StartPage, c.EndPage)
		for p := c.StartPage; p <= c.EndPage; p++ {
			covered[p] = true
		}
	}
	for p := 1; p <= 101; p++ {
		assert.True(t, covered[p], "page %d not covered", p)
	}
}

func TestPlan_InvalidInput(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		total, size, overlap int
	}{
		"zero pages":          {0, 20, 10},
		"zero chunk size":     {100, 0, 0},
		"negative overlap":    {100, 20, -1},
		"overlap equals size": {100, 20, 20},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := chunkplan.Plan(tc.total, tc.size, tc.overlap)
			assert.Error(t, err)
		})
	}
}

func TestEstimatePages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, chunkplan.EstimatePages(0))
	assert.Equal(t, 1, chunkplan.EstimatePages(1024))
	assert.Equal(t, 1, chunkplan.EstimatePages(50*1024))
	assert.Equal(t, 2, chunkplan.EstimatePages(50*1024+1))
	assert.Equal(t, 100, chunkplan.EstimatePages(100*50*1024))
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, chunkplan.EstimateTokens(""))
	assert.Equal(t, 1, chunkplan.EstimateTokens("abc"))
	assert.Equal(t, 25, chunkplan.EstimateTokens(string(make([]byte, 100))))
}
