package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary(nil)

	assert.Equal(t, 0.0, s.Average)
	assert.Equal(t, 0, s.Total)
	assert.Len(t, s.Distribution, 5)
	for _, key := range []string{"1", "2", "3", "4", "5"} {
		assert.Equal(t, 0, s.Distribution[key])
	}
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(map[int]int{5: 3, 4: 1, 1: 1})

	assert.Equal(t, 5, s.Total)
	assert.InDelta(t, 4.0, s.Average, 0.0001) // (15+4+1)/5
	assert.Equal(t, 3, s.Distribution["5"])
	assert.Equal(t, 1, s.Distribution["4"])
	assert.Equal(t, 0, s.Distribution["3"])
	assert.Equal(t, 0, s.Distribution["2"])
	assert.Equal(t, 1, s.Distribution["1"])

	total := 0
	for _, n := range s.Distribution {
		total += n
	}
	assert.Equal(t, s.Total, total)
}

func TestBuildSummaryIgnoresOutOfRangeScores(t *testing.T) {
	s := BuildSummary(map[int]int{0: 4, 6: 2, 3: 1})
	assert.Equal(t, 1, s.Total)
	assert.InDelta(t, 3.0, s.Average, 0.0001)
}
