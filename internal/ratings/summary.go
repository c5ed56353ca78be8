package ratings

import "strconv"

// Summary aggregates a provider's ratings. The distribution always carries
// all five buckets, zero-filled, however sparse the data; the average of
// zero ratings is 0, never a division error.
type Summary struct {
	Average      float64        `json:"average_rating"`
	Total        int            `json:"total_ratings"`
	Distribution map[string]int `json:"rating_distribution"`
}

// BuildSummary computes the summary from per-score counts (score -> count).
func BuildSummary(counts map[int]int) Summary {
	s := Summary{Distribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}}

	sum := 0
	for score := 1; score <= 5; score++ {
		n := counts[score]
		s.Distribution[strconv.Itoa(score)] = n
		s.Total += n
		sum += score * n
	}
	if s.Total > 0 {
		s.Average = float64(sum) / float64(s.Total)
	}
	return s
}
