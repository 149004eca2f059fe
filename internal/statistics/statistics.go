package statistics

import (
	"fmt"
	"math"
	"sort"
)

// MaxSeats bounds the per-seat and per-rank tables
const MaxSeats = 6

// GameResult is the outcome of one simulated game for the seat under test
type GameResult struct {
	Seed      int64 // RNG seed for this game (for replay)
	Players   int   // Table size
	Rounds    int   // Rounds played
	Points    int   // Final points of the seat under test
	Rank      int   // Finishing place, 1 is the winner
	ExactBids int   // Rounds where declared equalled won
	TopPoints int   // Winner's final points
	Won       bool  // Seat under test won the game
	Fallbacks int   // Decisions the engine rejected and replaced
}

// RankStats tracks how often each finishing place occurred
type RankStats struct {
	Games  int     `json:"games"`
	Points float64 `json:"points"`
}

// Statistics accumulates results over many simulated games
type Statistics struct {
	Games  int       `json:"games"`
	Sum    float64   `json:"sum"`
	Sum2   float64   `json:"sum2"` // Sum of squares for variance calculation
	Values []float64 `json:"values"`

	Wins      int `json:"wins"`
	Rounds    int `json:"rounds"`
	ExactBids int `json:"exactBids"`
	Fallbacks int `json:"fallbacks"`

	// Margin to the winner, summed over lost games
	DeficitSum float64 `json:"deficitSum"`

	// Index 0 unused, 1-6 for finishing places
	RankResults [MaxSeats + 1]RankStats `json:"rankResults"`
}

// Mean returns the arithmetic mean of final points per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.Sum / float64(s.Games)
}

// Variance returns the sample variance of final points
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(max(s.Variance(), 0))
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Add incorporates one game result
func (s *Statistics) Add(result GameResult) {
	points := float64(result.Points)
	s.Games++
	s.Sum += points
	s.Sum2 += points * points
	s.Values = append(s.Values, points)

	s.Rounds += result.Rounds
	s.ExactBids += result.ExactBids
	s.Fallbacks += result.Fallbacks
	if result.Won {
		s.Wins++
	} else {
		s.DeficitSum += float64(result.TopPoints - result.Points)
	}

	if r := result.Rank; r >= 1 && r <= MaxSeats {
		s.RankResults[r].Games++
		s.RankResults[r].Points += points
	}
}

// Merge folds other into s. Values keep their order: s first, then other.
func (s *Statistics) Merge(other *Statistics) {
	s.Games += other.Games
	s.Sum += other.Sum
	s.Sum2 += other.Sum2
	s.Values = append(s.Values, other.Values...)
	s.Wins += other.Wins
	s.Rounds += other.Rounds
	s.ExactBids += other.ExactBids
	s.Fallbacks += other.Fallbacks
	s.DeficitSum += other.DeficitSum
	for r := range s.RankResults {
		s.RankResults[r].Games += other.RankResults[r].Games
		s.RankResults[r].Points += other.RankResults[r].Points
	}
}

// WinRate is the share of games the seat under test won
func (s *Statistics) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// ExactRate is the share of rounds where the bid was met exactly
func (s *Statistics) ExactRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.ExactBids) / float64(s.Rounds)
}

// MeanDeficit is the average distance to the winner in lost games
func (s *Statistics) MeanDeficit() float64 {
	lost := s.Games - s.Wins
	if lost == 0 {
		return 0
	}
	return s.DeficitSum / float64(lost)
}

// Median returns the median final points
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// RankShare returns the share of games finished in the given place (1-6)
func (s *Statistics) RankShare(rank int) float64 {
	if rank < 1 || rank > MaxSeats || s.Games == 0 {
		return 0
	}
	return float64(s.RankResults[rank].Games) / float64(s.Games)
}

// Validate checks that the accumulated counters agree with each other
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}

	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)",
			len(s.Values), s.Games)
	}

	if s.Wins > s.Games {
		return fmt.Errorf("wins (%d) exceed games (%d)", s.Wins, s.Games)
	}

	if s.ExactBids > s.Rounds {
		return fmt.Errorf("exact bids (%d) exceed rounds (%d)", s.ExactBids, s.Rounds)
	}

	ranked := 0
	for r := 1; r <= MaxSeats; r++ {
		ranked += s.RankResults[r].Games
	}
	if ranked != s.Games {
		return fmt.Errorf("rank total (%d) does not match games (%d)", ranked, s.Games)
	}
	if s.RankResults[1].Games < s.Wins {
		return fmt.Errorf("first places (%d) below wins (%d)", s.RankResults[1].Games, s.Wins)
	}

	return nil
}
