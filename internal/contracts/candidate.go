package contracts

import "time"

// Period is one race in the ordered season calendar.
// ⭐ Contract: list order defines "previous period" for ownership evolution
type Period struct {
	ID        string                `json:"id"`
	Name      string                `json:"name,omitempty"`
	Date      string                `json:"date,omitempty"`
	Class     string                `json:"class,omitempty"`
	Year      string                `json:"year,omitempty"`
	Starters  []string              `json:"starters,omitempty"`
	Completed bool                  `json:"is_completed,omitempty"`
	Results   map[string]RaceResult `json:"actual_results,omitempty"` // candidate id -> result
}

// RaceResult is the actual classification of one candidate in a completed race
type RaceResult struct {
	Rank   int     `json:"rank"`
	Points float64 `json:"points"`
}

// Candidate is a rider that can be owned and fielded.
// Missing ExpectedValues entries count as 0.
type Candidate struct {
	ID             string             `json:"id"`
	Name           string             `json:"name,omitempty"`
	Team           string             `json:"team,omitempty"`
	Cost           float64            `json:"price"`
	ExpectedValues map[string]float64 `json:"expected_points"`     // period id -> expected points
	Ranks          map[string]int     `json:"top_ranks,omitempty"` // period id -> top-competitor rank
	Starts         []string           `json:"starts,omitempty"`    // period ids the rider is entered in
	GlobalScore    float64            `json:"global_score,omitempty"`

	// Sporza game data
	SporzaID   int     `json:"sporza_id,omitempty"`
	Popularity float64 `json:"sporza_popularity,omitempty"`
	JerseyURL  string  `json:"team_logo,omitempty"`
	ROI        float64 `json:"roi,omitempty"` // global score per unit of price
}

// ExpectedValue returns the expected points for a period (0 when absent)
func (c *Candidate) ExpectedValue(periodID string) float64 {
	return c.ExpectedValues[periodID]
}

// StartsIn reports whether the rider is entered in the period
func (c *Candidate) StartsIn(periodID string) bool {
	for _, s := range c.Starts {
		if s == periodID {
			return true
		}
	}
	return false
}

// Snapshot is a complete, static view of candidates and periods at collection time
type Snapshot struct {
	ID          int64       `json:"id,omitempty"`
	GameID      string      `json:"game_id,omitempty"`
	Season      int         `json:"season,omitempty"`
	CollectedAt time.Time   `json:"collected_at"`
	Riders      []Candidate `json:"riders"`
	Races       []Period    `json:"races"`
}

// Candidate finds a rider by id
func (s *Snapshot) Candidate(id string) (*Candidate, bool) {
	for i := range s.Riders {
		if s.Riders[i].ID == id {
			return &s.Riders[i], true
		}
	}
	return nil, false
}

// Request turns the snapshot into a planning request under the given rules
func (s *Snapshot) Request(rules Rules) *PlanRequest {
	return &PlanRequest{
		Candidates: s.Riders,
		Periods:    s.Races,
		Rules:      rules,
	}
}
