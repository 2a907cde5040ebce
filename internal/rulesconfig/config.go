package rulesconfig

import (
	"time"

	"github.com/wonny/wielermanager/internal/contracts"
)

// Config is the full game setup for one season
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Roster    Roster    `yaml:"roster" json:"roster"`
	Budget    float64   `yaml:"budget" json:"budget"`
	Transfers Transfers `yaml:"transfers" json:"transfers"`
	Scoring   Scoring   `yaml:"scoring" json:"scoring"`
	Races     []Race    `yaml:"races" json:"races"`
}

// Meta identifies the game
type Meta struct {
	GameID  string `yaml:"game_id" json:"game_id"` // Sporza game slug, e.g. vrjr-m-26
	Season  int    `yaml:"season" json:"season"`
	Version string `yaml:"version" json:"version"`
}

// Roster sizes
type Roster struct {
	TeamSize      int `yaml:"team_size" json:"team_size"`
	RaceSquadSize int `yaml:"race_squad_size" json:"race_squad_size"`
}

// Transfers limits
type Transfers struct {
	Max           int `yaml:"max" json:"max"`
	FreeAllowance int `yaml:"free_allowance" json:"free_allowance"`
}

// Scoring converts ranks into points
type Scoring struct {
	TopCompetitors PointsScale `yaml:"top_competitors" json:"top_competitors"` // expected points from PCS rank
	Results        PointsScale `yaml:"results" json:"results"`                 // actual points from finish rank
}

// PointsScale maps rank r (1-based) to Points[r-1]; ranks past the list get Default
type PointsScale struct {
	Points  []float64 `yaml:"points" json:"points"`
	Default float64   `yaml:"default" json:"default"`
}

// For returns the points for a rank
func (s PointsScale) For(rank int) float64 {
	if rank >= 1 && rank <= len(s.Points) {
		return s.Points[rank-1]
	}
	return s.Default
}

// Depth is the last rank with an explicit value
func (s PointsScale) Depth() int {
	return len(s.Points)
}

// Race is one calendar entry
type Race struct {
	ID    string `yaml:"id" json:"id"` // PCS race slug
	Name  string `yaml:"name" json:"name"`
	Date  string `yaml:"date" json:"date"` // YYYY-MM-DD
	Class string `yaml:"class" json:"class"`
}

// Rules converts the file into optimizer rules
func (c *Config) Rules() contracts.Rules {
	return contracts.Rules{
		TeamSize:      c.Roster.TeamSize,
		RaceSquadSize: c.Roster.RaceSquadSize,
		Budget:        c.Budget,
		MaxTransfers:  c.Transfers.Max,
		FreeAllowance: c.Transfers.FreeAllowance,
	}
}

// Periods returns the calendar in race order as empty periods
func (c *Config) Periods() []contracts.Period {
	out := make([]contracts.Period, len(c.Races))
	for i, r := range c.Races {
		out[i] = contracts.Period{
			ID:    r.ID,
			Name:  r.Name,
			Date:  r.Date,
			Class: r.Class,
		}
	}
	return out
}

// Default returns the spring classics game rules without a race calendar
func Default() *Config {
	return &Config{
		Meta:   Meta{GameID: "vrjr-m-26", Season: 2026, Version: "default"},
		Roster: Roster{TeamSize: 20, RaceSquadSize: 12},
		Budget: 40,
		Transfers: Transfers{
			Max:           4,
			FreeAllowance: contracts.DefaultFreeAllowance,
		},
		Scoring: Scoring{
			TopCompetitors: PointsScale{
				Points: []float64{
					100, 80, 70, 60, 50, 45, 40, 35, 30, 25,
					20, 18, 16, 14, 12, 10, 9, 8, 7, 6,
				},
				Default: 1,
			},
			Results: PointsScale{
				Points: []float64{
					50, 44, 40, 36, 32, 30, 28, 26, 24, 22,
					20, 18, 16, 14, 12, 10, 8, 6, 4, 2,
				},
			},
		},
	}
}

// DecisionSnapshot ties a plan to the exact rules file it was computed with
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	GameID     string    `json:"game_id"`
	CreatedAt  time.Time `json:"created_at"`
}
