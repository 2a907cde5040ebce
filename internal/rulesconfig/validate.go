package rulesconfig

import (
	"fmt"
	"regexp"
	"time"
)

// ValidationError is a fatal rules file problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-value violation (logged only)
type Warning struct {
	Code    string
	Message string
}

var raceIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.GameID == "" {
		return ValidationError{"meta.game_id", "required"}
	}
	if cfg.Meta.Season < 2000 {
		return ValidationError{"meta.season", fmt.Sprintf("invalid season %d", cfg.Meta.Season)}
	}

	// === Roster ===
	if cfg.Roster.TeamSize <= 0 {
		return ValidationError{"roster.team_size", "must be > 0"}
	}
	if cfg.Roster.RaceSquadSize <= 0 {
		return ValidationError{"roster.race_squad_size", "must be > 0"}
	}
	if cfg.Roster.RaceSquadSize > cfg.Roster.TeamSize {
		return ValidationError{"roster.race_squad_size", "must be <= team_size"}
	}

	// === Budget / transfers ===
	if cfg.Budget <= 0 {
		return ValidationError{"budget", "must be > 0"}
	}
	if cfg.Transfers.Max < 0 {
		return ValidationError{"transfers.max", "must be >= 0"}
	}
	if cfg.Transfers.FreeAllowance < 0 {
		return ValidationError{"transfers.free_allowance", "must be >= 0"}
	}

	// === Scoring ===
	if err := validateScale(cfg.Scoring.TopCompetitors, "scoring.top_competitors"); err != nil {
		return err
	}
	if err := validateScale(cfg.Scoring.Results, "scoring.results"); err != nil {
		return err
	}

	// === Races ===
	if len(cfg.Races) == 0 {
		return ValidationError{"races", "at least one race is required"}
	}
	seen := make(map[string]bool, len(cfg.Races))
	var prev time.Time
	for i, r := range cfg.Races {
		field := fmt.Sprintf("races[%d]", i)
		if !raceIDPattern.MatchString(r.ID) {
			return ValidationError{field + ".id", fmt.Sprintf("must be a PCS slug, got %q", r.ID)}
		}
		if seen[r.ID] {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate race %q", r.ID)}
		}
		seen[r.ID] = true

		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return ValidationError{field + ".date", "must be YYYY-MM-DD"}
		}
		// list order is the transfer order
		if date.Before(prev) {
			return ValidationError{field + ".date", "races must be listed in calendar order"}
		}
		prev = date
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Transfers.Max > len(cfg.Races)*cfg.Roster.TeamSize {
		warnings = append(warnings, Warning{
			Code:    "TRANSFERS_UNREACHABLE",
			Message: fmt.Sprintf("transfers.max=%d can never be used up", cfg.Transfers.Max),
		})
	}

	if cfg.Transfers.FreeAllowance > cfg.Transfers.Max {
		warnings = append(warnings, Warning{
			Code:    "FREE_ALLOWANCE_ABOVE_MAX",
			Message: fmt.Sprintf("free_allowance=%d exceeds max=%d, fees never apply", cfg.Transfers.FreeAllowance, cfg.Transfers.Max),
		})
	}

	if !descending(cfg.Scoring.TopCompetitors.Points) || !descending(cfg.Scoring.Results.Points) {
		warnings = append(warnings, Warning{
			Code:    "SCALE_NOT_DESCENDING",
			Message: "a better rank should never earn fewer points",
		})
	}

	return warnings
}

func validateScale(s PointsScale, field string) error {
	if s.Default < 0 {
		return ValidationError{field + ".default", "must be >= 0"}
	}
	for i, p := range s.Points {
		if p < 0 {
			return ValidationError{fmt.Sprintf("%s.points[%d]", field, i), "must be >= 0"}
		}
	}
	return nil
}

func descending(points []float64) bool {
	for i := 1; i < len(points); i++ {
		if points[i] > points[i-1] {
			return false
		}
	}
	return true
}
