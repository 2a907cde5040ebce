package contracts

// DefaultFreeAllowance is the number of transfers allowed before fees accrue
const DefaultFreeAllowance = 3

// Rules are the game constraints for one optimization request
type Rules struct {
	TeamSize      int     `json:"team_size"`
	RaceSquadSize int     `json:"race_squad_size"`
	Budget        float64 `json:"budget"`
	MaxTransfers  int     `json:"max_transfers"`
	FreeAllowance int     `json:"free_allowance"`
}

// DefaultRules returns the Wielermanager spring classics rules
func DefaultRules() Rules {
	return Rules{
		TeamSize:      20,
		RaceSquadSize: 12,
		Budget:        40.0,
		MaxTransfers:  4,
		FreeAllowance: DefaultFreeAllowance,
	}
}

// PlanRequest is the complete input of one optimization call
type PlanRequest struct {
	Candidates []Candidate `json:"riders"`
	Periods    []Period    `json:"races"`
	Rules      Rules       `json:"rules"`
}

// PeriodIndex maps period ids to their position in the sequence
func (r *PlanRequest) PeriodIndex() map[string]int {
	idx := make(map[string]int, len(r.Periods))
	for i, p := range r.Periods {
		idx[p.ID] = i
	}
	return idx
}

// CandidateIndex maps candidate ids to their position in the input
func (r *PlanRequest) CandidateIndex() map[string]int {
	idx := make(map[string]int, len(r.Candidates))
	for i, c := range r.Candidates {
		idx[c.ID] = i
	}
	return idx
}
