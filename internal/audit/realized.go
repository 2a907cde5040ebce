package audit

import (
	"time"

	"github.com/wonny/wielermanager/internal/contracts"
)

// RaceScore compares expected and actual points of the fielded riders in one race
type RaceScore struct {
	RaceID   string  `json:"race_id"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Hits     int     `json:"hits"` // fielded riders that scored
}

// RealizedReport scores a plan over the races that have been run
type RealizedReport struct {
	PlanID        string      `json:"plan_id"`
	Races         []RaceScore `json:"races"`
	TotalExpected float64     `json:"total_expected"`
	TotalActual   float64     `json:"total_actual"`
	Completed     int         `json:"completed"`
	GeneratedAt   time.Time   `json:"generated_at"`
}

// Accuracy is actual over expected points for completed races (0 when nothing was expected)
func (r *RealizedReport) Accuracy() float64 {
	if r.TotalExpected == 0 {
		return 0
	}
	return r.TotalActual / r.TotalExpected
}

// Realized sums the actual points of fielded riders for every completed race.
// Expected points are read from the riders when given, so rank plans score too.
func Realized(plan *contracts.Plan, races []contracts.Period, riders []contracts.Candidate) *RealizedReport {
	report := &RealizedReport{
		PlanID:      plan.ID,
		Races:       []RaceScore{},
		GeneratedAt: time.Now(),
	}

	expected := make(map[string]*contracts.Candidate, len(riders))
	for i := range riders {
		expected[riders[i].ID] = &riders[i]
	}

	for _, race := range races {
		if !race.Completed {
			continue
		}
		pp, ok := plan.Period(race.ID)
		if !ok {
			continue
		}

		score := RaceScore{RaceID: race.ID}
		for _, id := range pp.Selected {
			if c, ok := expected[id]; ok {
				score.Expected += c.ExpectedValue(race.ID)
			}
			if res, ok := race.Results[id]; ok && res.Points > 0 {
				score.Actual += res.Points
				score.Hits++
			}
		}

		report.Races = append(report.Races, score)
		report.TotalExpected += score.Expected
		report.TotalActual += score.Actual
		report.Completed++
	}

	return report
}
