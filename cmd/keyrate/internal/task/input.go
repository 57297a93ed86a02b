// Package task decodes keyrate JSON tasks, runs them against the risk API and
// shapes the JSON results.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Input is one JSON task. A task values either plain cashflows/times, dated
// cashflows in minor units, or a bond described by its terms.
type Input struct {
	TaskID        string `json:"task_id,omitempty"`
	Measure       string `json:"measure,omitempty"`
	Decomposition string `json:"decomposition,omitempty"`

	Curve       CurveInput  `json:"curve"`
	CreditCurve *CurveInput `json:"credit_curve,omitempty"`

	Cashflows []float64 `json:"cashflows,omitempty"`
	Times     []float64 `json:"times,omitempty"`

	SettlementDate string         `json:"settlement_date,omitempty"`
	DayCount       string         `json:"day_count,omitempty"`
	DatedCashflows []CashflowJSON `json:"dated_cashflows,omitempty"`

	Bond       *BondInput       `json:"bond,omitempty"`
	MonteCarlo *MonteCarloInput `json:"monte_carlo,omitempty"`
}

// CurveInput gives a zero curve either as rates/tenors (decimals, years) or
// as quotes (tenor label -> percent).
type CurveInput struct {
	Rates       []float64          `json:"rates,omitempty"`
	Tenors      []float64          `json:"tenors,omitempty"`
	Quotes      map[string]float64 `json:"quotes,omitempty"`
	Method      string             `json:"method,omitempty"`
	Compounding string             `json:"compounding,omitempty"`
}

// CashflowJSON is a dated payment in minor units (cents).
type CashflowJSON struct {
	Date      string `json:"date"`
	Coupon    int64  `json:"coupon"`
	Principal int64  `json:"principal"`
}

// BondInput describes a fixed, callable or floating-rate bullet bond.
type BondInput struct {
	Type      string  `json:"type"`
	Face      float64 `json:"face"`
	Coupon    float64 `json:"coupon"`
	Frequency int     `json:"frequency"`
	Maturity  float64 `json:"maturity"`
	CallTime  float64 `json:"call_time,omitempty"`
	CallPrice float64 `json:"call_price,omitempty"`
	Spread    float64 `json:"spread,omitempty"`
}

// MonteCarloInput overrides the configured simulation for one task.
type MonteCarloInput struct {
	Payoff     string   `json:"payoff,omitempty"`
	Strike     float64  `json:"strike,omitempty"`
	Notional   float64  `json:"notional,omitempty"`
	Fixing     float64  `json:"fixing,omitempty"`
	Scenarios  int      `json:"scenarios,omitempty"`
	TimeStep   float64  `json:"time_step,omitempty"`
	Horizon    float64  `json:"horizon,omitempty"`
	Volatility *float64 `json:"volatility,omitempty"`
	Seed       *uint64  `json:"seed,omitempty"`
	Workers    int      `json:"workers,omitempty"`
}

// Output is one JSON result. Only the fields of the requested computation
// are set.
type Output struct {
	TaskID        string `json:"task_id,omitempty"`
	Measure       string `json:"measure,omitempty"`
	Decomposition string `json:"decomposition,omitempty"`

	Value    *float64  `json:"value,omitempty"`
	Total    *float64  `json:"total,omitempty"`
	Tenors   []float64 `json:"tenors,omitempty"`
	KeyRates []float64 `json:"key_rates,omitempty"`

	Convexities [][]float64 `json:"convexities,omitempty"`
	Durations   []float64   `json:"durations,omitempty"`

	BaseDurations      []float64   `json:"base_durations,omitempty"`
	CreditDurations    []float64   `json:"credit_durations,omitempty"`
	BaseConvexities    [][]float64 `json:"base_convexities,omitempty"`
	CreditConvexities  [][]float64 `json:"credit_convexities,omitempty"`
	CrossConvexities   [][]float64 `json:"cross_convexities,omitempty"`
	SimulatedScenarios int         `json:"simulated_scenarios,omitempty"`

	Error string `json:"error,omitempty"`
}

// Parse decodes a single task object or an array of tasks. Tasks without an
// id get a random one so results can be matched to requests.
func Parse(raw []byte) ([]Input, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}

	var inputs []Input
	isArray := trimmed[0] == '['
	if isArray {
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
	} else {
		var input Input
		if err := json.Unmarshal(trimmed, &input); err != nil {
			return nil, false, err
		}
		inputs = []Input{input}
	}

	for i := range inputs {
		if inputs[i].TaskID == "" {
			inputs[i].TaskID = uuid.NewString()
		}
	}
	return inputs, isArray, nil
}
