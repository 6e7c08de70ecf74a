package grid

import (
	"github.com/pkg/errors"
)

// Observation is what an agent sees of the grid after a reset or a step
type Observation struct {
	Year         int `json:"year"`
	Month        int `json:"month"`
	Day          int `json:"day"`
	HourOfDay    int `json:"hour_of_day"`
	MinuteOfHour int `json:"minute_of_hour"`
	DayOfWeek    int `json:"day_of_week"`

	GenP             []float64 `json:"gen_p"`
	LoadP            []float64 `json:"load_p"`
	POr              []float64 `json:"p_or"`
	PEx              []float64 `json:"p_ex"`
	AOr              []float64 `json:"a_or"`
	Rho              []float64 `json:"rho"`
	LineStatus       []bool    `json:"line_status"`
	TimestepOverflow []int     `json:"timestep_overflow"`
	TopoVect         []int     `json:"topo_vect"`

	TimeNextMaintenance     []int `json:"time_next_maintenance"`
	DurationNextMaintenance []int `json:"duration_next_maintenance"`
	TimeSinceLastAttack     []int `json:"time_since_last_attack"`

	TargetDispatch    []float64 `json:"target_dispatch"`
	ActualDispatch    []float64 `json:"actual_dispatch"`
	Curtailment       []float64 `json:"curtailment"`
	CurtailmentLimit  []float64 `json:"curtailment_limit"`
	CurtailmentMW     []float64 `json:"curtailment_mw"`
	GenPBeforeCurtail []float64 `json:"gen_p_before_curtail"`

	StorageCharge []float64 `json:"storage_charge"`
	StoragePower  []float64 `json:"storage_power"`

	ThermalLimit []float64 `json:"thermal_limit"`

	CurrentStep int `json:"current_step"`
	MaxStep     int `json:"max_step"`
}

type attrGetter func(o *Observation) []float64

func scalar(v int) []float64 { return []float64{float64(v)} }

func ints(vs []int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

func bools(vs []bool) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		if v {
			out[i] = 1
		}
	}
	return out
}

func floats(vs []float64) []float64 {
	return append([]float64(nil), vs...)
}

// attribute order used whenever all attributes are requested
var observationAttrs = []string{
	"year", "month", "day", "hour_of_day", "minute_of_hour", "day_of_week",
	"gen_p", "load_p", "p_or", "p_ex", "a_or", "rho", "line_status",
	"timestep_overflow", "topo_vect",
	"time_next_maintenance", "duration_next_maintenance", "time_since_last_attack",
	"target_dispatch", "actual_dispatch",
	"curtailment", "curtailment_limit", "curtailment_mw", "gen_p_before_curtail",
	"storage_charge", "storage_power",
	"thermal_limit", "current_step", "max_step",
}

var getters = map[string]attrGetter{
	"year":                      func(o *Observation) []float64 { return scalar(o.Year) },
	"month":                     func(o *Observation) []float64 { return scalar(o.Month) },
	"day":                       func(o *Observation) []float64 { return scalar(o.Day) },
	"hour_of_day":               func(o *Observation) []float64 { return scalar(o.HourOfDay) },
	"minute_of_hour":            func(o *Observation) []float64 { return scalar(o.MinuteOfHour) },
	"day_of_week":               func(o *Observation) []float64 { return scalar(o.DayOfWeek) },
	"gen_p":                     func(o *Observation) []float64 { return floats(o.GenP) },
	"load_p":                    func(o *Observation) []float64 { return floats(o.LoadP) },
	"p_or":                      func(o *Observation) []float64 { return floats(o.POr) },
	"p_ex":                      func(o *Observation) []float64 { return floats(o.PEx) },
	"a_or":                      func(o *Observation) []float64 { return floats(o.AOr) },
	"rho":                       func(o *Observation) []float64 { return floats(o.Rho) },
	"line_status":               func(o *Observation) []float64 { return bools(o.LineStatus) },
	"timestep_overflow":         func(o *Observation) []float64 { return ints(o.TimestepOverflow) },
	"topo_vect":                 func(o *Observation) []float64 { return ints(o.TopoVect) },
	"time_next_maintenance":     func(o *Observation) []float64 { return ints(o.TimeNextMaintenance) },
	"duration_next_maintenance": func(o *Observation) []float64 { return ints(o.DurationNextMaintenance) },
	"time_since_last_attack":    func(o *Observation) []float64 { return ints(o.TimeSinceLastAttack) },
	"target_dispatch":           func(o *Observation) []float64 { return floats(o.TargetDispatch) },
	"actual_dispatch":           func(o *Observation) []float64 { return floats(o.ActualDispatch) },
	"curtailment":               func(o *Observation) []float64 { return floats(o.Curtailment) },
	"curtailment_limit":         func(o *Observation) []float64 { return floats(o.CurtailmentLimit) },
	"curtailment_mw":            func(o *Observation) []float64 { return floats(o.CurtailmentMW) },
	"gen_p_before_curtail":      func(o *Observation) []float64 { return floats(o.GenPBeforeCurtail) },
	"storage_charge":            func(o *Observation) []float64 { return floats(o.StorageCharge) },
	"storage_power":             func(o *Observation) []float64 { return floats(o.StoragePower) },
	"thermal_limit":             func(o *Observation) []float64 { return floats(o.ThermalLimit) },
	"current_step":              func(o *Observation) []float64 { return scalar(o.CurrentStep) },
	"max_step":                  func(o *Observation) []float64 { return scalar(o.MaxStep) },
}

// Attr returns the named attribute flattened to a float vector
func (o *Observation) Attr(name string) ([]float64, error) {
	get, ok := getters[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAttribute, "%q", name)
	}
	return get(o), nil
}

// MaxRho is the highest loading among all lines, 0 for a grid without lines
func (o *Observation) MaxRho() float64 {
	max := 0.0
	for _, r := range o.Rho {
		if r > max {
			max = r
		}
	}
	return max
}

// Copy returns a deep copy of the observation
func (o *Observation) Copy() *Observation {
	c := *o
	c.GenP = floats(o.GenP)
	c.LoadP = floats(o.LoadP)
	c.POr = floats(o.POr)
	c.PEx = floats(o.PEx)
	c.AOr = floats(o.AOr)
	c.Rho = floats(o.Rho)
	c.LineStatus = append([]bool(nil), o.LineStatus...)
	c.TimestepOverflow = append([]int(nil), o.TimestepOverflow...)
	c.TopoVect = append([]int(nil), o.TopoVect...)
	c.TimeNextMaintenance = append([]int(nil), o.TimeNextMaintenance...)
	c.DurationNextMaintenance = append([]int(nil), o.DurationNextMaintenance...)
	c.TimeSinceLastAttack = append([]int(nil), o.TimeSinceLastAttack...)
	c.TargetDispatch = floats(o.TargetDispatch)
	c.ActualDispatch = floats(o.ActualDispatch)
	c.Curtailment = floats(o.Curtailment)
	c.CurtailmentLimit = floats(o.CurtailmentLimit)
	c.CurtailmentMW = floats(o.CurtailmentMW)
	c.GenPBeforeCurtail = floats(o.GenPBeforeCurtail)
	c.StorageCharge = floats(o.StorageCharge)
	c.StoragePower = floats(o.StoragePower)
	c.ThermalLimit = floats(o.ThermalLimit)
	return &c
}
