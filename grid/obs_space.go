package grid

import (
	"math"

	"github.com/pkg/errors"
)

// AttrSpec is the size and per-element bounds of an observation attribute
type AttrSpec struct {
	Name string
	Low  []float64
	High []float64
}

func (a AttrSpec) Size() int {
	return len(a.Low)
}

// Finite reports whether every bound of the attribute is finite
func (a AttrSpec) Finite() bool {
	for i := range a.Low {
		if math.IsInf(a.Low[i], 0) || math.IsInf(a.High[i], 0) {
			return false
		}
	}
	return true
}

func (a AttrSpec) copy() AttrSpec {
	return AttrSpec{
		Name: a.Name,
		Low:  append([]float64(nil), a.Low...),
		High: append([]float64(nil), a.High...),
	}
}

// ObservationSpace describes every observation attribute of a grid
type ObservationSpace struct {
	desc  *Description
	attrs map[string]AttrSpec
}

func uniform(n int, low, high float64) AttrSpec {
	s := AttrSpec{Low: make([]float64, n), High: make([]float64, n)}
	for i := 0; i < n; i++ {
		s.Low[i] = low
		s.High[i] = high
	}
	return s
}

func NewObservationSpace(desc *Description) *ObservationSpace {
	inf := math.Inf(1)
	nLine, nGen, nStorage := desc.NLine(), desc.NGen(), desc.NStorage()

	genBound := func(sym bool) AttrSpec {
		s := uniform(nGen, 0, 0)
		for i, g := range desc.Gens {
			s.High[i] = g.PMax
			if sym {
				s.Low[i] = -g.PMax
			}
		}
		return s
	}
	storageCharge := uniform(nStorage, 0, 0)
	storagePower := uniform(nStorage, 0, 0)
	for i, st := range desc.Storages {
		storageCharge.High[i] = st.EMax
		storagePower.Low[i] = -st.MaxProduce
		storagePower.High[i] = st.MaxAbsorb
	}

	attrs := map[string]AttrSpec{
		"year":                      uniform(1, 1970, 2100),
		"month":                     uniform(1, 1, 12),
		"day":                       uniform(1, 1, 31),
		"hour_of_day":               uniform(1, 0, 23),
		"minute_of_hour":            uniform(1, 0, 59),
		"day_of_week":               uniform(1, 0, 6),
		"gen_p":                     genBound(false),
		"load_p":                    uniform(desc.NLoad(), -inf, inf),
		"p_or":                      uniform(nLine, -inf, inf),
		"p_ex":                      uniform(nLine, -inf, inf),
		"a_or":                      uniform(nLine, 0, inf),
		"rho":                       uniform(nLine, 0, inf),
		"line_status":               uniform(nLine, 0, 1),
		"timestep_overflow":         uniform(nLine, 0, inf),
		"topo_vect":                 uniform(desc.DimTopo(), -1, 2),
		"time_next_maintenance":     uniform(nLine, -1, inf),
		"duration_next_maintenance": uniform(nLine, 0, inf),
		"time_since_last_attack":    uniform(nLine, -1, inf),
		"target_dispatch":           genBound(true),
		"actual_dispatch":           genBound(true),
		"curtailment":               uniform(nGen, 0, 1),
		"curtailment_limit":         uniform(nGen, 0, 1),
		"curtailment_mw":            genBound(false),
		"gen_p_before_curtail":      genBound(false),
		"storage_charge":            storageCharge,
		"storage_power":             storagePower,
		"thermal_limit":             uniform(nLine, 0, inf),
		"current_step":              uniform(1, 0, inf),
		"max_step":                  uniform(1, 0, inf),
	}
	for name, spec := range attrs {
		spec.Name = name
		attrs[name] = spec
	}
	return &ObservationSpace{desc: desc, attrs: attrs}
}

func (s *ObservationSpace) Description() *Description {
	return s.desc
}

// Attr returns the spec of the named attribute
func (s *ObservationSpace) Attr(name string) (AttrSpec, error) {
	spec, ok := s.attrs[name]
	if !ok {
		return AttrSpec{}, errors.Wrapf(ErrUnknownAttribute, "%q", name)
	}
	return spec.copy(), nil
}

// AttrNames lists every attribute in canonical order
func (s *ObservationSpace) AttrNames() []string {
	return append([]string(nil), observationAttrs...)
}

// Copy returns an independent observation space over the same grid
func (s *ObservationSpace) Copy() *ObservationSpace {
	attrs := make(map[string]AttrSpec, len(s.attrs))
	for name, spec := range s.attrs {
		attrs[name] = spec.copy()
	}
	return &ObservationSpace{desc: s.desc, attrs: attrs}
}
