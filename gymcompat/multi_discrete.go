package gymcompat

import (
	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
)

var DefaultMultiDiscreteAttrs = []string{
	"set_line_status", "change_line_status", "set_bus", "change_bus",
	"redispatch", "set_storage", "curtail",
}

type mdSegment struct {
	attr   string
	offset int
	nvec   []int
}

// MultiDiscreteActSpace gives each kept attribute one or more independent
// discrete dimensions. Choice 0 is "do nothing" on every dimension.
type MultiDiscreteActSpace struct {
	actSpace   *grid.ActionSpace
	nbBins     int
	segments   []mdSegment
	space      *MultiDiscrete
	subSets    []unitary
	subChanges []unitary
}

var _ ActionConverter = &MultiDiscreteActSpace{}

func NewMultiDiscreteActSpace(actSpace *grid.ActionSpace, attrToKeep []string, nbBins int) (*MultiDiscreteActSpace, error) {
	if nbBins < 2 {
		return nil, errors.Wrapf(ErrInvalidSpace, "nb_bins must be at least 2, got %d", nbBins)
	}
	if len(attrToKeep) == 0 {
		attrToKeep = DefaultMultiDiscreteAttrs
	}
	m := &MultiDiscreteActSpace{
		actSpace:   actSpace,
		nbBins:     nbBins,
		subSets:    setBusTopologies(actSpace),
		subChanges: changeBusTopologies(actSpace),
	}
	desc := actSpace.Description()
	nvec := []int{}
	seen := make(map[string]bool)
	for _, attr := range attrToKeep {
		if seen[attr] {
			return nil, errors.Wrapf(ErrInvalidSpace, "attribute %q kept twice", attr)
		}
		seen[attr] = true
		seg := mdSegment{attr: attr, offset: len(nvec)}
		switch attr {
		case "set_line_status":
			seg.nvec = repeat(3, desc.NLine())
		case "change_line_status":
			seg.nvec = repeat(2, desc.NLine())
		case "set_bus":
			seg.nvec = repeat(4, desc.DimTopo())
		case "change_bus":
			seg.nvec = repeat(2, desc.DimTopo())
		case "redispatch":
			for g, gen := range desc.Gens {
				if gen.Redispatchable {
					seg.nvec = append(seg.nvec, len(m.redispatchLevels(g)))
				}
			}
		case "curtail":
			for _, gen := range desc.Gens {
				if gen.Renewable {
					seg.nvec = append(seg.nvec, len(m.curtailLevels()))
				}
			}
		case "set_storage":
			for s := range desc.Storages {
				seg.nvec = append(seg.nvec, len(m.storageLevels(s)))
			}
		case "one_sub_set":
			seg.nvec = []int{1 + len(m.subSets)}
		case "one_sub_change":
			seg.nvec = []int{1 + len(m.subChanges)}
		case "one_line_set":
			seg.nvec = []int{1 + 2*desc.NLine()}
		case "one_line_change":
			seg.nvec = []int{1 + desc.NLine()}
		default:
			return nil, errors.Wrapf(ErrUnknownActionAttribute, "%q for a multi discrete space", attr)
		}
		nvec = append(nvec, seg.nvec...)
		m.segments = append(m.segments, seg)
	}
	space, err := NewMultiDiscrete(nvec)
	if err != nil {
		return nil, err
	}
	m.space = space
	return m, nil
}

// redispatchLevels puts the no-op first, then the non zero bins
func (m *MultiDiscreteActSpace) redispatchLevels(gen int) []float64 {
	g := m.actSpace.Description().Gens[gen]
	return append([]float64{0}, nonZero(bins(-g.RampDown, g.RampUp, m.nbBins))...)
}

func (m *MultiDiscreteActSpace) storageLevels(unit int) []float64 {
	s := m.actSpace.Description().Storages[unit]
	return append([]float64{0}, nonZero(bins(-s.MaxProduce, s.MaxAbsorb, m.nbBins))...)
}

// curtailLevels starts with -1, which leaves the limit untouched
func (m *MultiDiscreteActSpace) curtailLevels() []float64 {
	return append([]float64{-1}, bins(0, 1, m.nbBins)...)
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (m *MultiDiscreteActSpace) Space() Space { return m.space }

func (m *MultiDiscreteActSpace) Noop() []float64 { return m.space.Zero() }

func (m *MultiDiscreteActSpace) AttrToKeep() []string {
	out := make([]string, len(m.segments))
	for i, s := range m.segments {
		out[i] = s.attr
	}
	return out
}

func (m *MultiDiscreteActSpace) FromGym(x []float64) (*grid.Action, error) {
	if !m.space.Contains(x) {
		return nil, errors.Wrapf(ErrInvalidAction, "%v", x)
	}
	desc := m.actSpace.Description()
	a := m.actSpace.DoNothing()
	for _, seg := range m.segments {
		choices := x[seg.offset : seg.offset+len(seg.nvec)]
		switch seg.attr {
		case "set_line_status":
			for l, c := range choices {
				switch int(c) {
				case 1:
					a.SetLineStatus[l] = -1
				case 2:
					a.SetLineStatus[l] = 1
				}
			}
		case "change_line_status":
			for l, c := range choices {
				a.ChangeLineStatus[l] = c == 1
			}
		case "set_bus":
			for p, c := range choices {
				switch int(c) {
				case 1:
					a.SetBus[p] = -1
				case 2:
					a.SetBus[p] = 1
				case 3:
					a.SetBus[p] = 2
				}
			}
		case "change_bus":
			for p, c := range choices {
				a.ChangeBus[p] = c == 1
			}
		case "redispatch":
			i := 0
			for g, gen := range desc.Gens {
				if !gen.Redispatchable {
					continue
				}
				a.Redispatch[g] = m.redispatchLevels(g)[int(choices[i])]
				i++
			}
		case "curtail":
			i := 0
			for g, gen := range desc.Gens {
				if !gen.Renewable {
					continue
				}
				a.Curtail[g] = m.curtailLevels()[int(choices[i])]
				i++
			}
		case "set_storage":
			for s := range desc.Storages {
				a.SetStorage[s] = m.storageLevels(s)[int(choices[s])]
			}
		case "one_sub_set":
			if c := int(choices[0]); c > 0 {
				a.Merge(m.subSets[c-1].action)
			}
		case "one_sub_change":
			if c := int(choices[0]); c > 0 {
				a.Merge(m.subChanges[c-1].action)
			}
		case "one_line_set":
			if c := int(choices[0]); c > 0 {
				line := (c - 1) / 2
				if (c-1)%2 == 0 {
					a.SetLineStatus[line] = -1
				} else {
					a.SetLineStatus[line] = 1
				}
			}
		case "one_line_change":
			if c := int(choices[0]); c > 0 {
				a.ChangeLineStatus[c-1] = true
			}
		}
	}
	return a, nil
}
