package gymcompat

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
)

// ActionConverter turns vectors of its space into grid actions
type ActionConverter interface {
	Space() Space
	FromGym(x []float64) (*grid.Action, error)
	// Noop is the vector that decodes to "do nothing"
	Noop() []float64
}

var DefaultDiscreteAttrs = []string{
	"set_line_status", "change_line_status", "set_bus", "change_bus",
	"redispatch", "set_storage", "curtail",
}

const DefaultNbBins = 7

// DiscreteActSpace enumerates unitary actions on the kept attributes.
// Index 0 is always "do nothing".
type DiscreteActSpace struct {
	actSpace *grid.ActionSpace
	attrs    []string
	nbBins   int
	actions  []unitary
	space    *Discrete
}

var _ ActionConverter = &DiscreteActSpace{}

func NewDiscreteActSpace(actSpace *grid.ActionSpace, attrToKeep []string, nbBins int) (*DiscreteActSpace, error) {
	if nbBins < 2 {
		return nil, errors.Wrapf(ErrInvalidSpace, "nb_bins must be at least 2, got %d", nbBins)
	}
	if len(attrToKeep) == 0 {
		attrToKeep = DefaultDiscreteAttrs
	}
	d := &DiscreteActSpace{
		actSpace: actSpace,
		attrs:    append([]string(nil), attrToKeep...),
		nbBins:   nbBins,
		actions:  []unitary{{label: "do_nothing", action: actSpace.DoNothing()}},
	}
	desc := actSpace.Description()
	seen := make(map[string]bool)
	for _, attr := range d.attrs {
		if seen[attr] {
			return nil, errors.Wrapf(ErrInvalidSpace, "attribute %q kept twice", attr)
		}
		seen[attr] = true
		// both line status encodings enumerate the same disconnections
		if seen["set_line_status"] && seen["set_line_status_simple"] {
			return nil, errors.Wrap(ErrInvalidSpace, "set_line_status and set_line_status_simple are exclusive")
		}
		switch attr {
		case "set_line_status":
			for l := 0; l < desc.NLine(); l++ {
				d.add(fmt.Sprintf("set_line_status line %d disconnect", l), actSpace.SetLine(l, -1))
				for _, buses := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
					d.add(fmt.Sprintf("set_line_status line %d reconnect %d-%d", l, buses[0], buses[1]),
						actSpace.SetLineBuses(l, buses[0], buses[1]))
				}
			}
		case "set_line_status_simple":
			for l := 0; l < desc.NLine(); l++ {
				d.add(fmt.Sprintf("set_line_status line %d disconnect", l), actSpace.SetLine(l, -1))
				d.add(fmt.Sprintf("set_line_status line %d reconnect", l), actSpace.SetLine(l, 1))
			}
		case "change_line_status":
			for l := 0; l < desc.NLine(); l++ {
				d.add(fmt.Sprintf("change_line_status line %d", l), actSpace.ChangeLine(l))
			}
		case "set_bus":
			d.actions = append(d.actions, setBusTopologies(actSpace)...)
		case "change_bus":
			d.actions = append(d.actions, changeBusTopologies(actSpace)...)
		case "redispatch":
			for g, gen := range desc.Gens {
				if !gen.Redispatchable {
					continue
				}
				for _, v := range nonZero(bins(-gen.RampDown, gen.RampUp, nbBins)) {
					d.add(fmt.Sprintf("redispatch gen %d %.2f", g, v), actSpace.RedispatchGen(g, v))
				}
			}
		case "curtail":
			for g, gen := range desc.Gens {
				if !gen.Renewable {
					continue
				}
				for _, v := range bins(0, 1, nbBins) {
					d.add(fmt.Sprintf("curtail gen %d %.2f", g, v), actSpace.CurtailGen(g, v))
				}
			}
		case "set_storage":
			for s, st := range desc.Storages {
				for _, v := range nonZero(bins(-st.MaxProduce, st.MaxAbsorb, nbBins)) {
					d.add(fmt.Sprintf("set_storage unit %d %.2f", s, v), actSpace.SetStorageUnit(s, v))
				}
			}
		default:
			return nil, errors.Wrapf(ErrUnknownActionAttribute, "%q for a discrete space", attr)
		}
	}
	d.space, _ = NewDiscrete(len(d.actions))
	return d, nil
}

func (d *DiscreteActSpace) add(label string, a *grid.Action) {
	d.actions = append(d.actions, unitary{label: label, action: a})
}

func (d *DiscreteActSpace) Space() Space { return d.space }

func (d *DiscreteActSpace) Noop() []float64 { return []float64{0} }

func (d *DiscreteActSpace) N() int { return len(d.actions) }

func (d *DiscreteActSpace) AttrToKeep() []string {
	return append([]string(nil), d.attrs...)
}

// Label describes the action at index i
func (d *DiscreteActSpace) Label(i int) string {
	if i < 0 || i >= len(d.actions) {
		return ""
	}
	return d.actions[i].label
}

// Action returns a fresh copy of the grid action at index i
func (d *DiscreteActSpace) Action(i int) (*grid.Action, error) {
	if i < 0 || i >= len(d.actions) {
		return nil, errors.Wrapf(ErrInvalidAction, "index %d out of %d", i, len(d.actions))
	}
	a := d.actSpace.DoNothing()
	a.Merge(d.actions[i].action)
	return a, nil
}

func (d *DiscreteActSpace) FromGym(x []float64) (*grid.Action, error) {
	if !d.space.Contains(x) {
		return nil, errors.Wrapf(ErrInvalidAction, "%v", x)
	}
	return d.Action(int(x[0]))
}
