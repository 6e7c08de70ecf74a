package gymcompat

import (
	"math"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
)

var DefaultBoxAttrs = []string{"redispatch", "set_storage", "curtail"}

type boxSegment struct {
	attr   string
	offset int
	size   int
}

// BoxGymActSpace maps continuous vectors onto the continuous parts of an
// action. Out of bounds values are clipped.
type BoxGymActSpace struct {
	actSpace *grid.ActionSpace
	segments []boxSegment
	box      *Box
}

var _ ActionConverter = &BoxGymActSpace{}

func NewBoxGymActSpace(actSpace *grid.ActionSpace, attrToKeep []string) (*BoxGymActSpace, error) {
	if len(attrToKeep) == 0 {
		attrToKeep = DefaultBoxAttrs
	}
	desc := actSpace.Description()
	b := &BoxGymActSpace{actSpace: actSpace}
	low, high := []float64{}, []float64{}
	seen := make(map[string]bool)
	for _, attr := range attrToKeep {
		if seen[attr] {
			return nil, errors.Wrapf(ErrInvalidSpace, "attribute %q kept twice", attr)
		}
		seen[attr] = true
		seg := boxSegment{attr: attr, offset: len(low)}
		switch attr {
		case "redispatch":
			for _, g := range desc.Gens {
				if g.Redispatchable {
					low, high = append(low, -g.RampDown), append(high, g.RampUp)
				} else {
					low, high = append(low, 0), append(high, 0)
				}
			}
		case "set_storage":
			for _, s := range desc.Storages {
				low, high = append(low, -s.MaxProduce), append(high, s.MaxAbsorb)
			}
		case "curtail":
			for _, g := range desc.Gens {
				if g.Renewable {
					low, high = append(low, 0), append(high, 1)
				} else {
					low, high = append(low, -1), append(high, -1)
				}
			}
		case "curtail_mw":
			for _, g := range desc.Gens {
				if g.Renewable {
					low, high = append(low, 0), append(high, g.PMax)
				} else {
					low, high = append(low, -1), append(high, -1)
				}
			}
		default:
			return nil, errors.Wrapf(ErrUnknownActionAttribute, "%q for a box space", attr)
		}
		seg.size = len(low) - seg.offset
		b.segments = append(b.segments, seg)
	}
	box, err := NewBox(low, high)
	if err != nil {
		return nil, err
	}
	b.box = box
	return b, nil
}

func (b *BoxGymActSpace) Space() Space { return b.box }

// Noop keeps redispatch and storage at 0 and lifts every curtailment limit
func (b *BoxGymActSpace) Noop() []float64 {
	x := b.box.Zero()
	desc := b.actSpace.Description()
	for _, seg := range b.segments {
		for g, gen := range desc.Gens {
			if !gen.Renewable {
				continue
			}
			switch seg.attr {
			case "curtail":
				x[seg.offset+g] = 1
			case "curtail_mw":
				x[seg.offset+g] = gen.PMax
			}
		}
	}
	return x
}

func (b *BoxGymActSpace) AttrToKeep() []string {
	out := make([]string, len(b.segments))
	for i, s := range b.segments {
		out[i] = s.attr
	}
	return out
}

func (b *BoxGymActSpace) FromGym(x []float64) (*grid.Action, error) {
	if len(x) != b.box.Len() {
		return nil, errors.Wrapf(ErrInvalidAction, "expected %d values, got %d", b.box.Len(), len(x))
	}
	for i, v := range x {
		if math.IsNaN(v) {
			return nil, errors.Wrapf(ErrInvalidAction, "NaN at %d", i)
		}
	}
	x = b.box.Clip(x)
	desc := b.actSpace.Description()
	a := b.actSpace.DoNothing()
	for _, seg := range b.segments {
		values := x[seg.offset : seg.offset+seg.size]
		switch seg.attr {
		case "redispatch":
			copy(a.Redispatch, values)
		case "set_storage":
			copy(a.SetStorage, values)
		case "curtail":
			copy(a.Curtail, values)
		case "curtail_mw":
			for g, gen := range desc.Gens {
				if gen.Renewable && gen.PMax > 0 {
					a.Curtail[g] = values[g] / gen.PMax
				}
			}
		}
	}
	return a, nil
}
