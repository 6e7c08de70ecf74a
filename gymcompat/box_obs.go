package gymcompat

import (
	"math"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/grid"
	"gonum.org/v1/gonum/mat"
)

// ObservationConverter turns grid observations into vectors of its space
type ObservationConverter interface {
	Space() Space
	ToGym(obs *grid.Observation) ([]float64, error)
}

// BoxGymObsSpace flattens a subset of the observation attributes into a
// single Box. Each kept attribute can be shifted and scaled: the gym value
// is (v - subtract) / divide.
type BoxGymObsSpace struct {
	space    *grid.ObservationSpace
	attrs    []string
	specs    map[string]grid.AttrSpec
	divide   map[string][]float64
	subtract map[string][]float64
	box      *Box
}

var _ ObservationConverter = &BoxGymObsSpace{}

type obsConfig struct {
	attrs    []string
	divide   map[string][]float64
	subtract map[string][]float64
}

type ObsOption func(*obsConfig)

// WithAttrToKeep restricts the space to the named attributes, in that order
func WithAttrToKeep(names ...string) ObsOption {
	return func(c *obsConfig) {
		c.attrs = append([]string(nil), names...)
	}
}

// WithDivide scales attributes. A single value is broadcast to the whole
// attribute.
func WithDivide(divide map[string][]float64) ObsOption {
	return func(c *obsConfig) {
		c.divide = divide
	}
}

// WithSubtract shifts attributes. A single value is broadcast.
func WithSubtract(subtract map[string][]float64) ObsOption {
	return func(c *obsConfig) {
		c.subtract = subtract
	}
}

// NewBoxGymObsSpace keeps every attribute when no WithAttrToKeep is given
func NewBoxGymObsSpace(space *grid.ObservationSpace, opts ...ObsOption) (*BoxGymObsSpace, error) {
	c := &obsConfig{attrs: space.AttrNames()}
	for _, o := range opts {
		o(c)
	}
	if len(c.attrs) == 0 {
		return nil, errors.Wrap(ErrInvalidSpace, "no attribute to keep")
	}

	b := &BoxGymObsSpace{
		space:    space,
		attrs:    make([]string, 0, len(c.attrs)),
		specs:    make(map[string]grid.AttrSpec),
		divide:   make(map[string][]float64),
		subtract: make(map[string][]float64),
	}
	for _, name := range c.attrs {
		if _, ok := b.specs[name]; ok {
			return nil, errors.Wrapf(ErrInvalidSpace, "attribute %q kept twice", name)
		}
		spec, err := space.Attr(name)
		if err != nil {
			return nil, err
		}
		b.attrs = append(b.attrs, name)
		b.specs[name] = spec
	}
	for name, values := range c.divide {
		v, err := b.broadcast(name, values)
		if err != nil {
			return nil, err
		}
		for i, d := range v {
			if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, errors.Wrapf(ErrInvalidTransform, "divide[%q][%d] = %v", name, i, d)
			}
		}
		b.divide[name] = v
	}
	for name, values := range c.subtract {
		v, err := b.broadcast(name, values)
		if err != nil {
			return nil, err
		}
		for i, s := range v {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return nil, errors.Wrapf(ErrInvalidTransform, "subtract[%q][%d] = %v", name, i, s)
			}
		}
		b.subtract[name] = v
	}
	if err := b.rebuild(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BoxGymObsSpace) broadcast(name string, values []float64) ([]float64, error) {
	spec, ok := b.specs[name]
	if !ok {
		return nil, errors.Wrapf(ErrAttributeNotKept, "%q", name)
	}
	switch len(values) {
	case spec.Size():
		return append([]float64(nil), values...), nil
	case 1:
		out := make([]float64, spec.Size())
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrInvalidTransform, "%q has %d values, expected %d", name, len(values), spec.Size())
}

// transform applies (v - subtract) / divide in place
func (b *BoxGymObsSpace) transform(name string, v *mat.VecDense) {
	if sub, ok := b.subtract[name]; ok {
		v.SubVec(v, mat.NewVecDense(len(sub), sub))
	}
	if div, ok := b.divide[name]; ok {
		v.DivElemVec(v, mat.NewVecDense(len(div), div))
	}
}

func (b *BoxGymObsSpace) rebuild() error {
	low, high := []float64{}, []float64{}
	for _, name := range b.attrs {
		spec := b.specs[name]
		if spec.Size() == 0 {
			continue
		}
		l := mat.NewVecDense(spec.Size(), append([]float64(nil), spec.Low...))
		h := mat.NewVecDense(spec.Size(), append([]float64(nil), spec.High...))
		b.transform(name, l)
		b.transform(name, h)
		for i := 0; i < spec.Size(); i++ {
			lo, hi := l.AtVec(i), h.AtVec(i)
			if lo > hi {
				lo, hi = hi, lo
			}
			low = append(low, lo)
			high = append(high, hi)
		}
	}
	box, err := NewBox(low, high)
	if err != nil {
		return err
	}
	b.box = box
	return nil
}

func (b *BoxGymObsSpace) Space() Space { return b.box }

func (b *BoxGymObsSpace) Box() *Box { return b.box }

// AttrToKeep lists the kept attributes in vector order
func (b *BoxGymObsSpace) AttrToKeep() []string {
	return append([]string(nil), b.attrs...)
}

// Divide returns a copy of the scale applied to the attribute, if any
func (b *BoxGymObsSpace) Divide(name string) ([]float64, bool) {
	v, ok := b.divide[name]
	return append([]float64(nil), v...), ok
}

// Subtract returns a copy of the shift applied to the attribute, if any
func (b *BoxGymObsSpace) Subtract(name string) ([]float64, bool) {
	v, ok := b.subtract[name]
	return append([]float64(nil), v...), ok
}

// NormalizeAttr rescales the attribute so that its bounds map to [0, 1].
// Constant dimensions are only shifted.
func (b *BoxGymObsSpace) NormalizeAttr(name string) error {
	spec, ok := b.specs[name]
	if !ok {
		return errors.Wrapf(ErrAttributeNotKept, "%q", name)
	}
	if !spec.Finite() {
		return errors.Wrapf(ErrInfiniteBounds, "%q", name)
	}
	div := make([]float64, spec.Size())
	sub := make([]float64, spec.Size())
	for i := range div {
		sub[i] = spec.Low[i]
		div[i] = spec.High[i] - spec.Low[i]
		if div[i] == 0 {
			div[i] = 1
		}
	}
	b.divide[name] = div
	b.subtract[name] = sub
	return b.rebuild()
}

// ToGym flattens the kept attributes of obs
func (b *BoxGymObsSpace) ToGym(obs *grid.Observation) ([]float64, error) {
	out := make([]float64, 0, b.box.Len())
	for _, name := range b.attrs {
		values, err := obs.Attr(name)
		if err != nil {
			return nil, err
		}
		if len(values) != b.specs[name].Size() {
			return nil, errors.Errorf("attribute %q has %d values, expected %d", name, len(values), b.specs[name].Size())
		}
		if len(values) == 0 {
			continue
		}
		v := mat.NewVecDense(len(values), values)
		b.transform(name, v)
		out = append(out, v.RawVector().Data...)
	}
	return out, nil
}

// Copy returns a space that shares no mutable state with b
func (b *BoxGymObsSpace) Copy() *BoxGymObsSpace {
	c := &BoxGymObsSpace{
		space:    b.space.Copy(),
		attrs:    append([]string(nil), b.attrs...),
		specs:    make(map[string]grid.AttrSpec, len(b.specs)),
		divide:   make(map[string][]float64, len(b.divide)),
		subtract: make(map[string][]float64, len(b.subtract)),
	}
	for name := range b.specs {
		spec, _ := c.space.Attr(name)
		c.specs[name] = spec
	}
	for name, v := range b.divide {
		c.divide[name] = append([]float64(nil), v...)
	}
	for name, v := range b.subtract {
		c.subtract[name] = append([]float64(nil), v...)
	}
	low, high := b.box.Bounds()
	c.box, _ = NewBox(low, high)
	return c
}
