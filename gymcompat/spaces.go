package gymcompat

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

type Kind string

const (
	KindBox           Kind = "box"
	KindDiscrete      Kind = "discrete"
	KindMultiDiscrete Kind = "multi_discrete"
)

// Space is a set of numeric vectors. Discrete values are carried as a
// single float holding an integer.
type Space interface {
	Kind() Kind
	Shape() []int
	Contains(x []float64) bool
	Sample(r *rand.Rand) []float64
	// Zero is the canonical "do nothing" element of the space
	Zero() []float64
}

// Box is a (possibly unbounded) hyper-rectangle
type Box struct {
	Low  *mat.VecDense
	High *mat.VecDense
}

var _ Space = &Box{}

func NewBox(low, high []float64) (*Box, error) {
	if len(low) != len(high) {
		return nil, errors.Wrapf(ErrInvalidSpace, "low has %d values, high %d", len(low), len(high))
	}
	for i := range low {
		if math.IsNaN(low[i]) || math.IsNaN(high[i]) || low[i] > high[i] {
			return nil, errors.Wrapf(ErrInvalidSpace, "bad bounds [%v, %v] at %d", low[i], high[i], i)
		}
	}
	if len(low) == 0 {
		return &Box{}, nil
	}
	return &Box{
		Low:  mat.NewVecDense(len(low), append([]float64(nil), low...)),
		High: mat.NewVecDense(len(high), append([]float64(nil), high...)),
	}, nil
}

func (b *Box) Kind() Kind { return KindBox }

func (b *Box) Len() int {
	if b.Low == nil {
		return 0
	}
	return b.Low.Len()
}

func (b *Box) Shape() []int { return []int{b.Len()} }

// Bounds returns copies of the low and high vectors
func (b *Box) Bounds() ([]float64, []float64) {
	n := b.Len()
	low, high := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		low[i] = b.Low.AtVec(i)
		high[i] = b.High.AtVec(i)
	}
	return low, high
}

func (b *Box) Contains(x []float64) bool {
	if len(x) != b.Len() {
		return false
	}
	for i, v := range x {
		if math.IsNaN(v) || v < b.Low.AtVec(i) || v > b.High.AtVec(i) {
			return false
		}
	}
	return true
}

// Sample draws uniformly on bounded dimensions, from a shifted exponential
// on half-bounded ones and from a normal law on unbounded ones
func (b *Box) Sample(r *rand.Rand) []float64 {
	out := make([]float64, b.Len())
	for i := range out {
		low, high := b.Low.AtVec(i), b.High.AtVec(i)
		lowInf, highInf := math.IsInf(low, -1), math.IsInf(high, 1)
		switch {
		case lowInf && highInf:
			out[i] = r.NormFloat64()
		case lowInf:
			out[i] = high - r.ExpFloat64()
		case highInf:
			out[i] = low + r.ExpFloat64()
		default:
			out[i] = low + r.Float64()*(high-low)
		}
	}
	return out
}

func (b *Box) Zero() []float64 {
	return b.Clip(make([]float64, b.Len()))
}

// Clip projects x into the box, x must have the box length
func (b *Box) Clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(b.Low.AtVec(i), math.Min(b.High.AtVec(i), v))
	}
	return out
}

// Discrete is the set {0, ..., N-1}
type Discrete struct {
	N int
}

var _ Space = &Discrete{}

func NewDiscrete(n int) (*Discrete, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidSpace, "discrete space of size %d", n)
	}
	return &Discrete{N: n}, nil
}

func (d *Discrete) Kind() Kind   { return KindDiscrete }
func (d *Discrete) Shape() []int { return []int{} }

func (d *Discrete) Contains(x []float64) bool {
	return len(x) == 1 && isIndex(x[0], d.N)
}

func (d *Discrete) Sample(r *rand.Rand) []float64 {
	return []float64{float64(r.Intn(d.N))}
}

func (d *Discrete) Zero() []float64 {
	return []float64{0}
}

// MultiDiscrete is a product of discrete sets of sizes Nvec
type MultiDiscrete struct {
	Nvec []int
}

var _ Space = &MultiDiscrete{}

func NewMultiDiscrete(nvec []int) (*MultiDiscrete, error) {
	for i, n := range nvec {
		if n <= 0 {
			return nil, errors.Wrapf(ErrInvalidSpace, "dimension %d has size %d", i, n)
		}
	}
	return &MultiDiscrete{Nvec: append([]int(nil), nvec...)}, nil
}

func (m *MultiDiscrete) Kind() Kind   { return KindMultiDiscrete }
func (m *MultiDiscrete) Shape() []int { return []int{len(m.Nvec)} }

func (m *MultiDiscrete) Contains(x []float64) bool {
	if len(x) != len(m.Nvec) {
		return false
	}
	for i, v := range x {
		if !isIndex(v, m.Nvec[i]) {
			return false
		}
	}
	return true
}

func (m *MultiDiscrete) Sample(r *rand.Rand) []float64 {
	out := make([]float64, len(m.Nvec))
	for i, n := range m.Nvec {
		out[i] = float64(r.Intn(n))
	}
	return out
}

func (m *MultiDiscrete) Zero() []float64 {
	return make([]float64, len(m.Nvec))
}

// Cardinality is the number of distinct elements of a discrete space, -1
// for a Box or when the count does not fit in an int
func Cardinality(s Space) int {
	switch sp := s.(type) {
	case *Discrete:
		return sp.N
	case *MultiDiscrete:
		total := 1
		for _, n := range sp.Nvec {
			if n > 0 && total > math.MaxInt/n {
				return -1
			}
			total *= n
		}
		return total
	}
	return -1
}

func isIndex(v float64, n int) bool {
	return v == math.Trunc(v) && v >= 0 && v < float64(n)
}
