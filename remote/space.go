package remote

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

// Bound is a box bound that survives JSON, infinities are written as
// "inf" and "-inf"
type Bound float64

func (b Bound) MarshalJSON() ([]byte, error) {
	f := float64(b)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-inf"`), nil
	case math.IsNaN(f):
		return nil, errors.New("NaN bound")
	}
	return json.Marshal(f)
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrapf(err, "bound %q", s)
		}
		*b = Bound(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*b = Bound(f)
	return nil
}

// SpaceSpec is the wire form of a gym space
type SpaceSpec struct {
	Kind  gymcompat.Kind `json:"kind"`
	Shape []int          `json:"shape"`
	Low   []Bound        `json:"low,omitempty"`
	High  []Bound        `json:"high,omitempty"`
	N     int            `json:"n,omitempty"`
	Nvec  []int          `json:"nvec,omitempty"`
}

func EncodeSpace(s gymcompat.Space) (SpaceSpec, error) {
	spec := SpaceSpec{Kind: s.Kind(), Shape: s.Shape()}
	switch sp := s.(type) {
	case *gymcompat.Box:
		low, high := sp.Bounds()
		spec.Low = toBounds(low)
		spec.High = toBounds(high)
	case *gymcompat.Discrete:
		spec.N = sp.N
	case *gymcompat.MultiDiscrete:
		spec.Nvec = append([]int(nil), sp.Nvec...)
	default:
		return spec, errors.Wrapf(gymcompat.ErrInvalidSpace, "cannot encode %T", s)
	}
	return spec, nil
}

// Space rebuilds the space the spec describes
func (s SpaceSpec) Space() (gymcompat.Space, error) {
	switch s.Kind {
	case gymcompat.KindBox:
		return gymcompat.NewBox(fromBounds(s.Low), fromBounds(s.High))
	case gymcompat.KindDiscrete:
		return gymcompat.NewDiscrete(s.N)
	case gymcompat.KindMultiDiscrete:
		return gymcompat.NewMultiDiscrete(s.Nvec)
	}
	return nil, errors.Wrapf(gymcompat.ErrInvalidSpace, "unknown kind %q", s.Kind)
}

func toBounds(v []float64) []Bound {
	out := make([]Bound, len(v))
	for i, f := range v {
		out[i] = Bound(f)
	}
	return out
}

func fromBounds(v []Bound) []float64 {
	out := make([]float64, len(v))
	for i, b := range v {
		out[i] = float64(b)
	}
	return out
}
