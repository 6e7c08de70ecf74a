package grid

import (
	"math"

	"github.com/pkg/errors"
)

// Action on the grid. Every slice has the size of the matching element set;
// zero values mean "no change", except Curtail where -1 means no change.
type Action struct {
	SetLineStatus    []int     `json:"set_line_status"`
	ChangeLineStatus []bool    `json:"change_line_status"`
	SetBus           []int     `json:"set_bus"`
	ChangeBus        []bool    `json:"change_bus"`
	Redispatch       []float64 `json:"redispatch"`
	Curtail          []float64 `json:"curtail"`
	SetStorage       []float64 `json:"set_storage"`
}

// ActionSpace builds and checks actions for one grid
type ActionSpace struct {
	desc *Description
}

func NewActionSpace(desc *Description) *ActionSpace {
	return &ActionSpace{desc: desc}
}

func (s *ActionSpace) Description() *Description {
	return s.desc
}

// DoNothing returns an action that leaves the grid untouched
func (s *ActionSpace) DoNothing() *Action {
	d := s.desc
	a := &Action{
		SetLineStatus:    make([]int, d.NLine()),
		ChangeLineStatus: make([]bool, d.NLine()),
		SetBus:           make([]int, d.DimTopo()),
		ChangeBus:        make([]bool, d.DimTopo()),
		Redispatch:       make([]float64, d.NGen()),
		Curtail:          make([]float64, d.NGen()),
		SetStorage:       make([]float64, d.NStorage()),
	}
	for i := range a.Curtail {
		a.Curtail[i] = -1
	}
	return a
}

// IsDoNothing reports whether the action changes nothing
func (a *Action) IsDoNothing() bool {
	for _, v := range a.SetLineStatus {
		if v != 0 {
			return false
		}
	}
	for _, v := range a.ChangeLineStatus {
		if v {
			return false
		}
	}
	for _, v := range a.SetBus {
		if v != 0 {
			return false
		}
	}
	for _, v := range a.ChangeBus {
		if v {
			return false
		}
	}
	for _, v := range a.Redispatch {
		if v != 0 {
			return false
		}
	}
	for _, v := range a.Curtail {
		if v != -1 {
			return false
		}
	}
	for _, v := range a.SetStorage {
		if v != 0 {
			return false
		}
	}
	return true
}

// Check returns a wrapped ErrAmbiguousAction when the action cannot be
// interpreted on this grid
func (s *ActionSpace) Check(a *Action) error {
	d := s.desc
	if a == nil {
		return errors.Wrap(ErrAmbiguousAction, "nil action")
	}
	sizes := []struct {
		name      string
		got, want int
	}{
		{"set_line_status", len(a.SetLineStatus), d.NLine()},
		{"change_line_status", len(a.ChangeLineStatus), d.NLine()},
		{"set_bus", len(a.SetBus), d.DimTopo()},
		{"change_bus", len(a.ChangeBus), d.DimTopo()},
		{"redispatch", len(a.Redispatch), d.NGen()},
		{"curtail", len(a.Curtail), d.NGen()},
		{"set_storage", len(a.SetStorage), d.NStorage()},
	}
	for _, sz := range sizes {
		if sz.got != sz.want {
			return errors.Wrapf(ErrAmbiguousAction, "%s has size %d, expected %d", sz.name, sz.got, sz.want)
		}
	}
	for l, v := range a.SetLineStatus {
		if v < -1 || v > 1 {
			return errors.Wrapf(ErrAmbiguousAction, "set_line_status[%d]=%d", l, v)
		}
		if v != 0 && a.ChangeLineStatus[l] {
			return errors.Wrapf(ErrAmbiguousAction, "line %d is both set and changed", l)
		}
	}
	for p, v := range a.SetBus {
		if v < -1 || v > 2 {
			return errors.Wrapf(ErrAmbiguousAction, "set_bus[%d]=%d", p, v)
		}
		if v != 0 && a.ChangeBus[p] {
			return errors.Wrapf(ErrAmbiguousAction, "element %d is both set and changed", p)
		}
	}
	for g, v := range a.Redispatch {
		if math.IsNaN(v) {
			return errors.Wrapf(ErrAmbiguousAction, "redispatch[%d] is NaN", g)
		}
		if v != 0 && !d.Gens[g].Redispatchable {
			return errors.Wrapf(ErrAmbiguousAction, "generator %d is not redispatchable", g)
		}
	}
	for g, v := range a.Curtail {
		if v == -1 {
			continue
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return errors.Wrapf(ErrAmbiguousAction, "curtail[%d]=%v", g, v)
		}
		if !d.Gens[g].Renewable {
			return errors.Wrapf(ErrAmbiguousAction, "generator %d is not renewable", g)
		}
	}
	for i, v := range a.SetStorage {
		if math.IsNaN(v) {
			return errors.Wrapf(ErrAmbiguousAction, "set_storage[%d] is NaN", i)
		}
	}
	return nil
}

// helpers used by the gym adapters to build unitary actions

func (s *ActionSpace) SetLine(line, status int) *Action {
	a := s.DoNothing()
	a.SetLineStatus[line] = status
	return a
}

func (s *ActionSpace) ChangeLine(line int) *Action {
	a := s.DoNothing()
	a.ChangeLineStatus[line] = true
	return a
}

// SetLineBuses reconnects a line with each end on the given bus
func (s *ActionSpace) SetLineBuses(line, busOr, busEx int) *Action {
	a := s.SetLine(line, 1)
	a.SetBus[s.desc.LineOrPos(line)] = busOr
	a.SetBus[s.desc.LineExPos(line)] = busEx
	return a
}

// SetSubTopology assigns bus 1 to the first group and bus 2 to the second
func (s *ActionSpace) SetSubTopology(bus1, bus2 []int) *Action {
	a := s.DoNothing()
	for _, p := range bus1 {
		a.SetBus[p] = 1
	}
	for _, p := range bus2 {
		a.SetBus[p] = 2
	}
	return a
}

// ChangeElements flips the bus of every listed element
func (s *ActionSpace) ChangeElements(positions []int) *Action {
	a := s.DoNothing()
	for _, p := range positions {
		a.ChangeBus[p] = true
	}
	return a
}

func (s *ActionSpace) RedispatchGen(gen int, mw float64) *Action {
	a := s.DoNothing()
	a.Redispatch[gen] = mw
	return a
}

func (s *ActionSpace) CurtailGen(gen int, ratio float64) *Action {
	a := s.DoNothing()
	a.Curtail[gen] = ratio
	return a
}

func (s *ActionSpace) SetStorageUnit(unit int, mw float64) *Action {
	a := s.DoNothing()
	a.SetStorage[unit] = mw
	return a
}

// Merge adds the changes of other into a. Later changes win for set fields.
func (a *Action) Merge(other *Action) {
	for i, v := range other.SetLineStatus {
		if v != 0 {
			a.SetLineStatus[i] = v
		}
	}
	for i, v := range other.ChangeLineStatus {
		if v {
			a.ChangeLineStatus[i] = !a.ChangeLineStatus[i]
		}
	}
	for i, v := range other.SetBus {
		if v != 0 {
			a.SetBus[i] = v
		}
	}
	for i, v := range other.ChangeBus {
		if v {
			a.ChangeBus[i] = !a.ChangeBus[i]
		}
	}
	for i, v := range other.Redispatch {
		a.Redispatch[i] += v
	}
	for i, v := range other.Curtail {
		if v != -1 {
			a.Curtail[i] = v
		}
	}
	for i, v := range other.SetStorage {
		if v != 0 {
			a.SetStorage[i] = v
		}
	}
}
