package grid

import (
	"github.com/pkg/errors"
)

// Line is a power line between two substations. BaseFlow is the flow (MW)
// under the nominal load of the grid, Capacity the thermal limit in MW.
type Line struct {
	Name     string  `json:"name"`
	Or       int     `json:"or"`
	Ex       int     `json:"ex"`
	BaseFlow float64 `json:"base_flow"`
	Capacity float64 `json:"capacity"`
}

type Generator struct {
	Name           string  `json:"name"`
	Sub            int     `json:"sub"`
	PMax           float64 `json:"pmax"`
	RampUp         float64 `json:"ramp_up"`
	RampDown       float64 `json:"ramp_down"`
	Redispatchable bool    `json:"redispatchable"`
	Renewable      bool    `json:"renewable"`
}

type Load struct {
	Name  string  `json:"name"`
	Sub   int     `json:"sub"`
	BaseP float64 `json:"base_p"`
}

type Storage struct {
	Name       string  `json:"name"`
	Sub        int     `json:"sub"`
	EMax       float64 `json:"emax"`
	MaxAbsorb  float64 `json:"max_absorb"`
	MaxProduce float64 `json:"max_produce"`
}

// ElementKind tells what is connected at a topology position
type ElementKind int

const (
	ElementLoad ElementKind = iota
	ElementGen
	ElementLineOr
	ElementLineEx
	ElementStorage
)

func (k ElementKind) String() string {
	switch k {
	case ElementLoad:
		return "load"
	case ElementGen:
		return "gen"
	case ElementLineOr:
		return "line_or"
	case ElementLineEx:
		return "line_ex"
	case ElementStorage:
		return "storage"
	}
	return "unknown"
}

// Element identifies the object connected at one topology position
type Element struct {
	Kind  ElementKind
	Index int
	Sub   int
}

// IsLine reports whether the element is one end of a power line
func (e Element) IsLine() bool {
	return e.Kind == ElementLineOr || e.Kind == ElementLineEx
}

// Description is the static layout of a grid. Topology positions are
// assigned substation by substation: loads, generators, line origins, line
// extremities then storage units.
type Description struct {
	Name     string      `json:"name"`
	NSub     int         `json:"n_sub"`
	Lines    []Line      `json:"lines"`
	Gens     []Generator `json:"gens"`
	Loads    []Load      `json:"loads"`
	Storages []Storage   `json:"storages"`

	elements   []Element
	subPos     [][]int
	lineOrPos  []int
	lineExPos  []int
	genPos     []int
	loadPos    []int
	storagePos []int
}

// Validate checks element substations and computes topology positions.
// It must be called once before the description is used.
func (d *Description) Validate() error {
	if d.NSub <= 0 {
		return errors.Wrap(ErrInvalidDescription, "no substation")
	}
	checkSub := func(kind string, i, sub int) error {
		if sub < 0 || sub >= d.NSub {
			return errors.Wrapf(ErrInvalidDescription, "%s %d on substation %d out of range", kind, i, sub)
		}
		return nil
	}
	for i, l := range d.Lines {
		if err := checkSub("line origin", i, l.Or); err != nil {
			return err
		}
		if err := checkSub("line extremity", i, l.Ex); err != nil {
			return err
		}
		if l.Capacity <= 0 {
			return errors.Wrapf(ErrInvalidDescription, "line %d has no capacity", i)
		}
	}
	for i, g := range d.Gens {
		if err := checkSub("generator", i, g.Sub); err != nil {
			return err
		}
	}
	for i, l := range d.Loads {
		if err := checkSub("load", i, l.Sub); err != nil {
			return err
		}
	}
	for i, s := range d.Storages {
		if err := checkSub("storage", i, s.Sub); err != nil {
			return err
		}
	}

	d.elements = make([]Element, 0, d.DimTopo())
	d.subPos = make([][]int, d.NSub)
	d.lineOrPos = make([]int, len(d.Lines))
	d.lineExPos = make([]int, len(d.Lines))
	d.genPos = make([]int, len(d.Gens))
	d.loadPos = make([]int, len(d.Loads))
	d.storagePos = make([]int, len(d.Storages))

	add := func(sub int, kind ElementKind, index int) int {
		pos := len(d.elements)
		d.elements = append(d.elements, Element{Kind: kind, Index: index, Sub: sub})
		d.subPos[sub] = append(d.subPos[sub], pos)
		return pos
	}
	for sub := 0; sub < d.NSub; sub++ {
		for i, l := range d.Loads {
			if l.Sub == sub {
				d.loadPos[i] = add(sub, ElementLoad, i)
			}
		}
		for i, g := range d.Gens {
			if g.Sub == sub {
				d.genPos[i] = add(sub, ElementGen, i)
			}
		}
		for i, l := range d.Lines {
			if l.Or == sub {
				d.lineOrPos[i] = add(sub, ElementLineOr, i)
			}
		}
		for i, l := range d.Lines {
			if l.Ex == sub {
				d.lineExPos[i] = add(sub, ElementLineEx, i)
			}
		}
		for i, s := range d.Storages {
			if s.Sub == sub {
				d.storagePos[i] = add(sub, ElementStorage, i)
			}
		}
	}
	return nil
}

func (d *Description) NLine() int    { return len(d.Lines) }
func (d *Description) NGen() int     { return len(d.Gens) }
func (d *Description) NLoad() int    { return len(d.Loads) }
func (d *Description) NStorage() int { return len(d.Storages) }

// DimTopo is the number of connectable element ends
func (d *Description) DimTopo() int {
	return 2*len(d.Lines) + len(d.Gens) + len(d.Loads) + len(d.Storages)
}

// SubElements returns the topology positions of the elements on sub
func (d *Description) SubElements(sub int) []int {
	return d.subPos[sub]
}

// ElementAt returns the element connected at topology position pos
func (d *Description) ElementAt(pos int) Element {
	return d.elements[pos]
}

func (d *Description) LineOrPos(line int) int { return d.lineOrPos[line] }
func (d *Description) LineExPos(line int) int { return d.lineExPos[line] }
func (d *Description) GenPos(gen int) int     { return d.genPos[gen] }
func (d *Description) LoadPos(load int) int   { return d.loadPos[load] }

// NominalLoad is the sum of the base consumption of all loads
func (d *Description) NominalLoad() float64 {
	total := 0.0
	for _, l := range d.Loads {
		total += l.BaseP
	}
	return total
}

// Copy returns a deep copy of the description, positions included
func (d *Description) Copy() *Description {
	c := &Description{
		Name:       d.Name,
		NSub:       d.NSub,
		Lines:      append([]Line(nil), d.Lines...),
		Gens:       append([]Generator(nil), d.Gens...),
		Loads:      append([]Load(nil), d.Loads...),
		Storages:   append([]Storage(nil), d.Storages...),
		elements:   append([]Element(nil), d.elements...),
		lineOrPos:  append([]int(nil), d.lineOrPos...),
		lineExPos:  append([]int(nil), d.lineExPos...),
		genPos:     append([]int(nil), d.genPos...),
		loadPos:    append([]int(nil), d.loadPos...),
		storagePos: append([]int(nil), d.storagePos...),
		subPos:     make([][]int, len(d.subPos)),
	}
	for i, p := range d.subPos {
		c.subPos[i] = append([]int(nil), p...)
	}
	return c
}
