package grid

import (
	"sort"

	"github.com/pkg/errors"
)

const (
	Case5Name  = "rte_case5_example"
	Case14Name = "l2rpn_case14_sandbox"
)

var registry = map[string]func() *Description{
	Case5Name:  case5,
	Case14Name: case14,
}

// Lookup returns a fresh, validated description of a registered grid
func Lookup(name string) (*Description, error) {
	build, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEnvironment, "%q", name)
	}
	d := build()
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "grid %q", name)
	}
	return d, nil
}

// Names of the registered grids, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func line(name string, or, ex int, baseFlow, capacity float64) Line {
	return Line{Name: name, Or: or, Ex: ex, BaseFlow: baseFlow, Capacity: capacity}
}

func case5() *Description {
	return &Description{
		Name: Case5Name,
		NSub: 5,
		Lines: []Line{
			line("0_1_0", 0, 1, 18, 40),
			line("0_2_1", 0, 2, 22, 40),
			line("0_3_2", 0, 3, 25, 45),
			line("0_4_3", 0, 4, 15, 30),
			line("1_2_4", 1, 2, 30, 50),
			line("2_3_5", 2, 3, 12, 30),
			line("2_3_6", 2, 3, 12, 30),
			line("3_4_7", 3, 4, 10, 25),
		},
		Gens: []Generator{
			{Name: "gen_0_0", Sub: 0, PMax: 80, RampUp: 10, RampDown: 10, Redispatchable: true},
			{Name: "gen_1_1", Sub: 1, PMax: 60, RampUp: 5, RampDown: 5, Renewable: true},
		},
		Loads: []Load{
			{Name: "load_2_0", Sub: 2, BaseP: 20},
			{Name: "load_3_1", Sub: 3, BaseP: 30},
			{Name: "load_4_2", Sub: 4, BaseP: 25},
		},
		Storages: []Storage{
			{Name: "storage_4_0", Sub: 4, EMax: 15, MaxAbsorb: 5, MaxProduce: 5},
		},
	}
}

func case14() *Description {
	return &Description{
		Name: Case14Name,
		NSub: 14,
		Lines: []Line{
			line("0_1_0", 0, 1, 70, 110),
			line("0_4_1", 0, 4, 35, 60),
			line("1_2_2", 1, 2, 38, 70),
			line("1_3_3", 1, 3, 30, 55),
			line("1_4_4", 1, 4, 22, 45),
			line("2_3_5", 2, 3, 12, 40),
			line("3_4_6", 3, 4, 28, 50),
			line("3_6_7", 3, 6, 14, 30),
			line("3_8_8", 3, 8, 8, 20),
			line("4_5_9", 4, 5, 22, 40),
			line("5_10_10", 5, 10, 7, 15),
			line("5_11_11", 5, 11, 8, 15),
			line("5_12_12", 5, 12, 18, 30),
			line("6_7_13", 6, 7, 6, 25),
			line("6_8_14", 6, 8, 20, 35),
			line("8_9_15", 8, 9, 5, 15),
			line("8_13_16", 8, 13, 9, 20),
			line("9_10_17", 9, 10, 4, 15),
			line("11_12_18", 11, 12, 2, 10),
			line("12_13_19", 12, 13, 6, 15),
		},
		Gens: []Generator{
			{Name: "gen_1_0", Sub: 1, PMax: 140, RampUp: 5, RampDown: 5, Redispatchable: true},
			{Name: "gen_2_1", Sub: 2, PMax: 120, RampUp: 10, RampDown: 10, Redispatchable: true},
			{Name: "gen_5_2", Sub: 5, PMax: 70, RampUp: 0, RampDown: 0, Renewable: true},
			{Name: "gen_5_3", Sub: 5, PMax: 70, RampUp: 0, RampDown: 0, Renewable: true},
			{Name: "gen_7_4", Sub: 7, PMax: 60, RampUp: 15, RampDown: 15, Redispatchable: true},
			{Name: "gen_0_5", Sub: 0, PMax: 300, RampUp: 15, RampDown: 15, Redispatchable: true},
		},
		Loads: []Load{
			{Name: "load_1_0", Sub: 1, BaseP: 22},
			{Name: "load_2_1", Sub: 2, BaseP: 85},
			{Name: "load_3_2", Sub: 3, BaseP: 45},
			{Name: "load_4_3", Sub: 4, BaseP: 7},
			{Name: "load_5_4", Sub: 5, BaseP: 11},
			{Name: "load_8_5", Sub: 8, BaseP: 28},
			{Name: "load_9_6", Sub: 9, BaseP: 9},
			{Name: "load_10_7", Sub: 10, BaseP: 3.5},
			{Name: "load_11_8", Sub: 11, BaseP: 6},
			{Name: "load_12_9", Sub: 12, BaseP: 13.5},
			{Name: "load_13_10", Sub: 13, BaseP: 15},
		},
	}
}
