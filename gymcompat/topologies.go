package gymcompat

import (
	"fmt"

	"github.com/zeu5/grid-rl-env/grid"
	"github.com/zeu5/grid-rl-env/util"
	"gonum.org/v1/gonum/floats"
)

// unitary is a single elementary action with a readable label
type unitary struct {
	label  string
	action *grid.Action
}

// validSplits returns the two-bus splits of a substation where each bus
// keeps at least two elements, one of them a line end
func validSplits(desc *grid.Description, sub int) [][2][]int {
	hasLine := func(group []int) bool {
		for _, p := range group {
			if desc.ElementAt(p).IsLine() {
				return true
			}
		}
		return false
	}
	out := make([][2][]int, 0)
	for _, s := range util.TwoWaySplits(desc.SubElements(sub)) {
		if len(s[0]) < 2 || len(s[1]) < 2 || !hasLine(s[0]) || !hasLine(s[1]) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// setBusTopologies lists, per substation, every valid split plus the
// reference topology with all elements on bus 1
func setBusTopologies(space *grid.ActionSpace) []unitary {
	desc := space.Description()
	out := make([]unitary, 0)
	for sub := 0; sub < desc.NSub; sub++ {
		splits := validSplits(desc, sub)
		if len(splits) == 0 {
			continue
		}
		out = append(out, unitary{
			label:  fmt.Sprintf("set_bus sub %d reference", sub),
			action: space.SetSubTopology(desc.SubElements(sub), nil),
		})
		for i, s := range splits {
			out = append(out, unitary{
				label:  fmt.Sprintf("set_bus sub %d split %d", sub, i),
				action: space.SetSubTopology(s[0], s[1]),
			})
		}
	}
	return out
}

// changeBusTopologies flips the second group of every valid split
func changeBusTopologies(space *grid.ActionSpace) []unitary {
	desc := space.Description()
	out := make([]unitary, 0)
	for sub := 0; sub < desc.NSub; sub++ {
		for i, s := range validSplits(desc, sub) {
			out = append(out, unitary{
				label:  fmt.Sprintf("change_bus sub %d split %d", sub, i),
				action: space.ChangeElements(s[1]),
			})
		}
	}
	return out
}

// bins returns n evenly spaced levels in [low, high]
func bins(low, high float64, n int) []float64 {
	if n == 1 {
		return []float64{low}
	}
	return floats.Span(make([]float64, n), low, high)
}

// nonZero drops the levels that would be a no-op
func nonZero(levels []float64) []float64 {
	out := make([]float64, 0, len(levels))
	for _, v := range levels {
		if v > 1e-9 || v < -1e-9 {
			out = append(out, v)
		}
	}
	return out
}
