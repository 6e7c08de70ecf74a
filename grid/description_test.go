package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRegisteredGrids(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			d, err := Lookup(name)
			require.NoError(t, err)

			seen := make(map[int]bool)
			total := 0
			for sub := 0; sub < d.NSub; sub++ {
				for _, p := range d.SubElements(sub) {
					assert.False(t, seen[p], "position %d listed twice", p)
					seen[p] = true
					assert.Equal(t, sub, d.ElementAt(p).Sub)
					total++
				}
			}
			assert.Equal(t, d.DimTopo(), total)
			for l := range d.Lines {
				assert.Equal(t, ElementLineOr, d.ElementAt(d.LineOrPos(l)).Kind)
				assert.Equal(t, ElementLineEx, d.ElementAt(d.LineExPos(l)).Kind)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("does_not_exist")
	assert.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestValidateRejectsBadSubstation(t *testing.T) {
	d := &Description{
		Name:  "bad",
		NSub:  2,
		Lines: []Line{{Name: "l", Or: 0, Ex: 5, BaseFlow: 1, Capacity: 1}},
	}
	assert.ErrorIs(t, d.Validate(), ErrInvalidDescription)
}

func TestDescriptionCopyIsIndependent(t *testing.T) {
	d, err := Lookup(Case5Name)
	require.NoError(t, err)
	c := d.Copy()
	c.Lines[0].Capacity = 1000
	c.SubElements(0)[0] = 99
	assert.NotEqual(t, 1000.0, d.Lines[0].Capacity)
	assert.NotEqual(t, 99, d.SubElements(0)[0])
	assert.Equal(t, d.DimTopo(), c.DimTopo())
}
