package research

import (
	"fmt"
	"testing"

	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDedup_FirstOccurrenceWins(t *testing.T) {
	a := types.NewFragment(types.FragmentWeb, "q1", "same", "https://a")
	b := types.NewFragment(types.FragmentWeb, "q2", "same", "https://a")
	c := types.NewFragment(types.FragmentWeb, "q2", "same", "https://b")
	d := types.NewFragment(types.FragmentWeb, "q3", "other", "https://a")

	got := Dedup([]types.Fragment{a, b, c, d})

	assert.Equal(t, []string{a.ID, c.ID, d.ID}, types.FragmentIDs(got))
}

func TestDedup_Empty(t *testing.T) {
	assert.Empty(t, Dedup(nil))
	assert.NotNil(t, Dedup(nil))
}

func genFragments(rt *rapid.T) []types.Fragment {
	// A small alphabet forces collisions.
	contents := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 0, 30).Draw(rt, "contents")
	out := make([]types.Fragment, len(contents))
	for i, c := range contents {
		src := rapid.SampledFrom([]string{"s1", "s2"}).Draw(rt, fmt.Sprintf("source%d", i))
		out[i] = types.NewFragment(types.FragmentInternal, "q", c, src)
	}
	return out
}

func TestDedup_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := genFragments(rt)
		once := Dedup(in)

		// idempotent
		assert.Equal(rt, types.FragmentIDs(once), types.FragmentIDs(Dedup(once)))

		// keys unique, every input key present
		seen := make(map[types.FragmentKey]bool)
		for _, f := range once {
			assert.False(rt, seen[f.Key()], "duplicate key %v", f.Key())
			seen[f.Key()] = true
		}
		for _, f := range in {
			assert.True(rt, seen[f.Key()])
		}

		// order preserved: output is a subsequence of input
		j := 0
		for _, f := range in {
			if j < len(once) && once[j].ID == f.ID {
				j++
			}
		}
		assert.Equal(rt, len(once), j)
	})
}
