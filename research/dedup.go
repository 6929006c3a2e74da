package research

import "github.com/BaSui01/researchflow/types"

// Dedup drops every fragment whose (content, source) was already seen.
// The first occurrence wins and relative order is preserved, so Dedup is idempotent.
func Dedup(fragments []types.Fragment) []types.Fragment {
	seen := make(map[types.FragmentKey]struct{}, len(fragments))
	out := make([]types.Fragment, 0, len(fragments))
	for _, f := range fragments {
		k := f.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}
