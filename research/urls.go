package research

import "regexp"

// urlPattern matches http(s) and bare www. links. RE2 has no lookahead, so the
// optional "www." prefix replaces the negative lookahead on "www".
var urlPattern = regexp.MustCompile(
	`https?://(?:www\.)?[a-zA-Z0-9][a-zA-Z0-9-]+[a-zA-Z0-9]\.[^\s]{2,}` +
		`|www\.[a-zA-Z0-9][a-zA-Z0-9-]+[a-zA-Z0-9]\.[^\s]{2,}` +
		`|https?://(?:www\.)?[a-zA-Z0-9]+\.[^\s]{2,}` +
		`|www\.[a-zA-Z0-9]+\.[^\s]{2,}`)

// ExtractURLs returns the distinct links in text in order of appearance.
func ExtractURLs(text string) []string {
	found := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, u := range found {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
