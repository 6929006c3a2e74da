package research

import (
	"regexp"
	"strings"
)

var citationPattern = regexp.MustCompile(`<citation>(.*?)</citation>`)

// Extraction is synthesized text with its citation markers pulled out.
type Extraction struct {
	Content   string   `json:"content"`
	Citations []string `json:"citations"`
}

// ExtractCitations collects the distinct ids inside <citation>ID</citation> markers in
// first-occurrence order, removes every marker and trims the remaining text.
func ExtractCitations(text string) Extraction {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	citations := make([]string, 0, len(matches))
	for _, m := range matches {
		id := strings.TrimSpace(m[1])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		citations = append(citations, id)
	}
	return Extraction{
		Content:   strings.TrimSpace(citationPattern.ReplaceAllString(text, "")),
		Citations: citations,
	}
}

// CitationMarker renders the marker for id.
func CitationMarker(id string) string {
	return "<citation>" + id + "</citation>"
}
