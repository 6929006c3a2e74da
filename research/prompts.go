package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/types"
)

// ReportContext is the organization and report metadata every prompt carries.
type ReportContext struct {
	OrganizationName      string `json:"organization_name"`
	OrganizationInfo      string `json:"organization_information"`
	Objective             string `json:"report_objective"`
	TargetAudience        string `json:"report_target_audience"`
	AdditionalInformation string `json:"report_additional_information"`
}

// NewReportContext builds the prompt context for report r of tenant t.
func NewReportContext(t types.Tenant, r *types.Report) ReportContext {
	rc := ReportContext{OrganizationName: t.Name, OrganizationInfo: t.OrgInfo}
	if r != nil {
		rc.Objective = r.Objective
		rc.TargetAudience = r.TargetAudience
		rc.AdditionalInformation = r.AdditionalInformation
	}
	return rc
}

// SectionInfo scopes a call to one section of the outline.
type SectionInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// scoped reports whether the section context is present. Selection is by a
// non-empty title, not by a separate flag.
func (s *SectionInfo) scoped() bool {
	return s != nil && strings.TrimSpace(s.Title) != ""
}

// hasContext reports whether a title or a description is present. Query
// generation switches to the section prompt on either.
func (s *SectionInfo) hasContext() bool {
	return s.scoped() || (s != nil && strings.TrimSpace(s.Description) != "")
}

func (rc ReportContext) describe() string {
	return fmt.Sprintf(`Organization: %s
Organization information: %s
Report objective: %s
Target audience: %s
Additional information: %s`,
		rc.OrganizationName, rc.OrganizationInfo, rc.Objective, rc.TargetAudience, rc.AdditionalInformation)
}

func (s *SectionInfo) describe() string {
	return fmt.Sprintf("Section title: %s\nSection description: %s", s.Title, s.Description)
}

// promptItem is the {id, content} pair shown to the model.
type promptItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type scoreItem struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// only plain structs and slices are rendered here
		panic(err)
	}
	return string(data)
}

// =============================================================================
// Query generation
// =============================================================================

func queryPrompt(qc QueryContext, count int) string {
	var style string
	switch qc.Family {
	case FamilyWeb:
		style = "Write each query the way a skilled analyst would type it into a web search engine: short, specific, with the key entities and time frame."
	default:
		style = "Write each query as a natural-language question suited to semantic retrieval over internal documents, uploaded files and reference pages."
	}

	prompt := fmt.Sprintf(`You are a research assistant preparing evidence for a report. Generate %d distinct search queries that together cover the information the report needs.

%s`, count, qc.Report.describe())

	if qc.Section.hasContext() {
		prompt += fmt.Sprintf(`

The queries must focus on this section of the report only:
%s`, qc.Section.describe())
	}

	prompt += fmt.Sprintf(`

%s

Respond with a JSON object: {"queries": ["query 1", "query 2", ...]}`, style)
	return prompt
}

// =============================================================================
// Rerank
// =============================================================================

func scorePrompt(rc ReportContext, section *SectionInfo, items []scoreItem) string {
	var sb strings.Builder
	sb.WriteString("You are judging how useful each text chunk is as evidence for a report.\n\n")
	sb.WriteString(rc.describe())
	sb.WriteString("\n\n")

	if section.scoped() {
		sb.WriteString(section.describe())
		sb.WriteString(`

For every chunk give two scores between 0 and 10: report_relevance_score for the report as a whole and section_relevance_score for the section above.
Respond with a JSON object: {"chunks": [{"id": 1, "report_relevance_score": 7, "section_relevance_score": 9}, ...]}`)
	} else {
		sb.WriteString(`For every chunk give a score between 0 and 10 for how relevant it is to the report.
Respond with a JSON object: {"chunks": [{"id": 1, "score": 7}, ...]}`)
	}

	sb.WriteString("\nUse the ids exactly as given and score every chunk.\n\nChunks:\n")
	sb.WriteString(mustJSON(items))
	return sb.String()
}

// =============================================================================
// Synthesis
// =============================================================================

const citationRules = `Immediately after every sentence that uses information from a chunk, add one marker per chunk used in the exact form <citation>CHUNK_ID</citation>. Only cite ids from the list. Never invent facts that are not supported by the chunks.`

func synthesisPrompt(rc ReportContext, items []promptItem) string {
	return fmt.Sprintf(`You are an expert analyst writing a research report.

%s

%s

Write the report in markdown. Respond with a JSON object: {"content": "<report text with citation markers>"}

Chunks:
%s`, rc.describe(), citationRules, mustJSON(items))
}

func sectionPrompt(rc ReportContext, section *SectionInfo, items []promptItem) string {
	return fmt.Sprintf(`You are an expert analyst writing one section of a research report.

%s

%s

Write only this section, in markdown, without repeating the section title. %s

Respond with a JSON object: {"content": "<section text with citation markers>"}

Chunks:
%s`, rc.describe(), section.describe(), citationRules, mustJSON(items))
}

// =============================================================================
// Outline and review
// =============================================================================

func templatePrompt(rc ReportContext, sectionCount int) string {
	return fmt.Sprintf(`You are planning the structure of a research report.

%s

Propose an outline of %d sections. Do not include an introduction or a conclusion; they are added separately.
Respond with a JSON object: {"outlines": [{"title": "...", "description": "what the section covers"}, ...]}`,
		rc.describe(), sectionCount)
}

// Introduction and conclusion carry no research; the reviewer writes them.
func introductionSection() types.Section {
	return types.Section{
		Title:       "Introduction",
		Description: "Introduce the report objective, its audience and what the following sections cover.",
	}
}

func conclusionSection() types.Section {
	return types.Section{
		Title:       "Conclusion",
		Description: "Summarize the key findings of the report and the recommended next steps.",
	}
}

func reviewPrompt(rc ReportContext, sections []types.Section) string {
	var sb strings.Builder
	for _, s := range sections {
		body := s.Content
		if body == "" {
			body = "(to be written by you: " + s.Description + ")"
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Title, body)
	}
	return fmt.Sprintf(`You are the editor of a research report assembled from independently written sections.

%s

Review the draft below. Remove repetition between sections, smooth the transitions and keep every <citation>ID</citation> marker attached to the sentence it supports. Keep the section headings.

Respond with a JSON object: {"content": "<the full reviewed report in markdown>"}

Draft:
%s`, rc.describe(), strings.TrimSpace(sb.String()))
}

// =============================================================================
// Chat
// =============================================================================

type chatChunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

func chatSystemPrompt(rc ReportContext, report *types.Report, chunks []chatChunk) string {
	return fmt.Sprintf(`You are an assistant answering questions about a research report written for %s.

%s

Report:
%s

Evidence chunks cited by the report:
%s

Answer using the report and the chunks. When the answer is not supported by them, say so. Keep answers concise.`,
		rc.OrganizationName, rc.describe(), report.Content, mustJSON(chunks))
}
