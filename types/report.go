package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Tenant is the organization a report is written for.
type Tenant struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	OrgInfo string `json:"org_info" yaml:"org_info"`
	// Internal-index coordinates (Azure AI Search service and index).
	SearchService string `json:"search_service,omitempty" yaml:"search_service"`
	SearchIndex   string `json:"search_index,omitempty" yaml:"search_index"`
}

// Report is the unit of research. Content, Citations and ChunkIDs are only written
// by ApplySynthesis.
type Report struct {
	ID                    string    `json:"id"`
	TenantID              string    `json:"tenant_id,omitempty"`
	Objective             string    `json:"objective"`
	TargetAudience        string    `json:"target_audience"`
	AdditionalInformation string    `json:"additional_information"`
	Content               string    `json:"content"`
	Citations             []string  `json:"citations"`
	ChunkIDs              []string  `json:"chunk_ids"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NewReport creates an empty report.
func NewReport(tenantID, objective, audience, info string) *Report {
	now := time.Now()
	return &Report{
		ID:                    uuid.NewString(),
		TenantID:              tenantID,
		Objective:             objective,
		TargetAudience:        audience,
		AdditionalInformation: info,
		Citations:             []string{},
		ChunkIDs:              []string{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// ApplySynthesis records one successful synthesis. ChunkIDs becomes the ids of every
// offered fragment; citations not among them are dropped so Citations ⊆ ChunkIDs holds.
func (r *Report) ApplySynthesis(offered []Fragment, content string, citations []string) {
	chunkIDs := FragmentIDs(offered)
	known := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		known[id] = struct{}{}
	}
	kept := make([]string, 0, len(citations))
	for _, id := range citations {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		}
	}
	r.Content = content
	r.Citations = kept
	r.ChunkIDs = chunkIDs
	r.UpdatedAt = time.Now()
}

// Validate checks the citation subset invariant.
func (r *Report) Validate() error {
	known := make(map[string]struct{}, len(r.ChunkIDs))
	for _, id := range r.ChunkIDs {
		known[id] = struct{}{}
	}
	for _, id := range r.Citations {
		if _, ok := known[id]; !ok {
			return NewError(ErrInternalError, fmt.Sprintf("citation %s is not a chunk of report %s", id, r.ID))
		}
	}
	return nil
}

// Clone returns a deep copy, used to hand callers a snapshot of the prior state.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Citations = slices.Clone(r.Citations)
	c.ChunkIDs = slices.Clone(r.ChunkIDs)
	return &c
}

// Section is one entry of a report outline.
type Section struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Research    bool   `json:"research"`
	Content     string `json:"content,omitempty"`
}
