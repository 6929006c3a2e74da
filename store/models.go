package store

import (
	"time"

	"github.com/BaSui01/researchflow/types"
)

// =============================================================================
// 📦 数据库模型
// =============================================================================

// reportModel 报告表
type reportModel struct {
	ID                    string    `gorm:"primaryKey;size:36"`
	TenantID              string    `gorm:"size:64;index"`
	Objective             string    `gorm:"type:text"`
	TargetAudience        string    `gorm:"type:text"`
	AdditionalInformation string    `gorm:"type:text"`
	Content               string    `gorm:"type:text"`
	Citations             []string  `gorm:"type:text;serializer:json"`
	ChunkIDs              []string  `gorm:"column:chunk_ids;type:text;serializer:json"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (reportModel) TableName() string { return "reports" }

// fragmentModel 片段表；两种分数分列存储，类型由列名决定
type fragmentModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Type        string    `gorm:"size:16;index:idx_fragments_report_type,priority:2"`
	ReportID    string    `gorm:"size:36;index:idx_fragments_report_type,priority:1"`
	SessionID   string    `gorm:"size:64;index"`
	Query       string    `gorm:"type:text"`
	Content     string    `gorm:"type:text"`
	Source      string    `gorm:"type:text"`
	Caption     string    `gorm:"type:text"`
	Highlights  string    `gorm:"type:text"`
	VectorScore *float64
	LLMScore    *float64  `gorm:"column:llm_score"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (fragmentModel) TableName() string { return "fragments" }

// messageModel 聊天消息表
type messageModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SessionID string    `gorm:"size:64;index"`
	Role      string    `gorm:"size:16"`
	Type      string    `gorm:"size:16"`
	Content   string    `gorm:"type:text"`
	Files     []string  `gorm:"type:text;serializer:json"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (messageModel) TableName() string { return "messages" }

// tenantModel 租户表
type tenantModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	Name          string `gorm:"size:255"`
	OrgInfo       string `gorm:"type:text"`
	SearchService string `gorm:"size:255"`
	SearchIndex   string `gorm:"size:255"`
}

func (tenantModel) TableName() string { return "tenants" }

// =============================================================================
// 🔄 模型转换
// =============================================================================

func toReportModel(r *types.Report) reportModel {
	return reportModel{
		ID:                    r.ID,
		TenantID:              r.TenantID,
		Objective:             r.Objective,
		TargetAudience:        r.TargetAudience,
		AdditionalInformation: r.AdditionalInformation,
		Content:               r.Content,
		Citations:             nonNil(r.Citations),
		ChunkIDs:              nonNil(r.ChunkIDs),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func (m reportModel) toReport() *types.Report {
	return &types.Report{
		ID:                    m.ID,
		TenantID:              m.TenantID,
		Objective:             m.Objective,
		TargetAudience:        m.TargetAudience,
		AdditionalInformation: m.AdditionalInformation,
		Content:               m.Content,
		Citations:             nonNil(m.Citations),
		ChunkIDs:              nonNil(m.ChunkIDs),
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toFragmentModel(f *types.Fragment) fragmentModel {
	return fragmentModel{
		ID:          f.ID,
		Type:        string(f.Type),
		ReportID:    f.ReportID,
		SessionID:   f.SessionID,
		Query:       f.Query,
		Content:     f.Content,
		Source:      f.Source,
		Caption:     f.Caption,
		Highlights:  f.Highlights,
		VectorScore: scoreValue(f.VectorScore, types.ScoreVector),
		LLMScore:    scoreValue(f.LLMScore, types.ScoreLLM),
		CreatedAt:   f.CreatedAt,
	}
}

func (m fragmentModel) toFragment() types.Fragment {
	f := types.Fragment{
		ID:         m.ID,
		Type:       types.FragmentType(m.Type),
		ReportID:   m.ReportID,
		SessionID:  m.SessionID,
		Query:      m.Query,
		Content:    m.Content,
		Source:     m.Source,
		Caption:    m.Caption,
		Highlights: m.Highlights,
		CreatedAt:  m.CreatedAt,
	}
	if m.VectorScore != nil {
		f.VectorScore = types.VectorScore(*m.VectorScore)
	}
	if m.LLMScore != nil {
		f.LLMScore = types.LLMScore(*m.LLMScore)
	}
	return f
}

func toMessageModel(m *types.Message) messageModel {
	return messageModel{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Type:      string(m.Type),
		Content:   m.Content,
		Files:     nonNil(m.Files),
		CreatedAt: m.CreatedAt,
	}
}

func (m messageModel) toMessage() types.Message {
	msg := types.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      types.MessageRole(m.Role),
		Type:      types.MessageType(m.Type),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Files) > 0 {
		msg.Files = m.Files
	}
	return msg
}

func (m tenantModel) toTenant() *types.Tenant {
	return &types.Tenant{
		ID:            m.ID,
		Name:          m.Name,
		OrgInfo:       m.OrgInfo,
		SearchService: m.SearchService,
		SearchIndex:   m.SearchIndex,
	}
}

// scoreValue 只保存与列语义一致的分数
func scoreValue(s *types.Score, kind types.ScoreKind) *float64 {
	if s == nil || s.Kind != kind {
		return nil
	}
	v := s.Value
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
