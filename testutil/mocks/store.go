package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/researchflow/types"
)

// MemoryStore 聚合报告、片段、消息与租户的内存存储，各字段分别满足 research 包的存储接口。
type MemoryStore struct {
	Reports   *MemoryReports
	Fragments *MemoryFragments
	Messages  *MemoryMessages
	Tenants   *MemoryTenants
}

// NewMemoryStore 创建空的 MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Reports:   &MemoryReports{reports: make(map[string]*types.Report)},
		Fragments: &MemoryFragments{},
		Messages:  &MemoryMessages{},
		Tenants:   &MemoryTenants{tenants: make(map[string]types.Tenant)},
	}
}

// =============================================================================
// 报告
// =============================================================================

// MemoryReports 是内存报告表
type MemoryReports struct {
	mu        sync.Mutex
	reports   map[string]*types.Report
	updates   int
	updateErr error
}

// WithReport 预置报告
func (s *MemoryReports) WithReport(r *types.Report) *MemoryReports {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r.Clone()
	return s
}

// WithUpdateError 使 Update 失败
func (s *MemoryReports) WithUpdateError(err error) *MemoryReports {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
	return s
}

// Create 保存新报告
func (s *MemoryReports) Create(_ context.Context, r *types.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r.Clone()
	return nil
}

// Update 覆盖报告
func (s *MemoryReports) Update(_ context.Context, r *types.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.reports[r.ID]; !ok {
		return types.NewNotFoundError("report", r.ID)
	}
	s.reports[r.ID] = r.Clone()
	return nil
}

// FindByID 返回报告副本
func (s *MemoryReports) FindByID(_ context.Context, id string) (*types.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, types.NewNotFoundError("report", id)
	}
	return r.Clone(), nil
}

// Updates 返回 Update 调用次数
func (s *MemoryReports) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// =============================================================================
// 片段
// =============================================================================

// MemoryFragments 是内存片段表，保持写入顺序
type MemoryFragments struct {
	mu        sync.Mutex
	fragments []types.Fragment
}

// Add 保存单个片段
func (s *MemoryFragments) Add(_ context.Context, f *types.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, *f)
	return nil
}

// AddAll 保存多个片段
func (s *MemoryFragments) AddAll(_ context.Context, fs []types.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, fs...)
	return nil
}

// FindByID 按 id 查找片段
func (s *MemoryFragments) FindByID(_ context.Context, id string) (*types.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fragments {
		if s.fragments[i].ID == id {
			f := s.fragments[i]
			return &f, nil
		}
	}
	return nil, types.NewNotFoundError("fragment", id)
}

// FindByIDs 按 ids 顺序返回存在的片段
func (s *MemoryFragments) FindByIDs(_ context.Context, ids []string) ([]types.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]types.Fragment, len(s.fragments))
	for _, f := range s.fragments {
		byID[f.ID] = f
	}
	out := make([]types.Fragment, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// FindByParentAndType 按 llm 分数降序分页
func (s *MemoryFragments) FindByParentAndType(_ context.Context, reportID string, t types.FragmentType, skip, limit int) ([]types.Fragment, error) {
	out := s.filter(func(f types.Fragment) bool { return f.ReportID == reportID && f.Type == t })
	sort.SliceStable(out, func(i, j int) bool { return out[i].LLMRelevance() > out[j].LLMRelevance() })
	return page(out, skip, limit), nil
}

// FindByReport 按写入顺序分页返回报告的片段
func (s *MemoryFragments) FindByReport(_ context.Context, reportID string, skip, limit int) ([]types.Fragment, error) {
	return page(s.filter(func(f types.Fragment) bool { return f.ReportID == reportID }), skip, limit), nil
}

// All 返回全部已保存片段
func (s *MemoryFragments) All() []types.Fragment {
	return s.filter(func(types.Fragment) bool { return true })
}

func (s *MemoryFragments) filter(keep func(types.Fragment) bool) []types.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Fragment{}
	for _, f := range s.fragments {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func page(fs []types.Fragment, skip, limit int) []types.Fragment {
	if skip >= len(fs) {
		return []types.Fragment{}
	}
	fs = fs[skip:]
	if limit > 0 && len(fs) > limit {
		fs = fs[:limit]
	}
	return fs
}

// =============================================================================
// 消息与租户
// =============================================================================

// MemoryMessages 是内存消息表
type MemoryMessages struct {
	mu       sync.Mutex
	messages []types.Message
}

// AddMessage 追加消息
func (s *MemoryMessages) AddMessage(_ context.Context, m *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

// FindBySessionID 按写入顺序返回会话消息
func (s *MemoryMessages) FindBySessionID(_ context.Context, sessionID string) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Message{}
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MemoryTenants 是内存租户表
type MemoryTenants struct {
	mu      sync.Mutex
	tenants map[string]types.Tenant
}

// WithTenant 预置租户
func (s *MemoryTenants) WithTenant(t types.Tenant) *MemoryTenants {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return s
}

// FindByID 查找租户
func (s *MemoryTenants) FindByID(_ context.Context, id string) (*types.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, types.NewNotFoundError("tenant", id)
	}
	return &t, nil
}
