// =============================================================================
// 📦 测试数据工厂 - LLM 响应与研究数据
// =============================================================================
// 提供预定义的 LLM 响应、片段与报告，用于测试
// =============================================================================
package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
)

// =============================================================================
// 🎯 ChatResponse 工厂
// =============================================================================

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "gpt-4o",
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		CreatedAt: time.Now(),
	}
}

// JSON 将 v 编码为 JSON 字符串，失败时 panic
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// QueriesJSON 返回查询生成的 JSON 回复
func QueriesJSON(queries ...string) string {
	return JSON(map[string]any{"queries": queries})
}

// ContentJSON 返回合成的 JSON 回复
func ContentJSON(content string) string {
	return JSON(map[string]any{"content": content})
}

// =============================================================================
// 🎯 研究数据工厂
// =============================================================================

// Fragments 返回 n 个内容不同的片段
func Fragments(t types.FragmentType, n int) []types.Fragment {
	out := make([]types.Fragment, n)
	for i := range out {
		out[i] = types.NewFragment(t, "q", fmt.Sprintf("content %d", i), fmt.Sprintf("source-%d", i))
	}
	return out
}

// SampleTenant 返回示例租户
func SampleTenant() types.Tenant {
	return types.Tenant{
		ID:            "tenant-1",
		Name:          "Acme Energy",
		OrgInfo:       "Acme Energy builds grid-scale storage.",
		SearchService: "acme-search",
		SearchIndex:   "acme-docs",
	}
}

// SampleReport 返回示例报告
func SampleReport() *types.Report {
	return types.NewReport("tenant-1", "Assess sodium-ion batteries", "Executives", "See https://example.com/brief for context.")
}
