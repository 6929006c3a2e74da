// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、按调用名路由、脚本化序列与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/researchflow/llm"
)

// --- MockProvider 结构 ---

// HandlerFunc 为一次调用生成回复内容。
type HandlerFunc func(ctx context.Context, req *llm.ChatRequest) (string, error)

// MockProvider 是 LLM Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	// 响应配置
	response string
	err      error
	script   []scripted
	handlers map[string]HandlerFunc

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 调用记录
	calls []MockProviderCall

	// 行为控制
	delay     time.Duration
	failAfter int
	healthy   bool
}

type scripted struct {
	content string
	err     error
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:         "Mock response",
		handlers:         make(map[string]HandlerFunc),
		promptTokens:     10,
		completionTokens: 20,
		healthy:          true,
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithScript 依次返回 contents 中的内容，用尽后回到固定响应
func (m *MockProvider) WithScript(contents ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range contents {
		m.script = append(m.script, scripted{content: c})
	}
	return m
}

// WithScriptedError 在脚本序列中追加一次失败
func (m *MockProvider) WithScriptedError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// WithHandler 按 ChatRequest.Name 路由调用
func (m *MockProvider) WithHandler(name string, fn HandlerFunc) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = fn
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟，延迟期间遵循 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithHealthy 设置健康检查结果
func (m *MockProvider) WithHealthy(healthy bool) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// HealthCheck 执行健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	m.mu.Lock()
	healthy := m.healthy
	m.mu.Unlock()
	if !healthy {
		return &llm.HealthStatus{Healthy: false}, errors.New("mock provider: unhealthy")
	}
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}

// Completion 生成响应
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			m.record(req, nil, ctx.Err())
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	content, err := m.next(ctx, req)
	if err != nil {
		m.record(req, nil, err)
		return nil, err
	}

	m.mu.Lock()
	resp := &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
		CreatedAt: time.Now(),
	}
	m.mu.Unlock()

	m.record(req, resp, nil)
	return resp, nil
}

// next 依次检查 failAfter、固定错误、路由、脚本与固定响应
func (m *MockProvider) next(ctx context.Context, req *llm.ChatRequest) (string, error) {
	m.mu.Lock()
	if m.failAfter > 0 && len(m.calls) >= m.failAfter {
		m.mu.Unlock()
		return "", errors.New("mock provider: configured to fail after N calls")
	}
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return "", err
	}
	if h, ok := m.handlers[req.Name]; ok {
		m.mu.Unlock()
		return h(ctx, req)
	}
	if len(m.script) > 0 {
		s := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return s.content, s.err
	}
	resp := m.response
	m.mu.Unlock()
	return resp, nil
}

func (m *MockProvider) record(req *llm.ChatRequest, resp *llm.ChatResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp, Error: err})
}

// --- 调用记录查询 ---

// Calls 返回所有调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsNamed 返回指定调用名的记录
func (m *MockProvider) CallsNamed(name string) []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockProviderCall
	for _, c := range m.calls {
		if c.Request != nil && c.Request.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// LastRequest 返回最后一次请求
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}

// Reset 清空调用记录与脚本
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

var _ llm.Provider = (*MockProvider)(nil)
