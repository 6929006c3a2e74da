package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/researchflow/types"
)

// MockBackend 是检索后端的模拟实现，按查询返回预置命中。
type MockBackend struct {
	mu sync.Mutex

	typ     types.FragmentType
	hits    map[string][]string // query -> contents
	fetchFn func(ctx context.Context, query string, top int) ([]types.Fragment, error)
	err     error
	delay   time.Duration
	queries []string
	panics  bool
}

// NewMockBackend 创建指定类型的 MockBackend
func NewMockBackend(t types.FragmentType) *MockBackend {
	return &MockBackend{typ: t, hits: make(map[string][]string)}
}

// WithHits 为查询设置命中内容，source 为 "<type>:<content>"
func (b *MockBackend) WithHits(query string, contents ...string) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[query] = contents
	return b
}

// WithError 使每次 Fetch 失败
func (b *MockBackend) WithError(err error) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	return b
}

// WithPanic 使每次 Fetch panic
func (b *MockBackend) WithPanic() *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.panics = true
	return b
}

// WithDelay 设置响应延迟，延迟期间遵循 ctx 取消
func (b *MockBackend) WithDelay(d time.Duration) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
	return b
}

// WithFetchFunc 设置自定义 Fetch
func (b *MockBackend) WithFetchFunc(fn func(ctx context.Context, query string, top int) ([]types.Fragment, error)) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchFn = fn
	return b
}

// Type 返回后端类型
func (b *MockBackend) Type() types.FragmentType { return b.typ }

// Fetch 返回预置命中，最多 top 条
func (b *MockBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	b.mu.Lock()
	b.queries = append(b.queries, query)
	delay, err, fn, panics := b.delay, b.err, b.fetchFn, b.panics
	contents := b.hits[query]
	b.mu.Unlock()

	if panics {
		panic("mock backend: boom")
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, query, top)
	}

	if top < len(contents) {
		contents = contents[:top]
	}
	out := make([]types.Fragment, 0, len(contents))
	for _, c := range contents {
		out = append(out, types.NewFragment(b.typ, query, c, string(b.typ)+":"+c))
	}
	return out, nil
}

// Queries 返回收到的查询（按到达顺序）
func (b *MockBackend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.queries))
	copy(out, b.queries)
	return out
}
