// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 研究管线测试共用的上下文、片段断言与等待工具
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertFragmentsEqual(t, want, got)
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回 30 秒超时的测试上下文
func TestContext(t testing.TB) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertFragmentsEqual 按顺序比较片段的 id、类型、内容、来源与分数
func AssertFragmentsEqual(t testing.TB, expected, actual []types.Fragment) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("fragment count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}
	for i := range expected {
		e, a := expected[i], actual[i]
		if e.ID != a.ID {
			t.Errorf("fragment[%d] id mismatch: expected %q, got %q", i, e.ID, a.ID)
		}
		if e.Type != a.Type {
			t.Errorf("fragment[%d] type mismatch: expected %q, got %q", i, e.Type, a.Type)
		}
		if e.Content != a.Content || e.Source != a.Source {
			t.Errorf("fragment[%d] mismatch: expected (%q, %q), got (%q, %q)", i, e.Content, e.Source, a.Content, a.Source)
		}
		if e.LLMRelevance() != a.LLMRelevance() {
			t.Errorf("fragment[%d] llm score mismatch: expected %v, got %v", i, e.LLMRelevance(), a.LLMRelevance())
		}
	}
}

// AssertCitationsSubset 断言每个引用都指向给定片段之一
func AssertCitationsSubset(t testing.TB, citations []string, fragments []types.Fragment) {
	t.Helper()

	offered := make(map[string]bool, len(fragments))
	for _, id := range types.FragmentIDs(fragments) {
		offered[id] = true
	}
	for _, c := range citations {
		if !offered[c] {
			t.Errorf("citation %q does not reference an offered fragment", c)
		}
	}
}
