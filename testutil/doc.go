// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package testutil 提供 ResearchFlow 测试共用的辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    通过 Cleanup 自动取消
  - 片段断言: AssertFragmentsEqual / AssertCitationsSubset

# 子包

  - testutil/mocks: 脚本化 LLM Provider、检索后端与内存存储
  - testutil/fixtures: LLM 响应、片段与报告样例
*/
package testutil
