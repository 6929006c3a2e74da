// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package types 提供 researchflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 research、store、llm 等
上层模块提供统一的数据契约。

# 核心类型

  - Fragment / FragmentType: 检索片段及其来源标签（INTERNAL / WEB / FILE / URL）
  - Score / ScoreKind: 带标签的分数（vector 与 llm 不可互相比较）
  - Report / Section: 报告实体与大纲章节，Citations ⊆ ChunkIDs
  - Message: 聊天会话消息（system / user / assistant）
  - Tenant: 组织上下文与内部索引坐标
  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - Context 传播：WithTraceID / WithTenantID / WithReportID / WithSessionID
  - 错误工具链：AsError / IsErrorCode / IsRetryable / HTTPStatusError
  - 输入校验：ValidateMessageContent
*/
package types
