// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package sources 提供检索后端的 HTTP 客户端，把第三方搜索服务的响应
解析为强类型的命中结果，供 research 包的后端适配器转换为 Fragment。

# 核心类型

  - TavilySource: Tavily 网页搜索（search_depth=advanced）
  - AzureSearchSource: Azure AI Search 语义检索（按租户 service/index 路由）
  - ExaSource: Exa contents 接口，按 URL 列表取查询相关的高亮句
  - WebHit / IndexHit / URLHit: 各客户端返回的命中结构

# 主要能力

  - 所有请求使用 tlsutil 的 TLS 加固 HTTP 客户端
  - golang.org/x/time/rate 令牌桶限速，限速等待遵循 ctx 取消
  - 429 与 5xx 按 types.Error 的 Retryable 标记退避重试（llm/retry）
  - Azure 内容清洗：去除 ANSI 控制序列、NUL、反斜杠与非 ASCII 字符，合并空白
*/
package sources
