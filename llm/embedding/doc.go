// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package embedding 提供嵌入向量生成能力，用于上传文件的本地向量索引。

# 核心接口

  - Provider: 统一嵌入接口：Embed / EmbedQuery / EmbedDocuments
  - BaseProvider: 共享的 HTTP 请求、错误映射与分批逻辑
  - OpenAIProvider: OpenAI 与 Azure OpenAI（AzureAPIVersion 非空时）实现
*/
package embedding
