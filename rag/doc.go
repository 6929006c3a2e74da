// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 为上传文件提供本地向量检索：分块、嵌入与持久化的相似度索引。

每份报告与每个聊天会话各有一个 LocalIndex，位于 IndexRoot 下按身份
（ReportIndexPath / ChatIndexPath）划分的目录。上传的文本先由
DocumentChunker 按 1000 个字符、无重叠切分，批量嵌入后一次性保存。

# 核心类型

  - Document: 带元数据（source）的文本片段
  - DocumentChunker: 按分隔符递归切分，长度以 rune 计
  - LocalIndex: 余弦相似度索引，AddDocuments / SimilaritySearch / Save
  - Embedder: 嵌入接口，由 llm/embedding.OpenAIProvider 实现

# 子包

  - rag/loader: 上传文件到 Document 的加载器注册表
  - rag/sources: Tavily、Exa 与 Azure AI Search 客户端
*/
package rag
