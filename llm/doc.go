// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 llm 定义研究管线使用的大语言模型接入层。

# 概述

Provider 屏蔽具体服务商的差异：上层只构造 ChatRequest（可带 JSON
response_format 与单次超时），拿到统一的 ChatResponse 或结构化的 *Error。
Invoke 取第一条候选的文本，FirstChoice 在没有候选时返回错误。

# 子包

  - llm/providers/openaicompat: OpenAI 与 Azure OpenAI 聊天补全
  - llm/embedding: 文件索引使用的嵌入模型
  - llm/retry: 合成重试所用的有界退避策略
  - llm/tokenizer: 提示词 token 预算
  - llm/observability: span、指标与成本统计包装器
*/
package llm
