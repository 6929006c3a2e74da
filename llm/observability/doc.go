// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 observability 为 LLM 调用提供 OpenTelemetry 追踪、指标与成本核算。

# 概述

InstrumentedProvider 包装任意 llm.Provider：每次 Completion 打一个
"llm.completion" span，按调用名（ChatRequest.Name，如 generate-report、
score-chunks）记录请求数、错误数、耗时与 Token 用量，并用 CostTracker
累计本次运行的成本。可选的 Recorder 把同一份汇总写入 Prometheus。

# 核心类型

  - Metrics：OTel Tracer 与 Meter 上的计数器、直方图
  - InstrumentedProvider：带观测的 Provider 包装器
  - CostCalculator / CostTracker：按模型价格表计算并累计成本
*/
package observability
