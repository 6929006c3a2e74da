// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的研究流水线指标采集能力。

# 概述

Collector 通过 promauto.With(reg) 注册全部指标，reg 由调用方注入：
生产环境使用默认 Registerer 并由 serve 子命令暴露 /metrics，测试中
每个用例使用独立的 prometheus.NewRegistry()。

# 主要能力

  - HTTP 指标：serve 端点的请求数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：按调用名（generate-report、score-chunks ...）与模型分组的
    请求数、耗时、Token 用量与成本；实现 observability.Recorder。
  - 检索后端指标：每个后端的检索次数、耗时与返回片段数。
  - 合成指标：每次合成的尝试次数分布与 success/exhausted 结果计数。
  - 缓存与数据库指标：命中/未命中计数、连接池 Gauge、查询耗时。
*/
package metrics
