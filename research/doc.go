// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package research 实现研究报告管线：多后端检索扇出、去重、LLM 重排序、
带引用的报告合成与有界重试。

# 概述

一次研究从报告目标出发：QueryGenerator 为 web 与 RAG 两个查询族生成检索
查询；Orchestrator 对每个后端（INTERNAL / WEB / FILE / URL）并发扇出查询，
合并结果后按 (content, source) 去重，再由 Reranker 分批、分波次调用 LLM
打分并保留 TopTotal 条。Synthesizer 把片段交给 smart 模型写出报告，抽取
<citation>ID</citation> 标记，并在 MaxSynthesisAttempts 次尝试内完成或放弃。

单个后端的故障被隔离：抓取错误或 panic 在 SafeFetch 边界变为空结果，
查询生成或重排序失败只丢弃该后端的贡献并记录在 GatherResult.Failures 中。

# 核心类型

  - Service: 顶层流程：InitiateResearch、GenerateReport、GenerateReportV2、
    GenerateTemplate、GenerateSection、ChatWithReport、RunCustomQuery、UploadChatFiles
  - Backend: 检索后端契约；WebBackend / InternalBackend / FileBackend / URLBackend 为适配器
  - CachedBackend: 以 HitCache（Redis）缓存重复查询
  - Orchestrator: 查询生成 → 扇出 → 去重 → 重排序
  - Reranker: LLM 批量打分，章节范围使用 section_relevance_score
  - Synthesizer: 迭代重试的报告合成，成功时只更新一次报告
  - Observer: 指标回调，metrics.Collector 实现该接口

# 配置

Config 的默认值见 DefaultConfig：每后端保留 5 条、每查询取 5 条、每族 3 个
查询、每批 10 条、每波 5 批、最多 6 次合成尝试。
*/
package research
