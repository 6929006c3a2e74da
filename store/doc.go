// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package store 提供 research 包持久化接口的 gorm 实现。

# 概述

报告、片段、聊天消息与租户分别存于 reports / fragments / messages / tenants
四张表。列表字段（citations、chunk_ids、files）通过 gorm 的 json 序列化器
存为文本列；片段的向量分数与 LLM 分数分列保存，读取时恢复带类型的 Score。
生产环境的表结构由 internal/migration 的版本化 SQL 管理，AutoMigrate 仅用于
测试与本地开发。

# 核心类型

  - Store：仓储集合，由 New(db, logger) 创建
  - ReportRepository：Create / FindByID / Update，不存在时返回 ErrNotFound
  - FragmentRepository：Add / AddAll / FindByID / FindByIDs / FindByParentAndType / FindByReport
  - MessageRepository：AddMessage / FindBySessionID（按创建时间升序）
  - TenantRepository：FindByID / Upsert
*/
package store
