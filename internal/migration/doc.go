// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 migration 管理 researchflow 的数据库表结构，基于 golang-migrate，
支持 PostgreSQL、MySQL 与 SQLite。

# 概述

各方言的 SQL 文件通过 embed.FS 内嵌在 migrations/<dialect>/ 下，
版本号保持一致。表结构与 store 包的 gorm 模型对应：tenants、reports、
fragments、messages。SQLite 使用纯 Go 的 modernc 驱动。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/DownAll/Steps/Goto/Force/Version/Status/Info
  - Config：方言、DSN、迁移表名与连接检查超时
  - CLI：migrate 子命令的终端输出
  - NewMigratorFromDatabaseConfig / NewMigratorFromURL：从配置或 DSN 创建迁移器
*/
package migration
