// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package database 负责打开 GORM 数据库并管理连接池。

# 概述

Open 按 config.DatabaseConfig 的驱动选择 postgres / mysql / sqlite 方言，
gorm 日志写入 zap。PoolManager 应用连接池参数，后台定时探活并把连接数
写入 StatsRecorder。Instrument 在 gorm 回调上记录每类 SQL 的耗时。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、RecordStats()、Close()。
  - PoolConfig：最大空闲/打开连接数、生命周期、空闲超时与健康检查间隔。
  - StatsRecorder / QueryRecorder：指标接口，由 metrics.Collector 实现。
*/
package database
