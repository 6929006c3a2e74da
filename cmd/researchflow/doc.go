// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Command researchflow 是研究管线的命令行入口。

每个子命令加载配置、装配数据库、Redis 缓存、检索后端与带观测的 LLM
provider，然后调用 research.Service 的一个流程，把结果以 JSON 写到标准输出，
日志写到标准错误。serve 子命令只提供健康检查与 Prometheus 指标；migrate
子命令管理内嵌的数据库迁移。
*/
package main
