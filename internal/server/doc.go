// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package server 提供 serve 子命令的运维 HTTP 服务器。

# 概述

Manager 封装 net/http.Server 的监听、后台服务与优雅关闭；Run 阻塞到
上下文结束（通常由 SIGINT/SIGTERM 触发）后在 ShutdownTimeout 内排空请求。
NewOpsHandler 挂载存活、就绪、Prometheus 指标与版本端点。

# 核心类型

  - Manager：Start / Run / Shutdown / Errors / Addr / IsRunning。
  - OpsOptions：指标 Gatherer、按名称的就绪检查 Checker、版本号与请求指标记录器。
*/
package server
