// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 cache 提供基于 Redis 的缓存：通用 Manager 与检索结果缓存 SearchCache。

# 概述

Manager 封装 go-redis 客户端，统一键前缀与默认 TTL，提供字符串与 JSON
两种读写方式，并在后台定时 Ping 检测连接。SearchCache 在 Manager 之上
实现 research.HitCache，按 (后端, 作用域, 查询, top) 缓存片段列表，
避免同一查询在多次研究之间重复访问外部检索服务。

# 核心类型

  - Manager：连接生命周期、Get/Set/GetJSON/SetJSON/Delete/Ping/Close
  - Config：地址、密码、键前缀、默认 TTL、连接池与健康检查间隔
  - SearchCache：GetFragments/SetFragments，未命中返回 (nil, false, nil)

# 错误语义

未命中返回 ErrCacheMiss（IsCacheMiss 判断），关闭后所有操作返回 ErrClosed。
*/
package cache
