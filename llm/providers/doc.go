// Copyright 2025-2026 ResearchFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供 OpenAI 兼容协议的共享转换：消息与响应结构、HTTP 状态到
llm.Error 的映射、错误体读取、模型选择以及 Bearer / Azure api-key 请求头。
具体实现位于 openaicompat 子包。
*/
package providers
