// Copyright (c) EmbedProxy Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 EmbedProxy HTTP API 的请求处理器实现。

# 概述

handlers 包实现了嵌入批处理代理所有 HTTP 端点的请求处理逻辑，
包括批量嵌入提交、运行统计与健康检查，以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - EmbedHandler     — 接收 POST /embed，调用 batch.Coordinator.Submit
  - StatsHandler     — 暴露 GET /stats，返回 Coordinator 计数器快照
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Database、Redis 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（oversize、bad_request、upstream、
    upstream_shape、shutdown、timeout）
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
