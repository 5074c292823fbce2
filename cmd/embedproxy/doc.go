// Copyright (c) EmbedProxy Authors.
// Licensed under the MIT License.

/*
Package main 提供 EmbedProxy 服务端程序入口。

# 概述

cmd/embedproxy 是嵌入向量批处理代理的可执行入口，提供 HTTP API 服务、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、结构化日志
（zap）、Prometheus 指标采集以及可选的 OpenTelemetry 追踪。

# 核心类型

  - Server           — 主服务器，管理批处理协调器、可选的嵌入缓存、
    可选的飞行审计记录器，以及 HTTP、Metrics 双端口和优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、CORS、RateLimiter（基于 IP）、
    APIKeyAuth（X-API-Key 头，为空表示禁用鉴权）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：停止 HTTP 监听 → 停止 Metrics 监听 → 排空批处理协调器
    （受 ShutdownTimeout 限制）→ 关闭审计记录器 → 关闭缓存连接
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
