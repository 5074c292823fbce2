// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package database provides GORM-based connection pool management with
health checks, pool statistics, and transaction retry. internal/audit
uses it to persist batch flight records when a database is configured.

PoolManager wraps a *gorm.DB and its underlying *sql.DB, owning the
pool's idle/open connection limits and lifetime, and runs a background
health check loop that logs connectivity failures through zap.

WithTransaction runs a callback inside a single transaction.
WithTransactionRetry retries a transaction that fails with a transient
error (deadlock, serialization failure, connection reset) using
exponential backoff.
*/
package database
