// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package cache provides a generic Redis-backed key-value manager: pooled
connections, background health checks, and JSON convenience wrappers. It
is domain-agnostic; internal/embedcache builds the embedding-specific
cache on top of it.
*/
package cache
