// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package embedcache wraps internal/cache.Manager into the content-addressed
embedding cache the batching coordinator consults before admitting an
input into a batch: identical (model, input) pairs are served from Redis
instead of spending upstream capacity on them.
*/
package embedcache
