// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package upstream adapts the batching coordinator's abstract "submit a
batch" capability to the embedding service sitting behind the proxy.

HTTPClient is the only implementation: it posts the same {"inputs": [...]}
body shape the proxy itself accepts on ingress and expects a bare JSON
array of embeddings back, so the proxy is wire-compatible with its own
upstream. batch.Coordinator depends only on the small Upstream interface
it declares itself; HTTPClient satisfies it structurally.
*/
package upstream
