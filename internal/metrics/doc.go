// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package metrics provides Prometheus instrumentation for the embedding
batch proxy: HTTP ingress, batch flight behavior, cache effectiveness,
and upstream call health.

Collector registers every metric through promauto on construction, so
callers never manage a Registry directly. Metrics are namespaced and
label-scoped for per-dimension aggregation in Grafana or similar tools.

  - HTTP: request count, duration, and body sizes, by method/path/status
    class.
  - Batching: flights dispatched (by trigger reason and outcome), item
    and input counts per flight, flight duration, and current queue
    depth.
  - Cache: hit/miss counters by cache type.
  - Upstream: call count and duration by outcome.
*/
package metrics
