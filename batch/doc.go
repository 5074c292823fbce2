// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package batch implements the batching coordinator at the center of the
embedding proxy.

A Builder is a pure accumulator: it knows how many items and input strings
it holds and whether another item would overflow either cap. A Coordinator
owns exactly one Builder and a deadline timer behind a single goroutine,
reached only through Submit. Submit consults an optional Cache first, then
hands the cache-miss subset of an item's inputs to the Coordinator's
queue and blocks on a private reply channel until that subset's Flight
resolves.

Usage:

	cfg := batch.Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 3 * time.Second}
	coord := batch.NewCoordinator(cfg, upstreamClient)
	defer coord.Close(context.Background())

	embeddings, err := coord.Submit(ctx, []string{"hello", "world"})
*/
package batch
