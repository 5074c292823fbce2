// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil provides shared test helpers for the embedding batch
proxy: context builders with automatic cleanup, polling assertions for
concurrent code, and small JSON/channel conveniences.

# Usage

	ctx := testutil.TestContext(t)
	ok := testutil.WaitFor(func() bool { return coordinator.Stats().Dispatched > 0 }, 5*time.Second)
	testutil.AssertJSONEqual(t, want, got)
*/
package testutil
