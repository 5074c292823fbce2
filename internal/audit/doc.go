// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package audit persists batch.FlightRecord values emitted by the batching
coordinator after every dispatched Flight. DBRecorder writes asynchronously
to Postgres through GORM; NoOp discards records when no database is
configured. Both satisfy batch.Recorder structurally.
*/
package audit
