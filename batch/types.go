// Package batch implements the batching coordinator: the component that
// accepts concurrent embedding requests, accumulates their inputs under a
// size trigger and a time trigger, dispatches exactly one upstream call per
// formed batch, and routes sliced results back to the right caller.
package batch

import (
	"context"
	"time"

	"github.com/vectorflow/embedbatch/types"
)

// Config holds the capacity and timing limits that bound every Pending
// batch. It is immutable for the lifetime of a Coordinator.
type Config struct {
	// MaxBatchSize is the maximum number of distinct caller requests in one
	// upstream call.
	MaxBatchSize int
	// MaxTotalInputs is the maximum number of input strings in one upstream
	// call.
	MaxTotalInputs int
	// MaxWait is the longest a Pending batch may stay open after its first
	// item arrives.
	MaxWait time.Duration
}

// Item is one caller's request riding in a Pending batch.
type Item struct {
	Inputs  []string
	deliver chan Result
}

func newItem(inputs []string) *Item {
	return &Item{Inputs: inputs, deliver: make(chan Result, 1)}
}

// Result is what a caller eventually receives for one Item: either a
// positionally-aligned slice of embeddings, or an error.
type Result struct {
	Embeddings [][]float64
	Err        *types.Error
}

// TriggerReason names the event that caused a Pending batch to become a
// Flight.
type TriggerReason string

const (
	TriggerSizeCount  TriggerReason = "size_count"
	TriggerSizeInputs TriggerReason = "size_inputs"
	TriggerTimer      TriggerReason = "timer"
	TriggerRefused    TriggerReason = "refused_admission"
	TriggerShutdown   TriggerReason = "shutdown"
)

// FlightRecord is a fire-and-forget audit fact about one dispatched Flight.
type FlightRecord struct {
	ItemCount     int
	TotalInputs   int
	TriggerReason TriggerReason
	DispatchedAt  time.Time
	Duration      time.Duration
	Outcome       string
	Err           string
}

// Upstream is the abstract "submit a batch" capability the Coordinator
// invokes exactly once per Flight. It returns one embedding per input, in
// the same order.
type Upstream interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// Cache is an optional per-input lookup consulted before an input is ever
// handed to the Batch Builder. A cache miss or a disabled cache must never
// be treated as an error.
type Cache interface {
	Get(ctx context.Context, model, input string) ([]float64, bool)
	Set(ctx context.Context, model, input string, embedding []float64)
}

// Recorder is an optional fire-and-forget sink for FlightRecords.
type Recorder interface {
	Record(ctx context.Context, rec FlightRecord)
}

// Stats is a point-in-time snapshot of Coordinator activity.
type Stats struct {
	Submitted   int64 `json:"submitted"`
	Dispatched  int64 `json:"dispatched"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Failed      int64 `json:"failed"`
	Queued      int   `json:"queued"`
}
