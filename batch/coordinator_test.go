package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorflow/embedbatch/testutil"
	"github.com/vectorflow/embedbatch/types"
)

// fakeUpstream records every call it receives and answers with a
// deterministic, content-derived embedding unless a custom handler is set.
type fakeUpstream struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(inputs []string) ([][]float64, error)
}

func (f *fakeUpstream) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	cp := append([]string(nil), inputs...)
	f.mu.Lock()
	f.calls = append(f.calls, cp)
	h := f.handler
	f.mu.Unlock()

	if h != nil {
		return h(inputs)
	}
	return charEmbed(inputs), nil
}

func (f *fakeUpstream) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeUpstream) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// charEmbed derives a one-dimensional embedding from each input's first
// byte, so tests can assert positional alignment without a real model.
func charEmbed(inputs []string) [][]float64 {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		out[i] = []float64{float64(in[0])}
	}
	return out
}

func submitAsync(t *testing.T, c *Coordinator, inputs []string) <-chan submitResult {
	t.Helper()
	ch := make(chan submitResult, 1)
	go func() {
		embeddings, err := c.Submit(testutil.TestContext(t), inputs)
		ch <- submitResult{embeddings: embeddings, err: err}
	}()
	return ch
}

type submitResult struct {
	embeddings [][]float64
	err        error
}

// Scenario A — time trigger.
func TestCoordinator_ScenarioA_TimeTrigger(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 100 * time.Millisecond}, up)
	defer c.Close(testutil.TestContext(t))

	start := time.Now()
	embeddings, err := c.Submit(testutil.TestContext(t), []string{"a"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, charEmbed([]string{"a"})[0], embeddings[0])
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)

	assert.Equal(t, 1, up.CallCount())
	assert.Equal(t, []string{"a"}, up.Calls()[0])
}

// Scenario B — size trigger by request count.
func TestCoordinator_ScenarioB_SizeTriggerByCount(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 3, MaxTotalInputs: 32, MaxWait: 10 * time.Second}, up)
	defer c.Close(testutil.TestContext(t))

	chX := submitAsync(t, c, []string{"x"})
	chY := submitAsync(t, c, []string{"y"})
	chZ := submitAsync(t, c, []string{"z"})

	rx := <-chX
	ry := <-chY
	rz := <-chZ

	require.NoError(t, rx.err)
	require.NoError(t, ry.err)
	require.NoError(t, rz.err)

	assert.Equal(t, []float64{'x'}, rx.embeddings[0])
	assert.Equal(t, []float64{'y'}, ry.embeddings[0])
	assert.Equal(t, []float64{'z'}, rz.embeddings[0])

	require.Equal(t, 1, up.CallCount(), "all three must land in a single Flight")
	assert.ElementsMatch(t, []string{"x", "y", "z"}, up.Calls()[0])
}

// Scenario C — size trigger by input total.
func TestCoordinator_ScenarioC_SizeTriggerByInputs(t *testing.T) {
	up := &fakeUpstream{}
	// max_wait is shortened from the literal scenario's 10s so the test
	// doesn't block that long waiting for caller 2's timer trigger.
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 4, MaxWait: 150 * time.Millisecond}, up)
	defer c.Close(testutil.TestContext(t))

	ch1 := submitAsync(t, c, []string{"a", "b", "c"})
	time.Sleep(20 * time.Millisecond) // let caller 1 admit before caller 2 arrives

	ch2 := submitAsync(t, c, []string{"d", "e"})

	r1 := <-ch1
	require.NoError(t, r1.err)
	require.Len(t, r1.embeddings, 3)

	r2 := <-ch2
	require.NoError(t, r2.err)
	require.Len(t, r2.embeddings, 2)

	require.Equal(t, 2, up.CallCount(), "caller 2 must not share caller 1's flight")
	assert.Equal(t, []string{"a", "b", "c"}, up.Calls()[0])
	assert.Equal(t, []string{"d", "e"}, up.Calls()[1])
}

// Scenario D — oversize rejection.
func TestCoordinator_ScenarioD_OversizeRejection(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 4, MaxWait: 10 * time.Second}, up)
	defer c.Close(testutil.TestContext(t))

	_, err := c.Submit(testutil.TestContext(t), []string{"a", "b", "c", "d", "e"})
	require.Error(t, err)

	var batchErr *types.Error
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, types.ErrOversize, batchErr.Code)
	assert.Equal(t, 0, up.CallCount())
}

// Scenario E — upstream failure fan-out.
func TestCoordinator_ScenarioE_UpstreamFailureFanOut(t *testing.T) {
	up := &fakeUpstream{
		handler: func(inputs []string) ([][]float64, error) {
			return nil, fmt.Errorf("upstream returned 500")
		},
	}
	c := NewCoordinator(Config{MaxBatchSize: 3, MaxTotalInputs: 32, MaxWait: 100 * time.Millisecond}, up)
	defer c.Close(testutil.TestContext(t))

	ch1 := submitAsync(t, c, []string{"a"})
	ch2 := submitAsync(t, c, []string{"b"})
	ch3 := submitAsync(t, c, []string{"c"})

	for _, ch := range []<-chan submitResult{ch1, ch2, ch3} {
		r := <-ch
		require.Error(t, r.err)
		var batchErr *types.Error
		require.ErrorAs(t, r.err, &batchErr)
		assert.Equal(t, types.ErrUpstream, batchErr.Code)
	}

	// The coordinator stays healthy for a later caller.
	up.mu.Lock()
	up.handler = nil
	up.mu.Unlock()

	embeddings, err := c.Submit(testutil.TestContext(t), []string{"d"})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
}

// Scenario F — multi-input preservation.
func TestCoordinator_ScenarioF_MultiInputPreservation(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 80 * time.Millisecond}, up)
	defer c.Close(testutil.TestContext(t))

	ch1 := submitAsync(t, c, []string{"p", "q"})
	ch2 := submitAsync(t, c, []string{"r"})

	r1 := <-ch1
	require.NoError(t, r1.err)
	require.Len(t, r1.embeddings, 2)
	assert.Equal(t, []float64{'p'}, r1.embeddings[0])
	assert.Equal(t, []float64{'q'}, r1.embeddings[1])

	r2 := <-ch2
	require.NoError(t, r2.err)
	require.Len(t, r2.embeddings, 1)
	assert.Equal(t, []float64{'r'}, r2.embeddings[0])

	assert.Equal(t, 1, up.CallCount(), "both callers must share one flight")
	assert.Equal(t, []string{"p", "q", "r"}, up.Calls()[0])
}

func TestCoordinator_UpstreamShapeMismatch(t *testing.T) {
	up := &fakeUpstream{
		handler: func(inputs []string) ([][]float64, error) {
			return [][]float64{{1}}, nil // wrong length for any multi-input flight
		},
	}
	c := NewCoordinator(Config{MaxBatchSize: 1, MaxTotalInputs: 32, MaxWait: 10 * time.Second}, up)
	defer c.Close(testutil.TestContext(t))

	_, err := c.Submit(testutil.TestContext(t), []string{"a", "b"})
	require.Error(t, err)
	var batchErr *types.Error
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, types.ErrUpstreamShape, batchErr.Code)
}

func TestCoordinator_EmptyInputsRejected(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: time.Second}, up)
	defer c.Close(testutil.TestContext(t))

	_, err := c.Submit(testutil.TestContext(t), nil)
	require.Error(t, err)
	var batchErr *types.Error
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, types.ErrBadRequest, batchErr.Code)
}

func TestCoordinator_CloseDispatchesOpenBatchAsShutdownFlight(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 10 * time.Second}, up)

	ch := submitAsync(t, c, []string{"a"})
	time.Sleep(20 * time.Millisecond) // ensure the item has reached the builder

	require.NoError(t, c.Close(testutil.TestContext(t)))

	r := <-ch
	require.NoError(t, r.err)
	assert.Equal(t, charEmbed([]string{"a"}), r.embeddings)
	assert.Equal(t, 1, up.CallCount())
}

// blockingUpstream never returns on its own; it only answers when ctx is
// canceled, mirroring how an HTTP client call is unblocked by a context
// deadline.
type blockingUpstream struct{}

func (blockingUpstream) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCoordinator_CloseGracePeriodCancelsSlowShutdownFlight(t *testing.T) {
	up := blockingUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 10 * time.Second}, up)

	ch := submitAsync(t, c, []string{"a"})
	time.Sleep(20 * time.Millisecond) // ensure the item has reached the builder

	closeCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Close(closeCtx)
	require.Error(t, err)

	r := <-ch
	require.Error(t, r.err)
	var batchErr *types.Error
	require.ErrorAs(t, r.err, &batchErr)
	assert.Equal(t, types.ErrShutdown, batchErr.Code)
}

func TestCoordinator_SubmitAfterClose(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: time.Second}, up)
	require.NoError(t, c.Close(testutil.TestContext(t)))

	_, err := c.Submit(testutil.TestContext(t), []string{"a"})
	require.Error(t, err)
	var batchErr *types.Error
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, types.ErrShutdown, batchErr.Code)
}

func TestCoordinator_CacheHitShortCircuitsBatching(t *testing.T) {
	up := &fakeUpstream{}
	cache := newFakeCache()
	cache.set("m", "cached", []float64{42})

	c := NewCoordinator(Config{MaxBatchSize: 8, MaxTotalInputs: 32, MaxWait: 10 * time.Second}, up,
		WithCache(cache), WithModel("m"))
	defer c.Close(testutil.TestContext(t))

	embeddings, err := c.Submit(testutil.TestContext(t), []string{"cached"})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, []float64{42}, embeddings[0])
	assert.Equal(t, 0, up.CallCount(), "a full cache hit must never reach the upstream")
}

func TestCoordinator_Stats(t *testing.T) {
	up := &fakeUpstream{}
	c := NewCoordinator(Config{MaxBatchSize: 1, MaxTotalInputs: 32, MaxWait: time.Second}, up)
	defer c.Close(testutil.TestContext(t))

	_, err := c.Submit(testutil.TestContext(t), []string{"a"})
	require.NoError(t, err)

	ok := testutil.WaitFor(func() bool {
		s := c.Stats()
		return s.Submitted >= 1 && s.Dispatched >= 1
	}, time.Second)
	require.True(t, ok)
}

// fakeCache is a minimal in-memory Cache for tests.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]float64
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]float64)}
}

func (f *fakeCache) key(model, input string) string { return model + "|" + input }

func (f *fakeCache) set(model, input string, emb []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[f.key(model, input)] = emb
}

func (f *fakeCache) Get(ctx context.Context, model, input string) ([]float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[f.key(model, input)]
	return v, ok
}

func (f *fakeCache) Set(ctx context.Context, model, input string, embedding []float64) {
	f.set(model, input, embedding)
}
