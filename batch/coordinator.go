package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vectorflow/embedbatch/internal/metrics"
	"github.com/vectorflow/embedbatch/types"
)

// defaultQueueCapacity bounds how many submitted items may sit in the
// queue waiting for the scheduling loop to admit them into a Builder.
const defaultQueueCapacity = 64

// Coordinator is the single-writer heart of the batching proxy. A single
// goroutine (run) owns the active Builder and its deadline timer; every
// other goroutine reaches it only through Submit, which hands work across
// a buffered channel and waits on a private reply channel. This keeps the
// trigger/timer logic single-threaded by construction, the same way the
// teacher's worker loop serializes batch formation behind one channel.
type Coordinator struct {
	cfg      Config
	upstream Upstream
	cache    Cache
	recorder Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger
	model    string

	queue chan *Item

	closed      atomic.Bool
	shutdownCtx context.Context
	loopDone    chan struct{}
	flightsWG   sync.WaitGroup

	submitted  atomic.Int64
	dispatched atomic.Int64
	cacheHits  atomic.Int64
	cacheMiss  atomic.Int64
	failed     atomic.Int64
}

// Option configures an optional Coordinator collaborator.
type Option func(*Coordinator)

// WithCache wires an embedding cache consulted before admission.
func WithCache(c Cache) Option {
	return func(co *Coordinator) { co.cache = c }
}

// WithRecorder wires an audit sink invoked after every dispatch.
func WithRecorder(r Recorder) Option {
	return func(co *Coordinator) { co.recorder = r }
}

// WithMetrics wires a Prometheus collector recorded against on every
// dispatch, cache lookup, and queue admission.
func WithMetrics(m *metrics.Collector) Option {
	return func(co *Coordinator) { co.metrics = m }
}

// WithLogger overrides the no-op default logger.
func WithLogger(l *zap.Logger) Option {
	return func(co *Coordinator) {
		if l != nil {
			co.logger = l
		}
	}
}

// WithModel sets the model name used as part of the cache key; it has no
// effect on batching behavior.
func WithModel(model string) Option {
	return func(co *Coordinator) { co.model = model }
}

// NewCoordinator starts a Coordinator's scheduling loop and returns it
// ready to accept Submit calls. Close must be called to drain it.
func NewCoordinator(cfg Config, upstream Upstream, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		upstream: upstream,
		logger:   zap.NewNop(),
		model:    "default",
		queue:    make(chan *Item, defaultQueueCapacity),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Submit accepts one caller's inputs, consults the cache for each, and
// either resolves entirely from cache hits or admits the cache-miss subset
// into the current Pending batch, blocking until that subset's Flight
// delivers a result or ctx is done.
func (c *Coordinator) Submit(ctx context.Context, inputs []string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, types.NewError(types.ErrBadRequest, "inputs must not be empty")
	}
	if len(inputs) > c.cfg.MaxTotalInputs {
		return nil, types.NewError(types.ErrOversize,
			fmt.Sprintf("request has %d inputs, exceeds max_total_inputs %d", len(inputs), c.cfg.MaxTotalInputs))
	}
	if c.closed.Load() {
		return nil, types.NewError(types.ErrShutdown, "coordinator is shutting down")
	}

	c.submitted.Add(1)

	result := make([][]float64, len(inputs))
	missIdx := make([]int, 0, len(inputs))
	missInputs := make([]string, 0, len(inputs))

	for i, in := range inputs {
		if c.cache != nil {
			if emb, ok := c.cache.Get(ctx, c.model, in); ok {
				result[i] = emb
				c.cacheHits.Add(1)
				if c.metrics != nil {
					c.metrics.RecordCacheHit("embedding")
				}
				continue
			}
			c.cacheMiss.Add(1)
			if c.metrics != nil {
				c.metrics.RecordCacheMiss("embedding")
			}
		}
		missIdx = append(missIdx, i)
		missInputs = append(missInputs, in)
	}

	if len(missInputs) == 0 {
		return result, nil
	}

	item := newItem(missInputs)
	select {
	case c.queue <- item:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-item.deliver:
		if res.Err != nil {
			return nil, res.Err
		}
		for j, idx := range missIdx {
			result[idx] = res.Embeddings[j]
			if c.cache != nil {
				c.cache.Set(ctx, c.model, missInputs[j], res.Embeddings[j])
			}
		}
		return result, nil
	case <-ctx.Done():
		// The caller abandoned the request. Its item's slot in the batch
		// stays put per the abandoned-caller policy; the eventual result
		// will simply be discarded on delivery.
		return nil, ctx.Err()
	}
}

// Close stops accepting new items, triggers any open batch as a shutdown
// Flight, and waits for outstanding Flights to finish or ctx to expire. The
// shutdown Flight's upstream call is bound to ctx, so if the grace period
// elapses before it completes, the call is canceled and its items are
// delivered a failure instead of hanging.
func (c *Coordinator) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.shutdownCtx = ctx
	close(c.queue)

	select {
	case <-c.loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		c.flightsWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of Coordinator counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Submitted:   c.submitted.Load(),
		Dispatched:  c.dispatched.Load(),
		CacheHits:   c.cacheHits.Load(),
		CacheMisses: c.cacheMiss.Load(),
		Failed:      c.failed.Load(),
		Queued:      len(c.queue),
	}
}

// run is the Coordinator's single scheduling loop: the only place that
// reads or mutates the active Builder.
func (c *Coordinator) run() {
	builder := NewBuilder(c.cfg)
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	stopTimer := func() {
		if !armed {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}
	armTimer := func(d time.Duration) {
		stopTimer()
		timer.Reset(d)
		armed = true
	}

	for {
		select {
		case item, ok := <-c.queue:
			if !ok {
				// The queue is closed only by Close, which sets shutdownCtx
				// before closing it; that write happens-before this receive.
				stopTimer()
				c.triggerNow(c.shutdownCtx, builder, TriggerShutdown)
				close(c.loopDone)
				return
			}
			c.admit(builder, item, armTimer, stopTimer)
			if c.metrics != nil {
				c.metrics.SetQueueDepth(len(c.queue))
			}

		case <-timer.C:
			armed = false
			if !builder.Empty() {
				c.triggerNow(context.Background(), builder, TriggerTimer)
			}
		}
	}
}

// admit runs the admission and trigger algorithm for one incoming item
// against the current Builder.
func (c *Coordinator) admit(b *Builder, item *Item, armTimer func(time.Duration), stopTimer func()) {
	fits, _, _ := b.CanAdmit(item)

	if fits {
		wasEmpty := b.Empty()
		b.Admit(item)
		if wasEmpty {
			armTimer(c.cfg.MaxWait)
		}
		if b.IsFull() {
			stopTimer()
			c.triggerNow(context.Background(), b, b.FullReason())
		}
		return
	}

	// The item cannot coexist with the current batch: flush it now, then
	// open a fresh batch for the incoming item.
	if !b.Empty() {
		stopTimer()
		c.triggerNow(context.Background(), b, TriggerRefused)
	}
	b.Admit(item)
	armTimer(c.cfg.MaxWait)
	if b.IsFull() {
		stopTimer()
		c.triggerNow(context.Background(), b, b.FullReason())
	}
}

// triggerNow drains b and dispatches its items as a new Flight, unless b
// was already empty. ctx bounds the Flight's upstream call; it is
// context.Background() for every trigger except the final shutdown Flight,
// which is bound to Close's grace-period ctx so a stalled upstream call
// gets canceled instead of hanging past the grace period.
func (c *Coordinator) triggerNow(ctx context.Context, b *Builder, reason TriggerReason) {
	items := b.Drain()
	if len(items) == 0 {
		return
	}
	c.dispatch(ctx, items, reason)
}

// dispatch hands items off to their own Flight goroutine. Any number of
// Flights run concurrently; the Coordinator never waits on one before
// admitting into the next batch.
func (c *Coordinator) dispatch(ctx context.Context, items []*Item, reason TriggerReason) {
	c.dispatched.Add(1)
	c.flightsWG.Add(1)
	go func() {
		defer c.flightsWG.Done()
		c.runFlight(ctx, items, reason)
	}()
}

func (c *Coordinator) runFlight(ctx context.Context, items []*Item, reason TriggerReason) {
	start := time.Now()

	counts := make([]int, len(items))
	totalInputs := 0
	for i, it := range items {
		counts[i] = len(it.Inputs)
		totalInputs += counts[i]
	}
	inputs := make([]string, 0, totalInputs)
	for _, it := range items {
		inputs = append(inputs, it.Inputs...)
	}

	rec := FlightRecord{
		ItemCount:     len(items),
		TotalInputs:   totalInputs,
		TriggerReason: reason,
		DispatchedAt:  start,
	}

	embeddings, err := c.upstream.Embed(ctx, inputs)
	rec.Duration = time.Since(start)

	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordUpstreamRequest(status, rec.Duration)
	}

	if err != nil {
		c.failed.Add(int64(len(items)))

		errCode := types.ErrUpstream
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			errCode = types.ErrShutdown
		}
		rec.Outcome = string(errCode)
		rec.Err = err.Error()
		c.finishFlight(rec)

		deliverErr := types.NewError(errCode, "upstream call failed").WithCause(err)
		if errCode == types.ErrUpstream {
			deliverErr = deliverErr.WithRetryable(true)
		}
		for _, it := range items {
			it.deliver <- Result{Err: deliverErr}
		}
		return
	}

	if len(embeddings) != len(inputs) {
		c.failed.Add(int64(len(items)))
		rec.Outcome = "upstream_shape"
		rec.Err = fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(embeddings))
		c.finishFlight(rec)

		deliverErr := types.NewError(types.ErrUpstreamShape, rec.Err)
		for _, it := range items {
			it.deliver <- Result{Err: deliverErr}
		}
		return
	}

	rec.Outcome = "ok"
	c.finishFlight(rec)

	offset := 0
	for i, it := range items {
		n := counts[i]
		it.deliver <- Result{Embeddings: embeddings[offset : offset+n]}
		offset += n
	}
}

// finishFlight records a completed Flight to both the audit log and the
// metrics collector; either collaborator may be nil.
func (c *Coordinator) finishFlight(rec FlightRecord) {
	c.record(rec)
	if c.metrics != nil {
		c.metrics.RecordFlight(string(rec.TriggerReason), rec.Outcome, rec.ItemCount, rec.TotalInputs, rec.Duration)
	}
}

func (c *Coordinator) record(rec FlightRecord) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.recorder.Record(ctx, rec)
}
