package batch

import "time"

// Builder is the pure, non-concurrent accumulator for one Pending batch. It
// has no knowledge of channels, timers, or the network; the Coordinator
// drives it and owns the only reference to it. Separating it out keeps the
// trigger logic testable without spinning up goroutines.
type Builder struct {
	cfg         Config
	items       []*Item
	totalInputs int
	openedAt    time.Time
}

// NewBuilder returns an empty Builder bound to cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Empty reports whether no item has been admitted yet.
func (b *Builder) Empty() bool {
	return len(b.items) == 0
}

// Len returns the number of items currently admitted.
func (b *Builder) Len() int {
	return len(b.items)
}

// TotalInputs returns the running sum of admitted items' input counts.
func (b *Builder) TotalInputs() int {
	return b.totalInputs
}

// CanAdmit reports whether item could be admitted without breaching either
// capacity bound.
func (b *Builder) CanAdmit(item *Item) (fits, wouldExceedSize, wouldExceedInputs bool) {
	wouldExceedSize = len(b.items)+1 > b.cfg.MaxBatchSize
	wouldExceedInputs = b.totalInputs+len(item.Inputs) > b.cfg.MaxTotalInputs
	fits = !wouldExceedSize && !wouldExceedInputs
	return fits, wouldExceedSize, wouldExceedInputs
}

// Admit appends item to the batch and updates totals. The caller must have
// already confirmed CanAdmit returned fits.
func (b *Builder) Admit(item *Item) {
	if b.Empty() {
		b.openedAt = time.Now()
	}
	b.items = append(b.items, item)
	b.totalInputs += len(item.Inputs)
}

// IsFull reports whether the batch has reached either capacity bound.
func (b *Builder) IsFull() bool {
	return len(b.items) >= b.cfg.MaxBatchSize || b.totalInputs >= b.cfg.MaxTotalInputs
}

// FullReason explains which cap IsFull is reporting against. It is only
// meaningful when IsFull returns true; size count is checked first since
// that is the bound the spec lists first.
func (b *Builder) FullReason() TriggerReason {
	if len(b.items) >= b.cfg.MaxBatchSize {
		return TriggerSizeCount
	}
	return TriggerSizeInputs
}

// Drain returns the accumulated items and resets the builder to empty, as
// if newly constructed.
func (b *Builder) Drain() []*Item {
	items := b.items
	b.items = nil
	b.totalInputs = 0
	b.openedAt = time.Time{}
	return items
}

// Age returns how long the batch has been open as of now, or zero if
// empty.
func (b *Builder) Age(now time.Time) time.Duration {
	if b.Empty() {
		return 0
	}
	return now.Sub(b.openedAt)
}

// OpenedAt returns the time the first item was admitted, or the zero time
// if the batch is empty.
func (b *Builder) OpenedAt() time.Time {
	return b.openedAt
}
