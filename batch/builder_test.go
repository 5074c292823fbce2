package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{MaxBatchSize: 3, MaxTotalInputs: 4, MaxWait: time.Second}
}

func TestBuilder_CanAdmit_FitsWithinBothCaps(t *testing.T) {
	b := NewBuilder(testConfig())
	item := newItem([]string{"a"})

	fits, exceedsSize, exceedsInputs := b.CanAdmit(item)
	assert.True(t, fits)
	assert.False(t, exceedsSize)
	assert.False(t, exceedsInputs)
}

func TestBuilder_CanAdmit_RefusesOnInputCap(t *testing.T) {
	b := NewBuilder(testConfig())
	b.Admit(newItem([]string{"a", "b", "c"}))

	fits, _, exceedsInputs := b.CanAdmit(newItem([]string{"d", "e"}))
	assert.False(t, fits)
	assert.True(t, exceedsInputs)
}

func TestBuilder_CanAdmit_RefusesOnSizeCap(t *testing.T) {
	b := NewBuilder(Config{MaxBatchSize: 1, MaxTotalInputs: 100, MaxWait: time.Second})
	b.Admit(newItem([]string{"a"}))

	fits, exceedsSize, _ := b.CanAdmit(newItem([]string{"b"}))
	assert.False(t, fits)
	assert.True(t, exceedsSize)
}

func TestBuilder_Admit_SetsOpenedAtOnlyOnce(t *testing.T) {
	b := NewBuilder(testConfig())
	require.True(t, b.Empty())

	b.Admit(newItem([]string{"a"}))
	first := b.OpenedAt()
	require.False(t, first.IsZero())

	time.Sleep(5 * time.Millisecond)
	b.Admit(newItem([]string{"b"}))
	assert.Equal(t, first, b.OpenedAt(), "opened_at must not move on subsequent admissions")
}

func TestBuilder_IsFull_BySizeCount(t *testing.T) {
	b := NewBuilder(Config{MaxBatchSize: 2, MaxTotalInputs: 100, MaxWait: time.Second})
	b.Admit(newItem([]string{"a"}))
	assert.False(t, b.IsFull())
	b.Admit(newItem([]string{"b"}))
	assert.True(t, b.IsFull())
	assert.Equal(t, TriggerSizeCount, b.FullReason())
}

func TestBuilder_IsFull_ByTotalInputs(t *testing.T) {
	b := NewBuilder(Config{MaxBatchSize: 100, MaxTotalInputs: 2, MaxWait: time.Second})
	b.Admit(newItem([]string{"a", "b"}))
	assert.True(t, b.IsFull())
	assert.Equal(t, TriggerSizeInputs, b.FullReason())
}

func TestBuilder_Drain_ResetsToEmpty(t *testing.T) {
	b := NewBuilder(testConfig())
	b.Admit(newItem([]string{"a"}))
	b.Admit(newItem([]string{"b", "c"}))

	items := b.Drain()
	assert.Len(t, items, 2)
	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.TotalInputs())
	assert.True(t, b.OpenedAt().IsZero())
	assert.Equal(t, time.Duration(0), b.Age(time.Now()))
}

func TestBuilder_Age_ZeroWhenEmpty(t *testing.T) {
	b := NewBuilder(testConfig())
	assert.Equal(t, time.Duration(0), b.Age(time.Now()))
}

func TestBuilder_Age_GrowsAfterOpen(t *testing.T) {
	b := NewBuilder(testConfig())
	b.Admit(newItem([]string{"a"}))
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, b.Age(time.Now()), time.Duration(0))
}
