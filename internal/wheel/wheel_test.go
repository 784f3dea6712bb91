package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickN(w *Wheel, n int) []Timeout {
	var all []Timeout
	for i := 0; i < n; i++ {
		all = append(all, w.Tick()...)
	}
	return all
}

// S2 — period exactly 60: add at ticks=40, expect Timeout on the 60th
// subsequent tick (ticks becomes 100), not on tick 40.
func TestPeriodExactly60(t *testing.T) {
	w := New()
	tickN(w, 40)
	require.EqualValues(t, 40, w.Ticks())

	w.Add("A", 60)

	fired := tickN(w, 59)
	assert.Empty(t, fired, "must not fire before the 60th subsequent tick")

	fired = w.Tick()
	require.EqualValues(t, 100, w.Ticks())
	require.Len(t, fired, 1)
	assert.Equal(t, Timeout{Topic: "A", PeriodSeconds: 60}, fired[0])
}

// S3 — period 23 near a wheel-index boundary: add at ticks=58, expect
// Timeout on the 23rd subsequent tick (ticks becomes 81).
func TestPeriod23NearBoundary(t *testing.T) {
	w := New()
	tickN(w, 58)

	w.Add("B", 23)

	fired := tickN(w, 22)
	assert.Empty(t, fired)

	fired = w.Tick()
	require.EqualValues(t, 81, w.Ticks())
	require.Len(t, fired, 1)
	assert.Equal(t, Timeout{Topic: "B", PeriodSeconds: 23}, fired[0])
}

// S6 — periodic rescheduling: subscribe "C" with period=3, drive 10 ticks,
// expect exactly 3 firings (at ticks 3, 6, 9) given the Engine re-Adds
// after each Timeout.
func TestPeriodicReschedule10Ticks(t *testing.T) {
	w := New()
	w.Add("C", 3)

	var firedAtTicks []uint64
	for i := 0; i < 10; i++ {
		fired := w.Tick()
		for _, f := range fired {
			firedAtTicks = append(firedAtTicks, w.Ticks())
			w.Add(f.Topic, f.PeriodSeconds)
		}
	}

	assert.Equal(t, []uint64{3, 6, 9}, firedAtTicks)
}

// Invariant 1: elapsed ticks between Add(T,p) and the resulting Timeout{T,p}
// is exactly p, for periods spanning sub-minute, exact-minute, and
// multi-minute-with-remainder cases.
func TestElapsedTicksEqualsPeriod(t *testing.T) {
	for _, period := range []uint32{1, 5, 30, 59, 60, 61, 119, 120, 121, 180, 181} {
		t.Run("", func(t *testing.T) {
			w := New()
			w.Add("T", period)

			var elapsed uint64
			for {
				fired := w.Tick()
				elapsed++
				if len(fired) > 0 {
					require.Len(t, fired, 1)
					assert.Equal(t, period, fired[0].PeriodSeconds)
					break
				}
				if elapsed > uint64(period)+1 {
					t.Fatalf("timeout for period %d never fired", period)
				}
			}
			assert.EqualValues(t, period, elapsed)
		})
	}
}

// Insertion order within a slot is preserved on fire.
func TestSlotFiresInInsertionOrder(t *testing.T) {
	w := New()
	w.Add("first", 5)
	w.Add("second", 5)
	w.Add("third", 5)

	fired := tickN(w, 5)
	require.Len(t, fired, 3)
	assert.Equal(t, "first", fired[0].Topic)
	assert.Equal(t, "second", fired[1].Topic)
	assert.Equal(t, "third", fired[2].Topic)
}

// tick() is pure on slots with no expired entries: an Add into a
// not-yet-visited slot doesn't affect ticks visited before it.
func TestTickPureOnUnrelatedSlots(t *testing.T) {
	w := New()
	w.Add("far", 40)

	for i := 0; i < 10; i++ {
		fired := w.Tick()
		assert.Empty(t, fired)
	}
	assert.EqualValues(t, 10, w.Ticks())
}

func TestRemoveTopicDropsPendingEntries(t *testing.T) {
	w := New()
	w.Add("gone", 10)
	w.Add("stays", 10)

	w.RemoveTopic("gone")

	fired := tickN(w, 10)
	require.Len(t, fired, 1)
	assert.Equal(t, "stays", fired[0].Topic)
}
