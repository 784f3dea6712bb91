// Package wheel implements the Timeout Wheel: a 60-slot hashed timing wheel
// that schedules per-topic timer callbacks on 1-second ticks.
//
// Grounded on original_source/timeoutWheel.cpp; the add/tick arithmetic
// below is a direct translation of that file's insertion-index and
// iterations-left computation.
package wheel

import (
	"container/list"
	"fmt"

	"github.com/brandonto/topic-monitor/internal/logging"
)

const slots = 60

// Info describes one pending timeout tracked by the wheel.
type Info struct {
	Topic         string
	PeriodSeconds uint32
	iterationsLeft uint32
}

// Timeout is the work-queue-bound event the wheel produces when an Info
// expires.
type Timeout struct {
	Topic         string
	PeriodSeconds uint32
}

// Wheel is a fixed array of slots, each an ordered list of Info, plus a
// monotonically increasing tick counter. The zero value is not usable;
// construct with New.
type Wheel struct {
	slots [slots]*list.List
	ticks uint64
}

// New constructs an empty Wheel with ticks starting at 0.
func New() *Wheel {
	w := &Wheel{}
	for i := range w.slots {
		w.slots[i] = list.New()
	}
	return w
}

// Ticks returns the number of tick() calls observed so far.
func (w *Wheel) Ticks() uint64 { return w.ticks }

// Add schedules a timeout for topic to fire periodSeconds from now,
// relative to the wheel's current tick. periodSeconds must be >= 1; the
// Engine is responsible for never calling Add with period 0, which means
// "no timer for this subscription."
func (w *Wheel) Add(topic string, periodSeconds uint32) {
	minutes := periodSeconds / slots
	seconds := periodSeconds % slots

	cur := uint32(w.ticks % slots)
	insertIndex := (cur + seconds) % slots

	var iterationsLeft uint32
	if seconds == 0 {
		// Exact multiple of 60: insertIndex == cur, the slot this tick has
		// just visited, so the wheel next reaches it 60 ticks from now.
		// That first lap already covers one minute, so one iteration fewer
		// is needed.
		iterationsLeft = minutes - 1
	} else {
		iterationsLeft = minutes
	}

	w.slots[insertIndex].PushBack(&Info{
		Topic:          topic,
		PeriodSeconds:  periodSeconds,
		iterationsLeft: iterationsLeft,
	})
}

// Tick advances the wheel by one second and returns the Timeouts that
// expired in the slot just visited, in insertion order. Entries added to
// that same slot during this call (which cannot happen here since Tick has
// exclusive access to the wheel, called only from the Engine goroutine)
// would not be observed by this visit; entries added to a different slot
// are unaffected.
func (w *Wheel) Tick() []Timeout {
	w.ticks++
	i := w.ticks % slots
	l := w.slots[i]

	var fired []Timeout
	for e := l.Front(); e != nil; {
		info := e.Value.(*Info)
		next := e.Next()
		if info.iterationsLeft == 0 {
			fired = append(fired, Timeout{Topic: info.Topic, PeriodSeconds: info.PeriodSeconds})
			l.Remove(e)
		} else {
			info.iterationsLeft--
		}
		e = next
	}
	return fired
}

// RemoveTopic drops all pending Info for topic, scanning every slot.
// Unsubscribe calls this so a rescheduled Timeout for an unsubscribed topic
// is never re-armed. The cheaper alternative — leave it in place and let
// the Engine discard the Timeout event when it finds the topic no longer
// monitored — works equally well; this method exists for callers who want
// the wheel itself to stay clean, and is exercised by the Unsubscribe
// handler as belt-and-suspenders.
func (w *Wheel) RemoveTopic(topic string) {
	for _, l := range w.slots {
		for e := l.Front(); e != nil; {
			next := e.Next()
			if e.Value.(*Info).Topic == topic {
				l.Remove(e)
			}
			e = next
		}
	}
}

// DumpState logs each slot's topic list at Error level, matching
// original_source/timeoutWheel.cpp's dumpState() diagnostic.
func (w *Wheel) DumpState(logger logging.Logger) {
	summary := ""
	for i, l := range w.slots {
		summary += fmt.Sprintf("%d:{", i)
		for e := l.Front(); e != nil; e = e.Next() {
			summary += e.Value.(*Info).Topic + ","
		}
		summary += "}, "
	}
	logger.Error(summary)
}
