package broker

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
)

// MemoryAdapter is an in-process simulated broker used for tests and for
// driving deterministic delivery scenarios without a live broker. It has
// no external dependency: inbound messages are injected by test code via
// Publish rather than arriving from a real network session. Grounded on
// GoCodeAlone-modular/modules/eventbus/memory.go's topic-map-plus-mutex
// shape.
type MemoryAdapter struct {
	sink Sink

	mu         sync.Mutex
	connected  bool
	subscribed map[string]bool
	ticker     *cron.Cron
}

// tickSchedule fires once per second. cron.ParseStandard's five-field
// expressions bottom out at minute resolution, so the tick timer builds its
// *cron.Cron with cron.WithSeconds() (the six-field variant) rather than
// reusing the scheduler's plain cron.New(), the one deviation from
// GoCodeAlone-modular/modules/scheduler/scheduler.go's construction call.
const tickSchedule = "* * * * * *"

// NewMemoryAdapter constructs a MemoryAdapter that pushes events to sink.
func NewMemoryAdapter(sink Sink) *MemoryAdapter {
	return &MemoryAdapter{sink: sink, subscribed: make(map[string]bool)}
}

func (a *MemoryAdapter) Connect(_ context.Context, _ Credentials) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return NothingToDo
	}
	a.connected = true
	return Success
}

func (a *MemoryAdapter) Disconnect(_ context.Context) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return NothingToDo
	}
	a.connected = false
	a.subscribed = make(map[string]bool)
	return Success
}

func (a *MemoryAdapter) Subscribe(_ context.Context, topic string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return Failure
	}
	if a.subscribed[topic] {
		return NothingToDo
	}
	a.subscribed[topic] = true
	return Success
}

func (a *MemoryAdapter) Unsubscribe(_ context.Context, topic string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.subscribed[topic] {
		return NothingToDo
	}
	delete(a.subscribed, topic)
	return Success
}

func (a *MemoryAdapter) StartTickTimer(_ context.Context) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker != nil {
		return NothingToDo
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(tickSchedule, a.sink.PushTick); err != nil {
		return Failure
	}
	c.Start()
	a.ticker = c
	return Success
}

func (a *MemoryAdapter) StopTickTimer() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker == nil {
		return NothingToDo
	}
	a.ticker.Stop()
	a.ticker = nil
	return Success
}

// Publish simulates the broker delivering a message on topic. It is the
// test-facing hook standing in for "broker I/O thread received a message";
// it is a no-op if the topic is not currently subscribed, mirroring a real
// broker never delivering for a topic it has no subscription on.
func (a *MemoryAdapter) Publish(topic string, payload []byte) {
	a.mu.Lock()
	subscribed := a.subscribed[topic]
	a.mu.Unlock()
	if !subscribed {
		return
	}

	msg := &OwnedMessage{Topic: topic, Payload: payload}
	a.sink.PushMessage(msg)
}
