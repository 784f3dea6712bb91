// Package engine implements the Monitoring Engine: the single-consumer
// dispatch loop that serializes message arrival, subscribe, unsubscribe,
// one-second tick, and per-topic timeout onto one goroutine, and its two
// tightly coupled collaborators' wiring (the Timeout Wheel and the Script
// Host are owned here, not by this package's callers).
//
// Grounded on original_source/monitoringThread.{hpp,cpp}: the dispatch
// loop's pop-switch-destroy shape is preserved; the handler bodies are
// real subscribe/unsubscribe/deliver/timeout logic rather than the
// original's placeholder printf stubs.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/brandonto/topic-monitor/internal/broker"
	"github.com/brandonto/topic-monitor/internal/config"
	"github.com/brandonto/topic-monitor/internal/logging"
	"github.com/brandonto/topic-monitor/internal/queue"
	"github.com/brandonto/topic-monitor/internal/script"
	"github.com/brandonto/topic-monitor/internal/wheel"
)

// Engine owns the TopicEnvMap, the TimeoutWheel, and the ScriptHost. It
// does not own the Broker Adapter but invokes it synchronously from the
// single dispatch goroutine.
type Engine struct {
	q       *queue.Queue
	wheel   *wheel.Wheel
	host    *script.Host
	adapter broker.Adapter
	logger  logging.Logger

	// topicEnv maps topic -> script name, mutated only from the dispatch
	// goroutine; absence of a key means "drop inbound messages for this
	// topic."
	topicEnv map[string]string

	runCtx context.Context
}

// New constructs an Engine. adapter is invoked synchronously to
// unsubscribe: on the cleanup path of a failed Subscribe and on
// shutdown. adapter may be nil at construction and supplied later via
// SetAdapter — the Broker Adapter's own constructor takes the Engine as
// its Sink, so the two have a circular dependency that must be broken by
// a setter on one side.
func New(q *queue.Queue, w *wheel.Wheel, host *script.Host, adapter broker.Adapter, logger logging.Logger) *Engine {
	return &Engine{
		q:        q,
		wheel:    w,
		host:     host,
		adapter:  adapter,
		logger:   logger,
		topicEnv: make(map[string]string),
	}
}

// SetAdapter supplies the Broker Adapter once it has been constructed with
// this Engine as its Sink. Must be called before Run.
func (e *Engine) SetAdapter(adapter broker.Adapter) {
	e.adapter = adapter
}

// PushMessage implements broker.Sink: the I/O side hands off an owned
// message, which the Engine will route to onMessage or drop and release.
func (e *Engine) PushMessage(msg *broker.OwnedMessage) {
	e.q.Push(messageReceivedEntry{msg: msg})
}

// PushTick implements broker.Sink.
func (e *Engine) PushTick() {
	e.q.Push(timerTickEntry{})
}

// Subscribe enqueues a Subscribe work entry for info. Safe to call from any
// goroutine (it only pushes onto the thread-safe queue).
func (e *Engine) Subscribe(info config.SubscriptionInfo) {
	e.q.Push(subscribeEntry{info: info})
}

// Unsubscribe enqueues an Unsubscribe work entry for info.
func (e *Engine) Unsubscribe(info config.SubscriptionInfo) {
	e.q.Push(unsubscribeEntry{info: info})
}

// Topics returns the currently monitored topics, for shutdown's
// unsubscribe-all pass. Only safe to call from the dispatch goroutine.
func (e *Engine) Topics() []string {
	topics := make([]string, 0, len(e.topicEnv))
	for t := range e.topicEnv {
		topics = append(topics, t)
	}
	return topics
}

// Run blocks, popping and dispatching work entries until ctx is cancelled
// or the queue is closed. This replaces the original's "loop forever, exit
// on process termination" with an idiomatic cancellable loop: the caller
// cancels ctx (or calls the queue's Close) to unwind cleanly.
func (e *Engine) Run(ctx context.Context) {
	e.runCtx = ctx

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.q.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		entry, ok := e.q.Pop()
		if !ok {
			// Queue closed: unsubscribe every still-monitored topic before
			// returning. Safe to touch topicEnv here — this is still the
			// sole dispatch goroutine, and no further entries will be
			// popped.
			e.Shutdown(context.Background())
			return
		}
		e.dispatch(entry.(WorkEntry))
	}
}

func (e *Engine) dispatch(entry WorkEntry) {
	switch v := entry.(type) {
	case messageReceivedEntry:
		e.handleMessageReceived(v)
	case subscribeEntry:
		e.handleSubscribe(v)
	case unsubscribeEntry:
		e.handleUnsubscribe(v)
	case timerTickEntry:
		e.handleTimerTick()
	case timeoutEntry:
		e.handleTimeout(v)
	}
}

func (e *Engine) handleMessageReceived(entry messageReceivedEntry) {
	defer entry.msg.Release()

	scriptName, monitored := e.topicEnv[entry.msg.Topic]
	if !monitored {
		e.logger.Warn("dropping message for unmonitored topic", "topic", entry.msg.Topic)
		return
	}

	if err := e.host.InvokeMessage(scriptName, string(entry.msg.Payload)); err != nil {
		e.logger.Error("onMessage trapped", "topic", entry.msg.Topic, "script", scriptName, "error", err)
		return
	}
	e.logger.Debug("onMessage invoked", "topic", entry.msg.Topic, "script", scriptName, "invocation", uuid.NewString())
}

// handleSubscribe runs the ordered Subscribe steps: load, require
// onMessage, require onTimer when periodic, arm the wheel, then publish
// into TopicEnvMap. Any failure takes the cleanup path instead.
func (e *Engine) handleSubscribe(entry subscribeEntry) {
	info := entry.info

	cleanup := func(reason string, err error) {
		e.logger.Warn("subscribe failed, unsubscribing from broker", "topic", info.Topic, "reason", reason, "error", err)
		e.adapter.Unsubscribe(e.runCtx, info.Topic)
	}

	if err := e.host.Load(info.ScriptName); err != nil {
		cleanup("script load failed", err)
		return
	}

	if !e.host.HasFunction(info.ScriptName, "onMessage") {
		e.host.Drop(info.ScriptName)
		cleanup("script missing onMessage", nil)
		return
	}

	if info.PeriodSeconds > 0 && !e.host.HasFunction(info.ScriptName, "onTimer") {
		e.host.Drop(info.ScriptName)
		cleanup("periodic subscription missing onTimer", nil)
		return
	}

	if info.PeriodSeconds > 0 {
		e.wheel.Add(info.Topic, info.PeriodSeconds)
	}

	e.topicEnv[info.Topic] = info.ScriptName
	e.logger.Info("subscribed", "topic", info.Topic, "script", info.ScriptName, "period", info.PeriodSeconds)
}

// handleUnsubscribe reverses Subscribe: remove from TopicEnvMap so future
// MessageReceived entries for this topic are dropped, mark any pending
// Wheel entries dead, and drop the script environment.
func (e *Engine) handleUnsubscribe(entry unsubscribeEntry) {
	info := entry.info
	delete(e.topicEnv, info.Topic)
	if info.PeriodSeconds > 0 {
		e.wheel.RemoveTopic(info.Topic)
	}
	e.host.Drop(info.ScriptName)
	e.logger.Info("unsubscribed", "topic", info.Topic)
}

func (e *Engine) handleTimerTick() {
	for _, t := range e.wheel.Tick() {
		e.q.Push(timeoutEntry{topic: t.Topic, periodSeconds: t.PeriodSeconds})
	}
}

// handleTimeout discards stale timeouts for topics no longer monitored
// (for instance one already queued when its topic was unsubscribed),
// otherwise invokes onTimer and reschedules.
func (e *Engine) handleTimeout(entry timeoutEntry) {
	scriptName, monitored := e.topicEnv[entry.topic]
	if !monitored {
		return
	}

	if err := e.host.InvokeTimer(scriptName); err != nil {
		e.logger.Error("onTimer trapped", "topic", entry.topic, "script", scriptName, "error", err)
	} else {
		e.logger.Debug("onTimer invoked", "topic", entry.topic, "script", scriptName, "invocation", uuid.NewString())
	}

	e.wheel.Add(entry.topic, entry.periodSeconds)
}

// Shutdown unsubscribes every currently monitored topic from the broker,
// resolving the open question of unsubscribe-all vs. selective shutdown
// in favor of unsubscribe-all. Must be called from the dispatch goroutine
// (e.g. just before Run returns) since it reads topicEnv directly.
func (e *Engine) Shutdown(ctx context.Context) {
	for topic := range e.topicEnv {
		e.adapter.Unsubscribe(ctx, topic)
	}
}
