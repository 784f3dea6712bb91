package engine

import (
	"github.com/brandonto/topic-monitor/internal/broker"
	"github.com/brandonto/topic-monitor/internal/config"
)

// Kind tags the five WorkEntry variants the dispatch loop handles. Replaces
// the base-class-plus-subclasses polymorphism of the monitoring thread's
// original C++ design with a closed Go sum type: dispatch is a single type
// switch (see Engine.dispatch) rather than virtual calls.
type Kind int

const (
	KindMessageReceived Kind = iota
	KindSubscribe
	KindUnsubscribe
	KindTimerTick
	KindTimeout
)

// WorkEntry is the closed interface every queue payload implements. Only
// the five types below may implement it (the method is unexported).
type WorkEntry interface {
	Kind() Kind
	workEntry()
}

type messageReceivedEntry struct {
	msg *broker.OwnedMessage
}

func (messageReceivedEntry) Kind() Kind { return KindMessageReceived }
func (messageReceivedEntry) workEntry() {}

type subscribeEntry struct {
	info config.SubscriptionInfo
}

func (subscribeEntry) Kind() Kind { return KindSubscribe }
func (subscribeEntry) workEntry() {}

type unsubscribeEntry struct {
	info config.SubscriptionInfo
}

func (unsubscribeEntry) Kind() Kind { return KindUnsubscribe }
func (unsubscribeEntry) workEntry() {}

type timerTickEntry struct{}

func (timerTickEntry) Kind() Kind { return KindTimerTick }
func (timerTickEntry) workEntry() {}

type timeoutEntry struct {
	topic         string
	periodSeconds uint32
}

func (timeoutEntry) Kind() Kind { return KindTimeout }
func (timeoutEntry) workEntry() {}
