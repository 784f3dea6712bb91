// Package broker implements the Broker Adapter: the collaborator that
// encapsulates the pub/sub broker client, emitting MessageReceived and
// TimerTick work entries onto the Engine's queue.
//
// Grounded on original_source/solClientThread.{hpp,cpp} for the contract
// (connect/disconnect/subscribe/unsubscribe/tick-timer, three-valued
// result) and on GoCodeAlone-modular/modules/eventbus's pluggable-Engine
// shape (config.go's Engine field) for the Go realization of "more than
// one concrete broker behind one interface."
package broker

import (
	"context"
	"errors"
)

// Result is the three-valued outcome the blocking broker operations
// return: Success, Failure, or NothingToDo (the operation was a no-op
// given current state, e.g. disconnecting a session that was never
// connected).
type Result int

const (
	Success Result = iota
	Failure
	NothingToDo
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case NothingToDo:
		return "nothing-to-do"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyConnected    = errors.New("broker: already connected")
	ErrNotConnected        = errors.New("broker: not connected")
	ErrAlreadySubscribed   = errors.New("broker: already subscribed")
	ErrNotSubscribed       = errors.New("broker: not subscribed")
	ErrTickTimerRunning    = errors.New("broker: tick timer already running")
	ErrTickTimerNotRunning = errors.New("broker: tick timer not running")
)

// Credentials carries the connection parameters a
// connect(host, vpn, user, pass) call takes.
type Credentials struct {
	Host     string
	VPN      string
	Username string
	Password string
}

// OwnedMessage wraps a broker-allocated message buffer. The I/O thread
// transfers ownership by constructing one of these and handing it to the
// Engine via a MessageReceived work entry; Release must be called exactly
// once, by whichever goroutine ends up owning it, to free the underlying
// buffer.
type OwnedMessage struct {
	Topic   string
	Payload []byte

	release func()
	freed   bool
}

// Release frees the underlying broker buffer. Safe to call more than once;
// only the first call has effect, and callers that need to assert
// "freed exactly once" should check the bool return.
func (m *OwnedMessage) Release() (freedNow bool) {
	if m.freed {
		return false
	}
	m.freed = true
	if m.release != nil {
		m.release()
	}
	return true
}

// Freed reports whether Release has already run.
func (m *OwnedMessage) Freed() bool { return m.freed }

// Sink is where the Adapter delivers inbound events. The Engine satisfies
// this by pushing work entries onto its queue.Queue, but the Adapter package
// stays decoupled from the queue's concrete type.
type Sink interface {
	PushMessage(*OwnedMessage)
	PushTick()
}

// Adapter is the Broker Adapter contract every backend must satisfy.
type Adapter interface {
	Connect(ctx context.Context, creds Credentials) Result
	Disconnect(ctx context.Context) Result

	// Subscribe and Unsubscribe are serialized by an internal lock so two
	// callers cannot race on the same session. Whether they wait for a
	// broker confirmation depends on the backend (see KafkaAdapter).
	Subscribe(ctx context.Context, topic string) Result
	Unsubscribe(ctx context.Context, topic string) Result

	StartTickTimer(ctx context.Context) Result
	StopTickTimer() Result
}
