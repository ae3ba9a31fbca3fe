// Package transport abstracts how paxos.Message values travel between
// nodes. The core paxos package never sees a Transport — it is purely a
// collaborator of internal/node, which receives inbound messages off a
// Transport and sends outbound ones back onto it.
package transport

import (
	"errors"
	"time"

	"github.com/quorumlabs/paxos/internal/paxos"
)

// ErrUnknownNode is returned by Send when the destination node has no
// registered inbox.
var ErrUnknownNode = errors.New("transport: unknown destination node")

// ErrTimeout is returned by ReceiveTimeout when no message arrives before
// the deadline. Callers must treat it as "nothing to do yet", not as a
// fatal error — the core's liveness depends on periodically re-checking
// for a shutdown signal between timeouts.
var ErrTimeout = errors.New("transport: receive timed out")

// ErrClosed is returned by Send/Receive once Close has been called.
var ErrClosed = errors.New("transport: closed")

// Transport is the network seam a node's message loop runs on. Paxos
// assumes an asynchronous network — messages may be delayed, lost, or
// reordered, but never duplicated or corrupted — and every implementation
// of this interface must uphold that: Send is fire-and-forget and must
// never block the caller waiting on the destination.
type Transport interface {
	// Send delivers msg to a single named node. It does not guarantee
	// delivery; a down or unknown node yields ErrUnknownNode rather than
	// blocking.
	Send(to string, msg paxos.Message) error

	// Broadcast delivers msg to every other known node.
	Broadcast(msg paxos.Message) error

	// Receive blocks until a message addressed to this transport's own
	// node arrives, or the transport is closed.
	Receive() (paxos.Message, error)

	// ReceiveTimeout is Receive bounded by timeout, returning ErrTimeout
	// if nothing arrives in time.
	ReceiveTimeout(timeout time.Duration) (paxos.Message, error)

	// Close shuts the transport down. Blocked Receive calls unblock with
	// ErrClosed.
	Close() error
}
