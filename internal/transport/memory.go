package transport

import (
	"sync"
	"time"

	"github.com/quorumlabs/paxos/internal/paxos"
)

// Network is the shared registry a set of in-process MemoryTransports
// register themselves against. All "nodes" run in the same Go process and
// exchange messages via buffered channels rather than real sockets — this
// is what makes the unit tests and the demo cluster fast and
// deterministic to set up.
type Network struct {
	mu    sync.RWMutex
	boxes map[string]chan envelope
}

type envelope struct {
	msg paxos.Message
}

// NewNetwork returns an empty shared registry.
func NewNetwork() *Network {
	return &Network{boxes: make(map[string]chan envelope)}
}

// Join creates a new MemoryTransport for nodeID and registers its inbox in
// the network so other transports on the same Network can address it.
func (n *Network) Join(nodeID string) *MemoryTransport {
	inbox := make(chan envelope, 256)
	n.mu.Lock()
	n.boxes[nodeID] = inbox
	n.mu.Unlock()
	return &MemoryTransport{
		nodeID:  nodeID,
		network: n,
		inbox:   inbox,
		closeCh: make(chan struct{}),
	}
}

func (n *Network) inboxFor(nodeID string) (chan envelope, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	box, ok := n.boxes[nodeID]
	return box, ok
}

func (n *Network) peerIDs(except string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.boxes))
	for id := range n.boxes {
		if id != except {
			ids = append(ids, id)
		}
	}
	return ids
}

func (n *Network) leave(nodeID string) {
	n.mu.Lock()
	delete(n.boxes, nodeID)
	n.mu.Unlock()
}

// MemoryTransport implements Transport over a Network's channels. It is
// not for production use across machines — only within a single process,
// for tests and the demo cluster.
type MemoryTransport struct {
	nodeID  string
	network *Network
	inbox   chan envelope

	closeOnce sync.Once
	closeCh   chan struct{}
}

// Send implements Transport.
func (t *MemoryTransport) Send(to string, msg paxos.Message) error {
	select {
	case <-t.closeCh:
		return ErrClosed
	default:
	}

	box, ok := t.network.inboxFor(to)
	if !ok {
		return ErrUnknownNode
	}
	select {
	case box <- envelope{msg: msg}:
		return nil
	default:
		// Buffer full: drop rather than block the sender. Paxos is
		// built to tolerate lost messages.
		return nil
	}
}

// Broadcast implements Transport.
func (t *MemoryTransport) Broadcast(msg paxos.Message) error {
	for _, id := range t.network.peerIDs(t.nodeID) {
		if err := t.Send(id, msg); err != nil && err != ErrUnknownNode {
			return err
		}
	}
	return nil
}

// Receive implements Transport.
func (t *MemoryTransport) Receive() (paxos.Message, error) {
	select {
	case env := <-t.inbox:
		return env.msg, nil
	case <-t.closeCh:
		return nil, ErrClosed
	}
}

// ReceiveTimeout implements Transport.
func (t *MemoryTransport) ReceiveTimeout(timeout time.Duration) (paxos.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env := <-t.inbox:
		return env.msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-t.closeCh:
		return nil, ErrClosed
	}
}

// Close implements Transport.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closeCh)
		t.network.leave(t.nodeID)
	})
	return nil
}
