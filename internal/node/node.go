// Package node wires the pure paxos package to a Transport and a Store,
// turning the stateless Proposer/Acceptor/Learner trio into a running
// participant: it owns the message loop, persists Acceptor state before
// any reply leaves the process, and exposes the client-facing Propose and
// GetChosenValue calls.
package node

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quorumlabs/paxos/internal/paxos"
	"github.com/quorumlabs/paxos/internal/storage"
	"github.com/quorumlabs/paxos/internal/transport"
)

// pollInterval bounds how long a blocked ReceiveTimeout call can delay
// noticing Stop.
const pollInterval = 100 * time.Millisecond

// Node combines one paxos.Instance with a Transport and a Store and runs
// the message loop that keeps them synchronized.
type Node struct {
	id         string
	instance   *paxos.Instance
	transport  transport.Transport
	store      storage.Store
	quorumSize int
	log        *logrus.Entry
	metrics    *metrics

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	resolvedOnce sync.Once
	resolvedCh   chan struct{}
}

// New builds a Node, rehydrating its Acceptor from whatever the Store has
// persisted (a fresh Store yields a blank Acceptor). log may be nil, in
// which case a standalone logrus.Logger is used.
func New(id string, quorumSize int, t transport.Transport, s storage.Store, log *logrus.Logger) (*Node, error) {
	promisedID, acceptedID, acceptedValue, err := s.Load()
	if err != nil && err != storage.ErrNotFound {
		return nil, err
	}

	if log == nil {
		log = logrus.New()
	}

	return &Node{
		id:         id,
		instance:   paxos.NewInstance(id, quorumSize, promisedID, acceptedID, acceptedValue),
		transport:  t,
		store:      s,
		quorumSize: quorumSize,
		log:        log.WithField("node", id),
		metrics:    newMetrics(id),
		stopCh:     make(chan struct{}),
		resolvedCh: make(chan struct{}),
	}, nil
}

// ID returns the node's network identity.
func (n *Node) ID() string { return n.id }

// Start launches the message loop in the background. Start is idempotent.
func (n *Node) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true
	n.stopCh = make(chan struct{})
	n.wg.Add(1)
	go n.loop()
}

// Stop halts the message loop and waits for it to exit.
func (n *Node) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	close(n.stopCh)
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Node) loop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.stopCh:
			return
		default:
		}

		msg, err := n.transport.ReceiveTimeout(pollInterval)
		switch err {
		case nil:
			n.handle(msg)
		case transport.ErrTimeout:
			continue
		case transport.ErrClosed:
			return
		default:
			n.log.WithError(err).Warn("transport receive failed")
		}
	}
}

// handle routes one inbound message to the right role and ships out
// whatever reply that role produces. Acceptor replies are persisted
// before they are sent, per the durability contract: an observer must
// never see a Promise or Accepted that didn't survive a crash.
func (n *Node) handle(msg paxos.Message) {
	n.metrics.received.WithLabelValues(messageKind(msg)).Inc()

	switch m := msg.(type) {
	case *paxos.Prepare:
		reply := n.instance.ReceivePrepare(m)
		if !n.persistAcceptor() {
			return
		}
		n.reply(m.Sender(), reply)

	case *paxos.Accept:
		reply := n.instance.ReceiveAccept(m)
		if !n.persistAcceptor() {
			return
		}
		switch r := reply.(type) {
		case *paxos.Accepted:
			// Every node's Learner must observe every Accepted, not just
			// the proposer that sent this Accept, or no Learner but the
			// winning proposer's own could ever reach quorum. Broadcast
			// it, and feed our own copy straight to our local Learner
			// since Broadcast does not loop a node's messages back to
			// itself.
			n.transport.Broadcast(r)
			n.observeAccepted(r)
		case *paxos.Nack:
			n.reply(m.Sender(), r)
		}

	case *paxos.Promise, *paxos.Nack:
		out, err := n.instance.Receive(m)
		if err != nil {
			n.log.WithError(err).Warn("proposer rejected message")
			return
		}
		if _, isNack := m.(*paxos.Nack); isNack {
			n.metrics.nacks.Inc()
		}
		// As in Propose, a freshly minted Prepare/Accept is also fed
		// through handle so this node's own Acceptor votes in the round.
		switch o := out.(type) {
		case *paxos.Prepare:
			n.metrics.roundsPrepared.Inc()
			n.transport.Broadcast(o)
			n.handle(o)
		case *paxos.Accept:
			n.transport.Broadcast(o)
			n.handle(o)
		}

	case *paxos.Accepted:
		n.observeAccepted(m)

	case *paxos.Resolution:
		// A peer's Learner already reached quorum; fast-forward ours
		// rather than waiting to reassemble the same quorum locally.
		// Never rebroadcast this, or resolution messages would circulate
		// the cluster forever.
		n.instance.Learner.FastForward(m.Value)
		n.resolvedOnce.Do(func() {
			n.metrics.resolutions.Inc()
			n.log.WithField("value", string(m.Value)).Info("value chosen (via resolution broadcast)")
			close(n.resolvedCh)
		})

	default:
		n.log.WithField("type", messageKind(msg)).Warn("unroutable message")
	}
}

func (n *Node) observeAccepted(m *paxos.Accepted) {
	resolution, err := n.instance.Receive(m)
	if err != nil {
		n.log.WithError(err).Warn("learner rejected accepted message")
		return
	}
	if res, ok := resolution.(*paxos.Resolution); ok {
		n.onResolved(res)
	}
}

func (n *Node) onResolved(res *paxos.Resolution) {
	n.log.WithField("value", string(res.Value)).Info("value chosen")
	n.resolvedOnce.Do(func() {
		n.metrics.resolutions.Inc()
		close(n.resolvedCh)
	})
	n.transport.Broadcast(res)
}

func (n *Node) reply(to string, msg paxos.Message) {
	if msg == nil {
		return
	}
	if err := n.transport.Send(to, msg); err != nil {
		n.log.WithError(err).WithField("to", to).Debug("send failed")
	}
}

// persistAcceptor durably writes the Acceptor's current triple and
// reports whether it succeeded. On failure the in-memory state is rolled
// back to the last known-good triple so a crashed write can never be
// silently treated as if it happened.
func (n *Node) persistAcceptor() bool {
	promisedID, acceptedID, acceptedValue := n.instance.Acceptor.State()
	if err := n.store.Save(promisedID, acceptedID, acceptedValue); err != nil {
		n.log.WithError(err).Error("failed to persist acceptor state; rolling back and dropping reply")
		prevPromised, prevAccepted, prevValue, loadErr := n.store.Load()
		if loadErr == nil || loadErr == storage.ErrNotFound {
			n.instance.Acceptor.Restore(prevPromised, prevAccepted, prevValue)
		}
		return false
	}
	return true
}

// Propose drives this node's Proposer through a round for value. It
// returns once the first outbound message (a Prepare or an Accept) has
// been broadcast; learning the outcome happens asynchronously via
// GetChosenValue or WaitResolved.
//
// Broadcast never loops a message back to its own sender, so the
// proposing node also feeds its own Prepare/Accept through handle, the
// same entry point used for messages arriving over the transport. That
// is what lets this node's own Acceptor cast a vote in its own round —
// without it, quorumSize counted over all N members could never be
// reached using only the other N-1 nodes' votes.
func (n *Node) Propose(value []byte) {
	accept := n.instance.Proposer.ProposeValue(value)
	if accept != nil {
		n.transport.Broadcast(accept)
		n.handle(accept)
		return
	}
	prepare := n.instance.Proposer.Prepare()
	n.metrics.roundsPrepared.Inc()
	n.transport.Broadcast(prepare)
	n.handle(prepare)
}

// GetChosenValue reports the value this node's Learner has learned was
// chosen, if any.
func (n *Node) GetChosenValue() ([]byte, bool) {
	value, _, _, ok := n.instance.Learner.Resolved()
	return value, ok
}

// WaitResolved blocks until this node's Learner resolves or timeout
// elapses, returning the chosen value.
func (n *Node) WaitResolved(timeout time.Duration) ([]byte, bool) {
	select {
	case <-n.resolvedCh:
		return n.GetChosenValue()
	case <-time.After(timeout):
		return nil, false
	}
}

func messageKind(msg paxos.Message) string {
	switch msg.(type) {
	case *paxos.Prepare:
		return "prepare"
	case *paxos.Promise:
		return "promise"
	case *paxos.Accept:
		return "accept"
	case *paxos.Accepted:
		return "accepted"
	case *paxos.Nack:
		return "nack"
	case *paxos.Resolution:
		return "resolution"
	default:
		return "unknown"
	}
}
