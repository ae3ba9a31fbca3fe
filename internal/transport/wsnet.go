package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quorumlabs/paxos/internal/paxos"
)

// wireMessage is the JSON envelope every paxos.Message is encoded as on
// the wire. Kind records which concrete struct Payload decodes into,
// since paxos.Message is a closed interface and JSON alone can't carry
// that information.
type wireMessage struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encodeMessage(msg paxos.Message) (wireMessage, error) {
	var kind string
	switch msg.(type) {
	case *paxos.Prepare:
		kind = "prepare"
	case *paxos.Promise:
		kind = "promise"
	case *paxos.Accept:
		kind = "accept"
	case *paxos.Accepted:
		kind = "accepted"
	case *paxos.Nack:
		kind = "nack"
	case *paxos.Resolution:
		kind = "resolution"
	default:
		return wireMessage{}, fmt.Errorf("transport: unknown message type %T", msg)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return wireMessage{}, err
	}
	return wireMessage{Kind: kind, Payload: payload}, nil
}

func decodeMessage(w wireMessage) (paxos.Message, error) {
	var msg paxos.Message
	switch w.Kind {
	case "prepare":
		msg = &paxos.Prepare{}
	case "promise":
		msg = &paxos.Promise{}
	case "accept":
		msg = &paxos.Accept{}
	case "accepted":
		msg = &paxos.Accepted{}
	case "nack":
		msg = &paxos.Nack{}
	case "resolution":
		msg = &paxos.Resolution{}
	default:
		return nil, fmt.Errorf("transport: unknown wire kind %q", w.Kind)
	}
	if err := json.Unmarshal(w.Payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Peer is a remote node's websocket address, e.g. "ws://10.0.0.2:9001/paxos".
type Peer struct {
	NodeID string
	URL    string
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSTransport is a Transport over real network sockets, one
// *websocket.Conn per peer, dialed outbound and accepted inbound on a
// shared HTTP handler. Unlike MemoryTransport it crosses process and
// machine boundaries, so it is what internal/node should be given
// outside of tests and the single-process demo.
type WSTransport struct {
	nodeID string

	mu    sync.RWMutex
	conns map[string]*websocket.Conn

	inbox   chan paxos.Message
	closeCh chan struct{}
	once    sync.Once
}

// NewWSTransport creates a transport for nodeID. Call Handler to obtain
// the http.HandlerFunc that accepts inbound peer connections, and Dial
// for each outbound peer this node needs to reach.
func NewWSTransport(nodeID string) *WSTransport {
	return &WSTransport{
		nodeID:  nodeID,
		conns:   make(map[string]*websocket.Conn),
		inbox:   make(chan paxos.Message, 256),
		closeCh: make(chan struct{}),
	}
}

// Handler returns the HTTP handler a node mounts to accept inbound peer
// connections. The peer identifies itself via the "node" query parameter
// on the upgrade request.
func (t *WSTransport) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID := r.URL.Query().Get("node")
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		t.adopt(peerID, conn)
	}
}

// Dial opens an outbound connection to a peer and registers it for Send.
func (t *WSTransport) Dial(peer Peer) error {
	conn, _, err := websocket.DefaultDialer.Dial(peer.URL+"?node="+t.nodeID, nil)
	if err != nil {
		return err
	}
	t.adopt(peer.NodeID, conn)
	return nil
}

func (t *WSTransport) adopt(peerID string, conn *websocket.Conn) {
	t.mu.Lock()
	t.conns[peerID] = conn
	t.mu.Unlock()
	go t.readLoop(peerID, conn)
}

func (t *WSTransport) readLoop(peerID string, conn *websocket.Conn) {
	defer conn.Close()
	for {
		var w wireMessage
		if err := conn.ReadJSON(&w); err != nil {
			t.mu.Lock()
			if t.conns[peerID] == conn {
				delete(t.conns, peerID)
			}
			t.mu.Unlock()
			return
		}
		msg, err := decodeMessage(w)
		if err != nil {
			continue
		}
		select {
		case t.inbox <- msg:
		case <-t.closeCh:
			return
		}
	}
}

// Send implements Transport.
func (t *WSTransport) Send(to string, msg paxos.Message) error {
	select {
	case <-t.closeCh:
		return ErrClosed
	default:
	}

	t.mu.RLock()
	conn, ok := t.conns[to]
	t.mu.RUnlock()
	if !ok {
		return ErrUnknownNode
	}
	wire, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	// Fire and forget: a write error just means the peer is unreachable
	// right now, which Paxos already tolerates.
	_ = conn.WriteJSON(wire)
	return nil
}

// Broadcast implements Transport.
func (t *WSTransport) Broadcast(msg paxos.Message) error {
	t.mu.RLock()
	peers := make([]string, 0, len(t.conns))
	for id := range t.conns {
		peers = append(peers, id)
	}
	t.mu.RUnlock()

	for _, id := range peers {
		if err := t.Send(id, msg); err != nil && err != ErrUnknownNode {
			return err
		}
	}
	return nil
}

// Receive implements Transport.
func (t *WSTransport) Receive() (paxos.Message, error) {
	select {
	case msg := <-t.inbox:
		return msg, nil
	case <-t.closeCh:
		return nil, ErrClosed
	}
}

// ReceiveTimeout implements Transport.
func (t *WSTransport) ReceiveTimeout(timeout time.Duration) (paxos.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-t.inbox:
		return msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-t.closeCh:
		return nil, ErrClosed
	}
}

// Close implements Transport.
func (t *WSTransport) Close() error {
	t.once.Do(func() {
		close(t.closeCh)
		t.mu.Lock()
		for _, conn := range t.conns {
			conn.Close()
		}
		t.mu.Unlock()
	})
	return nil
}
