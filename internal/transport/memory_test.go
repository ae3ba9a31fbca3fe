package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/paxos/internal/paxos"
)

func TestMemoryTransportSendReceive(t *testing.T) {
	net := NewNetwork()
	a := net.Join("A")
	b := net.Join("B")
	defer a.Close()
	defer b.Close()

	prepare := &paxos.Prepare{FromUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}}
	require.NoError(t, a.Send("B", prepare))

	got, err := b.ReceiveTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, prepare, got)
}

func TestMemoryTransportUnknownNode(t *testing.T) {
	net := NewNetwork()
	a := net.Join("A")
	defer a.Close()

	err := a.Send("ghost", &paxos.Prepare{})
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestMemoryTransportBroadcast(t *testing.T) {
	net := NewNetwork()
	a := net.Join("A")
	b := net.Join("B")
	c := net.Join("C")
	defer a.Close()
	defer b.Close()
	defer c.Close()

	msg := &paxos.Accept{FromUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}}
	require.NoError(t, a.Broadcast(msg))

	gotB, err := b.ReceiveTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, msg, gotB)

	gotC, err := c.ReceiveTimeout(time.Second)
	require.NoError(t, err)
	require.Equal(t, msg, gotC)
}

func TestMemoryTransportReceiveTimeout(t *testing.T) {
	net := NewNetwork()
	a := net.Join("A")
	defer a.Close()

	_, err := a.ReceiveTimeout(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestMemoryTransportCloseUnblocksReceive(t *testing.T) {
	net := NewNetwork()
	a := net.Join("A")

	done := make(chan error, 1)
	go func() {
		_, err := a.Receive()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}
