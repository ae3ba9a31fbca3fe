package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/paxos/internal/paxos"
)

func TestWireMessageEncodeDecodeRoundTrip(t *testing.T) {
	priorID := paxos.ProposalID{Number: 2, UID: "X"}
	cases := []paxos.Message{
		&paxos.Prepare{FromUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}},
		&paxos.Promise{FromUID: "X", ProposerUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}, LastAcceptedID: &priorID, LastAcceptedValue: []byte("v")},
		&paxos.Accept{FromUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}, ProposalValue: []byte("v")},
		&paxos.Accepted{FromUID: "X", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}, ProposalValue: []byte("v")},
		&paxos.Nack{FromUID: "X", ProposerUID: "A", ProposalID: paxos.ProposalID{Number: 1, UID: "A"}, PromisedProposalID: priorID},
		&paxos.Resolution{FromUID: "X", Value: []byte("v")},
	}

	for _, msg := range cases {
		wire, err := encodeMessage(msg)
		require.NoError(t, err)

		decoded, err := decodeMessage(wire)
		require.NoError(t, err)
		require.Equal(t, msg, decoded)
	}
}

func TestWSTransportSendReceiveOverRealSocket(t *testing.T) {
	serverTransport := NewWSTransport("server")
	server := httptest.NewServer(serverTransport.Handler())
	defer server.Close()
	defer serverTransport.Close()

	clientTransport := NewWSTransport("client")
	defer clientTransport.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	require.NoError(t, clientTransport.Dial(Peer{NodeID: "server", URL: wsURL}))

	time.Sleep(20 * time.Millisecond) // let the server finish the upgrade handshake

	msg := &paxos.Prepare{FromUID: "client", ProposalID: paxos.ProposalID{Number: 7, UID: "client"}}
	require.NoError(t, clientTransport.Send("server", msg))

	got, err := serverTransport.ReceiveTimeout(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}
