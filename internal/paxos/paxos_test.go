package paxos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProposalIDOrdering(t *testing.T) {
	require.True(t, (ProposalID{1, "A"}).Less(ProposalID{1, "B"}))
	require.True(t, (ProposalID{1, "B"}).Less(ProposalID{2, "A"}))
	require.False(t, (ProposalID{2, "A"}).Less(ProposalID{1, "Z"}))
	require.True(t, (ProposalID{3, "A"}).GreaterThan(ProposalID{1, "Z"}))
}

func TestSoloRoundTwoOfThreeAcceptors(t *testing.T) {
	proposer := NewProposer("A", 2)
	x := NewAcceptor("X", nil, nil, nil)
	y := NewAcceptor("Y", nil, nil, nil)
	learner := NewLearner("L", 2)

	prepare := proposer.Prepare()
	require.Equal(t, ProposalID{1, "A"}, prepare.ProposalID)

	promiseX := x.ReceivePrepare(prepare).(*Promise)
	promiseY := y.ReceivePrepare(prepare).(*Promise)
	require.Nil(t, promiseX.LastAcceptedID)
	require.Nil(t, promiseY.LastAcceptedID)

	require.Nil(t, proposer.ReceivePromise(promiseX))
	accept := proposer.ReceivePromise(promiseY)
	require.Nil(t, accept) // no value proposed yet
	require.True(t, proposer.IsLeader())

	accept = proposer.ProposeValue([]byte("v1"))
	require.NotNil(t, accept)
	require.Equal(t, []byte("v1"), accept.ProposalValue)

	acceptedX := x.ReceiveAccept(accept).(*Accepted)
	acceptedY := y.ReceiveAccept(accept).(*Accepted)

	require.Nil(t, learner.ReceiveAccepted(acceptedX))
	res := learner.ReceiveAccepted(acceptedY)
	require.NotNil(t, res)
	require.Equal(t, []byte("v1"), res.Value)

	value, pid, acceptors, ok := learner.Resolved()
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)
	require.Equal(t, ProposalID{1, "A"}, pid)
	require.Len(t, acceptors, 2)
}

func TestPromiseCarriesPriorValue(t *testing.T) {
	priorID := ProposalID{1, "A"}
	x := NewAcceptor("X", &priorID, &priorID, []byte("v1"))
	y := NewAcceptor("Y", nil, nil, nil)

	proposer := NewProposer("B", 2)
	proposer.ProposeValue([]byte("v2-wanted"))
	prepare := proposer.Prepare()
	require.Equal(t, ProposalID{2, "B"}, prepare.ProposalID)

	promiseX := x.ReceivePrepare(prepare).(*Promise)
	require.Equal(t, &priorID, promiseX.LastAcceptedID)
	require.Equal(t, []byte("v1"), promiseX.LastAcceptedValue)

	promiseY := y.ReceivePrepare(prepare).(*Promise)

	require.Nil(t, proposer.ReceivePromise(promiseX))
	accept := proposer.ReceivePromise(promiseY)
	require.NotNil(t, accept)
	require.Equal(t, []byte("v1"), accept.ProposalValue, "must carry forward the highest-numbered prior acceptance")
}

func TestPrepareRejectedThenRetriesHigher(t *testing.T) {
	highPromised := ProposalID{5, "Z"}
	acceptor := NewAcceptor("W", &highPromised, nil, nil)

	proposer := NewProposer("A", 2)
	proposer.Prepare() // (1, A)
	proposer.Prepare() // (2, A)
	proposer.Prepare() // (3, A)

	msg, err := acceptor.Receive(proposer.currentPrepareMsg)
	require.NoError(t, err)
	nack, ok := msg.(*Nack)
	require.True(t, ok)
	require.Equal(t, highPromised, nack.PromisedProposalID)

	second := NewProposer("A", 2)
	second.Prepare()
	second.Prepare()
	second.Prepare()
	require.Equal(t, ProposalID{3, "A"}, second.CurrentProposalID())

	n1 := second.ReceiveNack(nack)
	require.Nil(t, n1)
	fakeFrom2 := &Nack{FromUID: "Y", ProposerUID: "A", ProposalID: second.CurrentProposalID(), PromisedProposalID: highPromised}
	next := second.ReceiveNack(fakeFrom2)
	require.NotNil(t, next)
	require.True(t, next.ProposalID.Number >= 6)
}

func TestDuplicatePromiseIsIdempotent(t *testing.T) {
	proposer := NewProposer("A", 2)
	proposer.Prepare()
	promise := &Promise{FromUID: "X", ProposerUID: "A", ProposalID: proposer.CurrentProposalID()}

	require.Nil(t, proposer.ReceivePromise(promise))
	require.Len(t, proposer.promisesReceived, 1)

	accept := proposer.ReceivePromise(promise)
	require.Nil(t, accept, "duplicate Promise from the same acceptor must not trigger a second Accept")
	require.Len(t, proposer.promisesReceived, 1)
}

func TestVoteMigration(t *testing.T) {
	learner := NewLearner("L", 3)

	pidA := ProposalID{1, "A"}
	pidB := ProposalID{2, "B"}

	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "X", ProposalID: pidA, ProposalValue: []byte("v1")}))
	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "Y", ProposalID: pidA, ProposalValue: []byte("v1")}))

	require.Len(t, learner.proposals[pidA].acceptors, 2)

	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "X", ProposalID: pidB, ProposalValue: []byte("v2")}))
	require.Len(t, learner.proposals[pidA].acceptors, 1, "X's vote for pidA must be revoked")
	require.Len(t, learner.proposals[pidB].acceptors, 1)

	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "Z", ProposalID: pidB, ProposalValue: []byte("v2")}))
	res := learner.ReceiveAccepted(&Accepted{FromUID: "Y", ProposalID: pidB, ProposalValue: []byte("v2")})
	require.NotNil(t, res)
	require.Equal(t, []byte("v2"), res.Value)
}

func TestPostResolutionLearning(t *testing.T) {
	learner := NewLearner("L", 2)
	pid := ProposalID{1, "A"}

	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "X", ProposalID: pid, ProposalValue: []byte("v")}))
	res := learner.ReceiveAccepted(&Accepted{FromUID: "Y", ProposalID: pid, ProposalValue: []byte("v")})
	require.NotNil(t, res)

	late := learner.ReceiveAccepted(&Accepted{FromUID: "Z", ProposalID: pid, ProposalValue: []byte("v")})
	require.NotNil(t, late)
	require.Equal(t, []byte("v"), late.Value)

	_, _, acceptors, _ := learner.Resolved()
	require.Contains(t, acceptors, "Z")
}

func TestLearnerFastForward(t *testing.T) {
	learner := NewLearner("L", 3)

	learner.FastForward([]byte("v"))

	value, _, acceptors, ok := learner.Resolved()
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)
	require.Empty(t, acceptors)

	// A repeat fast-forward to the same value is a no-op.
	require.NotPanics(t, func() { learner.FastForward([]byte("v")) })

	require.Panics(t, func() { learner.FastForward([]byte("other")) })
}

func TestLearnerPanicsOnValueMismatch(t *testing.T) {
	learner := NewLearner("L", 3)
	pid := ProposalID{1, "A"}
	require.Nil(t, learner.ReceiveAccepted(&Accepted{FromUID: "X", ProposalID: pid, ProposalValue: []byte("v1")}))

	require.Panics(t, func() {
		learner.ReceiveAccepted(&Accepted{FromUID: "Y", ProposalID: pid, ProposalValue: []byte("v2")})
	})
}

func TestAcceptorInvalidMessage(t *testing.T) {
	a := NewAcceptor("X", nil, nil, nil)
	_, err := a.Receive(&Accepted{})
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestInstanceForwardsAndObserves(t *testing.T) {
	inst := NewInstance("A", 2, nil, nil, nil)

	prepare := &Prepare{FromUID: "Z", ProposalID: ProposalID{5, "Z"}}
	out, err := inst.Receive(prepare)
	require.NoError(t, err)
	_, ok := out.(*Promise)
	require.True(t, ok)
	require.Equal(t, ProposalID{5, "Z"}, inst.Proposer.highestProposalID, "Prepare must piggyback onto the co-located Proposer")
}
