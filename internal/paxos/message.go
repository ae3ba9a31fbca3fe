package paxos

import "errors"

// ErrInvalidMessage is returned when a message variant a role's Receive
// method does not understand reaches that role. This is a programming
// error in the embedding or transport layer — per spec.md §4.1 it must
// never be silently dropped, since a silent drop hides composition bugs.
var ErrInvalidMessage = errors.New("paxos: message type not supported by this role")

// Message is the closed set of wire values that flow between Paxos roles.
// Dispatch is by Go type switch (see Proposer.Receive, Acceptor.Receive,
// Learner.Receive, Instance.Receive) rather than by reflection on a
// runtime class name, per the reimplementation note in spec.md §9.
type Message interface {
	// Sender returns the uid of the node that emitted this message.
	Sender() string
}

// Prepare is broadcast by a Proposer to open Phase 1 of a round.
type Prepare struct {
	FromUID    string
	ProposalID ProposalID
}

func (m *Prepare) Sender() string { return m.FromUID }

// Promise is an Acceptor's Phase 1 reply pledging not to accept anything
// numbered below ProposalID. LastAcceptedID/LastAcceptedValue are jointly
// optional: either both nil (nothing ever accepted) or both set.
type Promise struct {
	FromUID           string
	ProposerUID       string
	ProposalID        ProposalID
	LastAcceptedID    *ProposalID
	LastAcceptedValue []byte
}

func (m *Promise) Sender() string { return m.FromUID }

// Accept is broadcast by a Proposer to open Phase 2, asking acceptors to
// accept ProposalValue at ProposalID.
type Accept struct {
	FromUID       string
	ProposalID    ProposalID
	ProposalValue []byte
}

func (m *Accept) Sender() string { return m.FromUID }

// Accepted is an Acceptor's Phase 2 reply, and the message Learners
// observe to detect quorum.
type Accepted struct {
	FromUID       string
	ProposalID    ProposalID
	ProposalValue []byte
}

func (m *Accepted) Sender() string { return m.FromUID }

// Nack tells a Proposer that ProposalID lost to PromisedProposalID, which
// some Acceptor has already promised. Sent in response to either a
// Prepare or an Accept.
type Nack struct {
	FromUID            string
	ProposerUID        string
	ProposalID         ProposalID
	PromisedProposalID ProposalID
}

func (m *Nack) Sender() string { return m.FromUID }

// Resolution announces that Value has been chosen. A Learner emits it
// once, and again for every later Accepted it observes, so that late
// learners still get informed.
type Resolution struct {
	FromUID string
	Value   []byte
}

func (m *Resolution) Sender() string { return m.FromUID }
