package paxos

// Acceptor holds the durable memory of Paxos: promised_id, accepted_id,
// and accepted_value. It performs no I/O itself — per spec.md §1 the core
// only specifies *when* persistence must happen relative to the message it
// returns, not *how*. The embedder (internal/node) is expected to read
// State() after every ReceivePrepare/ReceiveAccept call and persist it
// before the returned message becomes observable to any other
// participant; see the durability contract in spec.md §4.3/§5.
type Acceptor struct {
	networkUID string

	promisedID    *ProposalID
	acceptedID    *ProposalID
	acceptedValue []byte
}

// NewAcceptor constructs an Acceptor, optionally rehydrated from the three
// durable fields. Pass all three nil/empty for a fresh acceptor, or the
// previously persisted triple when recovering from a crash.
func NewAcceptor(networkUID string, promisedID, acceptedID *ProposalID, acceptedValue []byte) *Acceptor {
	return &Acceptor{
		networkUID:    networkUID,
		promisedID:    promisedID,
		acceptedID:    acceptedID,
		acceptedValue: acceptedValue,
	}
}

// State returns the three fields that must be durable. Call it after every
// Receive* method to persist the new state before forwarding the reply.
func (a *Acceptor) State() (promisedID, acceptedID *ProposalID, acceptedValue []byte) {
	return a.promisedID, a.acceptedID, a.acceptedValue
}

// Restore overwrites the in-memory state directly. The embedder uses this
// both to rehydrate from stable storage and, if a persistence write fails
// after a Receive* call already mutated state in memory, to roll back to
// the last durable triple so no unpersisted promise is ever observed.
func (a *Acceptor) Restore(promisedID, acceptedID *ProposalID, acceptedValue []byte) {
	a.promisedID = promisedID
	a.acceptedID = acceptedID
	a.acceptedValue = acceptedValue
}

// ReceivePrepare answers Phase 1. Equality with promised_id is accepted,
// not just strict greater-than, so a retried Prepare from the proposer
// currently holding the promise still yields a Promise — this matters for
// liveness under message loss. Once promised_id = P, this Acceptor must
// never again emit a Promise or Accepted for any id < P.
func (a *Acceptor) ReceivePrepare(msg *Prepare) Message {
	if requiredAtLeast(msg.ProposalID, a.promisedID) {
		id := msg.ProposalID
		a.promisedID = &id
		return &Promise{
			FromUID:           a.networkUID,
			ProposerUID:       msg.FromUID,
			ProposalID:        a.promisedIDOrZero(),
			LastAcceptedID:    a.acceptedID,
			LastAcceptedValue: a.acceptedValue,
		}
	}
	return &Nack{
		FromUID:            a.networkUID,
		ProposerUID:        msg.FromUID,
		ProposalID:         msg.ProposalID,
		PromisedProposalID: a.promisedIDOrZero(),
	}
}

// ReceiveAccept answers Phase 2. Accepting at equality (not only strict
// greater-than) is required so the round's own leader can commit after
// its own Prepare landed at the same id.
func (a *Acceptor) ReceiveAccept(msg *Accept) Message {
	if requiredAtLeast(msg.ProposalID, a.promisedID) {
		id := msg.ProposalID
		a.promisedID = &id
		a.acceptedID = &id
		a.acceptedValue = msg.ProposalValue
		return &Accepted{
			FromUID:       a.networkUID,
			ProposalID:    msg.ProposalID,
			ProposalValue: msg.ProposalValue,
		}
	}
	return &Nack{
		FromUID:            a.networkUID,
		ProposerUID:        msg.FromUID,
		ProposalID:         msg.ProposalID,
		PromisedProposalID: a.promisedIDOrZero(),
	}
}

// Receive dispatches a Prepare or Accept to the matching handler.
func (a *Acceptor) Receive(msg Message) (Message, error) {
	switch m := msg.(type) {
	case *Prepare:
		return a.ReceivePrepare(m), nil
	case *Accept:
		return a.ReceiveAccept(m), nil
	default:
		return nil, ErrInvalidMessage
	}
}

func (a *Acceptor) promisedIDOrZero() ProposalID {
	if a.promisedID != nil {
		return *a.promisedID
	}
	return ProposalID{}
}
