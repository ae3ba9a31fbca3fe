package paxos

// Instance aggregates one Proposer, one Acceptor, and one Learner so a
// single node can play all three roles, per spec.md §4.5. It is
// composition, not the source's multiple inheritance: each embedded role
// keeps its own state, and Instance's Receive is the single dispatcher
// that routes by message variant and inserts the ObserveProposal
// piggyback ahead of the Acceptor.
type Instance struct {
	Proposer *Proposer
	Acceptor *Acceptor
	Learner  *Learner
}

// NewInstance builds a combined node. promisedID/acceptedID/acceptedValue
// are the Acceptor's rehydration triple — pass all nil/empty for a fresh
// node.
func NewInstance(networkUID string, quorumSize int, promisedID, acceptedID *ProposalID, acceptedValue []byte) *Instance {
	return &Instance{
		Proposer: NewProposer(networkUID, quorumSize),
		Acceptor: NewAcceptor(networkUID, promisedID, acceptedID, acceptedValue),
		Learner:  NewLearner(networkUID, quorumSize),
	}
}

// ReceivePrepare piggybacks ObserveProposal onto the Acceptor's handling
// of a Prepare, so a node whose local Acceptor sees a higher proposal can
// preemptively raise its own Proposer's counter.
func (inst *Instance) ReceivePrepare(msg *Prepare) Message {
	inst.Proposer.ObserveProposal(msg.ProposalID)
	return inst.Acceptor.ReceivePrepare(msg)
}

// ReceiveAccept piggybacks ObserveProposal onto the Acceptor's handling of
// an Accept, for the same reason as ReceivePrepare.
func (inst *Instance) ReceiveAccept(msg *Accept) Message {
	inst.Proposer.ObserveProposal(msg.ProposalID)
	return inst.Acceptor.ReceiveAccept(msg)
}

// Receive routes a message to whichever embedded role owns it: Prepare and
// Accept go to the Acceptor (with the ObserveProposal piggyback), Promise
// and Nack go to the Proposer, and Accepted goes to the Learner.
func (inst *Instance) Receive(msg Message) (Message, error) {
	switch m := msg.(type) {
	case *Prepare:
		return inst.ReceivePrepare(m), nil
	case *Accept:
		return inst.ReceiveAccept(m), nil
	case *Promise:
		if out := inst.Proposer.ReceivePromise(m); out != nil {
			return out, nil
		}
		return nil, nil
	case *Nack:
		if out := inst.Proposer.ReceiveNack(m); out != nil {
			return out, nil
		}
		return nil, nil
	case *Accepted:
		if out := inst.Learner.ReceiveAccepted(m); out != nil {
			return out, nil
		}
		return nil, nil
	default:
		return nil, ErrInvalidMessage
	}
}
