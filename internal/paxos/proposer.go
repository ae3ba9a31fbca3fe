package paxos

// Proposer drives the Prepare/Accept rounds described in spec.md §4.2. It
// is not durable: if a proposer crashes mid-round, the embedder simply
// constructs a fresh one and calls Prepare again. leader is advisory only
// — multiple proposers may believe themselves the leader at once, Paxos's
// safety does not depend on it being accurate.
type Proposer struct {
	networkUID string
	quorumSize int

	leader           bool
	hasProposedValue bool
	proposedValue    []byte

	proposalID        ProposalID
	highestProposalID ProposalID
	highestAcceptedID *ProposalID

	promisesReceived map[string]struct{}
	nacksReceived    map[string]struct{} // nil until the first Prepare() call

	currentPrepareMsg *Prepare
	currentAcceptMsg  *Accept
}

// NewProposer creates a fresh Proposer. highestProposalID starts at
// (0, networkUID), so the first round Prepare() produces is (1, networkUID).
func NewProposer(networkUID string, quorumSize int) *Proposer {
	zero := ProposalID{Number: 0, UID: networkUID}
	return &Proposer{
		networkUID:        networkUID,
		quorumSize:        quorumSize,
		proposalID:        zero,
		highestProposalID: zero,
	}
}

// ProposeValue sets the value this Proposer wants chosen, but only if it
// does not already have one. Once a value has entered the round it must
// never change underneath a later-arriving Promise that carries a
// higher-numbered prior acceptance — see ReceivePromise. If this Proposer
// already believes itself leader, the value can go out immediately as an
// Accept; otherwise it waits for a quorum of Promises.
func (p *Proposer) ProposeValue(value []byte) *Accept {
	if p.hasProposedValue {
		return nil
	}
	p.hasProposedValue = true
	p.proposedValue = value
	if p.leader {
		p.currentAcceptMsg = &Accept{
			FromUID:       p.networkUID,
			ProposalID:    p.proposalID,
			ProposalValue: value,
		}
		return p.currentAcceptMsg
	}
	return nil
}

// Prepare begins a new round: it clears leadership and the current round's
// vote sets, mints a proposal id strictly greater than any seen so far
// under this node's uid, and returns the Prepare to broadcast. Successive
// calls always produce strictly increasing proposal numbers.
func (p *Proposer) Prepare() *Prepare {
	p.leader = false
	p.promisesReceived = make(map[string]struct{})
	p.nacksReceived = make(map[string]struct{})
	p.highestAcceptedID = nil

	p.proposalID = ProposalID{Number: p.highestProposalID.Number + 1, UID: p.networkUID}
	p.highestProposalID = p.proposalID

	p.currentPrepareMsg = &Prepare{FromUID: p.networkUID, ProposalID: p.proposalID}
	return p.currentPrepareMsg
}

// ObserveProposal preempts a doomed round: any time a higher proposal id
// is seen on the network — on a Promise, a Nack, or piggybacked from a
// co-located Acceptor/Learner — raising highestProposalID here means the
// next Prepare() call will not waste a round number that is already known
// to be behind.
func (p *Proposer) ObserveProposal(id ProposalID) {
	if id.GreaterThan(p.highestProposalID) {
		p.highestProposalID = id
	}
}

// ReceiveNack folds a Nack into the current round's tally. Nacks that
// arrive before this Proposer has ever called Prepare are ignored (the
// nacksReceived set is nil) beyond the ObserveProposal piggyback — this is
// the open question from spec.md §9, preserved deliberately. Once a
// quorum of Nacks for the current round is seen, the round cannot
// succeed, so a new Prepare is returned as a liveness optimization.
func (p *Proposer) ReceiveNack(msg *Nack) *Prepare {
	p.ObserveProposal(msg.PromisedProposalID)

	if msg.ProposalID != p.proposalID || p.nacksReceived == nil {
		return nil
	}
	p.nacksReceived[msg.FromUID] = struct{}{}
	if len(p.nacksReceived) == p.quorumSize {
		return p.Prepare()
	}
	return nil
}

// ReceivePromise folds a Promise into the current round. Duplicate
// Promises from the same acceptor are ignored (idempotence). If the
// Promise carries a higher-numbered prior acceptance than any seen so far
// this round, that value is adopted — the safety rule that makes it safe
// for leadership to change hands. Once a quorum of Promises is in hand,
// this Proposer becomes leader and, if it already has a value to propose,
// returns the Accept to broadcast.
func (p *Proposer) ReceivePromise(msg *Promise) *Accept {
	p.ObserveProposal(msg.ProposalID)

	if p.leader || msg.ProposalID != p.proposalID {
		return nil
	}
	if _, seen := p.promisesReceived[msg.FromUID]; seen {
		return nil
	}
	p.promisesReceived[msg.FromUID] = struct{}{}

	if msg.LastAcceptedID != nil && optionalLess(p.highestAcceptedID, msg.LastAcceptedID) {
		p.highestAcceptedID = msg.LastAcceptedID
		if msg.LastAcceptedValue != nil {
			p.proposedValue = msg.LastAcceptedValue
			p.hasProposedValue = true
		}
	}

	if len(p.promisesReceived) != p.quorumSize {
		return nil
	}
	p.leader = true
	if !p.hasProposedValue {
		return nil
	}
	p.currentAcceptMsg = &Accept{
		FromUID:       p.networkUID,
		ProposalID:    p.proposalID,
		ProposalValue: p.proposedValue,
	}
	return p.currentAcceptMsg
}

// Receive dispatches a Promise or Nack to the matching handler. Any other
// message variant is a programming error in the embedder.
func (p *Proposer) Receive(msg Message) (Message, error) {
	switch m := msg.(type) {
	case *Promise:
		if out := p.ReceivePromise(m); out != nil {
			return out, nil
		}
		return nil, nil
	case *Nack:
		if out := p.ReceiveNack(m); out != nil {
			return out, nil
		}
		return nil, nil
	default:
		return nil, ErrInvalidMessage
	}
}

// IsLeader reports this Proposer's (advisory) belief about leadership.
func (p *Proposer) IsLeader() bool { return p.leader }

// CurrentProposalID reports the id of the round currently in flight.
func (p *Proposer) CurrentProposalID() ProposalID { return p.proposalID }
