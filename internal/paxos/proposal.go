// Package paxos implements the algorithmic kernel of single-decree Paxos:
// a Proposer, an Acceptor, a Learner, and a composite Instance that plays
// all three roles. Every type here is a pure, synchronous state machine —
// no I/O, no timers, no network. Embedding code (internal/node) supplies
// persistence and transport around it.
package paxos

import "fmt"

// ProposalID totally orders every proposal ever issued, across every
// proposer, by comparing Number first and UID second. A proposer must use
// its own UID exclusively for IDs it originates; doing so makes ProposalID
// a strict total order across the whole system.
type ProposalID struct {
	Number uint64
	UID    string
}

// Less reports whether p sorts strictly before other.
func (p ProposalID) Less(other ProposalID) bool {
	if p.Number != other.Number {
		return p.Number < other.Number
	}
	return p.UID < other.UID
}

// GreaterThan reports whether p sorts strictly after other.
func (p ProposalID) GreaterThan(other ProposalID) bool {
	return other.Less(p)
}

func (p ProposalID) String() string {
	return fmt.Sprintf("(%d,%s)", p.Number, p.UID)
}

// optionalLess reports a < b, where a nil pointer compares as smaller than
// any present ProposalID and two nil pointers compare equal. This is the
// explicit optional ordering spec.md §9 asks for, in place of the source's
// reliance on cross-type tuple/None comparison.
func optionalLess(a, b *ProposalID) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Less(*b)
	}
}

// requiredAtLeast reports id >= optional, treating a nil optional as
// smaller than any id. Used by the Acceptor to decide whether to honor a
// Prepare/Accept against its current promised_id.
func requiredAtLeast(id ProposalID, optional *ProposalID) bool {
	return optional == nil || !id.Less(*optional)
}
