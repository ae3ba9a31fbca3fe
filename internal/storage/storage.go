// Package storage defines the durability boundary for an Acceptor's three
// persisted fields. spec.md §1 treats persistence as an external
// collaborator: the paxos package never touches disk, and this package is
// where the embedder (internal/node) fulfills that contract.
package storage

import (
	"errors"

	"github.com/quorumlabs/paxos/internal/paxos"
)

// ErrNotFound is returned by Load when no prior state has ever been saved.
var ErrNotFound = errors.New("storage: no persisted acceptor state")

// Store persists exactly the three fields spec.md §3/§6 calls out:
// promised_id, accepted_id, and accepted_value. Implementations must treat
// a single Save call as an atomic single-triple write — a partial write
// that advances promised_id without accepted_id/value (or vice versa) is a
// safety violation per spec.md §5.
type Store interface {
	// Save durably writes the full triple in one atomic operation.
	Save(promisedID, acceptedID *paxos.ProposalID, acceptedValue []byte) error

	// Load returns the most recently saved triple, or ErrNotFound if
	// nothing has ever been saved (a brand-new acceptor).
	Load() (promisedID, acceptedID *paxos.ProposalID, acceptedValue []byte, err error)
}
