package storage

import (
	"sync"

	"github.com/quorumlabs/paxos/internal/paxos"
)

// MemoryStore is a non-durable Store for tests and the demo: state lives
// only in a Go struct and is lost on process restart. Production use needs
// a Store backed by real stable media; this package ships only the
// in-memory one because the core's storage contract (§3/§6) is the same
// either way, and exercising durability bugs (like the crash/restart demo
// scenario) does not require a real disk — only that the same Store
// instance survives or not.
type MemoryStore struct {
	mu sync.RWMutex

	hasState      bool
	promisedID    *paxos.ProposalID
	acceptedID    *paxos.ProposalID
	acceptedValue []byte
}

// NewMemoryStore returns an empty Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(promisedID, acceptedID *paxos.ProposalID, acceptedValue []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.promisedID = copyProposalID(promisedID)
	m.acceptedID = copyProposalID(acceptedID)
	m.acceptedValue = append([]byte(nil), acceptedValue...)
	m.hasState = true
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load() (*paxos.ProposalID, *paxos.ProposalID, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasState {
		return nil, nil, nil, ErrNotFound
	}
	return copyProposalID(m.promisedID), copyProposalID(m.acceptedID), append([]byte(nil), m.acceptedValue...), nil
}

func copyProposalID(id *paxos.ProposalID) *paxos.ProposalID {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
