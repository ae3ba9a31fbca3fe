package node

// ClusterConfig describes a fixed set of nodes that together form one
// Paxos cluster: every member's network identity, and the quorum size
// derived from how many of them must agree. It carries no transport or
// storage choices — those are supplied separately per node — only the
// membership shape a caller (cmd/demo, or a future server command) builds
// once and uses to construct each Node identically.
type ClusterConfig struct {
	NodeIDs []string
}

// QuorumSize returns the majority threshold for this cluster: more than
// half its members.
func (c ClusterConfig) QuorumSize() int {
	return len(c.NodeIDs)/2 + 1
}
