// Command demo runs a small in-process Paxos cluster so the protocol can
// be watched end to end: several nodes exchange Prepare/Promise/
// Accept/Accepted messages over an in-memory transport until every node's
// Learner resolves the same value.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quorumlabs/paxos/internal/node"
	"github.com/quorumlabs/paxos/internal/storage"
	"github.com/quorumlabs/paxos/internal/transport"
)

var (
	nodeCount     int
	competing     bool
	crashRestart  bool
	proposedValue string
)

var rootCommand = &cobra.Command{
	Use:   "demo",
	Short: "Run a single-decree Paxos cluster in one process",
	Long: `demo spins up an in-process cluster of Paxos nodes wired together
over an in-memory transport and proposes a value, printing what each
node's Learner ends up resolving.`,
	RunE: runDemo,
}

func init() {
	rootCommand.Flags().IntVar(&nodeCount, "nodes", 5, "number of nodes in the cluster")
	rootCommand.Flags().BoolVar(&competing, "competing", false, "propose from two nodes at once to exercise dueling proposers")
	rootCommand.Flags().BoolVar(&crashRestart, "crash-restart", false, "stop and rehydrate one node mid-run from its persisted state")
	rootCommand.Flags().StringVar(&proposedValue, "value", "hello-paxos", "value to propose")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if nodeCount < 1 {
		return fmt.Errorf("--nodes must be at least 1")
	}

	cluster := node.ClusterConfig{NodeIDs: make([]string, nodeCount)}
	for i := range cluster.NodeIDs {
		cluster.NodeIDs[i] = fmt.Sprintf("node-%s", uuid.New().String()[:8])
	}
	quorum := cluster.QuorumSize()
	ids := cluster.NodeIDs

	net := transport.NewNetwork()

	stores := make([]storage.Store, nodeCount)
	nodes := make([]*node.Node, nodeCount)

	for i := range ids {
		stores[i] = storage.NewMemoryStore()

		tr := net.Join(ids[i])
		n, err := node.New(ids[i], quorum, tr, stores[i], log)
		if err != nil {
			return fmt.Errorf("building %s: %w", ids[i], err)
		}
		nodes[i] = n
		n.Start()
	}
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()

	log.WithField("nodes", ids).Info("cluster started")

	nodes[0].Propose([]byte(proposedValue))
	if competing && nodeCount > 1 {
		nodes[1].Propose([]byte(proposedValue + "-rival"))
	}

	if crashRestart && nodeCount > 2 {
		victim := nodes[2]
		victimID := ids[2]
		victimStore := stores[2]
		log.WithField("node", victimID).Warn("simulating crash")
		victim.Stop()

		time.Sleep(50 * time.Millisecond)

		tr := net.Join(victimID)
		restarted, err := node.New(victimID, quorum, tr, victimStore, log)
		if err != nil {
			return fmt.Errorf("restarting %s: %w", victimID, err)
		}
		restarted.Start()
		nodes[2] = restarted
		log.WithField("node", victimID).Info("restarted and rehydrated from store")
	}

	for i, n := range nodes {
		value, ok := n.WaitResolved(3 * time.Second)
		if !ok {
			log.WithField("node", ids[i]).Error("did not resolve a value in time")
			continue
		}
		log.WithField("node", ids[i]).WithField("value", string(value)).Info("resolved")
	}

	return nil
}
