package node

import "github.com/prometheus/client_golang/prometheus"

// metrics holds one node's Prometheus instrumentation. Each Node gets its
// own registry rather than registering into the global default, so that
// running several Nodes in one process (as the demo cluster does) never
// collides on metric registration.
type metrics struct {
	registry       *prometheus.Registry
	received       *prometheus.CounterVec
	nacks          prometheus.Counter
	roundsPrepared prometheus.Counter
	resolutions    prometheus.Counter
}

func newMetrics(nodeID string) *metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"node": nodeID}

	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "paxos",
		Name:        "messages_received_total",
		Help:        "Messages received by this node, by message kind.",
		ConstLabels: labels,
	}, []string{"kind"})

	nacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "paxos",
		Name:        "nacks_observed_total",
		Help:        "Nack responses observed by this node's Proposer.",
		ConstLabels: labels,
	})

	roundsPrepared := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "paxos",
		Name:        "prepare_rounds_total",
		Help:        "Phase 1 rounds this node's Proposer has initiated.",
		ConstLabels: labels,
	})

	resolutions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "paxos",
		Name:        "resolutions_total",
		Help:        "Times this node's Learner resolved a value, by its own quorum or a peer's Resolution (at most once per node).",
		ConstLabels: labels,
	})

	registry.MustRegister(received, nacks, roundsPrepared, resolutions)

	return &metrics{
		registry:       registry,
		received:       received,
		nacks:          nacks,
		roundsPrepared: roundsPrepared,
		resolutions:    resolutions,
	}
}

// Registry exposes the node's Prometheus registry so callers can mount it
// behind an HTTP handler (e.g. promhttp.HandlerFor).
func (n *Node) Registry() *prometheus.Registry {
	return n.metrics.registry
}
