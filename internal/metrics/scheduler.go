package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Scheduler holds the counters emitted by scheduler adapters.
// All methods are safe on a nil receiver.
type Scheduler struct {
	clustersFetched     prometheus.Counter
	clustersSchedulable prometheus.Counter
	transitions         *prometheus.CounterVec
	serviceUpdates      *prometheus.CounterVec
}

// NewScheduler creates the scheduler counters and registers them with reg.
func NewScheduler(reg prometheus.Registerer) *Scheduler {
	m := &Scheduler{
		clustersFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecs_scheduler_clusters_fetched_total",
			Help: "Number of ECS clusters described during discovery",
		}),
		clustersSchedulable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecs_scheduler_clusters_schedulable_total",
			Help: "Number of discovered ECS clusters carrying a schedule tag",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_scheduler_transitions_total",
			Help: "Cluster start and stop attempts by result",
		}, []string{"action", "result"}),
		serviceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecs_scheduler_service_updates_total",
			Help: "ECS service desired count updates issued",
		}, []string{"action"}),
	}
	reg.MustRegister(m.clustersFetched, m.clustersSchedulable, m.transitions, m.serviceUpdates)
	return m
}

func (m *Scheduler) ClusterFetched() {
	if m == nil {
		return
	}
	m.clustersFetched.Inc()
}

func (m *Scheduler) ClusterSchedulable() {
	if m == nil {
		return
	}
	m.clustersSchedulable.Inc()
}

// Transition counts one start or stop attempt for a cluster.
func (m *Scheduler) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Scheduler) ServiceUpdated(action string) {
	if m == nil {
		return
	}
	m.serviceUpdates.WithLabelValues(action).Inc()
}
