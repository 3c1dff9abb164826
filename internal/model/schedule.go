package model

// State is the coarse run state a scheduled resource reports to the orchestrator.
type State string

// Scheduling state constants.
const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// InstanceTypeCluster is reported for every ECS cluster record.
const InstanceTypeCluster = "cluster"

// ServiceState is the per-service slice of a cluster record.
type ServiceState struct {
	ServiceArn          string `json:"service_arn"`
	ServiceName         string `json:"service_name"`
	CurrentDesiredCount int32  `json:"current_desired_count"`
	// SavedDesiredCount is nil unless the cluster carries a valid checkpoint tag
	// for this service.
	SavedDesiredCount *int32 `json:"saved_desired_count,omitempty"`
}

// ClusterRecord is a schedulable ECS cluster as seen at discovery time.
// Records are rebuilt on every discovery pass and never mutated afterwards.
type ClusterRecord struct {
	ID           string                  `json:"id"`
	ARN          string                  `json:"arn"`
	Name         string                  `json:"name"`
	ScheduleName string                  `json:"schedule_name"`
	InstanceType string                  `json:"instance_type"`
	Tags         map[string]string       `json:"tags"`
	CurrentState State                   `json:"current_state"`
	Services     map[string]ServiceState `json:"services"`

	IsRunning     bool `json:"is_running"`
	IsStarting    bool `json:"is_starting"`
	IsTerminating bool `json:"is_terminating"`
	IsTerminated  bool `json:"is_terminated"`
}

// Transition reports that a cluster reached a new state.
type Transition struct {
	ClusterID string `json:"cluster_id"`
	State     State  `json:"state"`
}
