package ecs

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/edvin/ecs-scheduler/internal/model"
)

// Inference is the lifecycle state of a cluster derived from the task counts
// of all its services.
type Inference struct {
	Running      int64
	Pending      int64
	Desired      int64
	SavedDesired int64

	IsRunning     bool
	IsStarting    bool
	IsTerminating bool
	IsTerminated  bool

	Services map[string]model.ServiceState
}

// Infer sums task counts over every service in the cluster and classifies the
// result. The classification is on the cluster-wide sums: one scaled service
// is enough for the whole cluster to count as running.
//
// A checkpoint tag keyed by service ARN marks a cluster this scheduler
// stopped; with desired == 0 and no checkpoints the cluster is terminated.
func Infer(services []types.Service, tags map[string]string) Inference {
	inf := Inference{Services: make(map[string]model.ServiceState, len(services))}

	for _, svc := range services {
		arn := aws.ToString(svc.ServiceArn)
		inf.Running += int64(svc.RunningCount)
		inf.Pending += int64(svc.PendingCount)
		inf.Desired += int64(svc.DesiredCount)

		state := model.ServiceState{
			ServiceArn:          arn,
			ServiceName:         aws.ToString(svc.ServiceName),
			CurrentDesiredCount: svc.DesiredCount,
		}
		if saved, ok := checkpointCount(tags, arn); ok {
			state.SavedDesiredCount = &saved
			inf.SavedDesired += int64(saved)
		}
		inf.Services[arn] = state
	}

	inf.IsRunning = inf.Running >= inf.Desired && inf.Desired > 0
	inf.IsStarting = inf.Running < inf.Desired
	// Unreachable while IsRunning requires desired > 0.
	inf.IsTerminating = inf.IsRunning && inf.Desired == 0
	inf.IsTerminated = !inf.IsRunning && !inf.IsTerminating && inf.Desired == 0 && inf.SavedDesired == 0

	return inf
}

// State is the coarse state reported to the orchestrator.
func (i Inference) State() model.State {
	if i.IsRunning {
		return model.StateRunning
	}
	return model.StateStopped
}
