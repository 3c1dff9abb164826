// Package ecs schedules ECS clusters. ECS has no way to pause a cluster, so a
// stop scales every service to zero after saving its desired count as a
// cluster tag keyed by the service ARN, and a start restores those counts and
// removes the tags.
//
// The tags are the only record of a stopped cluster. Two invocations acting on
// the same cluster race on them and the last write wins.
package ecs

import (
	"errors"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/edvin/ecs-scheduler/internal/awsclient"
	"github.com/edvin/ecs-scheduler/internal/metrics"
	"github.com/edvin/ecs-scheduler/internal/model"
	"github.com/edvin/ecs-scheduler/internal/scheduler"
)

// Name is the resource type this adapter registers under.
const Name = "ecs"

const (
	actionStart = "start"
	actionStop  = "stop"
)

// Scheduler is the ECS cluster adapter.
type Scheduler struct {
	client  awsclient.ECSAPI
	metrics *metrics.Scheduler
}

var _ scheduler.Adapter = (*Scheduler)(nil)

// New creates an ECS adapter. m may be nil.
func New(client awsclient.ECSAPI, m *metrics.Scheduler) *Scheduler {
	return &Scheduler{client: client, metrics: m}
}

func (s *Scheduler) Name() string { return Name }

func (s *Scheduler) logger(p scheduler.Params) zerolog.Logger {
	ctx := p.Logger.With().Str("component", "ecs-scheduler")
	if p.InvocationID != "" {
		ctx = ctx.Str("invocation_id", p.InvocationID)
	}
	return ctx.Logger()
}

func clusterLogger(log zerolog.Logger, c model.ClusterRecord) zerolog.Logger {
	return log.With().Str("cluster", c.ID).Str("cluster_arn", c.ARN).Logger()
}

// logError starts an error entry, adding the ECS error code when there is one.
func logError(log zerolog.Logger, err error) *zerolog.Event {
	ev := log.Error().Err(err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ev = ev.Str("error_code", apiErr.ErrorCode())
	}
	return ev
}

// clusterRef is the identifier passed as the Cluster parameter of ECS calls.
func clusterRef(c model.ClusterRecord) string {
	if c.ARN != "" {
		return c.ARN
	}
	return c.ID
}
