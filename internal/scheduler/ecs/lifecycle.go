package ecs

import (
	"context"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecs-scheduler/internal/metrics"
	"github.com/edvin/ecs-scheduler/internal/model"
	"github.com/edvin/ecs-scheduler/internal/scheduler"
)

// Stop scales every service of each cluster to zero, saving the current
// desired counts as checkpoint tags first. A failing cluster is logged and
// skipped; Stop never yields an error.
func (s *Scheduler) Stop(ctx context.Context, p scheduler.Params, clusters []model.ClusterRecord) iter.Seq2[model.Transition, error] {
	return func(yield func(model.Transition, error) bool) {
		log := s.logger(p)
		if err := p.Validate(); err != nil {
			logError(log, err).Msg("not stopping ecs clusters")
			return
		}
		for _, c := range clusters {
			clog := clusterLogger(log, c)
			if err := s.stopCluster(ctx, clog, c); err != nil {
				logError(clog, err).Msg("error stopping ecs cluster")
				s.metrics.Transition(actionStop, metrics.ResultFailure)
				continue
			}
			s.metrics.Transition(actionStop, metrics.ResultSuccess)
			if !yield(model.Transition{ClusterID: c.ID, State: model.StateStopped}, nil) {
				return
			}
		}
	}
}

// A failure part way through leaves the services handled so far at zero with
// their checkpoints. A service already at zero keeps the count saved in its
// checkpoint, so stopping such a cluster again does not overwrite it with 0.
func (s *Scheduler) stopCluster(ctx context.Context, log zerolog.Logger, c model.ClusterRecord) error {
	cluster := clusterRef(c)
	services, err := s.listServices(ctx, log, cluster, []types.ServiceField{types.ServiceFieldTags})
	if err != nil {
		return err
	}

	for _, svc := range services {
		arn := aws.ToString(svc.ServiceArn)
		name := aws.ToString(svc.ServiceName)
		resource := clusterARN(svc, c)

		saved := svc.DesiredCount
		if prev, ok := checkpointCount(c.Tags, arn); ok && saved == 0 {
			saved = prev
		}

		_, err := s.client.TagResource(ctx, &awsecs.TagResourceInput{
			ResourceArn: aws.String(resource),
			Tags:        []types.Tag{checkpointTag(log, arn, saved)},
		})
		if err != nil {
			return fmt.Errorf("save desired count of %s: %w", name, err)
		}

		_, err = s.client.UpdateService(ctx, &awsecs.UpdateServiceInput{
			Cluster:            aws.String(cluster),
			Service:            aws.String(name),
			DesiredCount:       aws.Int32(0),
			ForceNewDeployment: true,
		})
		if err != nil {
			return fmt.Errorf("scale %s to zero: %w", name, err)
		}
		s.metrics.ServiceUpdated(actionStop)
		log.Info().Str("service", name).Int32("saved_desired_count", saved).Msg("stopped ecs service")
	}
	return nil
}

// Start restores the checkpointed desired count of every service and removes
// the checkpoint tags. The first failing cluster is yielded with its error
// and ends the sequence; later clusters are not touched.
func (s *Scheduler) Start(ctx context.Context, p scheduler.Params, clusters []model.ClusterRecord) iter.Seq2[model.Transition, error] {
	return func(yield func(model.Transition, error) bool) {
		log := s.logger(p)
		if err := p.Validate(); err != nil {
			logError(log, err).Msg("not starting ecs clusters")
			yield(model.Transition{}, err)
			return
		}
		log.Debug().Int("clusters", len(clusters)).Msg("starting ecs clusters")
		for _, c := range clusters {
			clog := clusterLogger(log, c)
			if err := s.startCluster(ctx, clog, c); err != nil {
				logError(clog, err).Msg("error starting ecs cluster, aborting start")
				s.metrics.Transition(actionStart, metrics.ResultFailure)
				yield(model.Transition{ClusterID: c.ID}, fmt.Errorf("start cluster %s: %w", c.ID, err))
				return
			}
			s.metrics.Transition(actionStart, metrics.ResultSuccess)
			if !yield(model.Transition{ClusterID: c.ID, State: model.StateRunning}, nil) {
				return
			}
		}
	}
}

// Checkpoints are read from the record's tags, as captured at discovery.
func (s *Scheduler) startCluster(ctx context.Context, log zerolog.Logger, c model.ClusterRecord) error {
	cluster := clusterRef(c)
	services, err := s.listServices(ctx, log, cluster, nil)
	if err != nil {
		return err
	}

	for _, svc := range services {
		arn := aws.ToString(svc.ServiceArn)
		name := aws.ToString(svc.ServiceName)

		saved, ok := checkpointCount(c.Tags, arn)
		if !ok {
			if v, present := c.Tags[arn]; present {
				log.Warn().Str("service", name).Str("value", v).Msg("ignoring invalid checkpoint tag")
			}
			continue
		}

		_, err := s.client.UpdateService(ctx, &awsecs.UpdateServiceInput{
			Cluster:            aws.String(cluster),
			Service:            aws.String(name),
			DesiredCount:       aws.Int32(saved),
			ForceNewDeployment: true,
		})
		if err != nil {
			return fmt.Errorf("restore desired count of %s: %w", name, err)
		}
		s.metrics.ServiceUpdated(actionStart)

		_, err = s.client.UntagResource(ctx, &awsecs.UntagResourceInput{
			ResourceArn: aws.String(clusterARN(svc, c)),
			TagKeys:     []string{arn},
		})
		if err != nil {
			return fmt.Errorf("remove checkpoint of %s: %w", name, err)
		}
		log.Info().Str("service", name).Int32("desired_count", saved).Msg("started ecs service")
	}
	return nil
}

// clusterARN is the resource the checkpoint tags live on.
func clusterARN(svc types.Service, c model.ClusterRecord) string {
	if arn := aws.ToString(svc.ClusterArn); arn != "" {
		return arn
	}
	return c.ARN
}
