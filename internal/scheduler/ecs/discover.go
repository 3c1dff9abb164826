package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecs-scheduler/internal/model"
	"github.com/edvin/ecs-scheduler/internal/scheduler"
)

var clusterDetail = []types.ClusterField{
	types.ClusterFieldAttachments,
	types.ClusterFieldSettings,
	types.ClusterFieldStatistics,
	types.ClusterFieldTags,
}

// Discover returns every cluster in the region that carries a non-empty
// schedule tag, with its services and inferred state.
func (s *Scheduler) Discover(ctx context.Context, p scheduler.Params) ([]model.ClusterRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := s.logger(p)
	log.Info().Str("account", p.Account).Str("region", p.Region).Msg("fetching ecs clusters")

	var (
		records []model.ClusterRecord
		fetched int
	)
	paginator := awsecs.NewListClustersPaginator(s.client, &awsecs.ListClustersInput{
		MaxResults: aws.Int32(listPageSize),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}

		for _, arn := range page.ClusterArns {
			log.Debug().Str("cluster_arn", arn).Msg("describing cluster")
			out, err := s.client.DescribeClusters(ctx, &awsecs.DescribeClustersInput{
				Clusters: []string{arn},
				Include:  clusterDetail,
			})
			if err != nil {
				return nil, fmt.Errorf("describe cluster %s: %w", arn, err)
			}
			if len(out.Clusters) == 0 {
				for _, f := range out.Failures {
					log.Warn().
						Str("cluster_arn", aws.ToString(f.Arn)).
						Str("reason", aws.ToString(f.Reason)).
						Msg("cluster not described, skipping")
				}
				continue
			}
			fetched++
			s.metrics.ClusterFetched()

			rec, err := s.buildRecord(ctx, log, out.Clusters[0], p.TagName)
			if err != nil {
				return nil, err
			}
			if rec.ScheduleName == "" {
				log.Debug().Str("cluster", rec.ID).Msg("skipping ecs cluster without schedule")
				continue
			}

			log.Debug().
				Str("cluster", rec.ID).
				Str("state", string(rec.CurrentState)).
				Str("schedule", rec.ScheduleName).
				Msg("selected ecs cluster")
			s.metrics.ClusterSchedulable()
			records = append(records, rec)
		}
	}

	log.Info().Int("fetched", fetched).Int("schedulable", len(records)).Msg("fetched ecs clusters")
	return records, nil
}

func (s *Scheduler) buildRecord(ctx context.Context, log zerolog.Logger, cluster types.Cluster, tagName string) (model.ClusterRecord, error) {
	arn := aws.ToString(cluster.ClusterArn)
	tags := tagMap(cluster.Tags)

	services, err := s.listServices(ctx, log, arn, nil)
	if err != nil {
		return model.ClusterRecord{}, err
	}
	inf := Infer(services, tags)

	return model.ClusterRecord{
		ID:            aws.ToString(cluster.ClusterName),
		ARN:           arn,
		Name:          tags["Name"],
		ScheduleName:  tags[tagName],
		InstanceType:  model.InstanceTypeCluster,
		Tags:          tags,
		CurrentState:  inf.State(),
		Services:      inf.Services,
		IsRunning:     inf.IsRunning,
		IsStarting:    inf.IsStarting,
		IsTerminating: inf.IsTerminating,
		IsTerminated:  inf.IsTerminated,
	}, nil
}
