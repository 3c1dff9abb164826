package ecs

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"
)

const (
	listPageSize = 100
	// describeBatchSize is the most services one DescribeServices call accepts.
	describeBatchSize = 10
)

// listServices returns the live detail of every service in a cluster.
func (s *Scheduler) listServices(ctx context.Context, log zerolog.Logger, cluster string, include []types.ServiceField) ([]types.Service, error) {
	var arns []string
	paginator := awsecs.NewListServicesPaginator(s.client, &awsecs.ListServicesInput{
		Cluster:    aws.String(cluster),
		MaxResults: aws.Int32(listPageSize),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list services of %s: %w", cluster, err)
		}
		arns = append(arns, page.ServiceArns...)
	}

	var services []types.Service
	for batch := range slices.Chunk(arns, describeBatchSize) {
		out, err := s.client.DescribeServices(ctx, &awsecs.DescribeServicesInput{
			Cluster:  aws.String(cluster),
			Services: batch,
			Include:  include,
		})
		if err != nil {
			return nil, fmt.Errorf("describe services of %s: %w", cluster, err)
		}
		for _, f := range out.Failures {
			log.Debug().
				Str("service_arn", aws.ToString(f.Arn)).
				Str("reason", aws.ToString(f.Reason)).
				Msg("service not described")
		}
		services = append(services, out.Services...)
	}
	return services, nil
}
