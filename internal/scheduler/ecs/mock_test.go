package ecs

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/ecs-scheduler/internal/scheduler"
)

// ---------- Mock ECS ----------

// mockECS implements awsclient.ECSAPI for call-level assertions.
type mockECS struct {
	mock.Mock
}

func (m *mockECS) ListClusters(ctx context.Context, in *awsecs.ListClustersInput, _ ...func(*awsecs.Options)) (*awsecs.ListClustersOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.ListClustersOutput), args.Error(1)
}

func (m *mockECS) DescribeClusters(ctx context.Context, in *awsecs.DescribeClustersInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeClustersOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.DescribeClustersOutput), args.Error(1)
}

func (m *mockECS) ListServices(ctx context.Context, in *awsecs.ListServicesInput, _ ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.ListServicesOutput), args.Error(1)
}

func (m *mockECS) DescribeServices(ctx context.Context, in *awsecs.DescribeServicesInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.DescribeServicesOutput), args.Error(1)
}

func (m *mockECS) UpdateService(ctx context.Context, in *awsecs.UpdateServiceInput, _ ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.UpdateServiceOutput), args.Error(1)
}

func (m *mockECS) TagResource(ctx context.Context, in *awsecs.TagResourceInput, _ ...func(*awsecs.Options)) (*awsecs.TagResourceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.TagResourceOutput), args.Error(1)
}

func (m *mockECS) UntagResource(ctx context.Context, in *awsecs.UntagResourceInput, _ ...func(*awsecs.Options)) (*awsecs.UntagResourceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*awsecs.UntagResourceOutput), args.Error(1)
}

// ---------- Fake ECS ----------

type fakeCluster struct {
	name     string
	arn      string
	tags     map[string]string
	services []*types.Service
}

// fakeECS is an in-memory ECS account. Services settle instantly: an update
// sets both the desired and running counts.
type fakeECS struct {
	clusters []*fakeCluster
	// failUpdate makes UpdateService fail for the named service.
	failUpdate map[string]error
	calls      []string
}

func newFakeECS() *fakeECS {
	return &fakeECS{failUpdate: make(map[string]error)}
}

// addCluster adds a cluster with one service per desired count, named
// svc-0, svc-1, ... and running at that count.
func (f *fakeECS) addCluster(name string, tags map[string]string, desired ...int32) *fakeCluster {
	arn := "arn:aws:ecs:eu-west-1:123456789012:cluster/" + name
	c := &fakeCluster{name: name, arn: arn, tags: map[string]string{}}
	for k, v := range tags {
		c.tags[k] = v
	}
	for i, d := range desired {
		svcName := fmt.Sprintf("%s-svc-%d", name, i)
		c.services = append(c.services, &types.Service{
			ServiceArn:   aws.String(fmt.Sprintf("arn:aws:ecs:eu-west-1:123456789012:service/%s/%s", name, svcName)),
			ServiceName:  aws.String(svcName),
			ClusterArn:   aws.String(arn),
			DesiredCount: d,
			RunningCount: d,
		})
	}
	f.clusters = append(f.clusters, c)
	return c
}

func (f *fakeECS) cluster(ref string) (*fakeCluster, error) {
	for _, c := range f.clusters {
		if c.arn == ref || c.name == ref {
			return c, nil
		}
	}
	return nil, fmt.Errorf("ClusterNotFoundException: %s", ref)
}

func (f *fakeECS) callsOf(op string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, op+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeECS) ListClusters(ctx context.Context, in *awsecs.ListClustersInput, _ ...func(*awsecs.Options)) (*awsecs.ListClustersOutput, error) {
	f.calls = append(f.calls, "ListClusters ")
	out := &awsecs.ListClustersOutput{}
	for _, c := range f.clusters {
		out.ClusterArns = append(out.ClusterArns, c.arn)
	}
	return out, nil
}

func (f *fakeECS) DescribeClusters(ctx context.Context, in *awsecs.DescribeClustersInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeClustersOutput, error) {
	f.calls = append(f.calls, "DescribeClusters "+strings.Join(in.Clusters, ","))
	out := &awsecs.DescribeClustersOutput{}
	for _, ref := range in.Clusters {
		c, err := f.cluster(ref)
		if err != nil {
			out.Failures = append(out.Failures, types.Failure{Arn: aws.String(ref), Reason: aws.String("MISSING")})
			continue
		}
		cl := types.Cluster{ClusterName: aws.String(c.name), ClusterArn: aws.String(c.arn)}
		for k, v := range c.tags {
			cl.Tags = append(cl.Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
		}
		out.Clusters = append(out.Clusters, cl)
	}
	return out, nil
}

func (f *fakeECS) ListServices(ctx context.Context, in *awsecs.ListServicesInput, _ ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
	f.calls = append(f.calls, "ListServices "+aws.ToString(in.Cluster))
	c, err := f.cluster(aws.ToString(in.Cluster))
	if err != nil {
		return nil, err
	}
	out := &awsecs.ListServicesOutput{}
	for _, s := range c.services {
		out.ServiceArns = append(out.ServiceArns, aws.ToString(s.ServiceArn))
	}
	return out, nil
}

func (f *fakeECS) DescribeServices(ctx context.Context, in *awsecs.DescribeServicesInput, _ ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
	f.calls = append(f.calls, "DescribeServices "+aws.ToString(in.Cluster))
	c, err := f.cluster(aws.ToString(in.Cluster))
	if err != nil {
		return nil, err
	}
	out := &awsecs.DescribeServicesOutput{}
	for _, s := range c.services {
		if slices.Contains(in.Services, aws.ToString(s.ServiceArn)) {
			out.Services = append(out.Services, *s)
		}
	}
	return out, nil
}

func (f *fakeECS) UpdateService(ctx context.Context, in *awsecs.UpdateServiceInput, _ ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
	name := aws.ToString(in.Service)
	f.calls = append(f.calls, fmt.Sprintf("UpdateService %s=%d force=%t", name, aws.ToInt32(in.DesiredCount), in.ForceNewDeployment))
	if err := f.failUpdate[name]; err != nil {
		return nil, err
	}
	c, err := f.cluster(aws.ToString(in.Cluster))
	if err != nil {
		return nil, err
	}
	for _, s := range c.services {
		if aws.ToString(s.ServiceName) == name {
			s.DesiredCount = aws.ToInt32(in.DesiredCount)
			s.RunningCount = s.DesiredCount
			return &awsecs.UpdateServiceOutput{Service: s}, nil
		}
	}
	return nil, fmt.Errorf("ServiceNotFoundException: %s", name)
}

func (f *fakeECS) TagResource(ctx context.Context, in *awsecs.TagResourceInput, _ ...func(*awsecs.Options)) (*awsecs.TagResourceOutput, error) {
	f.calls = append(f.calls, "TagResource "+aws.ToString(in.ResourceArn))
	c, err := f.cluster(aws.ToString(in.ResourceArn))
	if err != nil {
		return nil, err
	}
	for _, t := range in.Tags {
		c.tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return &awsecs.TagResourceOutput{}, nil
}

func (f *fakeECS) UntagResource(ctx context.Context, in *awsecs.UntagResourceInput, _ ...func(*awsecs.Options)) (*awsecs.UntagResourceOutput, error) {
	f.calls = append(f.calls, "UntagResource "+aws.ToString(in.ResourceArn))
	c, err := f.cluster(aws.ToString(in.ResourceArn))
	if err != nil {
		return nil, err
	}
	for _, k := range in.TagKeys {
		delete(c.tags, k)
	}
	return &awsecs.UntagResourceOutput{}, nil
}

// ---------- Helpers ----------

func testParams(buf *bytes.Buffer) scheduler.Params {
	return scheduler.Params{
		Account:      "123456789012",
		Region:       "eu-west-1",
		TagName:      "Schedule",
		InvocationID: "inv-1",
		Logger:       zerolog.New(buf).Level(zerolog.DebugLevel),
	}
}

func svc(arn string, running, pending, desired int32) types.Service {
	return types.Service{
		ServiceArn:   aws.String(arn),
		ServiceName:  aws.String(arn[strings.LastIndex(arn, "/")+1:]),
		RunningCount: running,
		PendingCount: pending,
		DesiredCount: desired,
	}
}
