package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/ecs-scheduler/internal/awsclient"
	"github.com/edvin/ecs-scheduler/internal/cli"
	"github.com/edvin/ecs-scheduler/internal/config"
	"github.com/edvin/ecs-scheduler/internal/logging"
	"github.com/edvin/ecs-scheduler/internal/metrics"
	"github.com/edvin/ecs-scheduler/internal/model"
	"github.com/edvin/ecs-scheduler/internal/scheduler"
	"github.com/edvin/ecs-scheduler/internal/scheduler/ecs"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "discover", "stop", "start":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var clusters cli.StringList
	fs.Var(&clusters, "cluster", "Cluster name or ARN to act on (repeatable)")
	schedule := fs.String("schedule", "", "Act on every cluster whose schedule tag has this value")
	fs.Parse(os.Args[2:])

	if cmd != "discover" && len(clusters) == 0 && *schedule == "" {
		fmt.Fprintf(os.Stderr, "Usage: ecs-scheduler %s [-cluster NAME]... [-schedule NAME]\n", cmd)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.NewScheduler(reg)
	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	client, err := awsclient.NewECS(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create ecs client")
	}

	adapters := scheduler.NewRegistry()
	if err := adapters.Register(ecs.New(client, m)); err != nil {
		logger.Fatal().Err(err).Msg("failed to register adapter")
	}
	adapter, err := adapters.Get(ecs.Name)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to select adapter")
	}

	params := scheduler.Params{
		Account:      cfg.AccountID,
		Region:       cfg.AWSRegion,
		TagName:      cfg.TagName,
		InvocationID: uuid.NewString(),
		Logger:       logger,
	}

	if err := run(ctx, cmd, adapter, params, clusters, *schedule); err != nil {
		logger.Error().Err(err).Str("command", cmd).Msg("command failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, adapter scheduler.Adapter, p scheduler.Params, clusters []string, schedule string) error {
	records, err := adapter.Discover(ctx, p)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if cmd == "discover" {
		return cli.PrintJSON(os.Stdout, records)
	}

	selected := cli.Select(records, clusters, schedule)
	p.Logger.Info().Int("selected", len(selected)).Str("command", cmd).Msg("acting on ecs clusters")

	var transitions []model.Transition
	if cmd == "stop" {
		transitions, err = scheduler.Drain(adapter.Stop(ctx, p, selected))
	} else {
		transitions, err = scheduler.Drain(adapter.Start(ctx, p, selected))
	}
	if perr := cli.PrintJSON(os.Stdout, transitions); perr != nil {
		return perr
	}
	return err
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: ecs-scheduler <command> [flags]

Commands:
  discover                  List schedulable ECS clusters and their state as JSON
  stop  [-cluster NAME]...  Save desired counts as tags and scale services to zero
        [-schedule NAME]
  start [-cluster NAME]...  Restore saved desired counts and remove the tags
        [-schedule NAME]

Configuration is read from the environment (AWS_REGION, SCHEDULE_TAG_NAME, ...)
and optionally from the YAML file named by SCHEDULER_CONFIG_FILE.`)
}
