// Submission pipeline process entry point: boots the four-stage worker
// scheduler plus its HTTP query/ingress API against one shared
// configuration and persistence boundary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/artzaitsev/submission-scheduler/pkg/api"
	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/config"
	"github.com/artzaitsev/submission-scheduler/pkg/database"
	"github.com/artzaitsev/submission-scheduler/pkg/evalchain"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/llmclient"
	"github.com/artzaitsev/submission-scheduler/pkg/notifier"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/runner"
	"github.com/artzaitsev/submission-scheduler/pkg/slack"
	"github.com/artzaitsev/submission-scheduler/pkg/telegram"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/pgstore"
	"github.com/artzaitsev/submission-scheduler/pkg/workers"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	db, err := database.NewClient(ctx, cfg.Database.ToDatabaseConfig())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database, migrations applied")

	repo := pgstore.New(db)

	storage, err := buildObjectStorage(ctx, cfg.ObjectStorage)
	if err != nil {
		log.Fatalf("Failed to build object storage client: %v", err)
	}

	artifacts, err := artifact.NewRepository(storage, cfg.Artifact.ActiveContractVersion, artifact.CompatPolicy(cfg.Artifact.CompatPolicy))
	if err != nil {
		log.Fatalf("Failed to build artifact repository: %v", err)
	}

	llm := buildLLMClient(cfg.LLM)

	chain, err := loadChainSpec(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to load chain spec: %v", err)
	}

	transport := buildNotifierTransport(cfg.Notifier)

	podID := cfg.Scheduler.PodID
	if podID == "" {
		podID = "pipeline"
	}

	if err := reclaimStartupOrphans(ctx, repo, cfg, podID); err != nil {
		log.Printf("Warning: startup orphan reclaim failed: %v", err)
	}

	runners := map[lifecycle.Stage]*runner.Runner{
		lifecycle.StageRaw: runner.New(podID, lifecycle.StageRaw, repo,
			workers.NewIngestProcessor(repo, telegram.NewStubSource(nil), storage, cfg.Artifact.ActiveContractVersion),
			stageRunnerConfig(cfg, lifecycle.StageRaw)),
		lifecycle.StageNormalized: runner.New(podID, lifecycle.StageNormalized, repo,
			workers.NewNormalizeProcessor(repo, storage, artifacts, cfg.Artifact.ActiveContractVersion),
			stageRunnerConfig(cfg, lifecycle.StageNormalized)),
		lifecycle.StageLLMOutput: runner.New(podID, lifecycle.StageLLMOutput, repo,
			workers.NewEvaluateProcessor(repo, artifacts, llm, chain, cfg.LLM.Provider, ""),
			stageRunnerConfig(cfg, lifecycle.StageLLMOutput)),
		lifecycle.StageExports: runner.New(podID, lifecycle.StageExports, repo,
			workers.NewDeliverProcessor(repo, transport, "slack"),
			stageRunnerConfig(cfg, lifecycle.StageExports)),
	}

	for stage, r := range runners {
		r.Start(ctx)
		slog.Info("runner started", "stage", stage)
	}
	defer func() {
		for _, r := range runners {
			r.Stop()
		}
	}()

	server := api.NewServer(cfg, db, repo, artifacts, storage)
	server.RegisterRunners(runners)
	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := server.Start(":" + httpPort); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
}

func stageRunnerConfig(cfg *config.Config, stage lifecycle.Stage) runner.Config {
	sc := cfg.Scheduler.ForStage(stage)
	return runner.Config{
		WorkerCount:        sc.WorkerCount,
		PollInterval:       sc.PollInterval,
		PollIntervalJitter: sc.PollIntervalJitter,
		ErrorBackoff:       sc.ErrorBackoff,
		LeaseSeconds:       sc.LeaseSeconds,
		HeartbeatInterval:  sc.HeartbeatInterval,
		ReclaimInterval:    sc.ReclaimInterval,
	}
}

// reclaimStartupOrphans recovers work left claimed by a previous process
// instance under this pod's stable identity, before any runner's first
// tick (spec.md §4.6's startup orphan cleanup, generalized from the
// teacher's single-table CleanupStartupOrphans to the four-stage claim
// surface).
func reclaimStartupOrphans(ctx context.Context, repo work.Repository, cfg *config.Config, podID string) error {
	total := 0
	for _, stage := range lifecycle.Stages {
		sc := cfg.Scheduler.ForStage(stage)
		for i := 0; i < sc.WorkerCount; i++ {
			workerID := fmt.Sprintf("%s-%s-worker-%d", podID, stage, i)
			n, err := repo.ReclaimOwnedByWorker(ctx, workerID)
			if err != nil {
				return fmt.Errorf("reclaim orphans for %s: %w", workerID, err)
			}
			total += n
		}
	}
	if total > 0 {
		slog.Info("reclaimed startup orphans", "count", total)
	}
	return nil
}

func buildObjectStorage(ctx context.Context, cfg *config.ObjectStorageConfig) (objectstorage.Client, error) {
	switch cfg.Provider {
	case "s3":
		return objectstorage.NewS3Store(ctx, cfg.Bucket, cfg.Region, cfg.EndpointURL)
	default:
		return objectstorage.NewMemStore(), nil
	}
}

func buildLLMClient(cfg *config.LLMConfig) llmclient.Client {
	if cfg.Provider != "anthropic" {
		return llmclient.StubFunc(func(_ context.Context, req llmclient.Request) (llmclient.Response, error) {
			return llmclient.Response{RawText: "{}"}, fmt.Errorf("llmclient: stub provider configured, no model call made for %s", req.Model)
		})
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	settings := gobreaker.Settings{
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailures
		},
	}
	return llmclient.NewAnthropicClient(apiKey, settings)
}

func loadChainSpec(cfg *config.LLMConfig) (evalchain.Spec, error) {
	if cfg.ChainSpecPath != "" {
		return evalchain.LoadFromFile(cfg.ChainSpecPath)
	}
	return evalchain.LoadDefault()
}

func buildNotifierTransport(cfg *config.NotifierConfig) notifier.Transport {
	if !cfg.Enabled {
		return noopTransport{}
	}

	service := slack.NewService(slack.ServiceConfig{
		Token:   os.Getenv(cfg.Slack.TokenEnv),
		Channel: cfg.Slack.Channel,
	})
	if service == nil {
		log.Printf("Warning: notifier enabled but Slack token/channel not configured, deliveries will be recorded but not sent")
		return noopTransport{}
	}
	var base notifier.Transport = notifier.NewSlackTransport(service)

	if cfg.RedisAddr == "" {
		return base
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return notifier.NewRedisIdempotent(base, client, cfg.IdempotentTTL)
}

// noopTransport is used when notifications are disabled entirely
// (NotifierConfig.Enabled == false) or the Slack token/channel is not
// configured: deliveries are recorded but never actually sent.
type noopTransport struct{}

func (noopTransport) SendResultNotification(_ context.Context, _, _ string) (string, error) {
	return "", nil
}
