package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/coinsift/coinsift/internal/alerts"
	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/filter"
	"github.com/coinsift/coinsift/internal/indicators"
	httpserver "github.com/coinsift/coinsift/internal/interfaces/http"
	"github.com/coinsift/coinsift/internal/market"
	"github.com/coinsift/coinsift/internal/metrics"
	"github.com/coinsift/coinsift/internal/model"
	"github.com/coinsift/coinsift/internal/persistence"
	"github.com/coinsift/coinsift/internal/persistence/postgres"
	"github.com/coinsift/coinsift/internal/risk"
	"github.com/coinsift/coinsift/internal/scan"
	"github.com/coinsift/coinsift/internal/scan/progress"
	"github.com/coinsift/coinsift/internal/scoring"
)

const (
	appName           = "coinsift"
	version           = "v1.0.0"
	defaultConfigPath = "config/config.yaml"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		log.Info().Msg(".env found, loading variables")
		if err := godotenv.Load(); err != nil {
			log.Warn().Err(err).Msg("failed to load .env")
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Periodic cryptocurrency market screener",
		Version: version,
		Long: `coinsift pulls a snapshot of crypto market metrics, filters it against a
battery of price/volume/momentum thresholds, scores the survivors and derives
a risk plan for each, emitting a ranked result set.`,
	}
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "Path to YAML configuration")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the scan pipeline",
		Long:  "Runs one scan cycle, or keeps rescanning when --interval is set, writing results through the configured sinks",
		RunE:  runScan,
	}
	addScanFlags(scanCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP wrapper",
		Long:  "Serves /health, /api/scan, /api/results, /metrics and /ws; with --interval it also rescans in the background",
		RunE:  runServe,
	}
	addScanFlags(serveCmd.Flags())

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func addScanFlags(fs *pflag.FlagSet) {
	fs.Duration("interval", 0, "Rescan interval (0 runs once)")
	fs.Int64("seed", 0, "Seed for synthetic indicators and score jitter (0 rotates with wall clock)")
	fs.Bool("stdout", false, "Print results to stdout instead of the configured sinks")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySeedFlag(cmd, cfg)

	interval, _ := cmd.Flags().GetDuration("interval")
	toStdout, _ := cmd.Flags().GetBool("stdout")

	orch := buildPipeline(cfg, nil)
	sink, closeSinks, err := buildSink(cfg, toStdout)
	if err != nil {
		return err
	}
	defer closeSinks()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scan.RunPeriodic(ctx, orch, interval, sink); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applySeedFlag(cmd, cfg)

	interval, _ := cmd.Flags().GetDuration("interval")

	bus := progress.NewBus()
	orch := buildPipeline(cfg, bus)

	server, err := httpserver.NewServer(cfg.Server, orch, bus, metrics.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if interval > 0 {
		sink, closeSinks, err := buildSink(cfg, false)
		if err != nil {
			return err
		}
		defer closeSinks()
		go func() {
			if err := scan.RunPeriodic(ctx, orch, interval, sink); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("background scan loop stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}

func applySeedFlag(cmd *cobra.Command, cfg *config.Config) {
	seed, _ := cmd.Flags().GetInt64("seed")
	if seed != 0 {
		cfg.Indicators.Seed = seed
		cfg.Scoring.Seed = seed
	}
}

func buildPipeline(cfg *config.Config, bus *progress.Bus) *scan.Orchestrator {
	m := metrics.Default()
	cache := market.NewCache(cfg.Cache)
	client := market.NewClient(cfg.Client, cache, cfg.Cache.GetTTL(), m)
	provider := indicators.NewSynthetic(cfg.Indicators.Seed)
	scorer := scoring.NewEngine(cfg.Scoring)
	assessor := risk.NewAssessor(cfg.Risk)

	return scan.New(client, provider, scorer, assessor,
		filter.FromConfig(cfg.Criteria), cfg.Output, m, bus)
}

// buildSink chains the configured result sinks into one SinkFunc.
func buildSink(cfg *config.Config, toStdout bool) (scan.SinkFunc, func(), error) {
	if toStdout {
		return func(_ context.Context, result *model.ScanResult) {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(result.Records)
		}, func() {}, nil
	}

	fileSink := persistence.NewFileSink(cfg.Output.Dir)

	var repo persistence.ResultsRepo
	if cfg.Database.Enabled {
		var err error
		repo, err = postgres.NewResultsRepo(cfg.Database.DSN, cfg.Database.GetTimeout())
		if err != nil {
			return nil, nil, fmt.Errorf("database sink: %w", err)
		}
	}

	var publisher *alerts.Publisher
	if cfg.Alerts.Enabled {
		var err error
		publisher, err = alerts.NewPublisher(cfg.Alerts.Brokers, cfg.Alerts.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("alerts sink: %w", err)
		}
	}

	sink := func(ctx context.Context, result *model.ScanResult) {
		if err := fileSink.Write(result); err != nil {
			log.Error().Err(err).Msg("file sink failed")
		}
		if repo != nil {
			if err := repo.Replace(ctx, result); err != nil {
				log.Error().Err(err).Msg("database sink failed")
			}
		}
		if publisher != nil && len(result.Records) > 0 {
			if err := publisher.Publish(result); err != nil {
				log.Error().Err(err).Msg("alerts sink failed")
			}
		}
	}

	closeAll := func() {
		if repo != nil {
			_ = repo.Close()
		}
		if publisher != nil {
			_ = publisher.Close()
		}
	}
	return sink, closeAll, nil
}
