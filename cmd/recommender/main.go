package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stock-recommender/internal/chat"
	"stock-recommender/internal/server"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// run flags
	sequential bool
	timeout    time.Duration

	// serve flags
	addr string

	// Logger for command level events
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "recommender",
	Short: "Multi-agent stock recommendation pipeline",
	Long: `recommender gathers news sentiment, market conditions and earnings data
through independent discovery agents, then ranks candidates into a short list
of recommendations with an optional LLM-written rationale for each.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		log, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// runCmd executes the pipeline once and prints the response
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate recommendations once and print them as JSON",
	Long: `Runs web_search, market_analysis and earnings_analysis (concurrently unless
--sequential is set), then recommendation_synthesis, and writes the response
document to stdout. The exit code is non-zero when the run fails as a whole.`,
	RunE: runOnce,
}

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations and the chat assistant over HTTP",
	Long: `Starts the HTTP API:
  GET  /                        health message
  GET  /api/recommendations     run the pipeline (?mode=parallel|sequential)
  POST /chat                    chat assistant`,
	RunE: serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	runCmd.Flags().BoolVar(&sequential, "sequential", false, "Run discovery agents one after another")
	runCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall run timeout")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	parallel := a.cfg.Parallel()
	if cmd.Flags().Changed("sequential") {
		parallel = !sequential
	}

	log.Info("Generating recommendations", zap.Bool("parallel", parallel))
	resp := a.service.GenerateRecommendations(ctx, parallel)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	if !resp.Success {
		log.Error("Recommendation run failed", zap.String("run_id", resp.RunID), zap.String("error", resp.Error))
		return fmt.Errorf("recommendation run failed: %s", resp.Error)
	}
	log.Info("Recommendation run complete",
		zap.String("run_id", resp.RunID),
		zap.Int("recommendations", len(resp.Recommendations)),
		zap.Float64("seconds", resp.ExecutionTimeSeconds),
	)
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(context.Background())
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(addr, a.service, chat.New(a.llm), log, a.cfg.Server.AllowOrigins)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
