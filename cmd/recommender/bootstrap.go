package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stock-recommender/internal/agents/agentobs"
	"stock-recommender/internal/agents/earnings"
	"stock-recommender/internal/agents/market"
	"stock-recommender/internal/agents/synth"
	"stock-recommender/internal/agents/websearch"
	"stock-recommender/internal/cache"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/llm/claude"
	"stock-recommender/internal/llm/gemini"
	"stock-recommender/internal/llm/llmobs"
	"stock-recommender/internal/llm/noop"
	"stock-recommender/internal/llm/openai"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/marketdata"
	"stock-recommender/internal/marketdata/marketdataobs"
	"stock-recommender/internal/news"
	"stock-recommender/internal/runlog"
	"stock-recommender/internal/service"
	"stock-recommender/internal/store"
	"stock-recommender/internal/trace"
)

// calendarLimit bounds how many calendar tokens earnings discovery looks at.
const calendarLimit = 50

// initializeSystem loads .env, initializes logger and tracer, then loads the config file
func initializeSystem(path string) (*store.Config, error) {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger (stderr; stdout is reserved for command output)
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer, off unless asked for
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	cfg, err := store.LoadConfig(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = store.Default()
		logger.Warn(context.Background(), "Config file not found, using defaults", "path", path)
	}
	return cfg, nil
}

// initializeRunLog compresses expired run logs and returns the log new runs append to
func initializeRunLog(ctx context.Context, cfg *store.Config) *runlog.Log {
	l := runlog.New(cfg.RunLog.Dir)
	if err := l.CompressOlder(cfg.RunLog.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old run logs", "dir", l.Dir(), "error", err)
	}
	return l
}

// initializeLLM picks the configured provider and wraps it with observability.
// Any provider that fails to start falls back to noop so the pipeline still runs.
func initializeLLM(ctx context.Context, cfg *store.Config) interfaces.LLM {
	var (
		client interfaces.LLM
		err    error
	)

	switch cfg.LLM.Provider {
	case "OPENAI":
		client, err = openai.New(cfg)
	case "CLAUDE":
		client, err = claude.New(cfg)
	case "GEMINI":
		client, err = gemini.New(ctx, cfg)
	default:
		logger.Warn(ctx, "No LLM provider configured - sentiment and reasoning use fallbacks")
		return llmobs.Wrap(noop.New())
	}

	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize LLM provider, using noop", err, "provider", cfg.LLM.Provider)
		return llmobs.Wrap(noop.New())
	}
	logger.Info(ctx, "LLM provider ready", "provider", client.Provider())
	return llmobs.Wrap(client)
}

// initializeCache builds the shared response cache from cache.backend.
// The returned closer is never nil.
func initializeCache(ctx context.Context, cfg *store.Config) (interfaces.Cache, func() error) {
	switch cfg.Cache.Backend {
	case "redis":
		addr := cfg.Cache.RedisAddr
		if v := os.Getenv("REDIS_URL"); v != "" {
			addr = v
		}
		r, err := cache.NewRedis(ctx, addr, "recommender:")
		if err == nil {
			logger.Info(ctx, "Using redis cache", "addr", addr)
			return r, r.Close
		}
		logger.Warn(ctx, "Redis unavailable, falling back to memory cache", "addr", addr, "error", err)
	case "file":
		f, err := cache.NewFile(cfg.Cache.Dir)
		if err == nil {
			logger.Info(ctx, "Using file cache", "dir", cfg.Cache.Dir)
			return f, func() error { return nil }
		}
		logger.Warn(ctx, "File cache unavailable, falling back to memory cache", "dir", cfg.Cache.Dir, "error", err)
	}

	m := cache.NewMemory(time.Minute)
	return m, m.Close
}

// initializeMarketData returns the Yahoo client (or the offline sample) with observability
func initializeMarketData(ctx context.Context, cfg *store.Config, c interfaces.Cache) interfaces.MarketData {
	if cfg.MarketData.Source == "STATIC" {
		logger.Info(ctx, "Using STATIC sample market data")
		return marketdataobs.Wrap(marketdata.Sample(time.Now()))
	}

	timeout := time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second
	yahoo := marketdata.NewYahoo(
		marketdata.NewYahooClient(cfg.MarketData.BaseURL, timeout),
		marketdata.WithCache(c, time.Duration(cfg.Cache.TTLMinutes)*time.Minute),
		marketdata.WithRateLimit(cfg.MarketData.RequestsPerSecond, cfg.MarketData.Burst),
	)
	logger.Info(ctx, "Using Yahoo Finance market data", "rps", cfg.MarketData.RequestsPerSecond)
	return marketdataobs.Wrap(yahoo)
}

// initializeNews wires the configured scraper sites plus Finnhub when a token is present
func initializeNews(ctx context.Context, cfg *store.Config, c interfaces.Cache) *news.Service {
	sc := news.ServiceConfigFrom(cfg)

	var sources []interfaces.NewsSource
	for _, site := range news.SitesByName(cfg.News.Sources) {
		sources = append(sources, news.NewScraper(site, sc.ScraperTimeout))
	}
	if token := os.Getenv("FINNHUB_API_KEY"); cfg.News.Finnhub && token != "" {
		sources = append(sources, news.NewFinnhub(token, "", sc.ScraperTimeout))
	}

	svc := news.NewService(sources, c, sc)
	logger.Info(ctx, "News sources configured", "sources", svc.Sources())
	return svc
}

// initializeService assembles the four agents and the response service
func initializeService(ctx context.Context, cfg *store.Config, md interfaces.MarketData, client interfaces.LLM, feed websearch.ArticleFeed) (*service.Service, error) {
	timeout := time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second

	svc, err := service.New(
		agentobs.Wrap(synth.New(md, client, synth.ConfigFrom(cfg))),
		agentobs.Wrap(websearch.New(feed, client)),
		agentobs.Wrap(market.New(md)),
		agentobs.Wrap(earnings.New(md, earnings.NewCalendarScraper("", timeout, calendarLimit))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	for _, a := range svc.Agents() {
		logger.Debug(ctx, "Agent registered", "agent", a.Name(), "description", a.Description())
	}
	return svc, nil
}

// app is everything a command needs once bootstrapped
type app struct {
	cfg     *store.Config
	llm     interfaces.LLM
	service runlog.Recommender
	close   func() error
}

func bootstrap(ctx context.Context, path string) (*app, error) {
	cfg, err := initializeSystem(path)
	if err != nil {
		return nil, err
	}

	c, closeCache := initializeCache(ctx, cfg)
	client := initializeLLM(ctx, cfg)
	md := initializeMarketData(ctx, cfg, c)
	feed := initializeNews(ctx, cfg, c)

	svc, err := initializeService(ctx, cfg, md, client, feed)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		llm:     client,
		service: runlog.Record(svc, initializeRunLog(ctx, cfg)),
		close: func() error {
			_ = trace.Shutdown(context.Background())
			return closeCache()
		},
	}, nil
}
