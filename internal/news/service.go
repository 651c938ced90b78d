package news

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-recommender/internal/cache"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/store"
	"stock-recommender/internal/types"
)

// Service aggregates articles from every configured source with caching
type Service struct {
	sources []interfaces.NewsSource
	cache   interfaces.Cache
	cfg     *ServiceConfig
}

// ServiceConfig configures the news service
type ServiceConfig struct {
	MaxArticles    int           // Maximum articles kept after merging sources
	PerSource      int           // Maximum articles requested from each source
	CacheDuration  time.Duration // How long to cache the merged list
	ScraperTimeout time.Duration // Timeout for scraping operations
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:    20,
		PerSource:      10,
		CacheDuration:  15 * time.Minute,
		ScraperTimeout: 10 * time.Second,
	}
}

// ServiceConfigFrom maps the news config section
func ServiceConfigFrom(cfg *store.Config) *ServiceConfig {
	sc := DefaultServiceConfig()
	if cfg.News.MaxArticles > 0 {
		sc.MaxArticles = cfg.News.MaxArticles
	}
	if cfg.News.CacheMinutes > 0 {
		sc.CacheDuration = time.Duration(cfg.News.CacheMinutes) * time.Minute
	}
	if cfg.News.TimeoutSeconds > 0 {
		sc.ScraperTimeout = time.Duration(cfg.News.TimeoutSeconds) * time.Second
	}
	return sc
}

var errNoArticles = errors.New("news: no articles")

// NewService creates a news service over sources. c may be nil.
func NewService(sources []interfaces.NewsSource, c interfaces.Cache, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{sources: sources, cache: c, cfg: cfg}
}

// Sources returns the names of the configured sources
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

// Latest returns the newest articles across sources, newest first, capped at MaxArticles.
// Source failures are logged and skipped; an empty slice means nothing could be fetched.
func (s *Service) Latest(ctx context.Context) ([]types.Article, error) {
	articles, err := cache.GetOrFetch(ctx, s.cache, cache.Key("news", "latest"), s.cfg.CacheDuration, s.fetchAll)
	if errors.Is(err, errNoArticles) {
		return []types.Article{}, nil
	}
	return articles, err
}

func (s *Service) fetchAll(ctx context.Context) ([]types.Article, error) {
	logger.Info(ctx, "Fetching news", "sources", len(s.sources))

	var (
		mu  sync.Mutex
		all []types.Article
		g   errgroup.Group
	)
	for _, src := range s.sources {
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, s.cfg.ScraperTimeout)
			defer cancel()

			articles, err := src.Fetch(srcCtx, s.cfg.PerSource)
			if err != nil {
				logger.ErrorWithErr(ctx, "Failed to fetch news source", err, "source", src.Name())
				return nil
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	all = mergeArticles(all, s.cfg.MaxArticles)
	logger.Info(ctx, "News fetch completed", "articles", len(all))
	if len(all) == 0 {
		return nil, errNoArticles
	}
	return all, nil
}

// mergeArticles drops duplicate titles, sorts newest first and caps the list
func mergeArticles(articles []types.Article, limit int) []types.Article {
	seen := make(map[string]bool, len(articles))
	out := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
