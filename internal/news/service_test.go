package news

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stock-recommender/internal/cache"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/store"
	"stock-recommender/internal/types"
)

var (
	_ interfaces.NewsSource = (*Scraper)(nil)
	_ interfaces.NewsSource = (*Finnhub)(nil)
)

type fakeSource struct {
	name     string
	articles []types.Article
	err      error
	calls    atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, limit int) ([]types.Article, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.articles) > limit {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

func article(title string, age time.Duration) types.Article {
	return types.Article{Title: title, Timestamp: time.Now().Add(-age)}
}

func TestServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()

	if cfg.MaxArticles != 20 {
		t.Errorf("Expected MaxArticles to be 20, got %d", cfg.MaxArticles)
	}
	if cfg.PerSource != 10 {
		t.Errorf("Expected PerSource to be 10, got %d", cfg.PerSource)
	}

	botCfg := store.Default()
	botCfg.News.CacheMinutes = 5
	if got := ServiceConfigFrom(botCfg).CacheDuration; got != 5*time.Minute {
		t.Errorf("Expected CacheDuration 5m, got %v", got)
	}
}

func TestLatestMergesSortsAndCaps(t *testing.T) {
	a := &fakeSource{name: "a", articles: []types.Article{article("old headline one", 3*time.Hour), article("shared headline xx", time.Hour)}}
	b := &fakeSource{name: "b", articles: []types.Article{article("fresh headline two", time.Minute), article("shared headline xx", time.Hour)}}
	broken := &fakeSource{name: "broken", err: errors.New("403 forbidden")}

	cfg := DefaultServiceConfig()
	cfg.MaxArticles = 2
	svc := NewService([]interfaces.NewsSource{a, broken, b}, nil, cfg)

	got, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(got))
	}
	if got[0].Title != "fresh headline two" || got[1].Title != "shared headline xx" {
		t.Errorf("Unexpected order: %q, %q", got[0].Title, got[1].Title)
	}
}

func TestLatestEmptyIsNotCached(t *testing.T) {
	src := &fakeSource{name: "empty"}
	mem := cache.NewMemory(0)
	defer mem.Close()

	svc := NewService([]interfaces.NewsSource{src}, mem, nil)
	for i := 0; i < 2; i++ {
		got, err := svc.Latest(context.Background())
		if err != nil || len(got) != 0 {
			t.Fatalf("Expected empty result, got %d (%v)", len(got), err)
		}
	}
	if src.calls.Load() != 2 {
		t.Errorf("Expected empty results to be refetched, got %d calls", src.calls.Load())
	}
}

func TestLatestUsesCache(t *testing.T) {
	src := &fakeSource{name: "a", articles: []types.Article{article("market rallies on data", 0)}}
	mem := cache.NewMemory(0)
	defer mem.Close()

	svc := NewService([]interfaces.NewsSource{src}, mem, nil)
	for i := 0; i < 3; i++ {
		if _, err := svc.Latest(context.Background()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("Expected one fetch, got %d", src.calls.Load())
	}
}

func TestFallbackArticles(t *testing.T) {
	now := time.Now()
	got := FallbackArticles(now)
	if len(got) != 5 {
		t.Fatalf("Expected 5 fallback articles, got %d", len(got))
	}
	tickers := ExtractTickers(got[0].Summary+" "+got[4].Summary, 10)
	if len(tickers) != 2 || tickers[0] != "AAPL" || tickers[1] != "AMZN" {
		t.Errorf("Expected AAPL and AMZN in fallback summaries, got %v", tickers)
	}
}

func TestSitesByName(t *testing.T) {
	if len(SitesByName(nil)) != 3 {
		t.Error("Expected all default sites for an empty filter")
	}
	got := SitesByName([]string{"CNBC", "unknown"})
	if len(got) != 1 || got[0].Name != "cnbc" {
		t.Errorf("Expected only cnbc, got %+v", got)
	}
}
