// Package websearch is the news and sentiment discovery stage.
package websearch

import (
	"context"
	"time"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/news"
	"stock-recommender/internal/types"
)

const Name = "web_search"

// ArticleFeed supplies the merged list of recent articles.
type ArticleFeed interface {
	Latest(ctx context.Context) ([]types.Article, error)
}

// Agent scrapes financial news and derives sentiment, topics and trending tickers.
type Agent struct {
	feed     ArticleFeed
	analyzer *news.Analyzer
	now      func() time.Time
}

var _ interfaces.Agent = (*Agent)(nil)

// New creates the stage. llm may be nil, in which case only articles are reported.
func New(feed ArticleFeed, llm interfaces.LLM) *Agent {
	return &Agent{feed: feed, analyzer: news.NewAnalyzer(llm), now: time.Now}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Description() string {
	return "Searches web for financial news and market insights"
}

func (a *Agent) Namespace() types.Namespace { return types.NamespaceWebSearch }

// Execute fetches news and analyzes it. It ignores its input.
func (a *Agent) Execute(ctx context.Context, _ *types.ExecutionContext) (*types.ExecutionContext, error) {
	articles, err := a.feed.Latest(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Found news articles", "count", len(articles))

	if len(articles) == 0 {
		articles = news.FallbackArticles(a.now())
		logger.Warn(ctx, "No news articles found, using fallback articles", "count", len(articles))
	}

	sentiment := a.analyzer.MarketSentiment(ctx, articles)
	topics := a.analyzer.TrendingTopics(ctx, articles)
	stocks := a.analyzer.TrendingStocks(ctx, articles)

	logger.Info(ctx, "Web search completed",
		"articles", len(articles),
		"sentiment", sentiment,
		"topics", len(topics),
		"stocks", stocks,
	)

	out := types.NewExecutionContext()
	out.WebSearch = &types.WebSearchResults{
		NewsArticles:      headArticles(articles, 10),
		MarketSentiment:   sentiment,
		TrendingTopics:    topics,
		TrendingStocks:    stocks,
		AnalysisTimestamp: a.now(),
	}
	return out, nil
}

func headArticles(articles []types.Article, n int) []types.Article {
	if len(articles) > n {
		articles = articles[:n]
	}
	return append([]types.Article(nil), articles...)
}
