package news

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/llm"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

const (
	sentimentSystemPrompt = "Analyze the sentiment of financial news. Respond with only one word: 'bullish', 'bearish', or 'neutral'."
	topicsSystemPrompt    = "Extract 5-10 key trending topics from financial news headlines. Return as a JSON array of strings. Focus on sectors, companies, economic events, and market themes."
	stocksSystemPrompt    = `You are a financial analyst extracting stock symbols from news articles.
Identify companies mentioned in news that are publicly traded on US exchanges.
Focus on companies with positive momentum, earnings beats, new deals, sector trends, or analyst upgrades.
Return ONLY the ticker symbols as a JSON array of strings.
Only include symbols you are confident are real, actively traded US stocks.
Prioritize large-cap and mid-cap stocks that are likely to have good liquidity.`
)

var (
	tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	alphaPattern  = regexp.MustCompile(`^[A-Za-z]{1,5}$`)

	// common all-caps words that look like tickers
	tickerStopwords = map[string]bool{
		"THE": true, "AND": true, "FOR": true, "ARE": true, "BUT": true, "NOT": true, "YOU": true,
		"ALL": true, "CAN": true, "HER": true, "WAS": true, "ONE": true, "OUR": true, "HAD": true,
		"WHO": true, "ITS": true, "DID": true, "YES": true, "HIS": true, "HAS": true, "GET": true,
		"NEW": true, "NOW": true, "OLD": true, "SEE": true, "TWO": true, "WAY": true, "MAY": true,
		"USE": true,
	}
)

// Analyzer turns a batch of articles into sentiment, topics and tickers using an LLM
type Analyzer struct {
	llm interfaces.LLM
}

// NewAnalyzer creates an analyzer. A nil or noop client makes every method return its default.
func NewAnalyzer(client interfaces.LLM) *Analyzer {
	return &Analyzer{llm: client}
}

// MarketSentiment classifies the first 10 articles as bullish, bearish or neutral.
// Anything unexpected, including a failed call, is neutral.
func (a *Analyzer) MarketSentiment(ctx context.Context, articles []types.Article) string {
	if !llm.IsAvailable(a.llm) || len(articles) == 0 {
		return types.SentimentNeutral
	}
	ctx, span := trace.StartSpan(ctx, "news.MarketSentiment")
	defer span.End()

	var sb strings.Builder
	for _, art := range head(articles, 10) {
		fmt.Fprintf(&sb, "Title: %s Summary: %s\n", art.Title, art.Summary)
	}

	out, err := a.llm.Complete(ctx, types.UserPrompt(sentimentSystemPrompt,
		"Analyze the market sentiment from these recent financial news headlines and summaries:\n\n"+sb.String()))
	if err != nil {
		logger.ErrorWithErr(ctx, "Sentiment analysis failed", err)
		return types.SentimentNeutral
	}

	switch s := strings.Trim(strings.ToLower(strings.TrimSpace(out)), ".'\""); s {
	case types.SentimentBullish, types.SentimentBearish, types.SentimentNeutral:
		return s
	default:
		logger.Warn(ctx, "Unexpected sentiment answer", "answer", out)
		return types.SentimentNeutral
	}
}

// TrendingTopics extracts up to 10 themes from the first 15 titles.
func (a *Analyzer) TrendingTopics(ctx context.Context, articles []types.Article) []string {
	if !llm.IsAvailable(a.llm) || len(articles) == 0 {
		return []string{}
	}
	ctx, span := trace.StartSpan(ctx, "news.TrendingTopics")
	defer span.End()

	titles := make([]string, 0, 15)
	for _, art := range head(articles, 15) {
		titles = append(titles, art.Title)
	}

	out, err := a.llm.Complete(ctx, types.UserPrompt(topicsSystemPrompt,
		"Extract trending topics from these financial news headlines:\n\n"+strings.Join(titles, "\n")))
	if err != nil {
		logger.ErrorWithErr(ctx, "Topic extraction failed", err)
		return []string{}
	}

	topics, err := llm.StringArray(out)
	if err != nil {
		topics = splitTopics(out)
	}
	return head(nonEmpty(topics), 10)
}

// TrendingStocks asks for US tickers mentioned across the first 20 articles.
// Valid JSON answers keep up to 15 alphabetic symbols of at most 5 letters;
// otherwise up to 10 ticker-looking words are pulled from the raw text.
func (a *Analyzer) TrendingStocks(ctx context.Context, articles []types.Article) []string {
	if !llm.IsAvailable(a.llm) || len(articles) == 0 {
		return []string{}
	}
	ctx, span := trace.StartSpan(ctx, "news.TrendingStocks")
	defer span.End()

	var sb strings.Builder
	for _, art := range head(articles, 20) {
		fmt.Fprintf(&sb, "Title: %s\nSummary: %s\n", art.Title, art.Summary)
	}
	prompt := "Analyze these financial news articles and extract ticker symbols for companies that appear to be trending positively or have significant news coverage:\n\n" +
		sb.String() +
		"\nReturn a JSON array of 5-15 ticker symbols for companies mentioned in these articles that could be good investment opportunities based on the news context."

	out, err := a.llm.Complete(ctx, types.UserPrompt(stocksSystemPrompt, prompt))
	if err != nil {
		logger.ErrorWithErr(ctx, "Stock extraction from news failed", err)
		return []string{}
	}

	raw, err := llm.StringArray(out)
	if err != nil {
		tickers := ExtractTickers(out, 10)
		logger.Info(ctx, "Fallback extraction found potential tickers", "tickers", tickers)
		return tickers
	}

	stocks := make([]string, 0, len(raw))
	for _, s := range raw {
		if alphaPattern.MatchString(s) {
			stocks = append(stocks, strings.ToUpper(s))
		}
	}
	stocks = head(types.DedupeSymbols(stocks), 15)
	logger.Info(ctx, "Extracted trending stocks from news", "count", len(stocks), "stocks", stocks)
	return stocks
}

// ExtractTickers returns up to limit distinct 2-5 letter uppercase words that are not common English words.
func ExtractTickers(text string, limit int) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tickerPattern.FindAllString(text, -1) {
		if tickerStopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func splitTopics(text string) []string {
	text = strings.NewReplacer("[", "", "]", "").Replace(text)
	var out []string
	for _, part := range strings.Split(text, ",") {
		out = append(out, strings.Trim(strings.TrimSpace(part), `"'`))
	}
	return out
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func head[T any](vals []T, n int) []T {
	if len(vals) > n {
		return vals[:n]
	}
	return vals
}
