package types

import "time"

// WebSearchResults is the output of the news/sentiment stage.
type WebSearchResults struct {
	NewsArticles      []Article `json:"news_articles"`
	MarketSentiment   string    `json:"market_sentiment"`
	TrendingTopics    []string  `json:"trending_topics"`
	TrendingStocks    []string  `json:"trending_stocks"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}

// Market sentiment labels.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// MarketAnalysis is the output of the market/technical stage.
type MarketAnalysis struct {
	MarketTrends      map[string]IndexSnapshot `json:"market_trends"`
	SectorAnalysis    SectorAnalysis           `json:"sector_analysis"`
	VolatilityMetrics Volatility               `json:"volatility_metrics"`
	ActiveStocks      []string                 `json:"active_stocks"`
	MomentumStocks    []MomentumStock          `json:"momentum_stocks"`
	VolumeAnalysis    VolumeAnalysis           `json:"volume_analysis"`
	AnalysisTimestamp time.Time                `json:"analysis_timestamp"`
}

// IndexSnapshot summarizes one market index.
type IndexSnapshot struct {
	CurrentPrice  float64 `json:"current_price"`
	ChangePercent float64 `json:"change_percent"`
	SMA20         float64 `json:"sma_20"`
	SMA50         float64 `json:"sma_50"`
	RSI           float64 `json:"rsi"`
	Trend         string  `json:"trend"`
}

// SectorPerformance is one sector ETF's recent returns.
type SectorPerformance struct {
	Sector       string  `json:"sector"`
	Symbol       string  `json:"symbol"`
	MonthReturn  float64 `json:"month_return"`
	WeekReturn   float64 `json:"week_return"`
	CurrentPrice float64 `json:"current_price"`
}

// SectorAnalysis ranks sectors by month return, best first.
type SectorAnalysis struct {
	SectorPerformance      []SectorPerformance `json:"sector_performance"`
	TopPerformingSectors   []string            `json:"top_performing_sectors"`
	WorstPerformingSectors []string            `json:"worst_performing_sectors"`
}

// Volatility is derived from the VIX.
type Volatility struct {
	VIXCurrent      *float64 `json:"vix_current,omitempty"`
	VIXAverage      *float64 `json:"vix_average,omitempty"`
	VolatilityLevel string   `json:"volatility_level"`
	MarketFearLevel string   `json:"market_fear_level,omitempty"`
}

// MomentumStock is a symbol that passed the momentum screen.
type MomentumStock struct {
	Symbol        string  `json:"symbol"`
	MomentumScore float64 `json:"momentum_score"`
	PriceMomentum float64 `json:"price_momentum"`
	VolumeRatio   float64 `json:"volume_ratio"`
	RSI           float64 `json:"rsi"`
	CurrentPrice  float64 `json:"current_price"`
}

// VolumeAnalysis describes broad market volume using SPY as proxy.
type VolumeAnalysis struct {
	AverageVolume float64 `json:"average_volume,omitempty"`
	RecentVolume  float64 `json:"recent_volume,omitempty"`
	VolumeTrend   string  `json:"volume_trend"`
	VolumeRatio   float64 `json:"volume_ratio,omitempty"`
}

// EarningsAnalysis is the output of the earnings/fundamentals stage.
type EarningsAnalysis struct {
	Watchlist              []string               `json:"watchlist"`
	UpcomingEarnings       []UpcomingEarning      `json:"upcoming_earnings"`
	FundamentalAnalysis    FundamentalAnalysis    `json:"fundamental_analysis"`
	EarningsInsights       EarningsInsights       `json:"earnings_insights"`
	AnalystRecommendations AnalystRecommendations `json:"analyst_recommendations"`
	AnalysisTimestamp      time.Time              `json:"analysis_timestamp"`
}

// UpcomingEarning is a watchlist symbol reporting within the lookahead window.
type UpcomingEarning struct {
	Symbol            string    `json:"symbol"`
	CompanyName       string    `json:"company_name"`
	EarningsDate      time.Time `json:"earnings_date"`
	DaysUntilEarnings int       `json:"days_until_earnings"`
	MarketCap         float64   `json:"market_cap"`
	Sector            string    `json:"sector"`
	CurrentPrice      float64   `json:"current_price"`
}

// Fundamentals holds the raw ratios and the derived score for one symbol.
type Fundamentals struct {
	PERatio          *float64 `json:"pe_ratio"`
	PEGRatio         *float64 `json:"peg_ratio"`
	PriceToBook      *float64 `json:"price_to_book"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	ROE              *float64 `json:"roe"`
	ProfitMargin     *float64 `json:"profit_margin"`
	RevenueGrowth    *float64 `json:"revenue_growth"`
	FundamentalScore float64  `json:"fundamental_score"`
}

// StrongFundamental is a symbol whose fundamental score cleared the strong threshold.
type StrongFundamental struct {
	Symbol     string   `json:"symbol"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights"`
}

// FundamentalAnalysis groups per-symbol fundamentals and the strong subset.
type FundamentalAnalysis struct {
	DetailedFundamentals    map[string]Fundamentals `json:"detailed_fundamentals"`
	StrongFundamentalStocks []StrongFundamental     `json:"strong_fundamental_stocks"`
}

// EarningsGrowth records a symbol with high trailing earnings growth.
type EarningsGrowth struct {
	Symbol          string   `json:"symbol"`
	EarningsGrowth  float64  `json:"earnings_growth"`
	QuarterlyGrowth *float64 `json:"quarterly_growth"`
}

// EarningsInsights collects earnings trend observations.
type EarningsInsights struct {
	HighEarningsGrowth []EarningsGrowth `json:"high_earnings_growth"`
}

// AnalystPick is an analyst consensus with its implied upside.
type AnalystPick struct {
	Symbol          string  `json:"symbol"`
	Recommendation  string  `json:"recommendation,omitempty"`
	TargetPrice     float64 `json:"target_price"`
	CurrentPrice    float64 `json:"current_price"`
	UpsidePotential float64 `json:"upside_potential"`
}

// AnalystRecommendations lists analyst-favoured symbols, highest upside first.
type AnalystRecommendations struct {
	StrongBuyStocks  []AnalystPick `json:"strong_buy_stocks"`
	HighPriceTargets []AnalystPick `json:"high_price_targets"`
}

// StockRecommendations is the output of the synthesis stage.
type StockRecommendations struct {
	Recommendations []Recommendation `json:"recommendations"`
	MarketContext   MarketContext    `json:"market_context"`
	Methodology     string           `json:"methodology"`
	Timestamp       time.Time        `json:"timestamp"`
	Disclaimer      string           `json:"disclaimer"`
}

// MarketContext is the compact market summary attached to recommendations.
type MarketContext struct {
	MarketSentiment string   `json:"market_sentiment"`
	TrendingTopics  []string `json:"trending_topics"`
	VolatilityLevel string   `json:"volatility_level"`
	TopSectors      []string `json:"top_sectors"`
}

// Tier is a discrete recommendation strength.
type Tier string

const (
	TierStrongBuy   Tier = "Strong Buy"
	TierBuy         Tier = "Buy"
	TierModerateBuy Tier = "Moderate Buy"
	TierHold        Tier = "Hold"
)

// RiskLevel is a qualitative risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Recommendation is a ranked, annotated candidate. It is built once per run and not modified afterwards.
type Recommendation struct {
	Rank            int       `json:"rank"`
	Symbol          string    `json:"symbol"`
	CompanyName     string    `json:"company_name"`
	Sector          string    `json:"sector"`
	CurrentPrice    float64   `json:"current_price"`
	MonthChange     float64   `json:"month_change"`
	ChangeDirection string    `json:"change_direction"`
	MarketCap       float64   `json:"market_cap"`
	Recommendation  Tier      `json:"recommendation"`
	CompositeScore  float64   `json:"composite_score"`
	AIScore         int       `json:"ai_score"`
	Reasoning       string    `json:"reasoning"`
	PERatio         *float64  `json:"pe_ratio"`
	RiskLevel       RiskLevel `json:"risk_level"`
}
