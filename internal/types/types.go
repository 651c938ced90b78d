package types

import (
	"strings"
	"time"
)

// Bar is one daily OHLCV bar.
type Bar struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Period is a history lookback understood by market data providers.
type Period string

const (
	Period5D Period = "5d"
	Period1M Period = "1mo"
	Period2M Period = "2mo"
	Period3M Period = "3mo"
)

// Days returns the approximate calendar length of the period.
func (p Period) Days() int {
	switch p {
	case Period5D:
		return 5
	case Period1M:
		return 30
	case Period2M:
		return 61
	case Period3M:
		return 92
	default:
		return 30
	}
}

// TradingDays returns the approximate number of daily bars in the period.
func (p Period) TradingDays() int {
	switch p {
	case Period5D:
		return 5
	case Period1M:
		return 21
	case Period2M:
		return 42
	case Period3M:
		return 63
	default:
		return 21
	}
}

// CompanyInfo is descriptive metadata and fundamentals for one listing.
// Pointer fields are optional: nil means the provider had no value.
type CompanyInfo struct {
	Symbol            string     `json:"symbol"`
	LongName          string     `json:"long_name"`
	Sector            string     `json:"sector"`
	MarketCap         float64    `json:"market_cap"`
	CurrentPrice      float64    `json:"current_price"`
	TrailingPE        *float64   `json:"trailing_pe,omitempty"`
	PEGRatio          *float64   `json:"peg_ratio,omitempty"`
	PriceToBook       *float64   `json:"price_to_book,omitempty"`
	DebtToEquity      *float64   `json:"debt_to_equity,omitempty"`
	ReturnOnEquity    *float64   `json:"return_on_equity,omitempty"`
	ProfitMargins     *float64   `json:"profit_margins,omitempty"`
	RevenueGrowth     *float64   `json:"revenue_growth,omitempty"`
	EarningsGrowth    *float64   `json:"earnings_growth,omitempty"`
	QuarterlyGrowth   *float64   `json:"earnings_quarterly_growth,omitempty"`
	RecommendationKey string     `json:"recommendation_key,omitempty"`
	TargetMeanPrice   *float64   `json:"target_mean_price,omitempty"`
	EarningsDate      *time.Time `json:"earnings_date,omitempty"`
}

// Name returns the long name, falling back to the symbol.
func (c CompanyInfo) Name() string {
	if c.LongName != "" {
		return c.LongName
	}
	return c.Symbol
}

// SectorOrUnknown returns the sector, or "Unknown" when the provider had none.
func (c CompanyInfo) SectorOrUnknown() string {
	if strings.TrimSpace(c.Sector) == "" {
		return "Unknown"
	}
	return c.Sector
}

// Article is one news item.
type Article struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a single conversational turn sent to a language model.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral language model request.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, user string) CompletionRequest {
	return CompletionRequest{
		System:   system,
		Messages: []Message{{Role: "user", Content: user}},
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Closes extracts close prices from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts volumes from bars.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Vol
	}
	return out
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DedupeSymbols normalizes symbols and removes duplicates and blanks, keeping first-seen order.
func DedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
