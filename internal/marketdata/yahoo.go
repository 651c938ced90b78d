// Package marketdata provides price history, company fundamentals and screeners.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stock-recommender/internal/api"
	"stock-recommender/internal/cache"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/types"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData means the provider answered but had nothing for the symbol.
var ErrNoData = errors.New("marketdata: no data")

// APIError describes a failed provider call for one symbol.
type APIError struct {
	Endpoint   string
	Symbol     string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d", e.Endpoint, e.Symbol, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Symbol, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Yahoo reads the public Yahoo Finance JSON endpoints.
type Yahoo struct {
	client  *api.Client
	limiter *rate.Limiter
	cache   interfaces.Cache
	ttl     time.Duration
	retry   *api.RetryConfig
}

type YahooOption func(*Yahoo)

// WithCache stores every successful response in c for ttl.
func WithCache(c interfaces.Cache, ttl time.Duration) YahooOption {
	return func(y *Yahoo) {
		y.cache = c
		y.ttl = ttl
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) YahooOption {
	return func(y *Yahoo) {
		y.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy. nil disables retries.
func WithRetry(cfg *api.RetryConfig) YahooOption {
	return func(y *Yahoo) {
		y.retry = cfg
	}
}

// NewYahoo wraps client. The client should carry the base URL and Yahoo headers.
func NewYahoo(client *api.Client, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		ttl:     15 * time.Minute,
		retry:   &api.RetryConfig{MaxAttempts: 2, InitialWait: 500 * time.Millisecond, MaxWait: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// NewYahooClient builds the api.Client used by NewYahoo.
func NewYahooClient(baseURL string, timeout time.Duration) *api.Client {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	opts := []api.ClientOption{api.WithBaseURL(strings.TrimRight(baseURL, "/")), api.WithTimeout(timeout)}
	for k, v := range api.YahooFinanceHeaders() {
		opts = append(opts, api.WithHeader(k, v))
	}
	return api.NewClient(opts...)
}

// History returns daily bars for the period, oldest first. Bars without a close are skipped.
func (y *Yahoo) History(ctx context.Context, symbol string, period types.Period) ([]types.Bar, error) {
	symbol = types.NormalizeSymbol(symbol)
	key := cache.Key("yahoo", "history", symbol, string(period))
	return cache.GetOrFetch(ctx, y.cache, key, y.ttl, func(ctx context.Context) ([]types.Bar, error) {
		path := fmt.Sprintf("/v8/finance/chart/%s?range=%s&interval=1d", url.PathEscape(symbol), period)
		var resp chartResponse
		if err := y.get(ctx, "chart", symbol, path, &resp); err != nil {
			return nil, err
		}
		bars := resp.bars()
		if len(bars) == 0 {
			return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
		}
		return bars, nil
	})
}

// Info returns company metadata and fundamentals from quoteSummary.
func (y *Yahoo) Info(ctx context.Context, symbol string) (types.CompanyInfo, error) {
	symbol = types.NormalizeSymbol(symbol)
	key := cache.Key("yahoo", "info", symbol)
	return cache.GetOrFetch(ctx, y.cache, key, y.ttl, func(ctx context.Context) (types.CompanyInfo, error) {
		path := fmt.Sprintf("/v10/finance/quoteSummary/%s?modules=%s", url.PathEscape(symbol), quoteSummaryModules)
		var resp quoteSummaryResponse
		if err := y.get(ctx, "quoteSummary", symbol, path, &resp); err != nil {
			return types.CompanyInfo{}, err
		}
		if len(resp.QuoteSummary.Result) == 0 {
			return types.CompanyInfo{}, fmt.Errorf("quoteSummary %s: %w", symbol, ErrNoData)
		}
		return resp.QuoteSummary.Result[0].info(symbol), nil
	})
}

// MostActive returns the symbols of Yahoo's most-active screener.
func (y *Yahoo) MostActive(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		count = 25
	}
	key := cache.Key("yahoo", "most_actives", fmt.Sprint(count))
	return cache.GetOrFetch(ctx, y.cache, key, y.ttl, func(ctx context.Context) ([]string, error) {
		path := fmt.Sprintf("/v1/finance/screener/predefined/saved?scrIds=most_actives&count=%d", count)
		var resp screenerResponse
		if err := y.get(ctx, "screener", "most_actives", path, &resp); err != nil {
			return nil, err
		}
		var out []string
		for _, r := range resp.Finance.Result {
			for _, q := range r.Quotes {
				out = append(out, q.Symbol)
			}
		}
		out = types.DedupeSymbols(out)
		if len(out) == 0 {
			return nil, fmt.Errorf("screener most_actives: %w", ErrNoData)
		}
		return out, nil
	})
}

func (y *Yahoo) get(ctx context.Context, endpoint, symbol, path string, v any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	req := api.NewRequest("GET", path).WithContext(ctx)
	var (
		resp *api.Response
		err  error
	)
	if y.retry != nil {
		resp, err = y.client.DoWithRetry(req, y.retry)
	} else {
		resp, err = y.client.Do(req)
	}
	if err != nil {
		apiErr := &APIError{Endpoint: endpoint, Symbol: symbol, Err: err}
		var se *api.StatusError
		if errors.As(err, &se) {
			apiErr.StatusCode = se.StatusCode
		}
		return apiErr
	}
	if err := resp.ParseJSON(v); err != nil {
		return &APIError{Endpoint: endpoint, Symbol: symbol, Err: err}
	}
	return nil
}

const quoteSummaryModules = "price,summaryProfile,summaryDetail,defaultKeyStatistics,financialData,calendarEvents"

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (r chartResponse) bars() []types.Bar {
	if len(r.Chart.Result) == 0 || len(r.Chart.Result[0].Indicators.Quote) == 0 {
		return nil
	}
	result := r.Chart.Result[0]
	q := result.Indicators.Quote[0]

	at := func(vals []*float64, i int) float64 {
		if i < len(vals) && vals[i] != nil {
			return *vals[i]
		}
		return 0
	}

	bars := make([]types.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil || *q.Close[i] == 0 {
			continue
		}
		bars = append(bars, types.Bar{
			Ts:    ts,
			Open:  at(q.Open, i),
			High:  at(q.High, i),
			Low:   at(q.Low, i),
			Close: *q.Close[i],
			Vol:   at(q.Volume, i),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Ts < bars[j].Ts })
	return bars
}

// rawValue is Yahoo's {"raw": 1.2, "fmt": "1.20"} wrapper. Missing values decode as nil.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	Price struct {
		LongName           string   `json:"longName"`
		ShortName          string   `json:"shortName"`
		RegularMarketPrice rawValue `json:"regularMarketPrice"`
		MarketCap          rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryProfile struct {
		Sector string `json:"sector"`
	} `json:"summaryProfile"`
	SummaryDetail struct {
		TrailingPE rawValue `json:"trailingPE"`
		MarketCap  rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PEGRatio                rawValue `json:"pegRatio"`
		PriceToBook             rawValue `json:"priceToBook"`
		EarningsQuarterlyGrowth rawValue `json:"earningsQuarterlyGrowth"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		CurrentPrice      rawValue `json:"currentPrice"`
		TargetMeanPrice   rawValue `json:"targetMeanPrice"`
		RecommendationKey string   `json:"recommendationKey"`
		DebtToEquity      rawValue `json:"debtToEquity"`
		ReturnOnEquity    rawValue `json:"returnOnEquity"`
		ProfitMargins     rawValue `json:"profitMargins"`
		RevenueGrowth     rawValue `json:"revenueGrowth"`
		EarningsGrowth    rawValue `json:"earningsGrowth"`
	} `json:"financialData"`
	CalendarEvents struct {
		Earnings struct {
			EarningsDate []rawValue `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
}

func (r quoteSummaryResult) info(symbol string) types.CompanyInfo {
	info := types.CompanyInfo{
		Symbol:            symbol,
		LongName:          r.Price.LongName,
		Sector:            r.SummaryProfile.Sector,
		TrailingPE:        r.SummaryDetail.TrailingPE.Raw,
		PEGRatio:          r.DefaultKeyStatistics.PEGRatio.Raw,
		PriceToBook:       r.DefaultKeyStatistics.PriceToBook.Raw,
		QuarterlyGrowth:   r.DefaultKeyStatistics.EarningsQuarterlyGrowth.Raw,
		DebtToEquity:      percentToRatio(r.FinancialData.DebtToEquity.Raw),
		ReturnOnEquity:    r.FinancialData.ReturnOnEquity.Raw,
		ProfitMargins:     r.FinancialData.ProfitMargins.Raw,
		RevenueGrowth:     r.FinancialData.RevenueGrowth.Raw,
		EarningsGrowth:    r.FinancialData.EarningsGrowth.Raw,
		TargetMeanPrice:   r.FinancialData.TargetMeanPrice.Raw,
		RecommendationKey: strings.ToLower(r.FinancialData.RecommendationKey),
	}
	if info.LongName == "" {
		info.LongName = r.Price.ShortName
	}

	info.MarketCap = firstValue(r.Price.MarketCap, r.SummaryDetail.MarketCap)
	info.CurrentPrice = firstValue(r.FinancialData.CurrentPrice, r.Price.RegularMarketPrice)

	if dates := r.CalendarEvents.Earnings.EarningsDate; len(dates) > 0 && dates[0].Raw != nil {
		t := time.Unix(int64(*dates[0].Raw), 0).UTC()
		info.EarningsDate = &t
	}
	return info
}

// percentToRatio converts Yahoo's percent-quoted debtToEquity (150 means 1.5x) to a ratio.
func percentToRatio(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return types.Float(*v / 100)
}

func firstValue(vals ...rawValue) float64 {
	for _, v := range vals {
		if v.Raw != nil && *v.Raw != 0 {
			return *v.Raw
		}
	}
	return 0
}

type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}
