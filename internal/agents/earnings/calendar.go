package earnings

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stock-recommender/internal/api"
	"stock-recommender/internal/logger"
)

const DefaultCalendarURL = "https://finance.yahoo.com/calendar/earnings"

var tickerToken = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// CalendarScraper pulls candidate tickers out of an earnings calendar page.
// The page layout changes often, so it reads visible text rather than table cells.
type CalendarScraper struct {
	client *api.Client
	url    string
	limit  int
}

// NewCalendarScraper returns a scraper for url that yields at most limit tokens.
func NewCalendarScraper(url string, timeout time.Duration, limit int) *CalendarScraper {
	if url == "" {
		url = DefaultCalendarURL
	}
	if limit <= 0 {
		limit = 50
	}
	return &CalendarScraper{
		client: api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
		url:    url,
		limit:  limit,
	}
}

// Symbols returns distinct uppercase tokens that look like tickers, in page order.
func (c *CalendarScraper) Symbols(ctx context.Context) ([]string, error) {
	resp, err := c.client.GET(ctx, c.url, api.BrowserHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch earnings calendar: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse earnings calendar: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	symbols := TickerTokens(doc.Text(), c.limit)
	logger.Debug(ctx, "Parsed earnings calendar", "url", c.url, "tokens", len(symbols))
	return symbols, nil
}

// TickerTokens returns up to limit distinct 2-5 letter uppercase words from text.
func TickerTokens(text string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tickerToken.FindAllString(text, -1) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) >= limit {
			break
		}
	}
	return out
}
