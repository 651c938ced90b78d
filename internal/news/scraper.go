package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"stock-recommender/internal/logger"
	"stock-recommender/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Site describes a news listing page and the selectors used to pull headlines from it
type Site struct {
	Name      string
	URL       string
	Selectors ArticleSelectors
}

// ArticleSelectors defines CSS selectors for extracting article data
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	Summary          string
}

// genericSelectors match the story/article/news/headline class naming most finance sites share
var genericSelectors = ArticleSelectors{
	ArticleContainer: classContains([]string{"article", "div"}, []string{"story", "article", "news", "headline"}),
	Title:            "h1, h2, h3, a",
	Summary:          classContains([]string{"p", "div"}, []string{"summary", "excerpt", "description"}),
}

// DefaultSites returns the financial news pages scraped by default
func DefaultSites() []Site {
	return []Site{
		{Name: "yahoo", URL: "https://finance.yahoo.com/news/", Selectors: genericSelectors},
		{Name: "marketwatch", URL: "https://www.marketwatch.com/latest-news", Selectors: genericSelectors},
		{Name: "cnbc", URL: "https://www.cnbc.com/world-markets/", Selectors: genericSelectors},
	}
}

// SitesByName filters DefaultSites by name. An empty list selects all.
func SitesByName(names []string) []Site {
	all := DefaultSites()
	if len(names) == 0 {
		return all
	}
	var out []Site
	for _, s := range all {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), s.Name) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Scraper pulls headlines from one Site
type Scraper struct {
	site    Site
	timeout time.Duration
}

// NewScraper creates a scraper for site
func NewScraper(site Site, timeout time.Duration) *Scraper {
	if site.Selectors.ArticleContainer == "" {
		site.Selectors = genericSelectors
	}
	return &Scraper{site: site, timeout: timeout}
}

func (s *Scraper) Name() string { return s.site.Name }

// Fetch scrapes up to limit articles with a title longer than 10 characters
func (s *Scraper) Fetch(ctx context.Context, limit int) ([]types.Article, error) {
	articles := []types.Article{}
	seen := map[string]bool{}
	now := time.Now()

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.site.URL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnHTML(s.site.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}

		titleSel := e.DOM.Find(s.site.Selectors.Title).First()
		title := collapse(titleSel.Text())
		if len(title) <= 10 || seen[title] {
			return
		}
		seen[title] = true

		articles = append(articles, types.Article{
			Title:     title,
			Summary:   collapse(e.DOM.Find(s.site.Selectors.Summary).First().Text()),
			Link:      absoluteLink(e, titleSel),
			Source:    s.site.URL,
			Timestamp: now,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", s.site.Name, "status", r.StatusCode)
	})

	if err := c.Visit(s.site.URL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.site.URL, err)
	}
	c.Wait()

	logger.Debug(ctx, "Scraped news source", "source", s.site.Name, "articles", len(articles))
	return articles, nil
}

// absoluteLink returns the href of the title element when it is a link, else of the first link inside the container
func absoluteLink(e *colly.HTMLElement, title *goquery.Selection) string {
	href, ok := title.Attr("href")
	if !ok || goquery.NodeName(title) != "a" {
		href, _ = e.DOM.Find("a").First().Attr("href")
	}
	if href == "" {
		return ""
	}
	return e.Request.AbsoluteURL(href)
}

func classContains(tags, words []string) string {
	var parts []string
	for _, t := range tags {
		for _, w := range words {
			parts = append(parts, fmt.Sprintf("%s[class*=%s]", t, w))
		}
	}
	return strings.Join(parts, ", ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
