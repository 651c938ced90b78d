package news

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stock-recommender/internal/api"
	"stock-recommender/internal/types"
)

const DefaultFinnhubBaseURL = "https://finnhub.io"

// Finnhub reads the general market news feed.
type Finnhub struct {
	client *api.Client
	token  string
}

// NewFinnhub creates a Finnhub source. baseURL may be empty.
func NewFinnhub(token, baseURL string, timeout time.Duration) *Finnhub {
	if baseURL == "" {
		baseURL = DefaultFinnhubBaseURL
	}
	return &Finnhub{
		client: api.NewClient(api.WithBaseURL(baseURL), api.WithTimeout(timeout)),
		token:  token,
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

type finnhubItem struct {
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// Fetch returns the newest general news items.
func (f *Finnhub) Fetch(ctx context.Context, limit int) ([]types.Article, error) {
	resp, err := f.client.GET(ctx, "/api/v1/news?category=general", api.FinnhubHeaders(f.token))
	if err != nil {
		return nil, fmt.Errorf("finnhub news: %w", err)
	}

	var items []finnhubItem
	if err := resp.ParseJSON(&items); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Datetime > items[j].Datetime })

	out := make([]types.Article, 0, len(items))
	for _, it := range items {
		if len(out) >= limit {
			break
		}
		if it.Headline == "" {
			continue
		}
		out = append(out, types.Article{
			Title:     it.Headline,
			Summary:   it.Summary,
			Link:      it.URL,
			Source:    it.Source,
			Timestamp: time.Unix(it.Datetime, 0).UTC(),
		})
	}
	return out, nil
}
