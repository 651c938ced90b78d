package types

import "sort"

// Namespace identifies the slot of ExecutionContext a stage writes to.
type Namespace string

const (
	NamespaceWebSearch       Namespace = "web_search_results"
	NamespaceMarket          Namespace = "market_analysis"
	NamespaceEarnings        Namespace = "earnings_analysis"
	NamespaceRecommendations Namespace = "stock_recommendations"
)

// ExecutionContext is the state threaded through or merged across stages in one run.
// A nil namespace means the stage did not run or failed; that is not an error.
type ExecutionContext struct {
	WebSearch       *WebSearchResults     `json:"web_search_results,omitempty"`
	Market          *MarketAnalysis       `json:"market_analysis,omitempty"`
	Earnings        *EarningsAnalysis     `json:"earnings_analysis,omitempty"`
	Recommendations *StockRecommendations `json:"stock_recommendations,omitempty"`
	Errors          map[string]string     `json:"errors,omitempty"`
}

// NewExecutionContext returns an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{Errors: map[string]string{}}
}

// ErrorKey returns the error entry key for the named stage.
func ErrorKey(name string) string {
	return name + "_error"
}

// Clone returns a private copy. Namespace values are shared and must be treated as read-only.
func (c *ExecutionContext) Clone() *ExecutionContext {
	if c == nil {
		return NewExecutionContext()
	}
	out := *c
	out.Errors = make(map[string]string, len(c.Errors))
	for k, v := range c.Errors {
		out.Errors[k] = v
	}
	return &out
}

// Merge copies every populated namespace and error entry of partial into c.
// Merging is additive; on collision the partial wins.
func (c *ExecutionContext) Merge(partial *ExecutionContext) {
	if partial == nil {
		return
	}
	if partial.WebSearch != nil {
		c.WebSearch = partial.WebSearch
	}
	if partial.Market != nil {
		c.Market = partial.Market
	}
	if partial.Earnings != nil {
		c.Earnings = partial.Earnings
	}
	if partial.Recommendations != nil {
		c.Recommendations = partial.Recommendations
	}
	if len(partial.Errors) > 0 && c.Errors == nil {
		c.Errors = make(map[string]string, len(partial.Errors))
	}
	for k, v := range partial.Errors {
		c.Errors[k] = v
	}
}

// SetError records a stage failure under "<name>_error".
func (c *ExecutionContext) SetError(name string, err error) {
	if c.Errors == nil {
		c.Errors = map[string]string{}
	}
	c.Errors[ErrorKey(name)] = err.Error()
}

// Err returns the recorded failure message for the named stage.
func (c *ExecutionContext) Err(name string) (string, bool) {
	msg, ok := c.Errors[ErrorKey(name)]
	return msg, ok
}

// Has reports whether the namespace is populated.
func (c *ExecutionContext) Has(ns Namespace) bool {
	switch ns {
	case NamespaceWebSearch:
		return c.WebSearch != nil
	case NamespaceMarket:
		return c.Market != nil
	case NamespaceEarnings:
		return c.Earnings != nil
	case NamespaceRecommendations:
		return c.Recommendations != nil
	}
	return false
}

// Namespaces lists the populated namespaces in sorted order.
func (c *ExecutionContext) Namespaces() []Namespace {
	var out []Namespace
	for _, ns := range AllNamespaces() {
		if c.Has(ns) {
			out = append(out, ns)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Only returns a copy of c holding just the given namespace and no errors.
func (c *ExecutionContext) Only(ns Namespace) *ExecutionContext {
	out := NewExecutionContext()
	switch ns {
	case NamespaceWebSearch:
		out.WebSearch = c.WebSearch
	case NamespaceMarket:
		out.Market = c.Market
	case NamespaceEarnings:
		out.Earnings = c.Earnings
	case NamespaceRecommendations:
		out.Recommendations = c.Recommendations
	}
	return out
}

// AllNamespaces returns every known namespace.
func AllNamespaces() []Namespace {
	return []Namespace{
		NamespaceWebSearch,
		NamespaceMarket,
		NamespaceEarnings,
		NamespaceRecommendations,
	}
}
