// Package service runs the recommendation pipeline and shapes its result for callers.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"stock-recommender/internal/agents/synth"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/pipeline"
	"stock-recommender/internal/types"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// MarketContext is the caller-facing market summary.
type MarketContext struct {
	MarketSentiment       string   `json:"market_sentiment"`
	TrendingTopics        []string `json:"trending_topics"`
	VolatilityLevel       string   `json:"volatility_level"`
	TopPerformingSectors  []string `json:"top_performing_sectors"`
	UpcomingEarningsCount int      `json:"upcoming_earnings_count"`
}

// Response is the result of one recommendation run. It is always well formed,
// including when the run failed.
type Response struct {
	Success              bool                   `json:"success"`
	RunID                string                 `json:"run_id"`
	Timestamp            time.Time              `json:"timestamp"`
	ExecutionTimeSeconds float64                `json:"execution_time_seconds"`
	Recommendations      []types.Recommendation `json:"recommendations"`
	MarketContext        MarketContext          `json:"market_context"`
	Methodology          string                 `json:"methodology,omitempty"`
	Disclaimer           string                 `json:"disclaimer,omitempty"`
	AgentStatus          map[string]string      `json:"agent_status,omitempty"`
	Error                string                 `json:"error,omitempty"`
}

// Service owns the two orchestrations used per mode. Construct it once and share it.
type Service struct {
	discovery *pipeline.Orchestrator
	synthesis *pipeline.Orchestrator
	full      *pipeline.Orchestrator
	now       func() time.Time
}

// New wires the discovery stages and the synthesizer. Stage names must be unique.
func New(synthesizer interfaces.Agent, discovery ...interfaces.Agent) (*Service, error) {
	if synthesizer == nil {
		return nil, errors.New("service: synthesizer is required")
	}
	disc, err := pipeline.New(discovery...)
	if err != nil {
		return nil, fmt.Errorf("discovery pipeline: %w", err)
	}
	syn, err := pipeline.New(synthesizer)
	if err != nil {
		return nil, fmt.Errorf("synthesis pipeline: %w", err)
	}
	full, err := pipeline.New(append(append([]interfaces.Agent{}, discovery...), synthesizer)...)
	if err != nil {
		return nil, fmt.Errorf("sequential pipeline: %w", err)
	}
	return &Service{discovery: disc, synthesis: syn, full: full, now: time.Now}, nil
}

// Agents lists every stage in sequential order.
func (s *Service) Agents() []interfaces.Agent {
	return s.full.Agents()
}

// GenerateRecommendations runs the pipeline. In parallel mode the discovery stages run
// concurrently and the synthesizer runs over their merged output; otherwise every
// stage runs in order.
func (s *Service) GenerateRecommendations(ctx context.Context, parallel bool) (resp Response) {
	runID := pipeline.RunID(ctx)
	if runID == "" {
		runID = pipeline.NewRunID()
		ctx = pipeline.WithRunID(ctx, runID)
	}
	mode := "sequential"
	if parallel {
		mode = "parallel"
	}
	start := s.now()
	op := logger.StartOperation(ctx, "generate_recommendations", "mode", mode)
	ctx = op.GetContext()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline panicked: %v", r)
			logger.Error(ctx, "Recommendation pipeline panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			op.EndWithError(err)
			resp = ErrorResponse(runID, start, s.now(), err)
		}
	}()

	var result *types.ExecutionContext
	if parallel {
		merged := s.discovery.RunParallel(ctx, types.NewExecutionContext())
		result = s.synthesis.RunSequential(ctx, merged)
	} else {
		result = s.full.RunSequential(ctx, types.NewExecutionContext())
	}

	if err := ctx.Err(); err != nil {
		op.EndWithError(err)
		return ErrorResponse(runID, start, s.now(), err)
	}

	resp = s.format(runID, start, result)
	op.End("recommendations", len(resp.Recommendations), "failed_agents", len(result.Errors))
	return resp
}

func (s *Service) format(runID string, start time.Time, result *types.ExecutionContext) Response {
	end := s.now()
	resp := Response{
		Success:              true,
		RunID:                runID,
		Timestamp:            end,
		ExecutionTimeSeconds: end.Sub(start).Seconds(),
		Recommendations:      []types.Recommendation{},
		Methodology:          synth.Methodology,
		Disclaimer:           synth.Disclaimer,
		AgentStatus:          make(map[string]string),
	}

	mc := synth.BuildMarketContext(result)
	if r := result.Recommendations; r != nil {
		resp.Recommendations = append(resp.Recommendations, r.Recommendations...)
		mc = r.MarketContext
		if r.Methodology != "" {
			resp.Methodology = r.Methodology
		}
		if r.Disclaimer != "" {
			resp.Disclaimer = r.Disclaimer
		}
	}
	resp.MarketContext = MarketContext{
		MarketSentiment:      mc.MarketSentiment,
		TrendingTopics:       mc.TrendingTopics,
		VolatilityLevel:      mc.VolatilityLevel,
		TopPerformingSectors: mc.TopSectors,
	}
	if result.Earnings != nil {
		resp.MarketContext.UpcomingEarningsCount = len(result.Earnings.UpcomingEarnings)
	}

	for _, a := range s.full.Agents() {
		status := StatusSuccess
		if _, failed := result.Err(a.Name()); failed {
			status = StatusFailed
		}
		resp.AgentStatus[a.Name()] = status
	}
	return resp
}

// ErrorResponse is returned when the pipeline as a whole could not run.
func ErrorResponse(runID string, start, end time.Time, err error) Response {
	return Response{
		Success:              false,
		RunID:                runID,
		Timestamp:            end,
		ExecutionTimeSeconds: end.Sub(start).Seconds(),
		Recommendations:      []types.Recommendation{},
		MarketContext: MarketContext{
			MarketSentiment:      "unknown",
			TrendingTopics:       []string{},
			VolatilityLevel:      "unknown",
			TopPerformingSectors: []string{},
		},
		Error: err.Error(),
	}
}
