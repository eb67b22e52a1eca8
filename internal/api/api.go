// Package api implements C12, the external interface surface of spec §6:
// request/response structs for step dispatch, conditional-click, and
// telemetry queries, thin enough that cmd/raengine and any future
// transport can share them verbatim.
package api

import (
	"context"
	"time"

	"github.com/rhealabs/raengine/internal/conditional"
	"github.com/rhealabs/raengine/internal/engine"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

// ExecuteStepRequest is spec §6's ExecuteStep request.
type ExecuteStepRequest struct {
	TabHandle pagedriver.FrameHandle
	PageURL   string
	RunID     string
	Step      types.Step
}

// ExecuteStepResponse is spec §6's ExecuteStep response (Outcome).
type ExecuteStepResponse struct {
	Success      bool
	UsedStrategy types.StrategyKind
	TotalMs      int64
	Err          error
}

// ExecuteStep dispatches req.Step through eng and shapes the result as
// spec §6's Outcome.
func ExecuteStep(ctx context.Context, eng *engine.Engine, req ExecuteStepRequest) ExecuteStepResponse {
	res := eng.ExecuteStep(ctx, req.RunID, req.PageURL, req.Step)
	return ExecuteStepResponse{
		Success:      res.Err == nil,
		UsedStrategy: res.Strategy,
		TotalMs:      res.DurationMs,
		Err:          res.Err,
	}
}

// WaitAndClickRequest is spec §6's WaitAndClick request, with the
// documented defaults applied by NewWaitAndClickRequest.
type WaitAndClickRequest struct {
	TabHandle        pagedriver.FrameHandle
	Labels           []string
	SuccessLabel     string
	TimeoutMs        int
	PollMs           int
	MaxClicks        int
	ConfidenceMin    float64
	PostClickDelayMs int
}

// NewWaitAndClickRequest applies spec §6's documented defaults
// (timeout_ms=120000, poll_ms=500, confidence_min=0.7,
// post_click_delay_ms=500) to any zero-valued fields.
func NewWaitAndClickRequest(labels []string) WaitAndClickRequest {
	return WaitAndClickRequest{
		Labels:           labels,
		TimeoutMs:        120_000,
		PollMs:           500,
		ConfidenceMin:    0.7,
		PostClickDelayMs: 500,
	}
}

// WaitAndClickResponse is spec §6's WaitAndClick response.
type WaitAndClickResponse struct {
	Outcome conditional.State
	Clicks  int
}

// WaitAndClick drives the Conditional Click Engine for req against frame.
func WaitAndClick(ctx context.Context, eng *engine.Engine, runID, stepID string, frame pagedriver.FrameHandle, req WaitAndClickRequest) WaitAndClickResponse {
	cfg := types.ConditionalConfig{
		Labels:           req.Labels,
		SuccessLabel:     req.SuccessLabel,
		TimeoutMs:        req.TimeoutMs,
		PollMs:           req.PollMs,
		MaxClicks:        req.MaxClicks,
		ConfidenceMin:    req.ConfidenceMin,
		PostClickDelayMs: req.PostClickDelayMs,
	}
	out := conditional.Run(ctx, eng.Clock, eng.Driver, eng.OCR, eng.Recorder, runID, stepID, frame, cfg)
	return WaitAndClickResponse{Outcome: out.FinalState, Clicks: out.Clicks}
}

// TimeRange narrows a GetAnalytics query to [Start, End].
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// GetAnalyticsRequest is spec §6's GetAnalytics request.
type GetAnalyticsRequest struct {
	Range *TimeRange
}

// GetAnalyticsResponse is spec §6's GetAnalytics response.
type GetAnalyticsResponse struct {
	StrategyMetrics map[types.StrategyKind]telemetry.StrategyStats
	RecentRuns      []RunSummary
}

// RunSummary is spec §6's RunSummary: one row of recent_runs.
type RunSummary struct {
	RunID          string
	StepsTotal     int
	StepsSucceeded int
	StepsFailed    int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// GetAnalytics runs telemetry.Analyze over rec within req.Range and
// shapes the result as spec §6's GetAnalytics response.
func GetAnalytics(ctx context.Context, rec *telemetry.Recorder, req GetAnalyticsRequest) (GetAnalyticsResponse, error) {
	f := telemetry.Filter{}
	if req.Range != nil {
		since := req.Range.Start.UnixMilli()
		until := req.Range.End.UnixMilli()
		f.Since = &since
		f.Until = &until
	}
	report, err := telemetry.Analyze(ctx, rec, f)
	if err != nil {
		return GetAnalyticsResponse{}, err
	}
	byStrategy := make(map[types.StrategyKind]telemetry.StrategyStats, len(report.ByStrategy))
	for _, s := range report.ByStrategy {
		byStrategy[s.Strategy] = s
	}
	return GetAnalyticsResponse{StrategyMetrics: byStrategy}, nil
}
