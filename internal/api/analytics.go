package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
)

// modelRatesPerMillionTokens estimates USD cost per 1M input/output tokens
// for each known model, matching routes/admin.py's analytics_daily_costs
// cost_map. Unknown models fall back to the "else" rate the original uses.
var modelRatesPerMillionTokens = map[string][2]float64{
	"gemini-2.0-flash": {0.10, 0.40},
	"gemini-2.5-flash": {0.15, 0.60},
	"gemini-2.5-pro":   {1.25, 10.0},
	"gemini-3-pro":     {1.25, 10.0},
}

var defaultModelRate = [2]float64{3.0, 15.0}

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

func (s *Server) handleDailyCosts(c *gin.Context) {
	days := queryInt(c, "days", 30)
	rows, err := s.store.DailyCosts(c.Request.Context(), days)
	if err != nil {
		s.internalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		rate, ok := modelRatesPerMillionTokens[r.Model]
		if !ok {
			rate = defaultModelRate
		}
		cost := (float64(r.InputTokens)*rate[0] + float64(r.OutputTokens)*rate[1]) / 1_000_000
		out = append(out, gin.H{
			"day":               r.Day,
			"model":             r.Model,
			"calls":             r.Calls,
			"input_tokens":      r.InputTokens,
			"output_tokens":     r.OutputTokens,
			"estimated_cost_usd": roundTo(cost, 4),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleApprovalRate(c *gin.Context) {
	days := queryInt(c, "days", 30)
	ctx := c.Request.Context()

	counts, err := s.store.DraftStatusCountsByDay(ctx, days)
	if err != nil {
		s.internalError(c, err)
		return
	}
	edited, total, err := s.store.DraftEditStats(ctx, days)
	if err != nil {
		s.internalError(c, err)
		return
	}

	byDay := map[string]gin.H{}
	order := []string{}
	for _, row := range counts {
		day, ok := byDay[row.Day]
		if !ok {
			day = gin.H{"day": row.Day, "approved": 0, "rejected": 0, "pending": 0, "sent": 0}
			byDay[row.Day] = day
			order = append(order, row.Day)
		}
		day[row.Status] = row.Count
	}

	daily := make([]gin.H, 0, len(order))
	for _, day := range order {
		daily = append(daily, byDay[day])
	}

	ratio := 0.0
	if total > 0 {
		ratio = roundTo(float64(edited)/float64(total), 3)
	}

	c.JSON(http.StatusOK, gin.H{
		"daily": daily,
		"edit_rate": gin.H{
			"edited": edited,
			"total":  total,
			"ratio":  ratio,
		},
	})
}

func (s *Server) handleResponseTime(c *gin.Context) {
	days := queryInt(c, "days", 30)
	rows, err := s.store.ResponseTimesByDay(c.Request.Context(), days)
	if err != nil {
		s.internalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		var p95 any
		if r.P95LatencyMS != nil {
			p95 = roundTo(*r.P95LatencyMS, 1)
		}
		out = append(out, gin.H{
			"day":            r.Day,
			"system":         r.System,
			"count":          r.Count,
			"avg_latency_ms": roundTo(r.AvgLatencyMS, 1),
			"max_latency_ms": r.MaxLatencyMS,
			"p95_latency_ms": p95,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAnalyticsSummary(c *gin.Context) {
	sum, err := s.store.Summary(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": gin.H{"today": sum.EventsToday, "this_week": sum.EventsThisWeek},
		"drafts": gin.H{"pending": sum.DraftsPending, "sent_this_week": sum.DraftsSentWeek},
		"errors": gin.H{"failed_today": sum.FailedToday, "dlq_unresolved": sum.DLQUnresolved},
		"tokens_today": gin.H{
			"input":  sum.InputTokens,
			"output": sum.OutputTokens,
		},
		"top_event_types": sum.TopEventTypes,
	})
}
