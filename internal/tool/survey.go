package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterSurveyTools wires the survey_* tools from registry.py's
// FeedbacksGetResponsesTool/FeedbacksGetCsatSummaryTool onto the same
// feedback database pool internal/poller/source.Survey reads from.
func RegisterSurveyTools(r *Registry, pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}

	tools := []*Tool{
		{
			Name:        "survey_get_responses",
			Group:       "survey",
			Description: "Fetch recent survey/complaint responses, optionally filtered by customer email.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_email": map[string]any{"type": "string"},
					"limit":          map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				limit := intArg(args, "limit", 20)
				email := strArg(args, "customer_email")

				var rows interface {
					Next() bool
					Scan(...any) error
					Close()
					Err() error
				}
				var err error
				if email != "" {
					rows, err = pool.Query(ctx, `
						SELECT id, "customerEmail", "customerName", "taskType", "taskStatus", "createdAt"
						FROM "SurveyResponse" WHERE "customerEmail" = $1
						ORDER BY "createdAt" DESC LIMIT $2`, email, limit)
				} else {
					rows, err = pool.Query(ctx, `
						SELECT id, "customerEmail", "customerName", "taskType", "taskStatus", "createdAt"
						FROM "SurveyResponse" ORDER BY "createdAt" DESC LIMIT $1`, limit)
				}
				if err != nil {
					return nil, fmt.Errorf("survey_get_responses: %w", err)
				}
				defer rows.Close()

				var out []map[string]any
				for rows.Next() {
					var id int64
					var custEmail, custName, taskType, taskStatus string
					var createdAt time.Time
					if err := rows.Scan(&id, &custEmail, &custName, &taskType, &taskStatus, &createdAt); err != nil {
						return nil, fmt.Errorf("survey_get_responses: %w", err)
					}
					out = append(out, map[string]any{
						"id": id, "customer_email": custEmail, "customer_name": custName,
						"task_type": taskType, "task_status": taskStatus, "created_at": createdAt,
					})
				}
				return map[string]any{"responses": out}, rows.Err()
			},
		},
		{
			Name:        "survey_get_csat_summary",
			Group:       "survey",
			Description: "Summarize CSAT/review sentiment over the last N hours.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"hours": map[string]any{"type": "integer", "minimum": 1, "maximum": 168},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				hours := intArg(args, "hours", 24)
				since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

				var total, negative int
				var avgStars float64
				err := pool.QueryRow(ctx, `
					SELECT COUNT(*), COALESCE(AVG(stars), 0), COUNT(*) FILTER (WHERE stars <= 2)
					FROM "TrustpilotReview" WHERE "reviewCreatedAt" > $1`, since).
					Scan(&total, &avgStars, &negative)
				if err != nil {
					return nil, fmt.Errorf("survey_get_csat_summary: %w", err)
				}
				return map[string]any{
					"window_hours":    hours,
					"total_reviews":   total,
					"average_stars":   avgStars,
					"negative_count":  negative,
				}, nil
			},
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
