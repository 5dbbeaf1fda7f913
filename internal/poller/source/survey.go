package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
)

// Survey polls an external feedback/reviews database for new complaint
// survey responses and low-star reviews, grounded on feedbacks_poller.py.
// It reads from its own pool rather than the primary Store's, since the
// original explicitly talks to a separate "feedbacks" Postgres instance.
type Survey struct {
	pool *pgxpool.Pool
}

// NewSurvey constructs a Survey poller around an existing pool. Returns nil
// if pool is nil (feedback DB integration disabled).
func NewSurvey(pool *pgxpool.Pool) *Survey {
	if pool == nil {
		return nil
	}
	return &Survey{pool: pool}
}

// Name identifies this source for dedup key namespacing.
func (s *Survey) Name() string { return "feedbacks" }

// Poll checks new complaints, low-star reviews, and review-volume spikes.
func (s *Survey) Poll(ctx context.Context) ([]poller.Candidate, error) {
	var out []poller.Candidate

	complaints, err := s.pollComplaints(ctx)
	if err != nil {
		return out, fmt.Errorf("polling complaints: %w", err)
	}
	out = append(out, complaints...)

	reviews, err := s.pollReviews(ctx)
	if err != nil {
		return out, fmt.Errorf("polling reviews: %w", err)
	}
	out = append(out, reviews...)

	spike, err := s.checkSpike(ctx)
	if err != nil {
		return out, fmt.Errorf("checking review spike: %w", err)
	}
	if spike != nil {
		out = append(out, *spike)
	}
	return out, nil
}

func (s *Survey) pollComplaints(ctx context.Context) ([]poller.Candidate, error) {
	since := time.Now().UTC().Add(-15 * time.Minute)
	rows, err := s.pool.Query(ctx, `
		SELECT id, "customerEmail", "customerName", "countryCode", "freshdeskTicketId"
		FROM "SurveyResponse"
		WHERE "taskType" = 'complaint' AND "taskStatus" = 'new' AND "createdAt" > $1
		ORDER BY "createdAt" DESC LIMIT 50`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []poller.Candidate
	for rows.Next() {
		var id int64
		var email, name, country string
		var ticketID *int64
		if err := rows.Scan(&id, &email, &name, &country, &ticketID); err != nil {
			return nil, err
		}
		ev := model.NewEvent(model.SourceSurvey, "new_complaint", model.PriorityHigh, map[string]any{
			"response_id":         id,
			"customer_email":      email,
			"customer_name":       name,
			"country_code":        country,
			"freshdesk_ticket_id": ticketID,
		})
		dedupKey := fmt.Sprintf("complaint:%d", id)
		ev.IdempotencyKey = "feedbacks:" + dedupKey
		out = append(out, poller.Candidate{Event: ev, DedupKey: dedupKey})
	}
	return out, rows.Err()
}

func (s *Survey) pollReviews(ctx context.Context) ([]poller.Candidate, error) {
	since := time.Now().UTC().Add(-15 * time.Minute)
	rows, err := s.pool.Query(ctx, `
		SELECT id, "trustpilotId", title, stars, "reviewerName", "reviewerCountry", "isDefendable"
		FROM "TrustpilotReview"
		WHERE stars <= 2 AND "taskStatus" = 'new' AND "reviewCreatedAt" > $1
		ORDER BY "reviewCreatedAt" DESC LIMIT 50`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []poller.Candidate
	for rows.Next() {
		var id, trustpilotID int64
		var title, reviewerName, reviewerCountry string
		var stars int
		var defendable bool
		if err := rows.Scan(&id, &trustpilotID, &title, &stars, &reviewerName, &reviewerCountry, &defendable); err != nil {
			return nil, err
		}
		ev := model.NewEvent(model.SourceSurvey, "trustpilot_review", model.PriorityHigh, map[string]any{
			"review_id":        id,
			"trustpilot_id":    trustpilotID,
			"title":            title,
			"stars":            stars,
			"reviewer_name":    reviewerName,
			"reviewer_country": reviewerCountry,
			"is_defendable":    defendable,
		})
		dedupKey := fmt.Sprintf("trustpilot:%d", id)
		ev.IdempotencyKey = "feedbacks:" + dedupKey
		out = append(out, poller.Candidate{Event: ev, DedupKey: dedupKey})
	}
	return out, rows.Err()
}

func (s *Survey) checkSpike(ctx context.Context) (*poller.Candidate, error) {
	oneHourAgo := time.Now().UTC().Add(-1 * time.Hour)
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM "TrustpilotReview" WHERE stars <= 2 AND "reviewCreatedAt" > $1`,
		oneHourAgo).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count < 3 {
		return nil, nil
	}

	ev := model.NewEvent(model.SourceSurvey, "trustpilot_spike", model.PriorityCritical, map[string]any{
		"negative_review_count": count,
		"window":                "1 hour",
		"message":               fmt.Sprintf("%d negative reviews in the last hour", count),
	})
	dedupKey := "trustpilot_spike:" + oneHourAgo.Format("2006010215")
	ev.IdempotencyKey = "feedbacks:" + dedupKey
	return &poller.Candidate{Event: ev, DedupKey: dedupKey}, nil
}
