package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// ChatVerifier authenticates an inbound Google Chat webhook request,
// matching guards.py's verify_google_chat_token.
type ChatVerifier interface {
	Verify(ctx context.Context, authorizationHeader string) error
}

// NoopChatVerifier accepts every request unverified — the development-mode
// skip the original applies when no audience is configured.
type NoopChatVerifier struct{}

func (NoopChatVerifier) Verify(context.Context, string) error { return nil }

// GoogleChatVerifier validates the bearer JWT Google Chat signs every push
// with, checking it against one of the configured audiences (the webhook's
// own URL, or a Google Cloud project number) — whichever the token
// actually carries, since Google has used either depending on deployment.
type GoogleChatVerifier struct {
	Audiences []string
}

func (v GoogleChatVerifier) Verify(ctx context.Context, authorizationHeader string) error {
	if len(v.Audiences) == 0 {
		return nil
	}
	token, ok := strings.CutPrefix(authorizationHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return fmt.Errorf("webhook: missing bearer token")
	}

	var lastErr error
	for _, aud := range v.Audiences {
		if aud == "" {
			continue
		}
		if _, err := idtoken.Validate(ctx, token, aud); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("webhook: chat token verification failed: %w", lastErr)
}

// TicketingGuard authenticates an inbound ticketing webhook request via a
// shared secret, matching guards.py's verify_freshdesk_webhook.
type TicketingGuard interface {
	Verify(secretParam, secretHeader string) error
}

// NoopTicketingGuard accepts every request unverified.
type NoopTicketingGuard struct{}

func (NoopTicketingGuard) Verify(string, string) error { return nil }

// SharedSecretTicketingGuard compares the request-supplied secret
// (query param, falling back to a header) against the configured secret
// using a constant-time comparison.
type SharedSecretTicketingGuard struct {
	Secret string
}

func (g SharedSecretTicketingGuard) Verify(secretParam, secretHeader string) error {
	if g.Secret == "" {
		return nil
	}
	supplied := secretParam
	if supplied == "" {
		supplied = secretHeader
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(g.Secret)) != 1 {
		return fmt.Errorf("webhook: invalid ticketing webhook secret")
	}
	return nil
}
