package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	cfg.applyEnv() // picks up nothing in a clean test environment, but exercises the path
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, 8080, cfg.Webhook.Port)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
}

func TestBuildCredentialCheckerUngatedGroupAlwaysAvailable(t *testing.T) {
	cfg := Defaults()
	checker := cfg.BuildCredentialChecker()
	assert.True(t, checker("memory"))
	assert.True(t, checker("admin"))
}

func TestBuildCredentialCheckerGatesOnMissingCredential(t *testing.T) {
	cfg := Defaults()
	checker := cfg.BuildCredentialChecker()
	assert.False(t, checker("mail")) // no google_refresh_token configured

	cfg.Google.RefreshToken = "token"
	checker = cfg.BuildCredentialChecker()
	assert.True(t, checker("mail"))
}

func TestBuildCredentialCheckerRequiresAllListedCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Ticketing.APIKey = "key"
	checker := cfg.BuildCredentialChecker()
	assert.True(t, checker("ticketing"))

	cfg.Ticketing.APIKey = ""
	checker = cfg.BuildCredentialChecker()
	assert.False(t, checker("ticketing"))
}
