package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/TazaQala/internal/pkg/env"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 10, c.Points.ConfirmedReport)
	assert.Equal(t, 5, c.Points.WithGPSComment)
	assert.Equal(t, 20, c.Points.CleanedReportBonus)
	assert.Equal(t, 20, c.Points.CleanupReward)
	assert.Equal(t, -10, c.Points.FakePenalty)
	assert.Equal(t, 0.85, c.Moderation.AutoConfirmThreshold)
	assert.Equal(t, 0.50, c.Moderation.RejectThreshold)
	assert.Equal(t, ModerationBackendHeuristic, c.Moderation.Backend)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	env.Env = map[string]string{
		"POINTS_CONFIRMED_REPORT": "12",
		"AI_TIMEOUT":              "2s",
		"MODERATION_BACKEND":      "VISION",
		"OPENAI_API_KEY":          "sk-test",
		"FRAUD_KEYWORDS":          "bogus",
	}
	defer func() { env.Env = nil }()

	c := Load()

	assert.Equal(t, 12, c.Points.ConfirmedReport)
	assert.Equal(t, 2*time.Second, c.Moderation.Timeout)
	assert.Equal(t, ModerationBackendVision, c.Moderation.Backend)
	assert.Equal(t, []string{"bogus"}, c.FraudKeywords)
}

func TestLoadVisionWithoutKeyFallsBack(t *testing.T) {
	env.Env = map[string]string{"MODERATION_BACKEND": "vision"}
	t.Setenv("OPENAI_API_KEY", "")
	defer func() { env.Env = nil }()

	c := Load()

	assert.Equal(t, ModerationBackendHeuristic, c.Moderation.Backend)
}

func TestIsFraudComment(t *testing.T) {
	c := Default()

	assert.True(t, c.IsFraudComment("Это ФЕЙК, фото из интернета"))
	assert.True(t, c.IsFraudComment("obvious Fake"))
	assert.False(t, c.IsFraudComment("duplicate of #12"))
	assert.False(t, c.IsFraudComment(""))
}
