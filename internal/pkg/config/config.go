// Package config holds the immutable runtime settings of the report,
// points and moderation services. It is loaded once at startup and
// passed to constructors; nothing reads it through a global.
package config

import (
	"strings"
	"time"

	"github.com/ManuelReschke/TazaQala/internal/pkg/env"
)

const (
	ModerationBackendHeuristic = "heuristic"
	ModerationBackendVision    = "vision"
)

// Points are the ledger amounts credited or debited by lifecycle transitions.
type Points struct {
	ConfirmedReport    int
	WithGPSComment     int
	CleanedReportBonus int
	CleanupReward      int
	FakePenalty        int
}

// Moderation configures the gateway and its classification thresholds.
type Moderation struct {
	Backend              string
	AutoConfirmThreshold float64
	RejectThreshold      float64
	Timeout              time.Duration
	VisionEndpoint       string
	VisionModel          string
	VisionAPIKey         string
}

type Config struct {
	Points        Points
	Moderation    Moderation
	UploadDir     string
	FraudKeywords []string
	// StatsTTL bounds how long cached statistics are served.
	StatsTTL time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Points: Points{
			ConfirmedReport:    10,
			WithGPSComment:     5,
			CleanedReportBonus: 20,
			CleanupReward:      20,
			FakePenalty:        -10,
		},
		Moderation: Moderation{
			Backend:              ModerationBackendHeuristic,
			AutoConfirmThreshold: 0.85,
			RejectThreshold:      0.50,
			Timeout:              15 * time.Second,
			VisionEndpoint:       "https://api.openai.com/v1/chat/completions",
			VisionModel:          "gpt-4o-mini",
		},
		UploadDir:     "uploads",
		FraudKeywords: []string{"fake", "фейк", "spam", "спам"},
		StatsTTL:      5 * time.Minute,
	}
}

// Load overlays environment variables on top of Default.
func Load() Config {
	c := Default()

	c.Points.ConfirmedReport = env.GetEnvInt("POINTS_CONFIRMED_REPORT", c.Points.ConfirmedReport)
	c.Points.WithGPSComment = env.GetEnvInt("POINTS_WITH_GPS_COMMENT", c.Points.WithGPSComment)
	c.Points.CleanedReportBonus = env.GetEnvInt("POINTS_CLEANED_REPORT", c.Points.CleanedReportBonus)
	c.Points.CleanupReward = env.GetEnvInt("POINTS_CLEANUP_REWARD", c.Points.CleanupReward)
	c.Points.FakePenalty = env.GetEnvInt("POINTS_FAKE_PENALTY", c.Points.FakePenalty)

	c.Moderation.Backend = strings.ToLower(env.GetEnv("MODERATION_BACKEND", c.Moderation.Backend))
	c.Moderation.AutoConfirmThreshold = env.GetEnvFloat("AI_AUTO_CONFIRM_THRESHOLD", c.Moderation.AutoConfirmThreshold)
	c.Moderation.RejectThreshold = env.GetEnvFloat("AI_REJECT_THRESHOLD", c.Moderation.RejectThreshold)
	c.Moderation.Timeout = env.GetEnvDuration("AI_TIMEOUT", c.Moderation.Timeout)
	c.Moderation.VisionEndpoint = env.GetEnv("AI_VISION_ENDPOINT", c.Moderation.VisionEndpoint)
	c.Moderation.VisionModel = env.GetEnv("AI_VISION_MODEL", c.Moderation.VisionModel)
	c.Moderation.VisionAPIKey = env.GetEnv("OPENAI_API_KEY", "")

	c.UploadDir = env.GetEnv("UPLOAD_DIR", c.UploadDir)
	c.FraudKeywords = env.GetEnvList("FRAUD_KEYWORDS", c.FraudKeywords)
	c.StatsTTL = env.GetEnvDuration("STATS_CACHE_TTL", c.StatsTTL)

	// A vision backend without credentials cannot answer; fall back.
	if c.Moderation.Backend == ModerationBackendVision && c.Moderation.VisionAPIKey == "" {
		c.Moderation.Backend = ModerationBackendHeuristic
	}
	return c
}

// IsFraudComment reports whether a moderator comment marks the report as fake.
func (c Config) IsFraudComment(comment string) bool {
	lower := strings.ToLower(comment)
	for _, kw := range c.FraudKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
