package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	t.Setenv("TZQ_TEST_KEY", "from-os")
	Env = map[string]string{"TZQ_TEST_KEY": "from-file"}
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("TZQ_TEST_KEY", "def"))
}

func TestGetEnvFallbacks(t *testing.T) {
	Env = nil
	t.Setenv("TZQ_TEST_OS", "os")

	assert.Equal(t, "os", GetEnv("TZQ_TEST_OS", "def"))
	assert.Equal(t, "def", GetEnv("TZQ_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"INT":      "42",
		"BAD_INT":  "x",
		"FLOAT":    "0.75",
		"DURATION": "3s",
		"LIST":     "fake, spam ,,",
	}
	defer func() { Env = nil }()

	assert.Equal(t, 42, GetEnvInt("INT", 1))
	assert.Equal(t, 1, GetEnvInt("BAD_INT", 1))
	assert.Equal(t, 0.75, GetEnvFloat("FLOAT", 0))
	assert.Equal(t, 3*time.Second, GetEnvDuration("DURATION", time.Second))
	assert.Equal(t, []string{"fake", "spam"}, GetEnvList("LIST", nil))
	assert.Equal(t, []string{"d"}, GetEnvList("NOPE", []string{"d"}))
}
