package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	assert.Equal(t, "gpt-4o-mini", cfg.Ai.LLMModel)
	assert.Equal(t, 400, cfg.Ai.CoachingMaxTokens)
	assert.Equal(t, 5000, cfg.Ai.ReviewMaxTokens)
	assert.Equal(t, 6, cfg.Ai.CoachingWindowTurns)
	assert.Equal(t, 10, cfg.Ai.ReviewWindowTurns)
	assert.Equal(t, []string{"review", "assess", "grade", "evaluate", "score", "feedback", "rubric"}, cfg.Ai.ReviewKeywords)
	assert.Equal(t, 10, cfg.Chat.ConversationsPerPage)
	assert.Equal(t, "Europe/London", cfg.App.Timezone)
	assert.Equal(t, 60*time.Second, cfg.Ai.Timeout)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REVIEW_KEYWORDS", " critique, , mark ")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("CONVERSATIONS_PER_PAGE", "not-a-number")
	t.Setenv("CHAT_RATE_LIMIT_RPS", "0.5")

	cfg := Load()

	assert.Equal(t, []string{"critique", "mark"}, cfg.Ai.ReviewKeywords)
	assert.Equal(t, 15*time.Second, cfg.Ai.Timeout)
	assert.Equal(t, 10, cfg.Chat.ConversationsPerPage)
	assert.Equal(t, 0.5, cfg.Chat.RateLimitRPS)
}
