package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai/ollama"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/config"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/notify"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/secrets"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		LLM:    config.LLMConfig{Provider: config.ProviderOllama, MaxRetries: 1},
		Ollama: config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		SMTP:   config.SMTPConfig{Server: "smtp.example.com", Port: 587, Username: "hr@example.com"},
	}
}

func TestNewGatewayOllama(t *testing.T) {
	gateway, err := newGateway(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, gateway)
}

func TestNewGatewayGeminiWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = config.ProviderGemini

	_, err := newGateway(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, secrets.ErrNotConfigured)
}

func TestNewGatewayUnsupported(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "openai"

	_, err := newGateway(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported llm provider")
}

func TestNewNotifierDisabledPrints(t *testing.T) {
	n, err := newNotifier(testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notify.DryRun{}, n)
}

func TestNewNotifierEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SMTP.Enabled = true

	_, err := newNotifier(cfg, zap.NewNop())
	assert.ErrorIs(t, err, secrets.ErrNotConfigured)

	passwordFile := filepath.Join(t.TempDir(), "smtp-password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cret\n"), 0o600))
	cfg.SMTP.PasswordFile = passwordFile

	n, err := newNotifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notify.SMTP{}, n)
}

func TestLogCandidates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	score := 0.8123
	notes := "Failed to parse resume text from a.pdf"

	logCandidates(zap.New(core), []store.Candidate{
		{ID: 1, Name: "Jane", Email: "jane@example.com", Status: store.StatusInvited, MatchScore: &score},
		{ID: 2, Name: "ErrorParsing_a.pdf", Email: "error_parse_a_2epdf@system.local", Status: store.StatusError, Notes: &notes},
	})

	entries := logs.FilterMessage("candidate").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "0.8123", entries[0].ContextMap()["score"])
	assert.Equal(t, notes, entries[1].ContextMap()["notes"])

	core, logs = observer.New(zapcore.InfoLevel)
	logCandidates(zap.New(core), nil)
	assert.Equal(t, 1, logs.FilterMessage("no candidates were processed for this job").Len())
}
