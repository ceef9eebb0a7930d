package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, 1, cfg.LLM.MaxRetries)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3:latest", cfg.Ollama.Model)
	assert.Equal(t, "nomic-embed-text:latest", cfg.Ollama.EmbeddingModel)
	assert.Equal(t, "data/job_descriptions.csv", cfg.Input.JobDescriptionCSV)
	assert.Equal(t, "data/CVs", cfg.Input.ResumesDir)
	assert.InDelta(t, 0.75, cfg.Shortlist.Threshold, 1e-9)
	assert.False(t, cfg.SMTP.Enabled)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Server)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "logs/app.log", cfg.Log.File)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SHORTLIST_THRESHOLD", "0.8")
	t.Setenv("RESUMES_DIR", "/srv/cvs")
	t.Setenv("OLLAMA_LLM_MODEL", "mistral:7b")
	t.Setenv("ENABLE_EMAIL_SENDING", "true")
	t.Setenv("SMTP_USERNAME", "hr@example.com")
	t.Setenv("SMTP_PASSWORD", "app-password")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.InDelta(t, 0.8, cfg.Shortlist.Threshold, 1e-9)
	assert.Equal(t, "/srv/cvs", cfg.Input.ResumesDir)
	assert.Equal(t, "mistral:7b", cfg.Ollama.Model)
	assert.True(t, cfg.SMTP.Enabled)
	assert.Equal(t, "hr@example.com", cfg.SMTP.SenderAddress())
	assert.Equal(t, "WARNING", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "threshold above one", env: map[string]string{"SHORTLIST_THRESHOLD": "1.5"}},
		{name: "unknown provider", env: map[string]string{"LLM_PROVIDER": "openai"}},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "TRACE"}},
		{name: "email enabled without password", env: map[string]string{
			"ENABLE_EMAIL_SENDING": "true",
			"SMTP_USERNAME":        "hr@example.com",
		}},
		{name: "email enabled without username", env: map[string]string{
			"ENABLE_EMAIL_SENDING": "true",
			"SMTP_PASSWORD":        "secret",
		}},
		{name: "gemini without key", env: map[string]string{"LLM_PROVIDER": "gemini"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(viper.New())
			require.Error(t, err)
		})
	}
}

func TestSenderAddressPrefersExplicitSender(t *testing.T) {
	smtp := SMTPConfig{Username: "login@example.com", Sender: " jobs@example.com "}
	assert.Equal(t, "jobs@example.com", smtp.SenderAddress())
}
