// Package gemini implements the model gateway on top of the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/logger"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

const (
	providerName          = "gemini"
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultMaxLogLength   = 200
	defaultRetryDelay     = 2 * time.Second
)

// modelsAPI is the subset of *genai.Models the generator needs.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

type Options struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	MaxLogLength   int
	Limiter        *ai.Limiter
}

// Generator wraps the Google GenAI client to serve completions and embeddings.
type Generator struct {
	models         modelsAPI
	model          string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
	maxLogLen      int
	limiter        *ai.Limiter
	logger         *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, log), nil
}

func newGenerator(models modelsAPI, opts Options, log *zap.Logger) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	embeddingModel := strings.TrimSpace(opts.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Generator{
		models:         models,
		model:          model,
		embeddingModel: embeddingModel,
		maxRetries:     opts.MaxRetries,
		retryDelay:     defaultRetryDelay,
		maxLogLen:      opts.MaxLogLength,
		limiter:        opts.Limiter,
		logger:         logger.WithCommonFields(log, providerName, model),
	}
}

// Ping resolves the configured model, which fails fast on a bad key or network.
func (g *Generator) Ping(ctx context.Context) error {
	if _, err := g.models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("failed to reach gemini model %s: %w", g.model, err)
	}
	g.logger.Info("connected to gemini")
	return nil
}

func (g *Generator) Complete(ctx context.Context, prompt string, jsonFormat bool) ai.Completion {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ai.Unavailable(errors.New("prompt must not be empty"))
	}

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.1)}
	if jsonFormat {
		config.ResponseMIMEType = "application/json"
	}

	g.logger.Debug("gemini generate content request",
		zap.Bool("json_format", jsonFormat),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	var resp *genai.GenerateContentResponse
	err := ai.Retry(ctx, g.maxRetries, g.retryDelay, isTemporary, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		return err
	})
	if err != nil {
		g.logger.Error("gemini generate content failed", zap.Error(err))
		return ai.Unavailable(fmt.Errorf("generate content: %w", err))
	}

	raw := responseText(resp)
	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	completion := ai.Normalize(raw, jsonFormat)
	if completion.Kind == ai.KindMalformed {
		g.logger.Error("failed to parse json response from gemini", zap.Error(completion.Err))
	}
	return completion
}

func (g *Generator) Embed(ctx context.Context, text string) []float64 {
	var resp *genai.EmbedContentResponse
	err := ai.Retry(ctx, g.maxRetries, g.retryDelay, isTemporary, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = g.models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), nil)
		return err
	})
	if err != nil {
		g.logger.Error("gemini embed content failed", zap.String("embedding_model", g.embeddingModel), zap.Error(err))
		return nil
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		g.logger.Warn("gemini returned an empty embedding", zap.String("embedding_model", g.embeddingModel))
		return nil
	}

	values := resp.Embeddings[0].Values
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	return vector
}

func responseText(resp *genai.GenerateContentResponse) string {
	// Only the first candidate is an answer; joining several would turn one
	// JSON object into unparseable text.
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return strings.TrimSpace(builder.String())
}

// isTemporary retries server-side failures. Quota errors are not retried.
func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	return ai.IsTemporaryNetError(err)
}
