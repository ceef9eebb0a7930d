// Package ollama implements the model gateway on top of a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/logger"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

const (
	providerName        = "ollama"
	defaultMaxLogLength = 200
	retryDelay          = time.Second
)

// ollamaAPI is the subset of *api.Client the gateway needs.
type ollamaAPI interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
	Embeddings(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
	Heartbeat(ctx context.Context) error
}

type Options struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	MaxLogLength   int
	Limiter        *ai.Limiter
}

// Client talks to Ollama's generate and embeddings endpoints.
type Client struct {
	api            ollamaAPI
	baseURL        string
	model          string
	embeddingModel string
	maxRetries     int
	maxLogLen      int
	limiter        *ai.Limiter
	logger         *zap.Logger
}

func New(opts Options, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama base url %q", opts.BaseURL)
	}

	return newClient(api.NewClient(u, http.DefaultClient), u.String(), opts, log), nil
}

func newClient(client ollamaAPI, baseURL string, opts Options, log *zap.Logger) *Client {
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &Client{
		api:            client,
		baseURL:        baseURL,
		model:          opts.Model,
		embeddingModel: opts.EmbeddingModel,
		maxRetries:     opts.MaxRetries,
		maxLogLen:      opts.MaxLogLength,
		limiter:        opts.Limiter,
		logger:         logger.WithCommonFields(log, providerName, opts.Model),
	}
}

// Ping checks that the server answers before any processing starts.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("failed to connect to ollama at %s, ensure ollama is running: %w", c.baseURL, err)
	}
	c.logger.Info("connected to ollama", zap.String("base_url", c.baseURL))
	return nil
}

func (c *Client) Complete(ctx context.Context, prompt string, jsonFormat bool) ai.Completion {
	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
	}
	if jsonFormat {
		req.Format = json.RawMessage(`"json"`)
	}

	c.logger.Debug("ollama generate request",
		zap.Bool("json_format", jsonFormat),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	var builder strings.Builder
	err := ai.Retry(ctx, c.maxRetries, retryDelay, isTemporary, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		builder.Reset()
		return c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
			builder.WriteString(resp.Response)
			return nil
		})
	})
	if err != nil {
		c.logger.Error("ollama generate request failed", zap.Error(err))
		return ai.Unavailable(fmt.Errorf("generate: %w", err))
	}

	raw := builder.String()
	c.logger.Debug("ollama generate response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	completion := ai.Normalize(raw, jsonFormat)
	if completion.Kind == ai.KindMalformed {
		c.logger.Error("failed to parse json response from ollama",
			zap.Error(completion.Err),
			zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
		)
	}
	return completion
}

func (c *Client) Embed(ctx context.Context, text string) []float64 {
	c.logger.Debug("ollama embedding request",
		zap.String("embedding_model", c.embeddingModel),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	var resp *api.EmbeddingResponse
	err := ai.Retry(ctx, c.maxRetries, retryDelay, isTemporary, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = c.api.Embeddings(ctx, &api.EmbeddingRequest{Model: c.embeddingModel, Prompt: text})
		return err
	})
	if err != nil {
		c.logger.Error("ollama embedding request failed", zap.Error(err))
		return nil
	}
	if resp == nil || len(resp.Embedding) == 0 {
		c.logger.Warn("ollama returned an empty embedding", zap.String("embedding_model", c.embeddingModel))
		return nil
	}

	return resp.Embedding
}

func isTemporary(err error) bool {
	var status api.StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= http.StatusInternalServerError
	}
	return ai.IsTemporaryNetError(err)
}
