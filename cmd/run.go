package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai/gemini"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai/ollama"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/config"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/extract"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/jobsource"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/logger"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/notify"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/pipeline"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/secrets"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

// provider is a model gateway that can also report reachability.
type provider interface {
	ai.Gateway
	ai.Pinger
}

// runPipeline is the main command for the cli.
func runPipeline(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting the shortlisting agent",
		zap.String("version", version),
		zap.String(logger.FieldProvider, cfg.LLM.Provider),
		zap.Float64("threshold", cfg.Shortlist.Threshold),
	)

	gateway, err := newGateway(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("creating %s client: %w", cfg.LLM.Provider, err)
	}

	// Nothing is processed when the model cannot be reached.
	if err := gateway.Ping(ctx); err != nil {
		log.Error("language model is unreachable", zap.Error(err),
			zap.String("hint", "make sure the model server is running and the configured models are available"),
		)
		return fmt.Errorf("connecting to %s: %w", cfg.LLM.Provider, err)
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	created, err := jobsource.EnsureSample(cfg.Input.JobDescriptionCSV)
	if err != nil {
		return err
	}
	if created {
		log.Warn("job description file not found, a sample was created", zap.String("path", cfg.Input.JobDescriptionCSV))
	}

	created, err = jobsource.EnsureDir(cfg.Input.ResumesDir)
	if err != nil {
		return err
	}
	if created {
		log.Warn("resumes directory not found, an empty one was created", zap.String("path", cfg.Input.ResumesDir))
	}

	posting, err := jobsource.Load(cfg.Input.JobDescriptionCSV)
	if err != nil {
		return fmt.Errorf("loading job description: %w", err)
	}
	log.Info("loaded job description",
		zap.String("title", posting.Title),
		zap.String("encoding", posting.Encoding),
		zap.String("source", posting.SourceLabel),
	)

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	var confirm pipeline.ConfirmFunc
	if cfg.Interview.Confirm {
		confirm = confirmInvitations
	}

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Gateway:   gateway,
		Extractor: extract.New(log.Named("extract")),
		Store:     st,
		Notifier:  notifier,
		Logger:    log,
	}, pipeline.Options{
		ResumesDir:   cfg.Input.ResumesDir,
		Threshold:    &cfg.Shortlist.Threshold,
		MaxLogLength: cfg.LLM.MaxLogLength,
		Confirm:      confirm,
	})
	if err != nil {
		return err
	}

	outcome, err := runner.Run(ctx, posting)
	if err != nil {
		return err
	}

	reportCandidates(log, outcome)
	return nil
}

func newGateway(ctx context.Context, cfg config.Config, log *zap.Logger) (provider, error) {
	limiter := ai.NewLimiter(cfg.LLM.RequestsPerSecond)

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set GEMINI_API_KEY or GEMINI_API_KEY_FILE)", err)
		}

		return gemini.NewGenerator(ctx, gemini.Options{
			APIKey:         apiKey,
			Model:          cfg.Gemini.Model,
			EmbeddingModel: cfg.Gemini.EmbeddingModel,
			MaxRetries:     cfg.LLM.MaxRetries,
			MaxLogLength:   cfg.LLM.MaxLogLength,
			Limiter:        limiter,
		}, log.With(zap.Int("ai_retry_attempts", cfg.LLM.MaxRetries)))
	case config.ProviderOllama:
		return ollama.New(ollama.Options{
			BaseURL:        cfg.Ollama.BaseURL,
			Model:          cfg.Ollama.Model,
			EmbeddingModel: cfg.Ollama.EmbeddingModel,
			MaxRetries:     cfg.LLM.MaxRetries,
			MaxLogLength:   cfg.LLM.MaxLogLength,
			Limiter:        limiter,
		}, log.With(zap.Int("ai_retry_attempts", cfg.LLM.MaxRetries)))
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (*store.Postgres, error) {
	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	log.Debug("database is ready")
	return st, nil
}

// newNotifier sends real mail only when it is enabled, otherwise messages
// are printed to stdout.
func newNotifier(cfg config.Config, log *zap.Logger) (pipeline.Notifier, error) {
	mailLogger := log.Named("notify")
	if !cfg.SMTP.Enabled {
		return notify.NewDryRun(os.Stdout, cfg.SMTP.SenderAddress(), mailLogger), nil
	}

	password, err := secrets.Load(secrets.Source{
		Name:  "smtp password",
		Value: cfg.SMTP.Password,
		File:  cfg.SMTP.PasswordFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set SMTP_PASSWORD or SMTP_PASSWORD_FILE)", err)
	}

	smtp, err := notify.NewSMTP(notify.SMTPOptions{
		Server:   cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: password,
		Sender:   cfg.SMTP.SenderAddress(),
	}, mailLogger)
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

func confirmInvitations(_ context.Context, shortlisted int) (bool, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Send interview invitations to %d shortlisted candidates?", shortlisted),
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, err
	}
	return answer == PromptYes, nil
}

// reportCandidates logs the final status of every candidate of the job.
func reportCandidates(log *zap.Logger, outcome *pipeline.Outcome) {
	log = log.With(
		zap.String(logger.FieldRunID, outcome.RunID.String()),
		zap.Int64("job_id", outcome.JobID),
	)

	logCandidates(log, outcome.Candidates)

	log.Info("pipeline summary",
		zap.String("job_title", strings.TrimSpace(outcome.JobTitle)),
		zap.Int("resumes", outcome.Match.Files),
		zap.Int("matched", outcome.Match.Matched),
		zap.Int("errors", outcome.Match.Errored+outcome.Match.Failed),
		zap.Int("shortlisted", outcome.Shortlist.Shortlisted),
		zap.Int("invited", outcome.Schedule.Invited),
		zap.Int("invitation_failures", outcome.Schedule.Failed),
	)
}

func logCandidates(log *zap.Logger, candidates []store.Candidate) {
	if len(candidates) == 0 {
		log.Info("no candidates were processed for this job")
		return
	}

	for _, c := range candidates {
		fields := []zap.Field{
			zap.Int64("candidate_id", c.ID),
			zap.String("name", c.Name),
			zap.String("email", c.Email),
			zap.String("status", string(c.Status)),
		}
		if c.MatchScore != nil {
			fields = append(fields, zap.String("score", fmt.Sprintf("%.4f", *c.MatchScore)))
		}
		if c.InterviewAt != nil {
			fields = append(fields, zap.Time("interview_at", *c.InterviewAt))
		}
		if c.Notes != nil {
			fields = append(fields, zap.String("notes", *c.Notes))
		}
		log.Info("candidate", fields...)
	}
}
