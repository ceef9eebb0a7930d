package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/jobsource"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

//go:embed prompts/job_summary.md
var jobPromptTemplate string

var ErrSummaryUnavailable = errors.New("job description could not be summarized")

// Summarizer turns a raw job description into a stored job posting.
type Summarizer struct {
	gateway   ai.Gateway
	store     Store
	trail     *audit.Trail
	maxLogLen int
}

func NewSummarizer(gateway ai.Gateway, st Store, trail *audit.Trail, maxLogLength int) *Summarizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Summarizer{gateway: gateway, store: st, trail: trail, maxLogLen: maxLogLength}
}

// Summarize extracts the structured summary and inserts the posting. A model
// or store failure is returned as an error since nothing downstream can run
// without a posting id.
func (s *Summarizer) Summarize(ctx context.Context, posting *jobsource.Posting) (int64, store.JobSummary, error) {
	if posting == nil || strings.TrimSpace(posting.Text) == "" {
		return 0, store.JobSummary{}, errors.New("job description text is required")
	}

	prompt := strings.ReplaceAll(jobPromptTemplate, "{{JOB_DESCRIPTION}}", posting.Text)
	s.trail.Logger().Info("summarizing job description",
		zap.String("source", posting.SourceLabel),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)
	s.trail.Logger().Debug("job summary prompt", zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)))

	completion := s.gateway.Complete(ctx, prompt, true)
	switch completion.Kind {
	case ai.KindParsed:
	case ai.KindMalformed:
		s.trail.Error(ctx, fmt.Sprintf("Failed to parse JD summary JSON: %s", utils.Prefix(completion.Raw, s.maxLogLen)),
			zap.Error(completion.Err),
		)
		return 0, store.JobSummary{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, completion.Err)
	case ai.KindUnavailable:
		s.trail.Error(ctx, "Model unavailable while summarizing the job description", zap.Error(completion.Err))
		return 0, store.JobSummary{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, completion.Err)
	default:
		s.trail.Error(ctx, fmt.Sprintf("Unexpected JD summary format: %s", utils.Prefix(completion.Raw, s.maxLogLen)))
		return 0, store.JobSummary{}, fmt.Errorf("%w: unexpected %s output", ErrSummaryUnavailable, completion.Kind)
	}

	summary, err := decodeJobSummary(completion.Object)
	if err != nil {
		s.trail.Error(ctx, "Unexpected JD summary format", zap.Error(err))
		return 0, store.JobSummary{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}

	id, err := s.store.InsertJobPosting(ctx, store.NewJobPosting{
		SourceLabel: posting.SourceLabel,
		RawText:     posting.Text,
		Summary:     summary,
	})
	if err != nil {
		s.trail.Error(ctx, fmt.Sprintf("Failed to save job description from %s", posting.SourceLabel), zap.Error(err))
		return 0, store.JobSummary{}, fmt.Errorf("saving job posting: %w", err)
	}

	s.trail.Info(ctx, fmt.Sprintf("Summarized JD from %s. JD ID: %d", posting.SourceLabel, id),
		zap.Int64("job_id", id),
		zap.String("job_title", summary.JobTitle),
	)
	return id, summary, nil
}

// JobTitle is the title shown in invitations: the summary title, or the
// title column of the source when the model found none.
func JobTitle(summary store.JobSummary, posting *jobsource.Posting) string {
	if !isPlaceholder(summary.JobTitle) {
		return summary.JobTitle
	}
	if posting != nil && strings.TrimSpace(posting.Title) != "" {
		return posting.Title
	}
	return summary.JobTitle
}
