package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

// PromptTextLimit bounds the number of characters of a document sent to the model.
const PromptTextLimit = 4000

const defaultMaxLogLength = 200

//go:embed prompts/resume_profile.md
var resumePromptTemplate string

// ProfileExtractor turns resume text into a fully populated profile.
type ProfileExtractor struct {
	gateway   ai.Gateway
	trail     *audit.Trail
	maxLogLen int
}

func NewProfileExtractor(gateway ai.Gateway, trail *audit.Trail, maxLogLength int) *ProfileExtractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &ProfileExtractor{gateway: gateway, trail: trail, maxLogLen: maxLogLength}
}

// Extract asks the model for a profile. The boolean is false when the model
// was unavailable or its output could not be used; the caller decides the
// fallback. Failures never propagate as errors.
func (e *ProfileExtractor) Extract(ctx context.Context, text, filename string) (*store.Profile, bool) {
	prompt := buildResumePrompt(text)
	log := e.trail.Logger().With(zap.String("file", filename))

	log.Debug("requesting resume profile",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	completion := e.gateway.Complete(ctx, prompt, true)
	switch completion.Kind {
	case ai.KindParsed:
	case ai.KindUnavailable:
		e.trail.Error(ctx, fmt.Sprintf("Model unavailable while extracting resume %s", filename), zap.Error(completion.Err))
		return nil, false
	case ai.KindMalformed:
		e.trail.Error(ctx,
			fmt.Sprintf("Failed to parse resume JSON: %s - %s", filename, utils.Prefix(completion.Raw, e.maxLogLen)),
			zap.Error(completion.Err),
		)
		return nil, false
	default:
		e.trail.Error(ctx, fmt.Sprintf("Unexpected resume data format: %s - %s", filename, utils.Prefix(completion.Raw, e.maxLogLen)),
			zap.Stringer("kind", completion.Kind),
		)
		return nil, false
	}

	profile, err := decodeProfile(completion.Object, filename)
	if err != nil {
		e.trail.Error(ctx, fmt.Sprintf("Unexpected resume data format: %s", filename), zap.Error(err))
		return nil, false
	}

	log.Debug("resume profile extracted",
		zap.String("candidate", profile.CandidateName),
		zap.Int("skills", len(profile.Skills)),
	)
	return profile, true
}

func buildResumePrompt(text string) string {
	return strings.ReplaceAll(resumePromptTemplate, "{{RESUME_TEXT}}", utils.Prefix(text, PromptTextLimit))
}
