package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

// Matcher scores every resume in a directory against one job posting.
type Matcher struct {
	gateway    ai.Gateway
	extractor  TextExtractor
	profiles   *ProfileExtractor
	store      Store
	resumesDir string
	trail      *audit.Trail
}

func NewMatcher(gateway ai.Gateway, extractor TextExtractor, profiles *ProfileExtractor, st Store, resumesDir string, trail *audit.Trail) *Matcher {
	return &Matcher{
		gateway:    gateway,
		extractor:  extractor,
		profiles:   profiles,
		store:      st,
		resumesDir: resumesDir,
		trail:      trail,
	}
}

// Match processes the resumes one at a time in directory order. A failing
// resume never stops the ones after it; only a missing directory, an empty
// job summary or a failed job embedding abort the whole run.
func (m *Matcher) Match(ctx context.Context, jobID int64, summary store.JobSummary) MatchReport {
	var report MatchReport
	log := m.trail.Logger().With(zap.Int64("job_id", jobID))

	info, err := os.Stat(m.resumesDir)
	if err != nil || !info.IsDir() {
		m.trail.Error(ctx, fmt.Sprintf("Resumes directory not found: %s", m.resumesDir), zap.Error(err))
		report.Aborted = true
		return report
	}

	jobText, ok := jobEmbeddingText(summary)
	if !ok {
		m.trail.Error(ctx, fmt.Sprintf("JD ID %d insufficient summary for embedding.", jobID))
		report.Aborted = true
		return report
	}

	log.Info("generating job embedding", zap.String("text_preview", utils.TruncateForLog(jobText, 100)))
	jobVector := m.gateway.Embed(ctx, jobText)
	if len(jobVector) == 0 {
		m.trail.Error(ctx, fmt.Sprintf("Failed to generate embedding for JD ID: %d", jobID))
		report.Aborted = true
		return report
	}

	if err := m.store.UpdateJobEmbedding(ctx, jobID, jobVector); err != nil {
		log.Warn("failed to store job embedding", zap.Error(err))
	}

	entries, err := os.ReadDir(m.resumesDir)
	if err != nil {
		m.trail.Error(ctx, fmt.Sprintf("Failed to list resumes directory: %s", m.resumesDir), zap.Error(err))
		report.Aborted = true
		return report
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			m.trail.Warn(ctx, "Resume matching interrupted", zap.Error(err))
			break
		}

		if entry.IsDir() || !m.extractor.Supports(entry.Name()) {
			log.Debug("skipping non-resume file", zap.String("file", entry.Name()))
			report.Skipped++
			continue
		}

		report.Files++
		m.processResume(ctx, jobID, jobVector, filepath.Join(m.resumesDir, entry.Name()), &report)
	}

	log.Info("finished processing resumes",
		zap.Int("files", report.Files),
		zap.Int("matched", report.Matched),
		zap.Int("errored", report.Errored),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report
}

func (m *Matcher) processResume(ctx context.Context, jobID int64, jobVector []float64, path string, report *MatchReport) {
	filename := filepath.Base(path)
	local := utils.LocalPart(filename)
	log := m.trail.Logger().With(zap.Int64("job_id", jobID), zap.String("file", filename))

	log.Info("processing resume")

	text, err := m.extractor.Extract(path)
	if err != nil || strings.TrimSpace(text) == "" {
		m.trail.Warn(ctx, fmt.Sprintf("Failed to parse resume: %s", filename), zap.Error(err))
		m.saveFailure(ctx, jobID, path,
			"ErrorParsing_"+filename,
			fmt.Sprintf("error_parse_%s@system.local", local),
			fmt.Sprintf("Failed to parse resume text from %s", filename),
		)
		report.Errored++
		return
	}

	profile, ok := m.profiles.Extract(ctx, text, filename)
	if !ok {
		m.saveFailure(ctx, jobID, path,
			"ErrorExtracting_"+filename,
			fmt.Sprintf("error_extract_%s@system.local", local),
			fmt.Sprintf("Failed to extract structured data from %s", filename),
		)
		report.Errored++
		return
	}

	summarized := store.StatusSummarized
	candidateID, err := m.store.UpsertCandidate(ctx, store.CandidateUpsert{
		JobPostingID: jobID,
		Name:         profile.CandidateName,
		Email:        profile.Email,
		Phone:        profile.Phone,
		ResumePath:   path,
		Profile:      profile,
		Status:       &summarized,
	})
	if err != nil {
		m.trail.Error(ctx, fmt.Sprintf("Failed to add or update candidate %s from %s", profile.CandidateName, filename), zap.Error(err))
		report.Failed++
		return
	}

	score := m.score(ctx, log, candidateID, jobVector, profile)

	if err := m.store.UpdateCandidateScore(ctx, candidateID, score, store.StatusMatched); err != nil {
		m.trail.Error(ctx, fmt.Sprintf("Failed to update score for candidate ID %d", candidateID), zap.Error(err))
		report.Failed++
		return
	}

	m.trail.Info(ctx,
		fmt.Sprintf("Processed resume %s for JD %d. Candidate ID: %d, Score: %.4f", filename, jobID, candidateID, score),
		zap.Int64("candidate_id", candidateID),
		zap.Float64("score", score),
	)
	report.Matched++
}

// score is 0 whenever there is nothing to embed or the embedding fails.
func (m *Matcher) score(ctx context.Context, log *zap.Logger, candidateID int64, jobVector []float64, profile *store.Profile) float64 {
	text, ok := candidateEmbeddingText(profile)
	if !ok {
		log.Warn("insufficient extracted data for embedding, score will be 0")
		return 0
	}

	vector := m.gateway.Embed(ctx, text)
	if len(vector) == 0 {
		log.Warn("failed to generate resume embedding, score will be 0")
		return 0
	}

	if len(vector) != len(jobVector) {
		log.Error("embedding dimensions mismatch",
			zap.Int("job_dimensions", len(jobVector)),
			zap.Int("resume_dimensions", len(vector)),
		)
		return 0
	}

	if err := m.store.UpdateCandidateEmbedding(ctx, candidateID, vector); err != nil {
		log.Warn("failed to store resume embedding", zap.Error(err))
	}

	return CosineSimilarity(jobVector, vector)
}

// saveFailure records an error-status candidate so the file stays diagnosable.
func (m *Matcher) saveFailure(ctx context.Context, jobID int64, path, name, email, notes string) {
	status := store.StatusError
	if _, err := m.store.UpsertCandidate(ctx, store.CandidateUpsert{
		JobPostingID: jobID,
		Name:         name,
		Email:        email,
		ResumePath:   path,
		Status:       &status,
		Notes:        &notes,
	}); err != nil {
		m.trail.Error(ctx, fmt.Sprintf("Failed to record error candidate for %s", filepath.Base(path)), zap.Error(err))
	}
}
