// Package pipeline runs a job posting through summarization, resume matching,
// shortlisting and interview scheduling.
package pipeline

import (
	"context"
	"time"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// Component names recorded with every audit entry.
const (
	ComponentSummarizer = "JDSummarizer"
	ComponentMatcher    = "ResumeMatcher"
	ComponentShortlist  = "Shortlister"
	ComponentScheduler  = "InterviewScheduler"
	ComponentPipeline   = "MainPipeline"
)

// DefaultThreshold is the inclusive score a matched candidate needs to be shortlisted.
const DefaultThreshold = 0.75

// Store is the persistence the pipeline stages need. *store.Postgres satisfies it.
type Store interface {
	InsertJobPosting(ctx context.Context, posting store.NewJobPosting) (int64, error)
	UpsertCandidate(ctx context.Context, c store.CandidateUpsert) (int64, error)
	UpdateCandidateScore(ctx context.Context, id int64, score float64, status store.Status) error
	UpdateCandidateStatus(ctx context.Context, id int64, status store.Status, interviewAt *time.Time) error
	UpdateJobEmbedding(ctx context.Context, id int64, embedding []float64) error
	UpdateCandidateEmbedding(ctx context.Context, id int64, embedding []float64) error
	CandidatesByStatus(ctx context.Context, jobID int64, status store.Status) ([]store.Candidate, error)
	CandidatesForJob(ctx context.Context, jobID int64) ([]store.Candidate, error)
	AddLog(ctx context.Context, entry store.LogEntry) error
}

// TextExtractor turns a resume file into plain text.
type TextExtractor interface {
	Supports(path string) bool
	Extract(path string) (string, error)
}

// Notifier delivers a plain text message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MatchReport counts what happened to the files of the resume directory.
type MatchReport struct {
	Aborted bool
	Files   int
	Skipped int
	Errored int
	Failed  int
	Matched int
}

// ShortlistReport counts matched candidates by what the threshold did to them.
type ShortlistReport struct {
	Evaluated   int
	Shortlisted int
	Below       int
	Unscored    int
	Failed      int
}

// ScheduleReport counts the invitations attempted for shortlisted candidates.
type ScheduleReport struct {
	Candidates int
	Invited    int
	Failed     int
}
