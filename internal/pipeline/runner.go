package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/jobsource"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// ConfirmFunc is asked before invitations go out. Returning false skips
// scheduling for this run.
type ConfirmFunc func(ctx context.Context, shortlisted int) (bool, error)

// Deps are the collaborators every stage of a run shares.
type Deps struct {
	Gateway   ai.Gateway
	Extractor TextExtractor
	Store     Store
	Notifier  Notifier
	Logger    *zap.Logger
}

// Options tune a run. The zero value is usable apart from ResumesDir.
type Options struct {
	ResumesDir string
	// Threshold defaults to DefaultThreshold when nil. Zero is a valid
	// threshold that shortlists every scored candidate.
	Threshold    *float64
	MaxLogLength int
	Confirm      ConfirmFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is everything a single run produced.
type Outcome struct {
	RunID      uuid.UUID
	JobID      int64
	JobTitle   string
	Summary    store.JobSummary
	Match      MatchReport
	Shortlist  ShortlistReport
	Schedule   ScheduleReport
	Confirmed  bool
	Candidates []store.Candidate
}

// Runner drives one job posting through every stage, sequentially.
type Runner struct {
	deps Deps
	opts Options
}

func NewRunner(deps Deps, opts Options) (*Runner, error) {
	switch {
	case deps.Gateway == nil:
		return nil, errors.New("gateway is required")
	case deps.Extractor == nil:
		return nil, errors.New("text extractor is required")
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v is outside [0, 1]", threshold)
	}
	opts.Threshold = &threshold
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{deps: deps, opts: opts}, nil
}

// Run processes posting end to end. Only a failure to summarize or store the
// posting is returned as an error; every later failure is isolated to the
// candidate it concerns and shows up in the audit log instead.
func (r *Runner) Run(ctx context.Context, posting *jobsource.Posting) (*Outcome, error) {
	if posting == nil {
		return nil, errors.New("job posting is required")
	}

	recorder := audit.New(r.deps.Store, uuid.New(), r.deps.Logger)
	trail := recorder.Component(ComponentPipeline)
	outcome := &Outcome{RunID: recorder.RunID()}

	trail.Info(ctx, fmt.Sprintf("Pipeline started for %s", posting.SourceLabel))

	summarizer := NewSummarizer(r.deps.Gateway, r.deps.Store, recorder.Component(ComponentSummarizer), r.opts.MaxLogLength)
	jobID, summary, err := summarizer.Summarize(ctx, posting)
	if err != nil {
		trail.Error(ctx, "Failed to summarize JD. Exiting.", zap.Error(err))
		return outcome, fmt.Errorf("summarizing job description: %w", err)
	}

	outcome.JobID = jobID
	outcome.Summary = summary
	outcome.JobTitle = JobTitle(summary, posting)

	matchTrail := recorder.Component(ComponentMatcher)
	profiles := NewProfileExtractor(r.deps.Gateway, matchTrail, r.opts.MaxLogLength)
	matcher := NewMatcher(r.deps.Gateway, r.deps.Extractor, profiles, r.deps.Store, r.opts.ResumesDir, matchTrail)
	outcome.Match = matcher.Match(ctx, jobID, summary)

	shortlister := NewShortlister(r.deps.Store, *r.opts.Threshold, recorder.Component(ComponentShortlist))
	outcome.Shortlist = shortlister.Shortlist(ctx, jobID)

	outcome.Confirmed, err = r.confirm(ctx, jobID)
	if err != nil {
		trail.Warn(ctx, "Invitation confirmation failed, skipping scheduling", zap.Error(err))
	}

	if outcome.Confirmed {
		scheduler := NewScheduler(r.deps.Store, r.deps.Notifier, r.opts.Now, recorder.Component(ComponentScheduler))
		outcome.Schedule = scheduler.Schedule(ctx, jobID, outcome.JobTitle)
	} else if err == nil {
		trail.Info(ctx, fmt.Sprintf("Invitations for JD %d were not confirmed, skipping scheduling.", jobID))
	}

	candidates, err := r.deps.Store.CandidatesForJob(ctx, jobID)
	if err != nil {
		trail.Error(ctx, fmt.Sprintf("Failed to load final candidate list for JD %d", jobID), zap.Error(err))
	}
	outcome.Candidates = candidates

	trail.Info(ctx, fmt.Sprintf("Pipeline finished for JD %d", jobID),
		zap.Int("matched", outcome.Match.Matched),
		zap.Int("shortlisted", outcome.Shortlist.Shortlisted),
		zap.Int("invited", outcome.Schedule.Invited),
	)
	return outcome, nil
}

// confirm only asks when there is somebody to invite. Candidates left
// shortlisted by an earlier run are counted too.
func (r *Runner) confirm(ctx context.Context, jobID int64) (bool, error) {
	if r.opts.Confirm == nil {
		return true, nil
	}

	pending, err := r.deps.Store.CandidatesByStatus(ctx, jobID, store.StatusShortlisted)
	if err != nil {
		return false, fmt.Errorf("loading shortlisted candidates: %w", err)
	}
	if len(pending) == 0 {
		return true, nil
	}

	return r.opts.Confirm(ctx, len(pending))
}
