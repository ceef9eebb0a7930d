package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// Shortlister promotes matched candidates whose score reaches the threshold.
// Candidates below it stay matched so they remain open to manual review.
type Shortlister struct {
	store     Store
	threshold float64
	trail     *audit.Trail
}

func NewShortlister(st Store, threshold float64, trail *audit.Trail) *Shortlister {
	return &Shortlister{store: st, threshold: threshold, trail: trail}
}

func (s *Shortlister) Shortlist(ctx context.Context, jobID int64) ShortlistReport {
	var report ShortlistReport
	log := s.trail.Logger().With(zap.Int64("job_id", jobID), zap.Float64("threshold", s.threshold))

	candidates, err := s.store.CandidatesForJob(ctx, jobID)
	if err != nil {
		s.trail.Error(ctx, fmt.Sprintf("Failed to load candidates for JD %d", jobID), zap.Error(err))
		return report
	}

	if len(candidates) == 0 {
		log.Info("no candidates to shortlist")
		return report
	}

	for _, c := range candidates {
		if c.Status != store.StatusMatched {
			log.Debug("skipping candidate", zap.Int64("candidate_id", c.ID), zap.String("status", string(c.Status)))
			continue
		}

		report.Evaluated++
		if c.MatchScore == nil {
			s.trail.Warn(ctx, fmt.Sprintf("Candidate %s (ID: %d) has no match score, skipping.", c.Name, c.ID),
				zap.Int64("candidate_id", c.ID))
			report.Unscored++
			continue
		}

		score := *c.MatchScore
		if score < s.threshold {
			log.Info("candidate not shortlisted",
				zap.Int64("candidate_id", c.ID),
				zap.String("candidate", c.Name),
				zap.Float64("score", score),
			)
			report.Below++
			continue
		}

		if err := s.store.UpdateCandidateStatus(ctx, c.ID, store.StatusShortlisted, nil); err != nil {
			s.trail.Error(ctx, fmt.Sprintf("Failed to shortlist candidate ID %d (%s)", c.ID, c.Name), zap.Error(err))
			report.Failed++
			continue
		}

		s.trail.Info(ctx,
			fmt.Sprintf("Candidate ID %d (%s) shortlisted for JD %d. Score: %.4f", c.ID, c.Name, jobID, score),
			zap.Float64("score", score),
		)
		report.Shortlisted++
	}

	s.trail.Info(ctx, fmt.Sprintf("Shortlisting complete for JD %d. %d candidates met threshold.", jobID, report.Shortlisted),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("below_threshold", report.Below),
	)
	return report
}
