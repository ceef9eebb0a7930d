package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	_ "embed"

	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

const (
	slotOffset = 7 * 24 * time.Hour
	slotHour   = 10
)

//go:embed prompts/invitation.tmpl
var invitationSource string

var invitationTemplate = template.Must(template.New("invitation").Parse(invitationSource))

type invitation struct {
	Name     string
	JobTitle string
	JobID    int64
	Slot     string
}

// Scheduler proposes an interview slot to every shortlisted candidate.
type Scheduler struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	trail    *audit.Trail
}

func NewScheduler(st Store, notifier Notifier, now func() time.Time, trail *audit.Trail) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{store: st, notifier: notifier, now: now, trail: trail}
}

// ProposedSlot is a week after now at 10:00 in now's location.
func ProposedSlot(now time.Time) time.Time {
	day := now.Add(slotOffset)
	return time.Date(day.Year(), day.Month(), day.Day(), slotHour, 0, 0, 0, day.Location())
}

func formatSlot(slot time.Time) string {
	return slot.Format("2006-01-02") + " at 10:00 AM (Your Local Time)"
}

// Schedule sends one invitation per shortlisted candidate. A failed send
// leaves the candidate shortlisted and does not affect the others.
func (s *Scheduler) Schedule(ctx context.Context, jobID int64, jobTitle string) ScheduleReport {
	var report ScheduleReport

	candidates, err := s.store.CandidatesByStatus(ctx, jobID, store.StatusShortlisted)
	if err != nil {
		s.trail.Error(ctx, fmt.Sprintf("Failed to load shortlisted candidates for JD %d", jobID), zap.Error(err))
		return report
	}

	if len(candidates) == 0 {
		s.trail.Info(ctx, fmt.Sprintf("No shortlisted candidates for JD %d to schedule.", jobID))
		return report
	}

	report.Candidates = len(candidates)
	for _, c := range candidates {
		if s.invite(ctx, jobID, jobTitle, c) {
			report.Invited++
		} else {
			report.Failed++
		}
	}

	s.trail.Logger().Info("interview scheduling complete",
		zap.Int64("job_id", jobID),
		zap.Int("invited", report.Invited),
		zap.Int("failed", report.Failed),
	)
	return report
}

func (s *Scheduler) invite(ctx context.Context, jobID int64, jobTitle string, c store.Candidate) bool {
	slot := ProposedSlot(s.now())
	fields := []zap.Field{zap.Int64("candidate_id", c.ID), zap.String("email", c.Email)}

	var body bytes.Buffer
	err := invitationTemplate.Execute(&body, invitation{
		Name:     c.Name,
		JobTitle: jobTitle,
		JobID:    jobID,
		Slot:     formatSlot(slot),
	})
	if err == nil {
		err = s.notifier.Send(ctx, c.Email, "Interview Invitation: "+jobTitle, body.String())
	}
	if err != nil {
		s.trail.Error(ctx,
			fmt.Sprintf("Failed to send email to %s (ID: %d) for JD %d.", c.Name, c.ID, jobID),
			append(fields, zap.Error(err))...,
		)
		return false
	}

	if err := s.store.UpdateCandidateStatus(ctx, c.ID, store.StatusInvited, &slot); err != nil {
		s.trail.Error(ctx,
			fmt.Sprintf("Invitation sent to %s (ID: %d) but status update failed.", c.Name, c.ID),
			append(fields, zap.Error(err))...,
		)
		return false
	}

	s.trail.Info(ctx,
		fmt.Sprintf("Interview invitation sent to %s (ID: %d) for JD %d.", c.Name, c.ID, jobID),
		append(fields, zap.Time("slot", slot))...,
	)
	return true
}
