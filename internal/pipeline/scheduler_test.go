package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

var fixedNow = time.Date(2026, time.March, 2, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestProposedSlot(t *testing.T) {
	slot := ProposedSlot(fixedNow)
	assert.Equal(t, time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC), slot)
	assert.Equal(t, "2026-03-09 at 10:00 AM (Your Local Time)", formatSlot(slot))
}

func TestSchedulerInvitesShortlisted(t *testing.T) {
	st := newMemStore()
	jane := st.add(store.Candidate{JobPostingID: 7, Name: "Jane", Email: "jane@x.io", Status: store.StatusShortlisted})
	matched := st.add(store.Candidate{JobPostingID: 7, Name: "Max", Email: "max@x.io", Status: store.StatusMatched})
	notifier := &fakeNotifier{}

	report := NewScheduler(st, notifier, fixedClock, newTrail(st, ComponentScheduler)).
		Schedule(context.Background(), 7, "Python Developer")

	assert.Equal(t, ScheduleReport{Candidates: 1, Invited: 1}, report)
	require.Len(t, notifier.sent, 1)

	msg := notifier.sent[0]
	assert.Equal(t, "jane@x.io", msg.to)
	assert.Equal(t, "Interview Invitation: Python Developer", msg.subject)
	assert.Contains(t, msg.body, "Dear Jane,")
	assert.Contains(t, msg.body, "Python Developer position (Ref JD ID: 7)")
	assert.Contains(t, msg.body, "2026-03-09 at 10:00 AM (Your Local Time)")

	invited := st.candidate(t, jane)
	assert.Equal(t, store.StatusInvited, invited.Status)
	require.NotNil(t, invited.InterviewAt)
	assert.Equal(t, ProposedSlot(fixedNow), *invited.InterviewAt)
	assert.Equal(t, store.StatusMatched, st.candidate(t, matched).Status)

	infos := st.logsAt(ComponentScheduler, store.LevelInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "Interview invitation sent to Jane (ID: 1) for JD 7.", infos[0].Message)
}

func TestSchedulerIsolatesSendFailures(t *testing.T) {
	st := newMemStore()
	first := st.add(store.Candidate{JobPostingID: 1, Name: "A", Email: "a@x.io", Status: store.StatusShortlisted, MatchScore: ptr(0.9)})
	second := st.add(store.Candidate{JobPostingID: 1, Name: "B", Email: "b@x.io", Status: store.StatusShortlisted, MatchScore: ptr(0.8)})
	notifier := &fakeNotifier{fail: map[string]error{"a@x.io": errors.New("mailbox unavailable")}}

	report := NewScheduler(st, notifier, fixedClock, newTrail(st, ComponentScheduler)).
		Schedule(context.Background(), 1, "Engineer")

	assert.Equal(t, ScheduleReport{Candidates: 2, Invited: 1, Failed: 1}, report)

	failed := st.candidate(t, first)
	assert.Equal(t, store.StatusShortlisted, failed.Status)
	assert.Nil(t, failed.InterviewAt)
	assert.Equal(t, store.StatusInvited, st.candidate(t, second).Status)

	errs := st.logsAt(ComponentScheduler, store.LevelError)
	require.Len(t, errs, 1, "exactly one error entry per failed send")
	assert.Equal(t, "Failed to send email to A (ID: 1) for JD 1.", errs[0].Message)
}

func TestSchedulerWithoutShortlisted(t *testing.T) {
	st := newMemStore()
	st.add(store.Candidate{JobPostingID: 1, Name: "A", Email: "a@x.io", Status: store.StatusMatched})
	notifier := &fakeNotifier{}

	report := NewScheduler(st, notifier, fixedClock, newTrail(st, ComponentScheduler)).
		Schedule(context.Background(), 1, "Engineer")

	assert.Equal(t, ScheduleReport{}, report)
	assert.Empty(t, notifier.sent)

	infos := st.logsAt(ComponentScheduler, store.LevelInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "No shortlisted candidates for JD 1 to schedule.", infos[0].Message)
}

func TestSchedulerStatusUpdateFailure(t *testing.T) {
	st := newMemStore()
	id := st.add(store.Candidate{JobPostingID: 1, Name: "A", Email: "a@x.io", Status: store.StatusShortlisted})
	st.statusErr[id] = errors.New("read-only transaction")
	notifier := &fakeNotifier{}

	report := NewScheduler(st, notifier, fixedClock, newTrail(st, ComponentScheduler)).
		Schedule(context.Background(), 1, "Engineer")

	assert.Equal(t, 1, report.Failed)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, store.StatusShortlisted, st.candidate(t, id).Status)
}
