package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/jobsource"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

func testPosting() *jobsource.Posting {
	return &jobsource.Posting{
		Title:       "Backend Engineer",
		Text:        "We need a Python developer to build APIs. 3 years of experience.",
		SourceLabel: "data/job_descriptions.csv (row 0)",
	}
}

func TestSummarizerStoresPosting(t *testing.T) {
	gateway := &fakeGateway{complete: func(prompt string) ai.Completion {
		assert.Contains(t, prompt, "build APIs")
		return parsed(map[string]any{
			"job_title":        "Python Developer",
			"required_skills":  []any{"Python"},
			"responsibilities": []any{"build APIs"},
			"experience_years": "3 years",
		})
	}}
	st := newMemStore()
	summarizer := NewSummarizer(gateway, st, newTrail(st, ComponentSummarizer), 0)

	id, summary, err := summarizer.Summarize(context.Background(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Python Developer", summary.JobTitle)
	assert.Equal(t, "Not specified", summary.Location)
	assert.Equal(t, []string{}, summary.CompanyCultureKeywords)

	stored := st.jobs[id]
	assert.Equal(t, summary, stored.Summary)
	assert.Equal(t, "data/job_descriptions.csv (row 0)", stored.SourceLabel)
	assert.Equal(t, testPosting().Text, stored.RawText)
	assert.Len(t, st.logsAt(ComponentSummarizer, store.LevelInfo), 1)
}

func TestSummarizerFailures(t *testing.T) {
	tests := []struct {
		name       string
		completion ai.Completion
		insertErr  error
	}{
		{name: "unavailable", completion: ai.Unavailable(errors.New("timeout"))},
		{name: "malformed", completion: ai.Completion{Kind: ai.KindMalformed, Raw: "{", Err: errors.New("unexpected end")}},
		{name: "insert fails", completion: parsed(map[string]any{}), insertErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{complete: func(string) ai.Completion { return tt.completion }}
			st := newMemStore()
			st.insertErr = tt.insertErr
			summarizer := NewSummarizer(gateway, st, newTrail(st, ComponentSummarizer), 0)

			_, _, err := summarizer.Summarize(context.Background(), testPosting())
			require.Error(t, err)
			if tt.insertErr == nil {
				assert.ErrorIs(t, err, ErrSummaryUnavailable)
			}
			assert.Empty(t, st.jobs)
			assert.Len(t, st.logsAt(ComponentSummarizer, store.LevelError), 1)
		})
	}
}

func TestSummarizerRejectsEmptyText(t *testing.T) {
	st := newMemStore()
	gateway := &fakeGateway{}
	summarizer := NewSummarizer(gateway, st, newTrail(st, ComponentSummarizer), 0)

	_, _, err := summarizer.Summarize(context.Background(), &jobsource.Posting{Text: "  "})
	require.Error(t, err)
	assert.Empty(t, gateway.completeCalls)
}

func TestJobTitle(t *testing.T) {
	posting := testPosting()

	assert.Equal(t, "Go Engineer", JobTitle(store.JobSummary{JobTitle: "Go Engineer"}, posting))
	assert.Equal(t, "Backend Engineer", JobTitle(store.JobSummary{JobTitle: "Not specified"}, posting))
	assert.Equal(t, "Not specified", JobTitle(store.JobSummary{JobTitle: "Not specified"}, nil))
}
