package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/ai"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/audit"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// memStore keeps the upsert semantics of the postgres store: name and resume
// path always overwrite, every other field only when it is set.
type memStore struct {
	mu sync.Mutex

	nextJob       int64
	nextCandidate int64

	jobs                map[int64]store.NewJobPosting
	jobEmbeddings       map[int64][]float64
	candidates          map[int64]*store.Candidate
	candidateEmbeddings map[int64][]float64
	logs                []store.LogEntry

	insertErr    error
	upsertErr    map[string]error
	statusErr    map[int64]error
	statusCalls  int
	candidateErr error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:                map[int64]store.NewJobPosting{},
		jobEmbeddings:       map[int64][]float64{},
		candidates:          map[int64]*store.Candidate{},
		candidateEmbeddings: map[int64][]float64{},
		upsertErr:           map[string]error{},
		statusErr:           map[int64]error{},
	}
}

func (m *memStore) InsertJobPosting(_ context.Context, posting store.NewJobPosting) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextJob++
	m.jobs[m.nextJob] = posting
	return m.nextJob, nil
}

func (m *memStore) UpsertCandidate(_ context.Context, c store.CandidateUpsert) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[c.Email]; err != nil {
		return 0, err
	}

	now := time.Now()
	for _, existing := range m.candidates {
		if existing.JobPostingID != c.JobPostingID || existing.Email != c.Email {
			continue
		}
		existing.Name = c.Name
		existing.ResumePath = c.ResumePath
		if c.Phone != nil {
			existing.Phone = c.Phone
		}
		if c.Profile != nil {
			existing.Profile = c.Profile
		}
		if c.MatchScore != nil {
			existing.MatchScore = c.MatchScore
		}
		if c.Status != nil {
			existing.Status = *c.Status
		}
		if c.Notes != nil {
			existing.Notes = c.Notes
		}
		existing.UpdatedAt = now
		return existing.ID, nil
	}

	m.nextCandidate++
	candidate := &store.Candidate{
		ID:           m.nextCandidate,
		JobPostingID: c.JobPostingID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		ResumePath:   c.ResumePath,
		Profile:      c.Profile,
		MatchScore:   c.MatchScore,
		Status:       store.StatusParsed,
		Notes:        c.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Status != nil {
		candidate.Status = *c.Status
	}
	m.candidates[candidate.ID] = candidate
	return candidate.ID, nil
}

func (m *memStore) UpdateCandidateScore(_ context.Context, id int64, score float64, status store.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return store.ErrNotFound
	}
	c.MatchScore = &score
	c.Status = status
	return nil
}

func (m *memStore) UpdateCandidateStatus(_ context.Context, id int64, status store.Status, interviewAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if err := m.statusErr[id]; err != nil {
		return err
	}
	c, ok := m.candidates[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	if interviewAt != nil {
		c.InterviewAt = interviewAt
	}
	return nil
}

func (m *memStore) UpdateJobEmbedding(_ context.Context, id int64, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobEmbeddings[id] = embedding
	return nil
}

func (m *memStore) UpdateCandidateEmbedding(_ context.Context, id int64, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateEmbeddings[id] = embedding
	return nil
}

func (m *memStore) CandidatesByStatus(_ context.Context, jobID int64, status store.Status) ([]store.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.candidateErr != nil {
		return nil, m.candidateErr
	}
	var out []store.Candidate
	for _, c := range m.sorted(jobID) {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CandidatesForJob(_ context.Context, jobID int64) ([]store.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.candidateErr != nil {
		return nil, m.candidateErr
	}
	return m.sorted(jobID), nil
}

func (m *memStore) AddLog(_ context.Context, entry store.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// sorted orders by score descending with unscored rows last, then by id.
func (m *memStore) sorted(jobID int64) []store.Candidate {
	var out []store.Candidate
	for _, c := range m.candidates {
		if c.JobPostingID == jobID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].MatchScore, out[j].MatchScore
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) add(c store.Candidate) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCandidate++
	c.ID = m.nextCandidate
	m.candidates[c.ID] = &c
	return c.ID
}

func (m *memStore) candidate(t *testing.T, id int64) store.Candidate {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		t.Fatalf("candidate %d not found", id)
	}
	return *c
}

func (m *memStore) byEmail(t *testing.T, email string) store.Candidate {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.Email == email {
			return *c
		}
	}
	t.Fatalf("candidate with email %s not found", email)
	return store.Candidate{}
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.candidates)
}

func (m *memStore) logsAt(component string, level store.Level) []store.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.LogEntry
	for _, entry := range m.logs {
		if entry.Component == component && entry.Level == level {
			out = append(out, entry)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

type fakeGateway struct {
	mu            sync.Mutex
	complete      func(prompt string) ai.Completion
	embed         func(text string) []float64
	completeCalls []string
	embedCalls    []string
}

func (g *fakeGateway) Complete(_ context.Context, prompt string, _ bool) ai.Completion {
	g.mu.Lock()
	g.completeCalls = append(g.completeCalls, prompt)
	g.mu.Unlock()
	if g.complete == nil {
		return ai.Unavailable(nil)
	}
	return g.complete(prompt)
}

func (g *fakeGateway) Embed(_ context.Context, text string) []float64 {
	g.mu.Lock()
	g.embedCalls = append(g.embedCalls, text)
	g.mu.Unlock()
	if g.embed == nil {
		return nil
	}
	return g.embed(text)
}

func (g *fakeGateway) embedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.embedCalls)
}

// parsed returns a completion the way a provider reports decoded JSON.
func parsed(object map[string]any) ai.Completion {
	return ai.Completion{Kind: ai.KindParsed, Object: object}
}

// fakeExtractor returns canned text per file name. Only pdf and docx are supported.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeExtractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || ext == ".docx"
}

func (f *fakeExtractor) Extract(path string) (string, error) {
	name := filepath.Base(path)
	if err := f.errs[name]; err != nil {
		return "", err
	}
	text, ok := f.texts[name]
	if !ok {
		return "", errors.New("no text")
	}
	return text, nil
}

type sentMessage struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	fail map[string]error
	sent []sentMessage
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[to]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func newTrail(sink audit.Sink, component string) *audit.Trail {
	return audit.New(sink, uuid.New(), zap.NewNop()).Component(component)
}

// resumeDir creates empty files with the given names in a temporary directory.
func resumeDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
