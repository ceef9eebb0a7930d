// Package store persists job postings, candidates and the audit log in
// PostgreSQL. Embeddings are kept in pgvector columns.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("not found")

const candidateColumns = `id, job_posting_id, name, email, phone, resume_path, profile,
	match_score, status, interview_at, notes, created_at, updated_at`

// Postgres is the candidate store. It holds a single connection and every
// statement commits on its own.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, makes sure the vector extension exists and
// verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	if err := ensureVectorExtension(ctx, databaseURL); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConns = 1
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// The vector type must exist before pgvector types can be registered on a connection.
func ensureVectorExtension(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Migrate creates the tables when they do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) InsertJobPosting(ctx context.Context, posting NewJobPosting) (int64, error) {
	summary, err := json.Marshal(posting.Summary)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job summary: %w", err)
	}

	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO job_postings (source_label, raw_text, summary)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		posting.SourceLabel, posting.RawText, summary,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job posting: %w", err)
	}
	return id, nil
}

func (p *Postgres) JobPosting(ctx context.Context, id int64) (*JobPosting, error) {
	var (
		posting JobPosting
		summary []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, source_label, raw_text, summary, created_at FROM job_postings WHERE id = $1`,
		id,
	).Scan(&posting.ID, &posting.SourceLabel, &posting.RawText, &summary, &posting.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job posting %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job posting: %w", err)
	}

	if err := json.Unmarshal(summary, &posting.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode job summary: %w", err)
	}
	return &posting, nil
}

// UpsertCandidate inserts a candidate or updates the row with the same
// (job posting, email). Only non-nil fields overwrite stored values.
func (p *Postgres) UpsertCandidate(ctx context.Context, c CandidateUpsert) (int64, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return 0, errors.New("candidate email is required")
	}

	profile, err := encodeProfile(c.Profile)
	if err != nil {
		return 0, err
	}

	var status *string
	if c.Status != nil {
		if !c.Status.Valid() {
			return 0, fmt.Errorf("invalid candidate status %q", *c.Status)
		}
		s := string(*c.Status)
		status = &s
	}

	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO candidates (job_posting_id, name, email, phone, resume_path, profile, match_score, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::text, 'parsed'), $9)
		 ON CONFLICT (job_posting_id, email) DO UPDATE SET
		     name = EXCLUDED.name,
		     resume_path = EXCLUDED.resume_path,
		     phone = COALESCE(EXCLUDED.phone, candidates.phone),
		     profile = COALESCE(EXCLUDED.profile, candidates.profile),
		     match_score = COALESCE(EXCLUDED.match_score, candidates.match_score),
		     status = COALESCE($8::text, candidates.status),
		     notes = COALESCE(EXCLUDED.notes, candidates.notes),
		     updated_at = NOW()
		 RETURNING id`,
		c.JobPostingID, c.Name, email, c.Phone, c.ResumePath, profile, c.MatchScore, status, c.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert candidate: %w", err)
	}
	return id, nil
}

func (p *Postgres) UpdateCandidateScore(ctx context.Context, id int64, score float64, status Status) error {
	return p.exec(ctx, "update candidate score",
		`UPDATE candidates SET match_score = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		score, string(status), id,
	)
}

// UpdateCandidateStatus sets the status and, when interviewAt is not nil, the interview time.
func (p *Postgres) UpdateCandidateStatus(ctx context.Context, id int64, status Status, interviewAt *time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid candidate status %q", status)
	}
	return p.exec(ctx, "update candidate status",
		`UPDATE candidates
		 SET status = $1, interview_at = COALESCE($2, interview_at), updated_at = NOW()
		 WHERE id = $3`,
		string(status), interviewAt, id,
	)
}

func (p *Postgres) UpdateJobEmbedding(ctx context.Context, id int64, embedding []float64) error {
	return p.exec(ctx, "update job embedding",
		`UPDATE job_postings SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(toFloat32(embedding)), id,
	)
}

func (p *Postgres) UpdateCandidateEmbedding(ctx context.Context, id int64, embedding []float64) error {
	return p.exec(ctx, "update candidate embedding",
		`UPDATE candidates SET embedding = $1, updated_at = NOW() WHERE id = $2`,
		pgvector.NewVector(toFloat32(embedding)), id,
	)
}

func (p *Postgres) CandidatesByStatus(ctx context.Context, jobID int64, status Status) ([]Candidate, error) {
	return p.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE job_posting_id = $1 AND status = $2
		 ORDER BY id`,
		jobID, string(status),
	)
}

// CandidatesForJob returns every candidate of the job, best score first.
func (p *Postgres) CandidatesForJob(ctx context.Context, jobID int64) ([]Candidate, error) {
	return p.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE job_posting_id = $1
		 ORDER BY match_score DESC NULLS LAST, id`,
		jobID,
	)
}

func (p *Postgres) AddLog(ctx context.Context, entry LogEntry) error {
	var runID any
	if entry.RunID != uuid.Nil {
		runID = entry.RunID
	}
	return p.exec(ctx, "add log",
		`INSERT INTO logs (run_id, component, level, message) VALUES ($1, $2, $3, $4)`,
		runID, entry.Component, string(entry.Level), entry.Message,
	)
}

// Logs returns the audit entries of a run in insertion order.
func (p *Postgres) Logs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT run_id, component, level, message, created_at FROM logs WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry LogEntry
			level string
		)
		if err := rows.Scan(&entry.RunID, &entry.Component, &level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entry.Level = Level(level)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (p *Postgres) exec(ctx context.Context, action, sql string, args ...any) error {
	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return nil
}

func (p *Postgres) queryCandidates(ctx context.Context, sql string, args ...any) ([]Candidate, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	return candidates, nil
}

func scanCandidate(row pgx.Row) (Candidate, error) {
	var (
		c       Candidate
		profile []byte
		status  string
	)
	err := row.Scan(&c.ID, &c.JobPostingID, &c.Name, &c.Email, &c.Phone, &c.ResumePath, &profile,
		&c.MatchScore, &status, &c.InterviewAt, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, fmt.Errorf("failed to scan candidate: %w", err)
	}
	c.Status = Status(status)

	if c.Profile, err = decodeProfile(profile); err != nil {
		return c, err
	}
	return c, nil
}

func encodeProfile(profile *Profile) ([]byte, error) {
	if profile == nil {
		return nil, nil
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidate profile: %w", err)
	}
	return data, nil
}

func decodeProfile(data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode candidate profile: %w", err)
	}
	return &profile, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
