package store

import (
	"time"

	"github.com/google/uuid"
)

// Status is the position of a candidate in the pipeline.
type Status string

const (
	StatusParsed      Status = "parsed"
	StatusSummarized  Status = "summarized"
	StatusMatched     Status = "matched"
	StatusShortlisted Status = "shortlisted"
	StatusInvited     Status = "invited"
	StatusRejected    Status = "rejected"
	StatusError       Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusParsed, StatusSummarized, StatusMatched, StatusShortlisted, StatusInvited, StatusRejected, StatusError:
		return true
	}
	return false
}

// Level is the severity stored with an audit entry.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// JobSummary is the structured form of a job description.
type JobSummary struct {
	JobTitle               string   `json:"job_title" mapstructure:"job_title"`
	RequiredSkills         []string `json:"required_skills" mapstructure:"required_skills"`
	ExperienceYears        string   `json:"experience_years" mapstructure:"experience_years"`
	EducationLevel         string   `json:"education_level" mapstructure:"education_level"`
	Responsibilities       []string `json:"responsibilities" mapstructure:"responsibilities"`
	CompanyCultureKeywords []string `json:"company_culture_keywords" mapstructure:"company_culture_keywords"`
	Location               string   `json:"location" mapstructure:"location"`
}

type JobPosting struct {
	ID          int64
	SourceLabel string
	RawText     string
	Summary     JobSummary
	CreatedAt   time.Time
}

// NewJobPosting carries the fields of a posting before it has an id.
type NewJobPosting struct {
	SourceLabel string
	RawText     string
	Summary     JobSummary
}

// Profile is the structured form of a resume.
type Profile struct {
	CandidateName     string   `json:"candidate_name" mapstructure:"candidate_name"`
	Email             string   `json:"email" mapstructure:"email"`
	Phone             *string  `json:"phone" mapstructure:"phone"`
	Skills            []string `json:"skills" mapstructure:"skills"`
	ExperienceSummary string   `json:"experience_summary" mapstructure:"experience_summary"`
	Education         []string `json:"education" mapstructure:"education"`
	Projects          []string `json:"projects" mapstructure:"projects"`
}

type Candidate struct {
	ID           int64
	JobPostingID int64
	Name         string
	Email        string
	Phone        *string
	ResumePath   string
	Profile      *Profile
	MatchScore   *float64
	Status       Status
	InterviewAt  *time.Time
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CandidateUpsert describes an insert-or-update keyed by (JobPostingID, Email).
// Nil fields leave the stored value untouched on update.
type CandidateUpsert struct {
	JobPostingID int64
	Name         string
	Email        string
	ResumePath   string
	Phone        *string
	Profile      *Profile
	MatchScore   *float64
	Status       *Status
	Notes        *string
}

type LogEntry struct {
	RunID     uuid.UUID
	Component string
	Level     Level
	Message   string
	CreatedAt time.Time
}
