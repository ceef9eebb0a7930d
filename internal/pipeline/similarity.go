package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
)

// CosineSimilarity returns the cosine of the angle between a and b. Empty
// vectors, a length mismatch, zero magnitude or a non-finite result give 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}

	return math.Max(-1, math.Min(1, score))
}

// jobEmbeddingText is the text the job embedding is computed from. The
// boolean is false when skills, responsibilities and experience are all empty.
func jobEmbeddingText(summary store.JobSummary) (string, bool) {
	skills := joinNonBlank(summary.RequiredSkills)
	responsibilities := joinNonBlank(summary.Responsibilities)
	experience := strings.TrimSpace(summary.ExperienceYears)

	text := fmt.Sprintf("Required Skills: %s. Responsibilities: %s. Experience: %s", skills, responsibilities, experience)
	return text, skills != "" || responsibilities != "" || !isPlaceholder(experience)
}

// candidateEmbeddingText is the profile counterpart of jobEmbeddingText.
func candidateEmbeddingText(profile *store.Profile) (string, bool) {
	if profile == nil {
		return "", false
	}

	skills := joinNonBlank(profile.Skills)
	experience := strings.TrimSpace(profile.ExperienceSummary)

	text := fmt.Sprintf("Skills: %s. Experience Summary: %s", skills, experience)
	return text, skills != "" || !isPlaceholder(experience)
}

func joinNonBlank(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

func isPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, notAvailable) || strings.EqualFold(s, notSpecified)
}
