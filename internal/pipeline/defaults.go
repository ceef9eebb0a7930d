package pipeline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/StackOverflowed512/Shortlisting-Agent/internal/store"
	"github.com/StackOverflowed512/Shortlisting-Agent/internal/utils"
)

const (
	notSpecified = "Not specified"
	notAvailable = "N/A"
	unknownName  = "Unknown"
)

func jobSummaryDefaults() map[string]any {
	return map[string]any{
		"job_title":                notSpecified,
		"required_skills":          []string{},
		"experience_years":         notSpecified,
		"education_level":          notSpecified,
		"responsibilities":         []string{},
		"company_culture_keywords": []string{},
		"location":                 notSpecified,
	}
}

// profileDefaults derives the placeholder email from the file name so that
// profiles without an email never collide on the (job, email) key.
func profileDefaults(filename string) map[string]any {
	return map[string]any{
		"candidate_name":     unknownName,
		"email":              fmt.Sprintf("unknown_%s@example.com", utils.LocalPart(filename)),
		"phone":              nil,
		"skills":             []string{},
		"experience_summary": notAvailable,
		"education":          []string{},
		"projects":           []string{},
	}
}

// withDefaults returns a copy of parsed where every key of defaults that is
// absent, null or blank takes the default value. Unknown keys are kept.
func withDefaults(parsed, defaults map[string]any) map[string]any {
	merged := make(map[string]any, len(parsed)+len(defaults))
	for k, v := range parsed {
		merged[k] = v
	}
	for k, v := range defaults {
		if missing(merged[k]) {
			merged[k] = v
		}
	}
	return merged
}

func missing(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	}
	return false
}

func decodeJobSummary(parsed map[string]any) (store.JobSummary, error) {
	var summary store.JobSummary
	if err := decode(withDefaults(parsed, jobSummaryDefaults()), &summary); err != nil {
		return summary, err
	}

	summary.RequiredSkills = nonNil(summary.RequiredSkills)
	summary.Responsibilities = nonNil(summary.Responsibilities)
	summary.CompanyCultureKeywords = nonNil(summary.CompanyCultureKeywords)
	return summary, nil
}

func decodeProfile(parsed map[string]any, filename string) (*store.Profile, error) {
	var profile store.Profile
	if err := decode(withDefaults(parsed, profileDefaults(filename)), &profile); err != nil {
		return nil, err
	}

	profile.Skills = nonNil(profile.Skills)
	profile.Education = nonNil(profile.Education)
	profile.Projects = nonNil(profile.Projects)
	if profile.Phone != nil && strings.TrimSpace(*profile.Phone) == "" {
		profile.Phone = nil
	}
	return &profile, nil
}

// decode is weakly typed: numbers become strings and a single string becomes
// a one-element list. Nested objects where text is expected are kept as JSON.
func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       structuredToString,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decoding model output: %w", err)
	}
	return nil
}

func structuredToString(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Map, reflect.Slice:
		encoded, err := json.Marshal(data)
		if err != nil {
			return data, nil
		}
		return string(encoded), nil
	}
	return data, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
