package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind tags the shape of a completion.
type Kind int

const (
	// KindUnavailable means the model could not be reached or returned nothing.
	KindUnavailable Kind = iota
	// KindParsed carries a decoded JSON object.
	KindParsed
	// KindMalformed carries raw output that was requested as JSON but did not parse.
	KindMalformed
	// KindText carries plain text output.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindParsed:
		return "parsed"
	case KindMalformed:
		return "malformed"
	case KindText:
		return "text"
	default:
		return "unavailable"
	}
}

// Completion is the normalized result of a single generation call.
type Completion struct {
	Kind   Kind
	Object map[string]any
	Raw    string
	Err    error
}

// Gateway is the contract every model provider satisfies. Complete and Embed
// never return errors: failures are folded into the result.
type Gateway interface {
	Complete(ctx context.Context, prompt string, jsonFormat bool) Completion
	Embed(ctx context.Context, text string) []float64
}

// Pinger reports whether the provider is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var errEmptyResponse = errors.New("model returned an empty response")

// Unavailable wraps a transport or provider failure.
func Unavailable(err error) Completion {
	if err == nil {
		err = errEmptyResponse
	}
	return Completion{Kind: KindUnavailable, Err: err}
}

// Normalize turns raw model output into a tagged Completion. In JSON mode the
// output must decode into a JSON object, otherwise it is reported as malformed.
func Normalize(raw string, jsonFormat bool) Completion {
	if strings.TrimSpace(raw) == "" {
		return Unavailable(errEmptyResponse)
	}

	if !jsonFormat {
		return Completion{Kind: KindText, Raw: raw}
	}

	var object map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &object); err != nil {
		return Completion{Kind: KindMalformed, Raw: raw, Err: fmt.Errorf("parse model response: %w", err)}
	}
	if object == nil {
		return Completion{Kind: KindMalformed, Raw: raw, Err: errors.New("model response is not a JSON object")}
	}

	return Completion{Kind: KindParsed, Object: object, Raw: raw}
}

// ExtractJSON strips markdown code fences some models wrap around JSON.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
