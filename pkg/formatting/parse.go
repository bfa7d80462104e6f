package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when no JSON value of the requested shape can
// be recovered from the content.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// maxEcho bounds how much of the offending content is echoed in errors.
const maxEcho = 200

// Parse unmarshals content into T. When the content is not plain JSON it
// tries, in order, a markdown code fence and the outermost {...} span, which
// covers payloads preceded by stray warnings or followed by trailing noise.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(strings.TrimPrefix(content, "\uFEFF"))

	for _, candidate := range candidates(content) {
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
		result = *new(T)
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, truncate(content))
}

func candidates(content string) []string {
	out := []string{content}

	if m := jsonBlockRegex.FindStringSubmatch(content); len(m) >= 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}

	return out
}

func truncate(s string) string {
	if len(s) <= maxEcho {
		return s
	}
	return s[:maxEcho] + "..."
}
