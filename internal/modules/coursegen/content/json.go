package content

import (
	"encoding/json"
	"fmt"
	"strings"

	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

// UnwrapJSON strips markdown code fences and any prose around the outermost
// JSON object or array of a model response.
func UnwrapJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the info string, e.g. ```json
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// Decode unwraps raw and unmarshals it into T. Failures are GenerationParse errors.
func Decode[T any](op, raw string) (T, error) {
	var out T
	body := UnwrapJSON(raw)
	if body == "" {
		return out, apperr.Newf(apperr.ErrGenerationParse, op, "empty response")
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, apperr.Wrap(apperr.ErrGenerationParse, op, fmt.Errorf("decode %T: %w", out, err))
	}
	return out, nil
}
