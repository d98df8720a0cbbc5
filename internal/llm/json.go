package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a response contains no decodable JSON payload
var ErrNoJSON = errors.New("no JSON payload in response")

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// DecodeJSON decodes a model response into v. The text is tried as-is first,
// then the contents of the first ```json (or bare ```) fenced block.
func DecodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	body, ok := extractFenced(text)
	if !ok {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: fenced block: %v", ErrNoJSON, err)
	}
	return nil
}

func extractFenced(text string) (string, bool) {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	body := strings.TrimSpace(m[1])
	if body == "" {
		return "", false
	}
	return body, true
}
