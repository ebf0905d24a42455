package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedOutputError reports model output that could not be turned into the
// requested JSON shape even after fence stripping and substring extraction.
// Callers decide whether to retry with a different temperature or drop the
// item; the error never propagates past the generation boundary as a panic.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// StripFences removes Markdown code fencing and surrounding whitespace.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractObject parses the first JSON object found in text into v. The whole
// (fence-stripped) text is tried first, then the outermost {...} substring.
func ExtractObject(text string, v any) error {
	return extract(text, v, '{', '}')
}

// ExtractArray parses the first JSON array found in text into v.
func ExtractArray(text string, v any) error {
	return extract(text, v, '[', ']')
}

func extract(text string, v any, open, close byte) error {
	cleaned := StripFences(text)

	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}

	start := strings.IndexByte(cleaned, open)
	end := strings.LastIndexByte(cleaned, close)
	if start >= 0 && end > start {
		if subErr := json.Unmarshal([]byte(cleaned[start:end+1]), v); subErr == nil {
			return nil
		}
	}

	return &MalformedOutputError{Raw: text, Err: err}
}
