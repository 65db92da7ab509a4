package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Vision models wrap their JSON in markdown fences, lead-in prose and closing
// commentary. The cleaner strips the known wrappers, slices out the outermost
// object and verifies the remainder parses. It never guesses beyond these
// heuristics: unbalanced or absent braces are a Failure, not a repair job.
var (
	boldPattern     = regexp.MustCompile(`\*\*.*?\*\*`)
	leadInPattern   = regexp.MustCompile(`Here is the extracted data.*?structure:`)
	fenceTagPattern = regexp.MustCompile("```json\\s*")
	fencePattern    = regexp.MustCompile("```\\s*")
	notePattern     = regexp.MustCompile(`Note:.*`)
	currencyPattern = regexp.MustCompile(`\$(\d+\.\d{2})`)
	usdSuffix       = regexp.MustCompile(`^\s*USD`)
)

// Failure describes a model response that could not be reduced to parseable
// JSON, or a model call that failed outright. It is recorded on the receipt,
// never raised as a fatal error.
type Failure struct {
	Stage     string // StageModelCall or StageParse
	Raw       string
	Attempted string
	Err       error
}

const (
	StageModelCall = "model_call"
	StageParse     = "parse"
)

func (f *Failure) Error() string {
	return f.Description()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Description is the marker stored in the receipt's content field.
func (f *Failure) Description() string {
	switch f.Stage {
	case StageModelCall:
		return fmt.Sprintf("Vision API Error: %v", f.Err)
	default:
		return fmt.Sprintf("Error parsing JSON: %v", f.Err)
	}
}

// Clean reduces a raw model response to a syntactically valid JSON document.
func Clean(raw string) (json.RawMessage, *Failure) {
	text := boldPattern.ReplaceAllString(raw, "")
	text = leadInPattern.ReplaceAllString(text, "")
	text = fenceTagPattern.ReplaceAllString(text, "")
	text = fencePattern.ReplaceAllString(text, "")
	text = notePattern.ReplaceAllString(text, "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, &Failure{
			Stage:     StageParse,
			Raw:       raw,
			Attempted: strings.TrimSpace(text),
			Err:       errors.New("no JSON object found in response"),
		}
	}
	text = text[start : end+1]

	text = normalizeCurrency(text)
	text = stripControlChars(text)
	text = strings.TrimSpace(text)

	var probe any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, &Failure{
			Stage:     StageParse,
			Raw:       raw,
			Attempted: text,
			Err:       err,
		}
	}
	return json.RawMessage(text), nil
}

// normalizeCurrency rewrites bare $NN.NN tokens to the NN.NN USD convention,
// leaving tokens that already carry the unit untouched.
func normalizeCurrency(s string) string {
	matches := currencyPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if usdSuffix.MatchString(s[end:]) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(s[m[2]:m[3]])
		b.WriteString(" USD")
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
