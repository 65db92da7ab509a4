package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Missing is the sentinel recorded for any canonical field the model did not
// return or returned empty.
const Missing = "Missing"

// Result carries everything extraction produced for one image. Content and
// Fields are set when the response parsed, Failure when it did not. Exactly
// one side is populated.
type Result struct {
	Content json.RawMessage
	Fields  map[string]any
	Failure *Failure
}

// Parse cleans a raw model response and flattens the resulting document.
// Failures are captured in the Result rather than returned.
func Parse(raw string) *Result {
	content, failure := Clean(raw)
	if failure != nil {
		return &Result{Failure: failure}
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		// A valid JSON scalar or array, not an object. Treat it like any
		// other unusable response.
		return &Result{Failure: &Failure{
			Stage:     StageParse,
			Raw:       raw,
			Attempted: string(content),
			Err:       fmt.Errorf("response is not a JSON object: %w", err),
		}}
	}
	return &Result{
		Content: content,
		Fields:  Flatten(doc),
	}
}

func (r *Result) Failed() bool {
	return r.Failure != nil
}

// StoredContent is the value persisted in the receipt's content column: the
// cleaned document on success, a JSON string describing the failure otherwise.
func (r *Result) StoredContent() json.RawMessage {
	if r.Failure != nil {
		marker, _ := json.Marshal(r.Failure.Description())
		return marker
	}
	return r.Content
}

func (r *Result) Vendor() string        { return r.Field("vendor") }
func (r *Result) Amount() string        { return r.Field("amount") }
func (r *Result) Date() string          { return r.Field("date") }
func (r *Result) PaymentMethod() string { return r.Field("payment_method") }

// Field returns the flattened value for key as a string, or Missing when the
// key is absent, empty or not a scalar.
func (r *Result) Field(key string) string {
	if r.Fields == nil {
		return Missing
	}
	value, ok := r.Fields[key]
	if !ok {
		return Missing
	}
	s := stringify(value)
	if s == "" {
		return Missing
	}
	return s
}

// TextLines returns the recognized text block when the model supplied one as
// an array of lines. Categorization feeds on it.
func (r *Result) TextLines() []string {
	if r.Fields == nil {
		return nil
	}
	raw, ok := r.Fields["text"].([]any)
	if !ok {
		return nil
	}
	lines := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := stringify(item); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	case nil:
		return ""
	default:
		return ""
	}
}
