package receipts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/enums"
)

// FieldErrors maps a submitted field name to a human-readable message. All
// fields are checked before returning, so the caller sees every violation at
// once.
type FieldErrors map[string]string

// UpdateFields is a partial update payload. A nil pointer means the field was
// not submitted and is left untouched.
type UpdateFields struct {
	Vendor        *string `json:"vendor"`
	Amount        *string `json:"amount"`
	Date          *string `json:"date"`
	PaymentMethod *string `json:"payment_method"`
	Category      *string `json:"category"`
	Status        *string `json:"status"`

	typeErrs FieldErrors
}

// UnmarshalJSON decodes the payload field by field. A value of the wrong JSON
// type does not abort the decode; the field's own validation message is held
// so the response names the offending field. Amounts submitted as bare JSON
// numbers are accepted and validated like their string form.
func (f *UpdateFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = UpdateFields{}
	typeErrs := FieldErrors{}

	if value, ok := raw["vendor"]; ok {
		if text, ok := asString(value); ok {
			f.Vendor = &text
		} else {
			typeErrs["vendor"] = "Vendor must be a string of max 100 characters"
		}
	}
	if value, ok := raw["amount"]; ok {
		if text, ok := asString(value); ok {
			f.Amount = &text
		} else if number, ok := asNumber(value); ok {
			f.Amount = &number
		} else {
			typeErrs["amount"] = "Amount must be a valid decimal number"
		}
	}
	if value, ok := raw["date"]; ok {
		if text, ok := asString(value); ok {
			f.Date = &text
		} else {
			typeErrs["date"] = "Invalid date format"
		}
	}
	// Enum fields keep the raw literal text; membership checking produces
	// the message either way.
	if value, ok := raw["payment_method"]; ok {
		text := scalarText(value)
		f.PaymentMethod = &text
	}
	if value, ok := raw["category"]; ok {
		text := scalarText(value)
		f.Category = &text
	}
	if value, ok := raw["status"]; ok {
		text := scalarText(value)
		f.Status = &text
	}

	if len(typeErrs) > 0 {
		f.typeErrs = typeErrs
	}
	return nil
}

// asString and asNumber treat JSON null as a type mismatch rather than the
// zero value Unmarshal would leave behind.
func asString(raw json.RawMessage) (string, bool) {
	if string(raw) == "null" {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

func asNumber(raw json.RawMessage) (string, bool) {
	if string(raw) == "null" {
		return "", false
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return "", false
	}
	return number.String(), true
}

func scalarText(raw json.RawMessage) string {
	if text, ok := asString(raw); ok {
		return text
	}
	return strings.TrimSpace(string(raw))
}

// Empty reports whether no field was submitted at all. Submissions whose only
// fields failed type decoding still count as non-empty so validation gets to
// report them.
func (f UpdateFields) Empty() bool {
	return f.Vendor == nil && f.Amount == nil && f.Date == nil &&
		f.PaymentMethod == nil && f.Category == nil && f.Status == nil &&
		len(f.typeErrs) == 0
}

const (
	maxVendorLength = 100
	dateLayout      = "2006-01-02"
)

var maxAmount = decimal.RequireFromString("999999.99")

// Validator checks proposed field values against the configured enumerations
// and the status transition table.
type Validator struct {
	opts config.OptionsConfig
	now  func() time.Time
}

func NewValidator(opts config.OptionsConfig) *Validator {
	return &Validator{opts: opts, now: time.Now}
}

// Validate checks every submitted field independently, accumulating errors
// rather than stopping at the first. It returns a normalized copy of the
// input: enum values resolved to their configured casing, statuses
// lower-cased. current is the receipt's persisted status; nil skips the
// transition check and leaves the not-found condition to the mutation step.
func (v *Validator) Validate(fields UpdateFields, current *enums.ReceiptStatus) (UpdateFields, FieldErrors) {
	errs := FieldErrors{}
	for field, message := range fields.typeErrs {
		errs[field] = message
	}
	out := fields

	if fields.Vendor != nil {
		if utf8.RuneCountInString(*fields.Vendor) > maxVendorLength {
			errs["vendor"] = "Vendor must be a string of max 100 characters"
		}
	}

	if fields.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*fields.Amount))
		switch {
		case err != nil:
			errs["amount"] = "Amount must be a valid decimal number"
		case amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(maxAmount):
			errs["amount"] = "Amount must be between 0.01 and 999999.99"
		}
	}

	if fields.Date != nil {
		raw := strings.TrimSpace(*fields.Date)
		if raw == "" {
			errs["date"] = "Date cannot be empty"
		} else if parsed, err := time.Parse(dateLayout, raw); err != nil {
			errs["date"] = "Date must be in YYYY-MM-DD format"
		} else if parsed.After(v.today()) {
			errs["date"] = "Date cannot be in the future"
		} else {
			out.Date = &raw
		}
	}

	if fields.PaymentMethod != nil {
		if matched, ok := v.opts.MatchPaymentMethod(*fields.PaymentMethod); ok {
			out.PaymentMethod = &matched
		} else {
			errs["payment_method"] = fmt.Sprintf("Payment method must be one of: %s",
				strings.Join(v.opts.PaymentMethods, ", "))
		}
	}

	if fields.Category != nil {
		if matched, ok := v.opts.MatchCategory(*fields.Category); ok {
			out.Category = &matched
		} else {
			errs["category"] = fmt.Sprintf("Category must be one of: %s",
				strings.Join(v.opts.ExpenseCategories, ", "))
		}
	}

	if fields.Status != nil {
		target, err := enums.ParseReceiptStatus(*fields.Status)
		if err != nil {
			errs["status"] = fmt.Sprintf("Status must be one of: %s",
				strings.Join(enums.ReceiptStatuses(), ", "))
		} else {
			if current != nil && !current.CanTransitionTo(target) {
				errs["status"] = fmt.Sprintf("Status cannot change from %s to %s", *current, target)
			}
			normalized := string(target)
			out.Status = &normalized
		}
	}

	if len(errs) == 0 {
		return out, nil
	}
	return out, errs
}

// today returns midnight of the current day so same-day dates pass the
// future check.
func (v *Validator) today() time.Time {
	now := v.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
