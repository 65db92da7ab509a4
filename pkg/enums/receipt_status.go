package enums

import (
	"fmt"
	"strings"
)

// ReceiptStatus describes the review state of a receipt. Statuses are stored
// lower-cased; ParseReceiptStatus normalizes input before matching.
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusApproved ReceiptStatus = "approved"
	ReceiptStatusRejected ReceiptStatus = "rejected"
)

var validReceiptStatuses = []ReceiptStatus{
	ReceiptStatusPending,
	ReceiptStatusApproved,
	ReceiptStatusRejected,
}

// legalTransitions maps each status to the targets a receipt may move to.
// Self-transitions are not listed and are therefore rejected.
var legalTransitions = map[ReceiptStatus][]ReceiptStatus{
	ReceiptStatusPending:  {ReceiptStatusApproved, ReceiptStatusRejected},
	ReceiptStatusApproved: {ReceiptStatusPending, ReceiptStatusRejected},
	ReceiptStatusRejected: {ReceiptStatusApproved, ReceiptStatusPending},
}

// String implements fmt.Stringer.
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ReceiptStatus) IsValid() bool {
	for _, candidate := range validReceiptStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s ReceiptStatus) CanTransitionTo(target ReceiptStatus) bool {
	for _, candidate := range legalTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseReceiptStatus converts raw input into a ReceiptStatus, matching
// case-insensitively.
func ParseReceiptStatus(value string) (ReceiptStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReceiptStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid receipt status %q", value)
}

// ReceiptStatuses returns the canonical status list in declaration order.
func ReceiptStatuses() []string {
	out := make([]string, len(validReceiptStatuses))
	for i, s := range validReceiptStatuses {
		out[i] = string(s)
	}
	return out
}
