package config

import (
	"strings"

	"github.com/receiptwise/backend/pkg/enums"
)

// ListValue is a semicolon-separated string list. Several expense category
// names contain commas, so the default envconfig comma split cannot be used.
type ListValue []string

// Decode implements envconfig.Decoder.
func (l *ListValue) Decode(value string) error {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*l = out
	return nil
}

// OptionsConfig holds the enumerations receipts are validated against. The
// lists are loaded once at startup and treated as immutable afterwards.
type OptionsConfig struct {
	ExpenseCategories ListValue `envconfig:"RECEIPTWISE_EXPENSE_CATEGORIES" default:"Advertising;Car and Truck Expenses;Commissions and Fees;Contract Labor;Depletion;Depreciation and Section 179 Expense Deduction;Employee Benefit Programs;Insurance (Other Than Health);Interest;Legal and Professional Services;Office Expenses;Pension and Profit-Sharing Plans;Rent or Lease;Repairs and Maintenance;Supplies;Taxes and Licenses;Travel;Meals;Utilities;Wages;Other Expenses"`
	PaymentMethods    ListValue `envconfig:"RECEIPTWISE_PAYMENT_METHODS" default:"Credit Card;Debit Card;Cash;Check;Wire Transfer;Other"`
}

// FallbackCategory is returned whenever categorization fails or produces a
// value outside the configured list.
const FallbackCategory = "Other Expenses"

// Statuses returns the canonical receipt status list. Statuses are fixed by
// the review workflow and are not configurable.
func (o OptionsConfig) Statuses() []string {
	return enums.ReceiptStatuses()
}

// MatchCategory resolves raw input to the configured casing of a category,
// matching case-insensitively. The boolean reports membership.
func (o OptionsConfig) MatchCategory(value string) (string, bool) {
	return matchConfigured(o.ExpenseCategories, value)
}

// MatchPaymentMethod resolves raw input to the configured casing of a payment
// method, matching case-insensitively.
func (o OptionsConfig) MatchPaymentMethod(value string) (string, bool) {
	return matchConfigured(o.PaymentMethods, value)
}

func matchConfigured(configured []string, value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range configured {
		if strings.EqualFold(candidate, trimmed) {
			return candidate, true
		}
	}
	return "", false
}
