package enums

import "testing"

func TestParseReceiptStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    ReceiptStatus
		wantErr bool
	}{
		{input: "pending", want: ReceiptStatusPending},
		{input: "APPROVED", want: ReceiptStatusApproved},
		{input: " Rejected ", want: ReceiptStatusRejected},
		{input: "archived", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseReceiptStatus(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseReceiptStatus(%q) expected error, got %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseReceiptStatus(%q) unexpected error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseReceiptStatus(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCanTransitionTo_TableIsTotal(t *testing.T) {
	// From each status exactly two targets are legal and self is never one.
	for _, from := range validReceiptStatuses {
		legal := 0
		for _, to := range validReceiptStatuses {
			if from.CanTransitionTo(to) {
				legal++
			}
		}
		if legal != 2 {
			t.Fatalf("status %q allows %d targets, want 2", from, legal)
		}
		if from.CanTransitionTo(from) {
			t.Fatalf("status %q must not allow self-transition", from)
		}
	}
}

func TestCanTransitionTo_UnknownStatus(t *testing.T) {
	if ReceiptStatus("archived").CanTransitionTo(ReceiptStatusPending) {
		t.Fatal("unknown status must not allow any transition")
	}
}
