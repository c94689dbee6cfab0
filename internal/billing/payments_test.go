package billing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func entry(billDate, date, amount string) paymentEntry {
	return paymentEntry{
		BillDate: billDate,
		Date:     date,
		Amount:   json.RawMessage(`"` + amount + `"`),
		Szyf:     json.RawMessage(`"1.00"`),
		Wsf:      json.RawMessage(`"2.00"`),
		Sf:       json.RawMessage(`"3.00"`),
	}
}

func TestMergePayments_FiltersUnknownCycles(t *testing.T) {
	snap := newSnapshot("bjwater", "u1")
	entries := []paymentEntry{
		entry("2023年05月", "2023.06.02", "30"),
		entry("2024年09月", "2024.10.08", "45.6"),
	}
	if err := mergePayments(snap, []string{"2024-09", "2024-11"}, entries, KeepLast); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d: %v", len(snap.Cycles), snap.Order)
	}
	rec, ok := snap.Cycle("2024-09")
	if !ok {
		t.Fatal("expected 2024-09 record")
	}
	if rec.Index != 1 {
		t.Errorf("Index = %d, want 1 (position in upstream list)", rec.Index)
	}
	p := rec.Payment
	if !p.Paid || p.Date != "2024-10-08" {
		t.Errorf("unexpected payment: %+v", p)
	}
	if !p.Amount.Equal(decimal.RequireFromString("45.6")) ||
		!p.TaxFee.Equal(decimal.NewFromInt(1)) ||
		!p.WastewaterFee.Equal(decimal.NewFromInt(2)) ||
		!p.WaterFee.Equal(decimal.NewFromInt(3)) {
		t.Errorf("fees not copied verbatim: %+v", p)
	}
	if rec.Meter != nil {
		t.Error("payment merge must not set meter detail")
	}
}

func TestMergePayments_Policy(t *testing.T) {
	entries := []paymentEntry{
		entry("2024年09月", "2024.10.01", "10"),
		entry("2024年09月", "2024.10.20", "20"),
	}

	tests := []struct {
		policy    MergePolicy
		wantIndex int
		wantDate  string
	}{
		{KeepLast, 1, "2024-10-20"},
		{KeepFirst, 0, "2024-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			snap := newSnapshot("bjwater", "u1")
			if err := mergePayments(snap, []string{"2024-09"}, entries, tt.policy); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			rec, _ := snap.Cycle("2024-09")
			if rec.Index != tt.wantIndex || rec.Payment.Date != tt.wantDate {
				t.Errorf("got index %d date %s, want %d %s", rec.Index, rec.Payment.Date, tt.wantIndex, tt.wantDate)
			}
			if len(snap.Order) != 1 {
				t.Errorf("Order = %v, want a single key", snap.Order)
			}
		})
	}
}

func TestMergePayments_Empty(t *testing.T) {
	snap := newSnapshot("bjwater", "u1")
	if err := mergePayments(snap, []string{"2024-09"}, nil, KeepLast); !errors.Is(err, ErrInvalidBillingData) {
		t.Fatalf("expected ErrInvalidBillingData, got %v", err)
	}
}

func TestMergePayments_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		entry paymentEntry
	}{
		{"bill date", entry("2024/09", "2024.10.08", "1")},
		{"payment date", entry("2024年09月", "08-10-2024", "1")},
		{"amount", entry("2024年09月", "2024.10.08", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newSnapshot("bjwater", "u1")
			err := mergePayments(snap, []string{"2024-09"}, []paymentEntry{tt.entry}, KeepLast)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestMergePayments_IgnoresFiguresOfDroppedEntries(t *testing.T) {
	bad := entry("2023年05月", "not a date", "")
	bad.Sf = json.RawMessage(`"n/a"`)
	entries := []paymentEntry{bad, entry("2024年09月", "2024.10.08", "45.6")}

	snap := newSnapshot("bjwater", "u1")
	if err := mergePayments(snap, []string{"2024-09"}, entries, KeepLast); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", snap.Order)
	}
}

func TestMergePayments_NullFeeIsZero(t *testing.T) {
	e := entry("2024年09月", "2024.10.08", "12")
	e.Wsf = json.RawMessage(`null`)
	e.Sf = nil

	snap := newSnapshot("bjwater", "u1")
	if err := mergePayments(snap, []string{"2024-09"}, []paymentEntry{e}, KeepLast); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := snap.Cycle("2024-09")
	if !rec.Payment.WastewaterFee.IsZero() || !rec.Payment.WaterFee.IsZero() {
		t.Errorf("expected zero fees, got %+v", rec.Payment)
	}
}
