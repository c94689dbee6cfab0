package billing

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCycleKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024年11月", want: "2024-11"},
		{in: "2023年01月", want: "2023-01"},
		{in: "2023年1月", want: "2023-01"},
		{in: "2024-11", wantErr: true},
		{in: "2024年13月", wantErr: true},
		{in: "2024年00月", wantErr: true},
		{in: "24年11月", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCycleKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("expected ErrParse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCycleKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCycles_SortsAndDeduplicates(t *testing.T) {
	got, err := NormalizeCycles([]string{"2024年11月", "2023年01月", "2024年11月"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2023-01", "2024-11"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Order and repetition of the input do not matter.
	again, err := NormalizeCycles([]string{"2023年01月", "2024年11月", "2023年01月", "2024年11月"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(again, want) {
		t.Errorf("got %v, want %v", again, want)
	}
}

func TestNormalizeCycles_Empty(t *testing.T) {
	for _, in := range [][]string{nil, {}} {
		if _, err := NormalizeCycles(in); !errors.Is(err, ErrInvalidBillingData) {
			t.Errorf("NormalizeCycles(%v): expected ErrInvalidBillingData, got %v", in, err)
		}
	}
}

func TestNormalizeCycles_RejectsWholeListOnBadEntry(t *testing.T) {
	got, err := NormalizeCycles([]string{"2024年11月", "November 2024"})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial list, got %v", got)
	}
}

func TestParsePaymentDate(t *testing.T) {
	got, err := parsePaymentDate("2024.10.08")
	if err != nil || got != "2024-10-08" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err = parsePaymentDate("2024.1.8")
	if err != nil || got != "2024-01-08" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := parsePaymentDate("2024-10-08"); !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse for dashed date, got %v", err)
	}
}
