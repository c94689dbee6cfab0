package billing

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseMeterValue(t *testing.T) {
	for _, a := range []int64{0, 1, 7, 123, 999} {
		for _, b := range []int64{0, 5, 456, 999} {
			in := fmt.Sprintf("%d/%d", a, b)
			got, err := ParseMeterValue(in)
			if err != nil {
				t.Fatalf("ParseMeterValue(%q): %v", in, err)
			}
			if want := a*1000 + b; got != want {
				t.Errorf("ParseMeterValue(%q) = %d, want %d", in, got, want)
			}
		}
	}
}

func TestParseMeterValue_Malformed(t *testing.T) {
	for _, in := range []string{"", "123", "123/", "/456", "1/2/3", "a/1", "1/b", "1.5/2"} {
		if _, err := ParseMeterValue(in); !errors.Is(err, ErrParse) {
			t.Errorf("ParseMeterValue(%q): expected ErrParse, got %v", in, err)
		}
	}
}
