package billing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// cycleRe matches the portal's localized month form, e.g. "2024年11月".
var cycleRe = regexp.MustCompile(`^(\d{4})年(\d{1,2})月$`)

// ParseCycleKey converts a localized month string into a YYYY-MM cycle key.
func ParseCycleKey(s string) (string, error) {
	m := cycleRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: billing month %q", ErrParse, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: billing month %q out of range", ErrParse, s)
	}
	return fmt.Sprintf("%04d-%02d", year, month), nil
}

// NormalizeCycles parses, deduplicates and sorts the upstream month list.
// An empty list means the account code is unknown or has no history.
func NormalizeCycles(months []string) ([]string, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("%w: no billing cycles found, check the account code", ErrInvalidBillingData)
	}
	seen := make(map[string]struct{}, len(months))
	out := make([]string, 0, len(months))
	for _, raw := range months {
		key, err := ParseCycleKey(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	// Fixed-width YYYY-MM sorts chronologically.
	sort.Strings(out)
	return out, nil
}

// parsePaymentDate converts the ledger's "2024.12.05" form to "2024-12-05".
func parsePaymentDate(s string) (string, error) {
	t, err := time.Parse("2006.1.2", s)
	if err != nil {
		return "", fmt.Errorf("%w: payment date %q", ErrParse, s)
	}
	return t.Format(time.DateOnly), nil
}
