package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMeterValue combines a two-part reading "first/second" into
// first*1000 + second. The portal never reports a second part of 1000 or
// more, so the base is fixed.
func ParseMeterValue(s string) (int64, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: meter value %q", ErrParse, s)
	}
	first, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: meter value %q: %v", ErrParse, s, err)
	}
	second, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: meter value %q: %v", ErrParse, s, err)
	}
	return first*1000 + second, nil
}
