package billing

import "errors"

// Sentinel errors returned by the billing fetch pipeline. Callers match them
// with errors.Is; the wrapped message carries the upstream detail.
var (
	// ErrInvalidBillingData covers non-200 upstream responses, an empty cycle
	// list, an empty payment ledger and a monthly detail with no meter reading.
	ErrInvalidBillingData = errors.New("billing: invalid billing data")

	// ErrParse is returned when an upstream date or meter string is malformed.
	ErrParse = errors.New("billing: parse failed")

	// ErrUnknownSource is returned when no source is registered for a key.
	ErrUnknownSource = errors.New("billing: unknown source")
)
