package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MergePolicy decides which ledger entry wins when several map to the same
// cycle key.
type MergePolicy int

const (
	// KeepLast lets a later entry overwrite an earlier one.
	KeepLast MergePolicy = iota
	// KeepFirst keeps the first entry seen for a cycle.
	KeepFirst
)

func (p MergePolicy) String() string {
	switch p {
	case KeepLast:
		return "keep-last"
	case KeepFirst:
		return "keep-first"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// mergePayments records the ledger entries whose cycle is one of the known
// cycles. Entries for other periods are dropped before their dates or
// figures are read; Index is the entry's position in the upstream list, not
// in the filtered one.
func mergePayments(snap *Snapshot, cycles []string, entries []paymentEntry, policy MergePolicy) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no payment records found, check the account code", ErrInvalidBillingData)
	}
	known := make(map[string]struct{}, len(cycles))
	for _, c := range cycles {
		known[c] = struct{}{}
	}

	for i, e := range entries {
		key, err := ParseCycleKey(e.BillDate)
		if err != nil {
			return err
		}
		if _, ok := known[key]; !ok {
			continue
		}
		date, err := parsePaymentDate(e.Date)
		if err != nil {
			return err
		}
		if _, exists := snap.Cycles[key]; exists && policy == KeepFirst {
			continue
		}
		p, err := e.payment(date)
		if err != nil {
			return fmt.Errorf("payment for %s: %w", key, err)
		}
		snap.put(key, &CycleRecord{Index: i, Payment: p})
	}
	return nil
}

// payment converts a matched entry's cost fields.
func (e paymentEntry) payment(date string) (*Payment, error) {
	p := &Payment{Paid: true, Date: date}
	fields := []struct {
		name string
		raw  []byte
		dst  *decimal.Decimal
	}{
		{"amount", e.Amount, &p.Amount},
		{"szyf", e.Szyf, &p.TaxFee},
		{"wsf", e.Wsf, &p.WastewaterFee},
		{"sf", e.Sf, &p.WaterFee},
	}
	for _, f := range fields {
		v, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return p, nil
}
