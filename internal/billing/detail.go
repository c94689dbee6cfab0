package billing

import "fmt"

// mergeDetail overlays one cycle's monthly detail onto the snapshot. A cycle
// with no ledger entry gets an unpaid record priced from the tier breakdown.
// The meter fields are always replaced, since only this endpoint reports them.
// It returns the parsed cumulative meter value and the converted detail.
func mergeDetail(snap *Snapshot, cycle string, w monthlyDetailWire) (int64, monthlyDetail, error) {
	if w.EndValue == "" {
		return 0, monthlyDetail{}, fmt.Errorf("%w: no bill detail for cycle %s", ErrInvalidBillingData, cycle)
	}
	value, err := ParseMeterValue(w.EndValue)
	if err != nil {
		return 0, monthlyDetail{}, err
	}
	d, err := w.parse()
	if err != nil {
		return 0, monthlyDetail{}, fmt.Errorf("cycle %s: %w", cycle, err)
	}

	rec, ok := snap.Cycle(cycle)
	if !ok {
		rec = &CycleRecord{
			Index: 0,
			Payment: &Payment{
				Paid:          false,
				Date:          cycle,
				Amount:        d.Amount,
				WaterFee:      d.FirstStep.Amount,
				TaxFee:        d.TaxFee.Amount,
				WastewaterFee: d.WaterborneFee.Amount,
			},
		}
		snap.put(cycle, rec)
	}
	rec.Meter = &Meter{Usage: d.Total, Value: value}
	return value, d, nil
}
