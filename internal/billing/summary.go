package billing

// Apply folds one cycle's detail into the summary and returns the result;
// the receiver is not modified. Cycles must be applied in ascending order so
// that the "current" fields end up reflecting the latest cycle.
func (s Summary) Apply(cycle string, meterValue int64, d monthlyDetail) Summary {
	next := s

	grand := d.GrandTotal.IntPart()
	if next.TotalUsage == nil || *next.TotalUsage < grand {
		next.TotalUsage = &grand
	}
	next.MeterValue = meterValue
	next.FirstStepPrice = d.FirstStep.Price
	next.WastewaterPrice = d.WaterborneFee.Price
	next.WaterTaxPrice = d.TaxFee.Price
	next.SecondStepLeft = d.StepLeft.Second.IntPart()

	// Sum of unit prices, not of billed amounts.
	next.TotalCost = next.WaterTaxPrice.Add(next.FirstStepPrice).Add(next.WastewaterPrice)

	next.TotalAmount = d.Amount
	next.LastPeriod = cycle
	return next
}
