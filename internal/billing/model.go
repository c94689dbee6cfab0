package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the merged billing picture of one account as of one fetch.
type Snapshot struct {
	Provider  string                  `json:"provider"`
	UserCode  string                  `json:"user_code"`
	FetchedAt time.Time               `json:"fetched_at"`
	Cycles    map[string]*CycleRecord `json:"cycle"`

	// Order lists cycle keys in the order they were first inserted.
	Order []string `json:"order"`

	Summary Summary `json:"summary"`
}

// CycleRecord is one billing period.
type CycleRecord struct {
	// Index is the record's position in the upstream payment ledger, or 0
	// when the cycle was first seen in the monthly detail.
	Index   int      `json:"index"`
	Payment *Payment `json:"fee,omitempty"`
	Meter   *Meter   `json:"meter,omitempty"`
}

// Payment holds the cost breakdown of a cycle. For unpaid cycles Date is the
// cycle key, since no payment date exists.
type Payment struct {
	Paid          bool            `json:"pay"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	TaxFee        decimal.Decimal `json:"szyf"` // water-resource tax
	WastewaterFee decimal.Decimal `json:"wsf"`  // wastewater treatment
	WaterFee      decimal.Decimal `json:"sf"`
}

// Meter is the consumption detail of a cycle.
type Meter struct {
	Usage decimal.Decimal `json:"usage"`
	Value int64           `json:"value"`
}

// Summary holds the cross-cycle figures derived from the monthly details.
// All fields except TotalUsage reflect the last cycle processed.
type Summary struct {
	// TotalUsage is the largest cumulative consumption seen; nil until the
	// first detail is applied.
	TotalUsage      *int64          `json:"total_usage,omitempty"`
	MeterValue      int64           `json:"meter_value"`
	FirstStepPrice  decimal.Decimal `json:"first_step_price"`
	WastewaterPrice decimal.Decimal `json:"wastwater_treatment_price"`
	WaterTaxPrice   decimal.Decimal `json:"water_tax"`
	SecondStepLeft  int64           `json:"second_step_left"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	LastPeriod      string          `json:"last_period"`
}

func newSnapshot(provider, userCode string) *Snapshot {
	return &Snapshot{
		Provider: provider,
		UserCode: userCode,
		Cycles:   make(map[string]*CycleRecord),
	}
}

// Cycle returns the record for key, if present.
func (s *Snapshot) Cycle(key string) (*CycleRecord, bool) {
	rec, ok := s.Cycles[key]
	return rec, ok
}

// put inserts or replaces a record. Keys are never removed.
func (s *Snapshot) put(key string, rec *CycleRecord) {
	if _, ok := s.Cycles[key]; !ok {
		s.Order = append(s.Order, key)
	}
	s.Cycles[key] = rec
}
