package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// envelope is the common shape of every portal response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// cycleRange is the data of getPcMonthsAndYears, e.g.
// {"months": ["2024年11月", "2024年09月"], "years": [2024, 2023]}.
type cycleRange struct {
	Months []string `json:"months"`
	Years  []int    `json:"years"`
}

// paymentEntry is one element of pcPaymentRecord. Cost fields stay raw until
// the entry's cycle is known to be wanted, so malformed figures on entries
// that are dropped anyway cannot fail the fetch.
type paymentEntry struct {
	BillDate string          `json:"billDate"` // 2024年11月
	Date     string          `json:"date"`     // 2024.12.05
	Amount   json.RawMessage `json:"amount"`
	Szyf     json.RawMessage `json:"szyf"`
	Wsf      json.RawMessage `json:"wsf"`
	Sf       json.RawMessage `json:"sf"`
}

// stepFee is a priced component of the monthly bill.
type stepFee struct {
	Amount decimal.Decimal
	Price  decimal.Decimal
}

type stepLeft struct {
	First  decimal.Decimal
	Second decimal.Decimal
}

// monthlyDetail is one cycle's monthly bill with its figures converted.
type monthlyDetail struct {
	Total         decimal.Decimal // usage in the period
	EndValue      string          // cumulative meter, "123/456"
	GrandTotal    decimal.Decimal // cumulative consumption
	Amount        decimal.Decimal
	FirstStep     stepFee
	TaxFee        stepFee
	WaterborneFee stepFee
	StepLeft      stepLeft
}

type rawStepFee struct {
	Amount json.RawMessage `json:"amount"`
	Price  json.RawMessage `json:"price"`
}

type rawStepLeft struct {
	First  json.RawMessage `json:"first"`
	Second json.RawMessage `json:"second"`
}

// monthlyDetailWire is the data of getPcMonthlyBill as sent by the portal.
type monthlyDetailWire struct {
	Total         json.RawMessage `json:"total"`
	EndValue      string          `json:"endValue"`
	GrandTotal    json.RawMessage `json:"grandTotal"`
	Amount        json.RawMessage `json:"amount"`
	FirstStep     rawStepFee      `json:"firstStep"`
	TaxFee        rawStepFee      `json:"taxFee"`
	WaterborneFee rawStepFee      `json:"waterborneFee"`
	StepLeft      rawStepLeft     `json:"stepLeft"`
}

// parse converts the numeric fields. Call it only after EndValue is checked.
func (w monthlyDetailWire) parse() (monthlyDetail, error) {
	d := monthlyDetail{EndValue: w.EndValue}
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *decimal.Decimal
	}{
		{"total", w.Total, &d.Total},
		{"grandTotal", w.GrandTotal, &d.GrandTotal},
		{"amount", w.Amount, &d.Amount},
		{"firstStep.amount", w.FirstStep.Amount, &d.FirstStep.Amount},
		{"firstStep.price", w.FirstStep.Price, &d.FirstStep.Price},
		{"taxFee.amount", w.TaxFee.Amount, &d.TaxFee.Amount},
		{"taxFee.price", w.TaxFee.Price, &d.TaxFee.Price},
		{"waterborneFee.amount", w.WaterborneFee.Amount, &d.WaterborneFee.Amount},
		{"waterborneFee.price", w.WaterborneFee.Price, &d.WaterborneFee.Price},
		{"stepLeft.first", w.StepLeft.First, &d.StepLeft.First},
		{"stepLeft.second", w.StepLeft.Second, &d.StepLeft.Second},
	}
	for _, f := range fields {
		v, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return monthlyDetail{}, err
		}
		*f.dst = v
	}
	return d, nil
}

// parseDecimal converts a quoted or bare JSON number. A missing or null
// field is zero.
func parseDecimal(field string, raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %s: %v", ErrParse, field, raw, err)
	}
	return d, nil
}

// decodeData unmarshals the data field of a portal response body.
func decodeData(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrInvalidBillingData, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: response has no data (code=%d msg=%q)", ErrInvalidBillingData, env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrInvalidBillingData, err)
	}
	return nil
}
