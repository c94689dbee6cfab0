package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/bher20/bjwater/internal/billing"
)

func sampleSnapshot() *billing.Snapshot {
	usage := int64(130)
	return &billing.Snapshot{
		Provider:  "bjwater",
		UserCode:  "u1",
		FetchedAt: time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC),
		Cycles: map[string]*billing.CycleRecord{
			"2024-11": {
				Payment: &billing.Payment{Date: "2024-11", Amount: decimal.RequireFromString("38.4")},
				Meter:   &billing.Meter{Usage: decimal.NewFromInt(8), Value: 1250},
			},
			"2024-09": {
				Index:   1,
				Payment: &billing.Payment{Paid: true, Date: "2024-10-08", Amount: decimal.RequireFromString("45.6")},
				Meter:   &billing.Meter{Usage: decimal.NewFromInt(9), Value: 1234},
			},
		},
		Order: []string{"2024-09", "2024-11"},
		Summary: billing.Summary{
			TotalUsage:  &usage,
			MeterValue:  1250,
			TotalCost:   decimal.RequireFromString("7.96"),
			TotalAmount: decimal.RequireFromString("38.4"),
			LastPeriod:  "2024-11",
		},
	}
}

func TestSnapshotXLSX(t *testing.T) {
	data, err := SnapshotXLSX(sampleSnapshot())
	if err != nil {
		t.Fatalf("SnapshotXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(summarySheet, "B4"); v != "u1" {
		t.Errorf("user code cell = %q", v)
	}
	rows, err := f.GetRows(cyclesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "2024-09" || rows[1][1] != "yes" || rows[2][0] != "2024-11" || rows[2][1] != "no" {
		t.Errorf("cycle rows = %v", rows[1:])
	}
	if rows[2][3] != "38.40" || rows[2][8] != "1250" {
		t.Errorf("2024-11 row = %v", rows[2])
	}
}

func TestSnapshotPDF(t *testing.T) {
	data, err := SnapshotPDF(sampleSnapshot())
	if err != nil {
		t.Fatalf("SnapshotPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", data[:8])
	}
}

func TestCycleRow_MissingParts(t *testing.T) {
	row := cycleRow("2024-01", &billing.CycleRecord{})
	if row[0] != "2024-01" || row[1] != "" || row[8] != "" {
		t.Errorf("row = %v", row)
	}
}
