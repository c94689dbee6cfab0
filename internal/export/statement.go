// Package export renders billing snapshots as spreadsheet and PDF statements.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/bher20/bjwater/internal/billing"
)

const (
	summarySheet = "summary"
	cyclesSheet  = "cycles"
)

var cycleHeader = []string{"Cycle", "Paid", "Date", "Amount", "Water Fee", "Tax Fee", "Wastewater Fee", "Usage", "Meter"}

// sortedCycles returns the snapshot's cycle keys in ascending order.
func sortedCycles(s *billing.Snapshot) []string {
	keys := make([]string, 0, len(s.Cycles))
	for k := range s.Cycles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cycleRow(key string, rec *billing.CycleRecord) []string {
	row := []string{key, "", "", "", "", "", "", "", ""}
	if p := rec.Payment; p != nil {
		row[1] = "no"
		if p.Paid {
			row[1] = "yes"
		}
		row[2] = p.Date
		row[3] = p.Amount.StringFixed(2)
		row[4] = p.WaterFee.StringFixed(2)
		row[5] = p.TaxFee.StringFixed(2)
		row[6] = p.WastewaterFee.StringFixed(2)
	}
	if m := rec.Meter; m != nil {
		row[7] = m.Usage.String()
		row[8] = fmt.Sprintf("%d", m.Value)
	}
	return row
}

func summaryRows(s *billing.Snapshot) [][2]string {
	usage := ""
	if s.Summary.TotalUsage != nil {
		usage = fmt.Sprintf("%d", *s.Summary.TotalUsage)
	}
	return [][2]string{
		{"Provider", s.Provider},
		{"User Code", s.UserCode},
		{"Fetched", s.FetchedAt.Format(time.RFC3339)},
		{"Last Period", s.Summary.LastPeriod},
		{"Total Usage", usage},
		{"Meter Value", fmt.Sprintf("%d", s.Summary.MeterValue)},
		{"First Step Price", s.Summary.FirstStepPrice.String()},
		{"Wastewater Price", s.Summary.WastewaterPrice.String()},
		{"Water Tax Price", s.Summary.WaterTaxPrice.String()},
		{"Total Cost", s.Summary.TotalCost.String()},
		{"Second Step Left", fmt.Sprintf("%d", s.Summary.SecondStepLeft)},
		{"Total Amount", s.Summary.TotalAmount.StringFixed(2)},
	}
}

// SnapshotXLSX renders a workbook with a summary sheet and one row per cycle.
func SnapshotXLSX(s *billing.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(cyclesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Water Billing Statement")
	for i, kv := range summaryRows(s) {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	if err := f.SetSheetRow(cyclesSheet, "A1", &cycleHeader); err != nil {
		return nil, err
	}
	for i, key := range sortedCycles(s) {
		row := cycleRow(key, s.Cycles[key])
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(cyclesSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SnapshotPDF renders a single-document statement.
func SnapshotPDF(s *billing.Snapshot) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Water Billing Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, kv := range summaryRows(s) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", kv[0], kv[1]))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{22, 14, 26, 28, 28, 28, 34, 22, 28}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range cycleHeader {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, key := range sortedCycles(s) {
		for i, v := range cycleRow(key, s.Cycles[key]) {
			align := "R"
			if i < 3 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
