package dashboard

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RosterHeader is the column order of the roster workbook.
var RosterHeader = []string{"Name", "Gender", "DOB", "City", "State", "Country", "Payer ID"}

const rosterSheet = "Patients"

// RosterWorkbook renders a cancer's patient roster as an .xlsx file. An
// empty roster still produces the header row.
func RosterWorkbook(cancer string, rows []PatientRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, fmt.Errorf("create date style: %w", err)
	}

	if err := f.SetCellValue(rosterSheet, "A1", fmt.Sprintf("Patients with %s", cancer)); err != nil {
		return nil, err
	}
	for i, h := range RosterHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(rosterSheet, cell, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(RosterHeader), 2)
	if err := f.SetCellStyle(rosterSheet, "A2", last, headerStyle); err != nil {
		return nil, err
	}

	for r, p := range rows {
		line := r + 3
		values := []any{p.Name, p.Gender, nil, p.City, p.State, p.Country, p.PayerID}
		if p.DOB != nil {
			values[2] = *p.DOB
		}
		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(rosterSheet, start, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", line, err)
		}
		dobCell, _ := excelize.CoordinatesToCellName(3, line)
		if err := f.SetCellStyle(rosterSheet, dobCell, dobCell, dateStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(rosterSheet, "A", "A", 28); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
