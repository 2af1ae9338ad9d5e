package fakeapi

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// buildWorkbook renders records as a single-sheet workbook: a header row of column names
// followed by one row per record.
func buildWorkbook(sheetName string, records []ldvalue.Value) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	columns := columnNames(records)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := setRow(f, sheetName, 1, header); err != nil {
		return nil, err
	}
	for i, r := range records {
		cells := make([]interface{}, len(columns))
		for j, c := range columns {
			cells[j] = cellValue(r.GetByKey(c))
		}
		if err := setRow(f, sheetName, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

// cellValue keeps numbers and booleans typed so the sheet does not store them as text.
func cellValue(v ldvalue.Value) interface{} {
	switch v.Type() {
	case ldvalue.NumberType:
		if v.IsInt() {
			return v.IntValue()
		}
		return v.Float64Value()
	case ldvalue.BoolType:
		return v.BoolValue()
	default:
		return fieldText(v)
	}
}

// columnNames is the sorted union of the scalar fields of records.
func columnNames(records []ldvalue.Value) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		for _, k := range r.Keys() {
			if t := r.GetByKey(k).Type(); t == ldvalue.ObjectType || t == ldvalue.ArrayType || seen[k] {
				continue
			}
			seen[k] = true
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
