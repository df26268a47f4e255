// Package export renders an extract schema and a set of episodes into a
// spreadsheet workbook, the download the extract schema exists to serve.
package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/theseusyang/opal/internal/domain/record"
)

// WriteWorkbook produces an .xlsx with one sheet per extract column. Each
// sheet carries a styled header row — the owning episode id followed by the
// column's field names — and one row per item of that column across the
// supplied episodes, in ascending episode-id order. Dates are rendered in
// display format.
func WriteWorkbook(schema *record.Schema, episodes map[int64]*record.Episode) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	ids := make([]int64, 0, len(episodes))
	for id := range episodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for ci, col := range schema.Columns() {
		index, err := f.NewSheet(col.Name)
		if err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", col.Name, err)
		}
		if ci == 0 {
			f.SetActiveSheet(index)
		}

		headers := make([]string, 0, len(col.Fields)+1)
		headers = append(headers, "episode_id")
		for _, field := range col.Fields {
			headers = append(headers, field.Name)
		}
		for c, header := range headers {
			cell, err := excelize.CoordinatesToCellName(c+1, 1)
			if err != nil {
				return nil, fmt.Errorf("sheet %q: %w", col.Name, err)
			}
			if err := f.SetCellValue(col.Name, cell, header); err != nil {
				return nil, fmt.Errorf("sheet %q: header %q: %w", col.Name, header, err)
			}
			if err := f.SetCellStyle(col.Name, cell, cell, headerStyle); err != nil {
				return nil, fmt.Errorf("sheet %q: header style: %w", col.Name, err)
			}
		}

		row := 2
		for _, id := range ids {
			episode := episodes[id]
			count, err := episode.NumberOfItems(col.Name)
			if err != nil {
				return nil, err
			}
			for i := 0; i < count; i++ {
				item, err := episode.GetItem(col.Name, i)
				if err != nil {
					return nil, err
				}
				values := item.MakeCopy()
				if err := setCell(f, col.Name, 1, row, id); err != nil {
					return nil, err
				}
				for c, field := range col.Fields {
					v := values[field.Name]
					if v == nil {
						continue
					}
					if err := setCell(f, col.Name, c+2, row, v); err != nil {
						return nil, err
					}
				}
				row++
			}
		}
	}

	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("sheet %q: cell %s: %w", sheet, cell, err)
	}
	return nil
}
