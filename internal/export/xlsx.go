package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter 在内存中构建工作簿，Close 时整体写出。
type XLSXWriter struct {
	w      io.Writer
	f      *excelize.File
	sheet  string
	row    int
	header int // 表头样式
	closed bool
}

func NewXLSXWriter(w io.Writer, opts Options) (*XLSXWriter, error) {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Regions"
	}
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to delete default sheet: %w", err)
		}
	}
	f.SetActiveSheet(index)

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &XLSXWriter{w: w, f: f, sheet: sheet, header: style}, nil
}

func (x *XLSXWriter) WriteHeader(columns []string) error {
	if err := x.WriteRecord(columns); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, x.row)
	last, err := excelize.CoordinatesToCellName(max(len(columns), 1), x.row)
	if err != nil {
		return err
	}
	if err := x.f.SetCellStyle(x.sheet, first, last, x.header); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return x.f.SetPanes(x.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      x.row,
		TopLeftCell: fmt.Sprintf("A%d", x.row+1),
		ActivePane:  "bottomLeft",
	})
}

func (x *XLSXWriter) WriteRecord(record []string) error {
	x.row++
	for i, v := range record {
		if v == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, x.row)
		if err != nil {
			return err
		}
		if err := x.f.SetCellValue(x.sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func (x *XLSXWriter) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	if _, err := x.f.WriteTo(x.w); err != nil {
		x.f.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return x.f.Close()
}
