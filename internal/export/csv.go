package export

import (
	"encoding/csv"
	"io"
)

type CSVWriter struct {
	w      io.Writer
	writer *csv.Writer
	bom    bool
}

func NewCSVWriter(w io.Writer, opts Options) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return &CSVWriter{w: w, writer: cw, bom: opts.BOM}, nil
}

func (c *CSVWriter) writeBOM() error {
	if !c.bom {
		return nil
	}
	c.bom = false
	_, err := io.WriteString(c.w, "\uFEFF")
	return err
}

func (c *CSVWriter) WriteHeader(columns []string) error {
	if err := c.writeBOM(); err != nil {
		return err
	}
	return c.writer.Write(columns)
}

func (c *CSVWriter) WriteRecord(record []string) error {
	if err := c.writeBOM(); err != nil {
		return err
	}
	return c.writer.Write(record)
}

func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.writer.Error()
}
