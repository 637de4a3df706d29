// 包 export：表格导出（CSV / XLSX），用于标题清单与行政区索引
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat 忽略大小写；空串视为 csv。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

type Options struct {
	Format    Format
	Delimiter rune   // 仅 CSV
	SheetName string // 仅 XLSX
	BOM       bool   // CSV 写入 UTF-8 BOM，便于表格软件识别中文
}

// RecordWriter 按行写出记录；Close 之前的内容不保证已落盘。
type RecordWriter interface {
	WriteHeader(columns []string) error
	WriteRecord(record []string) error
	Close() error
}

type WriterFactory struct{}

func NewWriterFactory() *WriterFactory {
	return &WriterFactory{}
}

func (f *WriterFactory) CreateWriter(w io.Writer, opts Options) (RecordWriter, error) {
	switch opts.Format {
	case FormatCSV, "":
		return NewCSVWriter(w, opts)
	case FormatXLSX:
		return NewXLSXWriter(w, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}
}

// CreateFileWriter 创建文件并返回写入器，Close 时一并关闭文件。
func (f *WriterFactory) CreateFileWriter(path string, opts Options) (RecordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("export: create %s: %w", path, err)
	}
	w, err := f.CreateWriter(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fileWriter{RecordWriter: w, file: file}, nil
}

type fileWriter struct {
	RecordWriter
	file *os.File
}

func (w *fileWriter) Close() error {
	if err := w.RecordWriter.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteAll 写表头与全部记录后关闭。
func WriteAll(w RecordWriter, header []string, records [][]string) error {
	if err := w.WriteHeader(header); err != nil {
		w.Close()
		return err
	}
	for _, r := range records {
		if err := w.WriteRecord(r); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
