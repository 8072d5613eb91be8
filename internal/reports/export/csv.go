package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	// comments are written around the csv writer, so drain it first
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	_, err := s.buf.WriteString(strings.TrimRight(line, "\r\n") + "\r\n")
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// WriteCSV streams the tables to w, each preceded by "# " metadata lines and
// separated by a blank row.
func WriteCSV(w io.Writer, tables ...Table) error {
	streamer := newCSVStreamer(w)
	for i, t := range tables {
		if i > 0 {
			if err := streamer.writeRow(make([]string, len(t.Header))); err != nil {
				return err
			}
		}
		if err := streamer.writeComment("# Report: " + t.Title); err != nil {
			return err
		}
		for _, m := range t.Meta {
			if err := streamer.writeComment("# " + m); err != nil {
				return err
			}
		}
		if err := streamer.writeRow(t.Header); err != nil {
			return err
		}
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = text(v)
			}
			if err := streamer.writeRow(cells); err != nil {
				return err
			}
		}
	}
	return streamer.Close()
}
