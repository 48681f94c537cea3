package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/adsift/internal/scanner"
)

// JSONWriter buffers reports and writes them on Close: a single report as an
// object, several as an array.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	reports []scanner.Report
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write buffers a report.
func (w *JSONWriter) Write(r scanner.Report) error {
	w.reports = append(w.reports, r)
	return nil
}

// Close writes the buffered reports.
func (w *JSONWriter) Close() error {
	if len(w.reports) == 0 {
		return w.w.Flush()
	}

	var v any = w.reports
	if len(w.reports) == 1 {
		v = w.reports[0]
	}

	var (
		out []byte
		err error
	)
	if w.pretty {
		out, err = json.MarshalIndent(v, "", w.indent)
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(append(out, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes one report per line as soon as it arrives, which suits
// the long-running watch mode.
type JSONLWriter struct {
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w)}
}

// Write writes a single report as a JSON line.
func (w *JSONLWriter) Write(r scanner.Report) error {
	return w.enc.Encode(r)
}

// Close is a no-op; every line is written immediately.
func (w *JSONLWriter) Close() error {
	return nil
}
