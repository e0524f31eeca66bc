package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/oarkflow/json"
)

func init() {
	json.SetMarshaler(gojson.Marshal)
}

type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSONL:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text|jsonl)", s)
}

// Record is one prediction row in JSON Lines output.
type Record struct {
	ID         int    `json:"id"`
	Task       string `json:"task"`
	Prediction any    `json:"prediction"`
}

// ToJSON renders r as a single JSON line without a trailing newline.
func ToJSON(r Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Writer emits one line per record in the chosen format. Call Flush when done.
type Writer struct {
	w      *bufio.Writer
	format Format
}

func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: bufio.NewWriter(w), format: format}
}

// Write appends a record. text is the plain-text rendering used by the text
// format; r.Prediction is used by jsonl.
func (w *Writer) Write(r Record, text string) error {
	line := text
	if w.format == FormatJSONL {
		var err error
		if line, err = ToJSON(r); err != nil {
			return err
		}
	}
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Flush() error { return w.w.Flush() }
