package streaming

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("line is not valid UTF-8")

// LineError pins a read failure to a 1-based line number.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

const bom = "\uFEFF"

// ProcessLines calls handler once per newline-delimited line of r, with the
// zero-based line index. Trailing "\r" and a leading UTF-8 BOM are dropped.
// A line that is not valid UTF-8 or exceeds maxLineBytes stops the scan with
// a *LineError.
func ProcessLines(r io.Reader, maxLineBytes int, handler func(n int, line string) error) error {
	scanner := bufio.NewScanner(r)
	initial := 64 * 1024
	if maxLineBytes < initial {
		initial = maxLineBytes
	}
	scanner.Buffer(make([]byte, 0, initial), maxLineBytes)

	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if n == 0 {
			line = strings.TrimPrefix(line, bom)
		}
		if !utf8.ValidString(line) {
			return &LineError{Line: n + 1, Err: ErrInvalidUTF8}
		}
		if err := handler(n, line); err != nil {
			return err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return &LineError{Line: n + 1, Err: err}
	}
	return nil
}
