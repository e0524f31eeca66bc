// Package dataset reads labeled JSON Lines files and enforces the cleaned-text
// form shared by training data and inference input.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/kaptinlin/jsonschema"

	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/streaming"
	"github.com/oarkflow/arnlp/nlp/task"
)

// Example is one labeled row. Which fields are set depends on the task.
type Example struct {
	Line    int      `json:"-"`
	Text    string   `json:"text,omitempty"`
	Label   string   `json:"label,omitempty"`
	Tokens  []string `json:"tokens,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Words returns the example's tokens: Tokens for NER rows, otherwise Text
// split on spaces.
func (e Example) Words() []string {
	if e.Tokens != nil {
		return e.Tokens
	}
	return strings.Fields(e.Text)
}

var schemas = map[task.Type]string{
	task.Classification: `{
		"type": "object",
		"required": ["text", "label"],
		"properties": {
			"text": {"type": "string"},
			"label": {"type": "string", "minLength": 1, "pattern": "^[^\\r\\n]+$"}
		}
	}`,
	task.NER: `{
		"type": "object",
		"required": ["tokens", "tags"],
		"properties": {
			"tokens": {"type": "array", "items": {"type": "string", "minLength": 1}},
			"tags": {"type": "array", "items": {"type": "string", "pattern": "^(O|[BI]-\\S+)$"}}
		}
	}`,
	task.Summarization: `{
		"type": "object",
		"required": ["text", "summary"],
		"properties": {
			"text": {"type": "string"},
			"summary": {"type": "string"}
		}
	}`,
}

// Decoder validates and decodes rows for one task.
type Decoder struct {
	task   task.Type
	schema *jsonschema.Schema
}

func NewDecoder(t task.Type) (*Decoder, error) {
	src, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("no schema for task %q", t)
	}
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", t, err)
	}
	return &Decoder{task: t, schema: schema}, nil
}

// Decode parses one JSON line and checks it against the task's schema and
// the structural rules the schema cannot express.
func (d *Decoder) Decode(line []byte) (Example, error) {
	var doc map[string]any
	if err := json.Unmarshal(line, &doc); err != nil {
		return Example{}, fmt.Errorf("invalid JSON: %w", err)
	}
	result := d.schema.Validate(doc)
	if !result.IsValid() {
		return Example{}, fmt.Errorf("does not match the %s schema: %s", d.task, fmt.Sprint(result.Errors))
	}
	var ex Example
	if err := json.Unmarshal(line, &ex); err != nil {
		return Example{}, fmt.Errorf("invalid JSON: %w", err)
	}
	switch d.task {
	case task.Classification:
		if err := CheckCleaned(ex.Text); err != nil {
			return Example{}, fmt.Errorf("text: %w", err)
		}
		// labels are written one per line by text-format inference
		if err := CheckCleaned(ex.Label); err != nil {
			return Example{}, fmt.Errorf("label: %w", err)
		}
	case task.NER:
		if len(ex.Tokens) != len(ex.Tags) {
			return Example{}, fmt.Errorf("%d tokens but %d tags", len(ex.Tokens), len(ex.Tags))
		}
		for i, tok := range ex.Tokens {
			if strings.IndexFunc(tok, unicode.IsSpace) >= 0 {
				return Example{}, fmt.Errorf("token %d contains whitespace", i)
			}
		}
		if ex.Tokens == nil {
			ex.Tokens = []string{}
		}
	case task.Summarization:
		if err := CheckCleaned(ex.Text); err != nil {
			return Example{}, fmt.Errorf("text: %w", err)
		}
		if err := CheckCleaned(ex.Summary); err != nil {
			return Example{}, fmt.Errorf("summary: %w", err)
		}
	}
	return ex, nil
}

// Read decodes every non-blank line of r. Errors are *stage.Error values of
// kind ErrSchema (or ErrEncoding / ErrIO for unreadable input) tagged with s.
func Read(r io.Reader, t task.Type, s stage.Stage, maxLineBytes int) ([]Example, error) {
	dec, err := NewDecoder(t)
	if err != nil {
		return nil, stage.Errorf(s, stage.ErrSchema, "%v", err)
	}
	var out []Example
	err = streaming.ProcessLines(r, maxLineBytes, func(n int, line string) error {
		raw := bytes.TrimSpace([]byte(line))
		if len(raw) == 0 {
			return nil
		}
		ex, err := dec.Decode(raw)
		if err != nil {
			return (&stage.Error{Stage: s, Kind: stage.ErrSchema, Err: err}).AtLine(n + 1)
		}
		ex.Line = n + 1
		out = append(out, ex)
		return nil
	})
	if err != nil {
		var lineErr *streaming.LineError
		if errors.As(err, &lineErr) {
			kind := stage.ErrIO
			if errors.Is(err, streaming.ErrInvalidUTF8) {
				kind = stage.ErrEncoding
			}
			return nil, (&stage.Error{Stage: s, Kind: kind, Err: lineErr.Err}).AtLine(lineErr.Line)
		}
		return nil, err
	}
	return out, nil
}

// Load reads a labeled file. An empty file is a schema error.
func Load(path string, t task.Type, s stage.Stage, maxLineBytes int) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stage.Wrap(s, stage.ErrIO, path, err)
	}
	defer f.Close()
	examples, err := Read(f, t, s, maxLineBytes)
	if err != nil {
		var se *stage.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = path
		}
		return nil, err
	}
	if len(examples) == 0 {
		return nil, &stage.Error{Stage: s, Kind: stage.ErrSchema, Path: path, Msg: "no examples"}
	}
	return examples, nil
}

// Cleaned-form violations.
var (
	ErrControlChar  = errors.New("contains a tab or control character")
	ErrSpacing      = errors.New("has leading, trailing or repeated spaces")
	ErrNotValidUTF8 = errors.New("is not valid UTF-8")
	ErrFormatChar   = errors.New("contains an invisible formatting character")
)

// CheckCleaned reports whether line is in the form the preprocessor emits:
// tokens separated by exactly one space, nothing else. "" is a valid empty
// document.
func CheckCleaned(line string) error {
	if !utf8.ValidString(line) {
		return ErrNotValidUTF8
	}
	if line == "" {
		return nil
	}
	if line[0] == ' ' || line[len(line)-1] == ' ' || strings.Contains(line, "  ") {
		return ErrSpacing
	}
	for _, r := range line {
		switch {
		case unicode.IsControl(r):
			return ErrControlChar
		case r != ' ' && unicode.IsSpace(r):
			return ErrSpacing
		case unicode.Is(unicode.Cf, r):
			return ErrFormatChar
		}
	}
	return nil
}

// Encode writes ex as one JSON line.
func Encode(w io.Writer, ex Example) error {
	b, err := json.Marshal(ex)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
