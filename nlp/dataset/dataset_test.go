package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

func TestReadClassification(t *testing.T) {
	in := `{"text": "hello world", "label": "en"}

{"text": "فرحان جدا", "label": "ar"}
`
	got, err := Read(strings.NewReader(in), task.Classification, stage.Train, 1<<20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "en", got[0].Label)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, []string{"فرحان", "جدا"}, got[1].Words())
	assert.Equal(t, 3, got[1].Line)
}

func TestReadNER(t *testing.T) {
	in := `{"tokens": ["زار", "محمد", "القاهرة"], "tags": ["O", "B-PER", "B-LOC"]}` + "\n"
	got, err := Read(strings.NewReader(in), task.NER, stage.Train, 1<<20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"O", "B-PER", "B-LOC"}, got[0].Tags)
	assert.Equal(t, got[0].Tokens, got[0].Words())
}

func TestReadSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		task task.Type
		row  string
	}{
		{"not json", task.Classification, `{"text": `},
		{"missing label", task.Classification, `{"text": "hello"}`},
		{"empty label", task.Classification, `{"text": "hello", "label": ""}`},
		{"label not string", task.Classification, `{"text": "hello", "label": 3}`},
		{"newline in label", task.Classification, `{"text": "hello", "label": "e\nn"}`},
		{"carriage return in label", task.Classification, `{"text": "hello", "label": "en\r"}`},
		{"control char in label", task.Classification, `{"text": "hello", "label": "e\u0001n"}`},
		{"padded label", task.Classification, `{"text": "hello", "label": " en"}`},
		{"uncleaned text", task.Classification, `{"text": "hello  world", "label": "x"}`},
		{"tab in text", task.Classification, `{"text": "a\tb", "label": "x"}`},
		{"length mismatch", task.NER, `{"tokens": ["a", "b"], "tags": ["O"]}`},
		{"bad tag", task.NER, `{"tokens": ["a"], "tags": ["PER"]}`},
		{"token with space", task.NER, `{"tokens": ["a b"], "tags": ["O"]}`},
		{"empty token", task.NER, `{"tokens": [""], "tags": ["O"]}`},
		{"missing summary", task.Summarization, `{"text": "a . b ."}`},
		{"uncleaned summary", task.Summarization, `{"text": "a .", "summary": " a ."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := `{"text": "ok", "label": "x", "tokens": ["ok"], "tags": ["O"], "summary": "ok"}` + "\n" + tt.row + "\n"
			_, err := Read(strings.NewReader(in), tt.task, stage.Train, 1<<20)
			require.Error(t, err)
			assert.ErrorIs(t, err, stage.ErrSchema)

			var se *stage.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 2, se.Line)
			assert.Equal(t, stage.Train, se.Stage)
		})
	}
}

func TestReadInvalidUTF8(t *testing.T) {
	in := "{\"text\": \"ok\", \"label\": \"x\"}\n\xff\n"
	_, err := Read(strings.NewReader(in), task.Classification, stage.Train, 1<<20)
	assert.ErrorIs(t, err, stage.ErrEncoding)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.jsonl"), task.Classification, stage.Train, 1<<20)
	assert.ErrorIs(t, err, stage.ErrIO)

	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty, task.Classification, stage.Train, 1<<20)
	assert.ErrorIs(t, err, stage.ErrSchema)

	bad := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(`{"text": "x"}`+"\n"), 0o644))
	_, err = Load(bad, task.Classification, stage.Train, 1<<20)
	var se *stage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, bad, se.Path)
	assert.Equal(t, 1, se.Line)
}

func TestCheckCleaned(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", nil},
		{"hello world", nil},
		{"و+ الكتاب ، جميل", nil},
		{" hello", ErrSpacing},
		{"hello ", ErrSpacing},
		{"hello  world", ErrSpacing},
		{"hello\tworld", ErrControlChar},
		{"hello\u00a0world", ErrSpacing},
		{"hello\u200fworld", ErrFormatChar},
		{"bad\xff", ErrNotValidUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckCleaned(tt.line))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Example{Text: "فرحان جدا", Label: "happy"}))
	assert.Equal(t, "{\"text\":\"فرحان جدا\",\"label\":\"happy\"}\n", buf.String())

	got, err := Read(&buf, task.Classification, stage.Train, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "happy", got[0].Label)
}
