// Package preprocess turns raw text files into cleaned, tokenized text: one
// output line per input line, tokens joined by a single space.
package preprocess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/langdetect"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/normalizer"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/streaming"
	"github.com/oarkflow/arnlp/nlp/tokenizer"
)

// Metadata describes one cleaned document.
type Metadata struct {
	Line               int               `json:"line"`
	Tokens             int               `json:"tokens"`
	DiacriticsStripped int               `json:"diacritics_stripped"`
	TatweelStripped    int               `json:"tatweel_stripped"`
	CliticsSplit       int               `json:"clitics_split"`
	Script             langdetect.Script `json:"script"`
	Lang               string            `json:"lang,omitempty"`
}

type Stats struct {
	Lines  int
	Empty  int
	Tokens int
	tokenizer.Stats
}

type Preprocessor struct {
	cfg     config.PreprocessConfig
	tok     *tokenizer.Tokenizer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTokenizer builds the tokenizer described by cfg.
func NewTokenizer(cfg config.PreprocessConfig) (*tokenizer.Tokenizer, error) {
	mode, err := tokenizer.ParseMode(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	return tokenizer.New(tokenizer.Options{
		Mode: mode,
		Normalize: normalizer.Options{
			StripDiacritics:     cfg.StripDiacritics,
			StripTatweel:        cfg.StripTatweel,
			NormalizeAlef:       cfg.NormalizeAlef,
			NormalizeYeh:        cfg.NormalizeYeh,
			NormalizeTehMarbuta: cfg.NormalizeTehMarbuta,
			Lowercase:           cfg.Lowercase,
			KeepPunctuation:     cfg.KeepPunctuation,
		},
		SplitClitics: cfg.SplitClitics,
		CacheSize:    cfg.CacheSize,
	})
}

// New returns a Preprocessor. A nil logger or metrics set is replaced by a
// no-op logger and a private registry.
func New(cfg config.PreprocessConfig, logger *zap.Logger, m *metrics.Metrics) (*Preprocessor, error) {
	tok, err := NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Preprocessor{cfg: cfg, tok: tok, log: logger, metrics: m}, nil
}

// Line cleans a single raw line.
func (p *Preprocessor) Line(n int, raw string) (string, Metadata) {
	tokens, st := p.tok.Tokenize(raw)
	meta := Metadata{
		Line:               n,
		Tokens:             len(tokens),
		DiacriticsStripped: st.Diacritics,
		TatweelStripped:    st.Tatweel,
		CliticsSplit:       st.Clitics,
		Script:             langdetect.DetectScript(tokens),
		Lang:               langdetect.Detect(tokens),
	}
	return joinTokens(tokens), meta
}

func joinTokens(tokens []string) string {
	n := 0
	for _, t := range tokens {
		n += len(t) + 1
	}
	b := make([]byte, 0, n)
	for i, t := range tokens {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, t...)
	}
	return string(b)
}

// Process streams r to w line by line. When meta is non-nil a JSON line of
// Metadata is written for every input line. Errors carry no path; Run adds it.
func (p *Preprocessor) Process(ctx context.Context, r io.Reader, w io.Writer, meta io.Writer) (Stats, error) {
	var st Stats
	var enc *json.Encoder
	if meta != nil {
		enc = json.NewEncoder(meta)
	}
	bw := bufio.NewWriter(w)
	err := streaming.ProcessLines(r, p.cfg.MaxLineBytes, func(n int, raw string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, md := p.Line(n, raw)
		st.Lines++
		st.Tokens += md.Tokens
		st.Diacritics += md.DiacriticsStripped
		st.Tatweel += md.TatweelStripped
		st.Clitics += md.CliticsSplit
		if md.Tokens == 0 {
			st.Empty++
		}
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		if enc != nil {
			if err := enc.Encode(md); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return st, classify(err)
	}
	if err := bw.Flush(); err != nil {
		return st, stage.Wrap(stage.Preprocess, stage.ErrIO, "", err)
	}
	return st, nil
}

func classify(err error) error {
	var lineErr *streaming.LineError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &lineErr) && errors.Is(err, streaming.ErrInvalidUTF8):
		return (&stage.Error{Stage: stage.Preprocess, Kind: stage.ErrEncoding, Err: lineErr.Err}).AtLine(lineErr.Line)
	case errors.As(err, &lineErr):
		return (&stage.Error{Stage: stage.Preprocess, Kind: stage.ErrIO, Err: lineErr.Err}).AtLine(lineErr.Line)
	}
	return stage.Wrap(stage.Preprocess, stage.ErrIO, "", err)
}

// Run preprocesses inputPath into outputPath, and optionally writes metadata
// to metaPath. Outputs only appear once the whole input has been processed.
func (p *Preprocessor) Run(ctx context.Context, inputPath, outputPath, metaPath string) (Stats, error) {
	start := time.Now()
	if same(inputPath, outputPath) || (metaPath != "" && same(inputPath, metaPath)) {
		return Stats{}, stage.Errorf(stage.Preprocess, stage.ErrIO, "output path %s would overwrite the input", outputPath)
	}
	in, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, stage.Wrap(stage.Preprocess, stage.ErrIO, inputPath, err)
	}
	defer in.Close()
	if fi, err := in.Stat(); err == nil {
		if fi.IsDir() {
			return Stats{}, stage.Errorf(stage.Preprocess, stage.ErrIO, "%s is a directory", inputPath)
		}
		p.log.Info("preprocessing", zap.String("input", inputPath), zap.String("size", humanize.Bytes(uint64(fi.Size()))))
	}

	out, err := streaming.CreateAtomic(outputPath)
	if err != nil {
		return Stats{}, stage.Wrap(stage.Preprocess, stage.ErrIO, outputPath, err)
	}
	defer out.Abort()

	var metaOut *streaming.AtomicFile
	var metaW io.Writer
	if metaPath != "" {
		metaOut, err = streaming.CreateAtomic(metaPath)
		if err != nil {
			return Stats{}, stage.Wrap(stage.Preprocess, stage.ErrIO, metaPath, err)
		}
		defer metaOut.Abort()
		metaW = metaOut
	}

	st, err := p.Process(ctx, in, out, metaW)
	if err != nil {
		var se *stage.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = inputPath
		}
		return st, err
	}
	if err := out.Commit(); err != nil {
		return st, stage.Wrap(stage.Preprocess, stage.ErrIO, outputPath, err)
	}
	if metaOut != nil {
		if err := metaOut.Commit(); err != nil {
			return st, stage.Wrap(stage.Preprocess, stage.ErrIO, metaPath, err)
		}
	}

	elapsed := time.Since(start)
	p.metrics.Documents.WithLabelValues(string(stage.Preprocess)).Add(float64(st.Lines))
	p.metrics.Tokens.Add(float64(st.Tokens))
	p.metrics.StageDuration.WithLabelValues(string(stage.Preprocess)).Set(elapsed.Seconds())
	p.log.Info("preprocessed",
		zap.String("output", outputPath),
		zap.Int("lines", st.Lines),
		zap.Int("empty", st.Empty),
		zap.Int("tokens", st.Tokens),
		zap.Int("diacritics_stripped", st.Diacritics),
		zap.Int("clitics_split", st.Clitics),
		zap.Duration("elapsed", elapsed),
	)
	return st, nil
}

func same(a, b string) bool {
	if a == b {
		return true
	}
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return false
	}
	if aa == bb {
		return true
	}
	ai, err1 := os.Stat(aa)
	bi, err2 := os.Stat(bb)
	return err1 == nil && err2 == nil && os.SameFile(ai, bi)
}

// String renders Stats for CLI summaries.
func (s Stats) String() string {
	return fmt.Sprintf("%d lines (%d empty), %d tokens", s.Lines, s.Empty, s.Tokens)
}
