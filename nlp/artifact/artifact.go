// Package artifact reads and writes trained model files.
//
// Layout, all integers big-endian:
//
//	"ANLP" | version uint16 | tag length uint8 | task tag | xxhash64(body) uint64 | body
//
// where body is the zstd-compressed msgpack encoding of an Artifact. The
// header can be read, and the task checked, without touching the body.
package artifact

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/oarkflow/arnlp/nlp/streaming"
	"github.com/oarkflow/arnlp/nlp/task"
)

const (
	Magic   = "ANLP"
	Version = uint16(1)
)

var (
	ErrBadMagic    = errors.New("not a model artifact")
	ErrVersion     = errors.New("unsupported artifact version")
	ErrUnknownTask = errors.New("unknown task tag")
	ErrTruncated   = errors.New("artifact is truncated")
	ErrChecksum    = errors.New("artifact checksum mismatch")
	ErrCorrupt     = errors.New("artifact body is corrupt")
)

type Header struct {
	Version  uint16
	Task     task.Type
	Checksum uint64
}

// Artifact is a trained model. Params holds the model-specific parameters in
// msgpack form; use Unpack to decode them.
type Artifact struct {
	ID        string             `msgpack:"id"`
	Task      task.Type          `msgpack:"task"`
	CreatedAt time.Time          `msgpack:"created_at"`
	Metrics   map[string]float64 `msgpack:"metrics"`
	Params    []byte             `msgpack:"params"`
}

// New packs params into a fresh artifact for t.
func New(t task.Type, params any, metrics map[string]float64) (*Artifact, error) {
	b, err := msgpack.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s parameters: %w", t, err)
	}
	return &Artifact{
		ID:        uuid.NewString(),
		Task:      t,
		CreatedAt: time.Now().UTC(),
		Metrics:   metrics,
		Params:    b,
	}, nil
}

// Unpack decodes the model parameters into v.
func (a *Artifact) Unpack(v any) error {
	if err := msgpack.Unmarshal(a.Params, v); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrCorrupt, err)
	}
	return nil
}

// Encode writes a to w.
func Encode(w io.Writer, a *Artifact) error {
	tag := string(a.Task)
	if !a.Task.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTask, tag)
	}
	raw, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	body := enc.EncodeAll(raw, nil)
	enc.Close()

	var hdr bytes.Buffer
	hdr.WriteString(Magic)
	binary.Write(&hdr, binary.BigEndian, Version)
	hdr.WriteByte(byte(len(tag)))
	hdr.WriteString(tag)
	binary.Write(&hdr, binary.BigEndian, xxhash.Sum64(body))

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadHeader reads only the fixed header from r, leaving r positioned at the
// start of the body.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return h, truncated(err)
	}
	if string(magic[:]) != Magic {
		return h, ErrBadMagic
	}
	if err := binary.Read(r, binary.BigEndian, &h.Version); err != nil {
		return h, truncated(err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return h, truncated(err)
	}
	tag := make([]byte, n[0])
	if _, err := io.ReadFull(r, tag); err != nil {
		return h, truncated(err)
	}
	h.Task = task.Type(tag)
	if !h.Task.Valid() {
		return h, fmt.Errorf("%w: %q", ErrUnknownTask, tag)
	}
	if err := binary.Read(r, binary.BigEndian, &h.Checksum); err != nil {
		return h, truncated(err)
	}
	return h, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// Decode reads a whole artifact from r and verifies its checksum.
func Decode(r io.Reader) (*Artifact, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrTruncated
	}
	if xxhash.Sum64(body) != h.Checksum {
		return nil, ErrChecksum
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var a Artifact
	if err := msgpack.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if a.Task != h.Task {
		return nil, fmt.Errorf("%w: header says %s, body says %s", ErrCorrupt, h.Task, a.Task)
	}
	return &a, nil
}

// Write stores a at path atomically.
func Write(path string, a *Artifact) error {
	f, err := streaming.CreateAtomic(path)
	if err != nil {
		return err
	}
	defer f.Abort()
	if err := Encode(f, a); err != nil {
		return err
	}
	return f.Commit()
}

// ReadHeaderFile opens path and reads its header only.
func ReadHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return ReadHeader(bufio.NewReaderSize(f, 64))
}

// Load reads and verifies the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}
