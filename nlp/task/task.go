// Package task names the model tasks the pipeline can train and serve.
package task

import (
	"fmt"
	"strings"
)

// Type identifies one task family. Its string form is the tag embedded in
// model artifacts and accepted on the command line.
type Type string

const (
	Classification Type = "classification"
	NER            Type = "ner"
	Summarization  Type = "summarization"
)

// All lists the supported tasks in a stable order.
var All = []Type{Classification, NER, Summarization}

// Parse converts a command-line value into a Type.
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown task %q (supported: %s)", s, Names())
}

// Valid reports whether t is one of the supported tasks.
func (t Type) Valid() bool {
	switch t {
	case Classification, NER, Summarization:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Names returns the supported task names joined for help text.
func Names() string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
