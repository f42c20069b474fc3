package pkguid

import (
	"strconv"
	"sync/atomic"
)

// StringID names processing runs.
type StringID interface {
	Generate() string
}

// NumberID numbers the documents uploaded to a run.
type NumberID interface {
	Generate() int64
}

// Sequence numbers from 1 upwards. The zero value is ready to use and safe
// for concurrent callers.
type Sequence struct {
	n atomic.Int64
}

// Generate returns the next number.
func (s *Sequence) Generate() int64 {
	return s.n.Add(1)
}

// Labeled names runs "<prefix>-1", "<prefix>-2" and so on.
type Labeled struct {
	prefix string
	seq    Sequence
}

// NewLabeled returns a Labeled generator for prefix.
func NewLabeled(prefix string) *Labeled {
	return &Labeled{prefix: prefix}
}

// Generate returns the next label.
func (l *Labeled) Generate() string {
	return l.prefix + "-" + strconv.FormatInt(l.seq.Generate(), 10)
}
