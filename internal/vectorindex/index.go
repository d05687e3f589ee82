// Package vectorindex is a flat inner-product index over chunk embeddings
// with slot-aligned metadata. Slot i of the vectors always describes slot i
// of the records.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrShapeMismatch     = errors.New("vector and record counts differ")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyIndex        = errors.New("index is empty")
	ErrMisaligned        = errors.New("vectors and metadata are misaligned")
	ErrInvalidRecord     = errors.New("invalid metadata record")
)

// Record is the persisted metadata of one indexed chunk.
type Record struct {
	ID         string `json:"id"`
	FilePath   string `json:"file_path"`
	SymbolName string `json:"symbol_name"`
	SymbolType string `json:"symbol_type"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
}

// Hit is one search result: the inner product and the matching slot.
type Hit struct {
	Score float32
	Slot  int
}

// Index holds vectors and records in insertion order. It is safe for
// concurrent readers; writers are serialised.
type Index struct {
	mu      sync.RWMutex
	dim     int
	root    string
	vectors [][]float32
	records []Record
}

// New returns an empty index. Its dimension is fixed by the first Add.
func New() *Index {
	return &Index{}
}

// Add appends vectors and their records in lock-step. Nothing is appended
// when the counts differ or any vector has the wrong dimension.
func (x *Index) Add(vectors [][]float32, records []Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d vectors, %d records", ErrShapeMismatch, len(vectors), len(records))
	}
	if len(vectors) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	x.dim = dim
	for i, v := range vectors {
		x.vectors = append(x.vectors, append([]float32(nil), v...))
		x.records = append(x.records, records[i])
	}
	return nil
}

// Search returns, per query, at most k hits ordered by descending inner
// product, ties broken by ascending slot. Fewer than k hits are returned when
// the index holds fewer vectors.
func (x *Index) Search(queries [][]float32, k int) ([][]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([][]Hit, len(queries))
	if k <= 0 || len(x.vectors) == 0 {
		for i := range out {
			out[i] = []Hit{}
		}
		return out, nil
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}

	for qi, q := range queries {
		if len(q) != x.dim {
			return nil, fmt.Errorf("%w: query %d has %d dimensions, want %d", ErrDimensionMismatch, qi, len(q), x.dim)
		}
		hits := make([]Hit, len(x.vectors))
		for slot, v := range x.vectors {
			hits[slot] = Hit{Score: dot(q, v), Slot: slot}
		}
		sort.Slice(hits, func(i, j int) bool { return ranksBefore(hits[i], hits[j]) })
		out[qi] = hits[:k:k]
	}
	return out, nil
}

// ranksBefore orders hits by descending score, then ascending slot. NaN
// scores rank below every number.
func ranksBefore(a, b Hit) bool {
	aNaN, bNaN := isNaN(a.Score), isNaN(b.Score)
	switch {
	case aNaN != bNaN:
		return bNaN
	case !aNaN && a.Score != b.Score:
		return a.Score > b.Score
	}
	return a.Slot < b.Slot
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Record returns the record at slot.
func (x *Index) Record(slot int) (Record, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if slot < 0 || slot >= len(x.records) {
		return Record{}, false
	}
	return x.records[slot], true
}

// Records returns a copy of all records in slot order.
func (x *Index) Records() []Record {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Record(nil), x.records...)
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// SetRoot records the directory the indexed files were walked from.
func (x *Index) SetRoot(root string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.root = root
}

// Root returns the directory passed to SetRoot, or "" for indexes saved
// without one.
func (x *Index) Root() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.root
}

// Dim returns the vector dimension, or 0 before the first Add.
func (x *Index) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}
