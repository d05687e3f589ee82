package rangeset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Range
		want []Range
	}{
		{"empty", nil, nil},
		{"single", []Range{{3, 5}}, []Range{{3, 5}}},
		{"overlapping", []Range{{1, 4}, {3, 8}}, []Range{{1, 8}}},
		{"adjacent", []Range{{1, 4}, {5, 6}}, []Range{{1, 6}}},
		{"disjoint unsorted", []Range{{10, 12}, {1, 2}, {5, 6}}, []Range{{1, 2}, {5, 6}, {10, 12}}},
		{"contained", []Range{{1, 10}, {3, 4}}, []Range{{1, 10}}},
		{"empty ranges dropped", []Range{{5, 4}, {1, 1}}, []Range{{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.in))
		})
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []Range{{10, 12}, {1, 2}}
	Merge(in)
	assert.Equal(t, []Range{{10, 12}, {1, 2}}, in)
}

func TestInvert(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		covered []Range
		want    []Range
	}{
		{"nothing covered", 10, nil, []Range{{1, 10}}},
		{"fully covered", 10, []Range{{1, 10}}, nil},
		{"leading gap", 10, []Range{{3, 10}}, []Range{{1, 2}}},
		{"trailing gap", 10, []Range{{1, 7}}, []Range{{8, 10}}},
		{"middle gaps", 20, []Range{{1, 3}, {8, 10}, {15, 16}}, []Range{{4, 7}, {11, 14}, {17, 20}}},
		{"unmerged input", 10, []Range{{5, 6}, {2, 5}, {6, 7}}, []Range{{1, 1}, {8, 10}}},
		{"covered beyond total", 5, []Range{{4, 9}}, []Range{{1, 3}}},
		{"zero total", 0, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Invert(tt.total, tt.covered))
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		max        int
		want       []Range
	}{
		{"fits", 1, 10, 250, []Range{{1, 10}}},
		{"exact multiple", 1, 6, 3, []Range{{1, 3}, {4, 6}}},
		{"short tail", 5, 11, 3, []Range{{5, 7}, {8, 10}, {11, 11}}},
		{"single line", 7, 7, 250, []Range{{7, 7}}},
		{"max one", 1, 3, 1, []Range{{1, 1}, {2, 2}, {3, 3}}},
		{"max below one", 1, 2, 0, []Range{{1, 1}, {2, 2}}},
		{"empty", 5, 4, 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.start, tt.end, tt.max))
		})
	}
}

func randomRanges(r *rand.Rand, total int) []Range {
	n := r.Intn(8)
	out := make([]Range, n)
	for i := range out {
		s := r.Intn(total) + 1
		e := s + r.Intn(total-s+1)
		out[i] = Range{Start: s, End: e}
	}
	return out
}

func TestLaws(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	t.Run("merge is idempotent", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			in := randomRanges(r, 1+r.Intn(100))
			once := Merge(in)
			assert.Equal(t, once, Merge(once))
		}
	})

	t.Run("merge and invert tile the total span", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			total := 1 + r.Intn(100)
			covered := randomRanges(r, total)

			seen := make([]int, total+1)
			for _, rg := range append(Merge(covered), Invert(total, covered)...) {
				for line := rg.Start; line <= rg.End; line++ {
					seen[line]++
				}
			}
			for line := 1; line <= total; line++ {
				require.Equal(t, 1, seen[line], "line %d of %d covered by %v", line, total, covered)
			}
		}
	})

	t.Run("split windows concatenate to the input", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			start := 1 + r.Intn(50)
			end := start + r.Intn(600)
			max := 1 + r.Intn(300)

			windows := Split(start, end, max)
			require.NotEmpty(t, windows)
			assert.Equal(t, start, windows[0].Start)
			assert.Equal(t, end, windows[len(windows)-1].End)
			for j, w := range windows {
				assert.LessOrEqual(t, w.Len(), max)
				assert.Greater(t, w.Len(), 0)
				if j > 0 {
					assert.Equal(t, windows[j-1].End+1, w.Start)
				}
			}
		}
	})
}
