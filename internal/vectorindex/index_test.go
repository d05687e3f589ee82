package vectorindex

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			ID:         fmt.Sprintf("/repo/f.py::function::f%d:%d-%d", i, i+1, i+2),
			FilePath:   "/repo/f.py",
			SymbolName: fmt.Sprintf("f%d", i),
			SymbolType: "function",
			StartLine:  i + 1,
			EndLine:    i + 2,
		}
	}
	return out
}

func slots(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.Slot
	}
	return out
}

func TestAdd(t *testing.T) {
	t.Run("shape mismatch leaves index unchanged", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add([][]float32{{1, 0}}, records(1)))

		vecs := [][]float32{{1, 0}, {0, 1}, {1, 1}, {0, 0}, {2, 2}}
		err := x.Add(vecs, records(4))

		assert.ErrorIs(t, err, ErrShapeMismatch)
		assert.Equal(t, 1, x.Len())
		assert.Len(t, x.Records(), 1)
	})

	t.Run("shape mismatch on empty index", func(t *testing.T) {
		x := New()
		err := x.Add([][]float32{{1}, {2}, {3}, {4}, {5}}, records(4))
		assert.ErrorIs(t, err, ErrShapeMismatch)
		assert.Equal(t, 0, x.Len())
		assert.Equal(t, 0, x.Dim())
	})

	t.Run("first add fixes dimension", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add(nil, nil))
		assert.Equal(t, 0, x.Dim())

		require.NoError(t, x.Add([][]float32{{1, 2, 3}}, records(1)))
		assert.Equal(t, 3, x.Dim())

		err := x.Add([][]float32{{1, 2, 3}, {1, 2}}, records(2))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Equal(t, 1, x.Len())
	})

	t.Run("inconsistent first batch", func(t *testing.T) {
		x := New()
		err := x.Add([][]float32{{1, 2}, {1}}, records(2))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Equal(t, 0, x.Dim())
	})

	t.Run("vectors are copied", func(t *testing.T) {
		x := New()
		v := []float32{1, 0}
		require.NoError(t, x.Add([][]float32{v}, records(1)))
		v[0] = -5
		hits, err := x.Search([][]float32{{1, 0}}, 1)
		require.NoError(t, err)
		assert.Equal(t, float32(1), hits[0][0].Score)
	})
}

func TestSearch(t *testing.T) {
	t.Run("never pads beyond the index size", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add([][]float32{{1, 0}, {0, 1}}, records(2)))

		hits, err := x.Search([][]float32{{1, 0}}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, []Hit{{Score: 1, Slot: 0}, {Score: 0, Slot: 1}}, hits[0])
	})

	t.Run("ties broken by slot", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add([][]float32{{0, 1}, {1, 0}, {1, 0}}, records(3)))

		hits, err := x.Search([][]float32{{1, 0}}, 2)
		require.NoError(t, err)
		assert.Equal(t, []Hit{{Score: 1, Slot: 1}, {Score: 1, Slot: 2}}, hits[0])
	})

	t.Run("non-positive k", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add([][]float32{{1}}, records(1)))

		hits, err := x.Search([][]float32{{1}, {2}}, 0)
		require.NoError(t, err)
		assert.Equal(t, [][]Hit{{}, {}}, hits)
	})

	t.Run("empty index", func(t *testing.T) {
		hits, err := New().Search([][]float32{{1, 2}}, 5)
		require.NoError(t, err)
		assert.Equal(t, [][]Hit{{}}, hits)
	})

	t.Run("NaN scores rank last", func(t *testing.T) {
		nan := float32(math.NaN())
		x := New()
		require.NoError(t, x.Add([][]float32{{1, 0}, {nan, 0}, {0.5, 0}, {nan, 1}, {2, 0}}, records(5)))

		hits, err := x.Search([][]float32{{1, 0}}, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 0, 2, 1, 3}, slots(hits[0]))

		hits, err = x.Search([][]float32{{nan, nan}}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, slots(hits[0]))
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		x := New()
		require.NoError(t, x.Add([][]float32{{1, 0}}, records(1)))
		_, err := x.Search([][]float32{{1, 0, 0}}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("matches brute force", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		const n, dim = 200, 16
		vecs := make([][]float32, n)
		for i := range vecs {
			vecs[i] = make([]float32, dim)
			for j := range vecs[i] {
				vecs[i][j] = r.Float32()*2 - 1
			}
		}
		x := New()
		require.NoError(t, x.Add(vecs, records(n)))

		for trial := 0; trial < 20; trial++ {
			q := make([]float32, dim)
			for j := range q {
				q[j] = r.Float32()*2 - 1
			}
			want := make([]Hit, n)
			for slot, v := range vecs {
				want[slot] = Hit{Score: dot(q, v), Slot: slot}
			}
			sort.SliceStable(want, func(i, j int) bool { return want[i].Score > want[j].Score })

			hits, err := x.Search([][]float32{q}, 10)
			require.NoError(t, err)
			require.Len(t, hits[0], 10)
			for i := range hits[0] {
				assert.Equal(t, want[i].Slot, hits[0][i].Slot)
				if i > 0 {
					assert.GreaterOrEqual(t, hits[0][i-1].Score, hits[0][i].Score)
				}
			}
		}
	})
}

func TestRecord(t *testing.T) {
	x := New()
	require.NoError(t, x.Add([][]float32{{1}}, records(1)))

	r, ok := x.Record(0)
	assert.True(t, ok)
	assert.Equal(t, "f0", r.SymbolName)

	_, ok = x.Record(1)
	assert.False(t, ok)
	_, ok = x.Record(-1)
	assert.False(t, ok)
}

func TestSaveLoad(t *testing.T) {
	t.Run("round trip keeps slot alignment", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "idx")
		x := New()
		vecs := [][]float32{{0.25, -1.5, 3}, {1, 0, 0}, {0, 0, 1e-7}}
		recs := records(3)
		recs[1].SymbolName = "<html> & \"quotes\""
		require.NoError(t, x.Add(vecs, recs))

		require.NoError(t, x.Save(dir))
		assert.True(t, Exists(dir))

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Len())
		assert.Equal(t, 3, loaded.Dim())
		assert.Equal(t, recs, loaded.Records())
		assert.Equal(t, vecs, loaded.vectors)

		meta, err := os.ReadFile(filepath.Join(dir, MetadataFile))
		require.NoError(t, err)
		assert.Contains(t, string(meta), `<html> & \"quotes\"`)
	})

	t.Run("root round trip", func(t *testing.T) {
		dir := t.TempDir()
		x := New()
		require.NoError(t, x.Add([][]float32{{1}}, records(1)))
		x.SetRoot("/repo")
		require.NoError(t, x.Save(dir))

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "/repo", loaded.Root())

		bare := New()
		require.NoError(t, bare.Add([][]float32{{1}}, records(1)))
		require.NoError(t, bare.Save(dir))
		loaded, err = Load(dir)
		require.NoError(t, err)
		assert.Empty(t, loaded.Root())
	})

	t.Run("save replaces previous artifacts", func(t *testing.T) {
		dir := t.TempDir()
		first := New()
		require.NoError(t, first.Add([][]float32{{1, 0}, {0, 1}}, records(2)))
		require.NoError(t, first.Save(dir))

		second := New()
		require.NoError(t, second.Add([][]float32{{1, 1, 1}}, records(1)))
		require.NoError(t, second.Save(dir))

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
		assert.Equal(t, 3, loaded.Dim())
	})

	t.Run("empty index is not saved", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "idx")
		assert.ErrorIs(t, New().Save(dir), ErrEmptyIndex)
		assert.False(t, Exists(dir))
	})

	t.Run("missing artifacts", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("blank metadata lines are skipped", func(t *testing.T) {
		dir := t.TempDir()
		x := New()
		require.NoError(t, x.Add([][]float32{{1}}, records(1)))
		require.NoError(t, x.Save(dir))
		appendTo(t, filepath.Join(dir, MetadataFile), "\n   \n")

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
	})

	t.Run("extra metadata line is misaligned", func(t *testing.T) {
		dir := t.TempDir()
		x := New()
		require.NoError(t, x.Add([][]float32{{1}}, records(1)))
		require.NoError(t, x.Save(dir))
		appendTo(t, filepath.Join(dir, MetadataFile), `{"id":"x","file_path":"/y","symbol_name":"z","symbol_type":"function","start_line":1,"end_line":1}`+"\n")

		_, err := Load(dir)
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("malformed metadata", func(t *testing.T) {
		dir := t.TempDir()
		x := New()
		require.NoError(t, x.Add([][]float32{{1}}, records(1)))
		require.NoError(t, x.Save(dir))
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(`{"symbol_name":"x"}`+"\n"), 0o644))

		_, err := Load(dir)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
