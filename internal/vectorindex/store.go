package vectorindex

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Artifact names inside an index directory.
const (
	VectorsFile  = "vectors.db"
	MetadataFile = "metadata.jsonl"
)

// Exists reports whether dir holds both index artifacts.
func Exists(dir string) bool {
	for _, name := range []string{VectorsFile, MetadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Save writes the index to dir, replacing any previous artifacts.
func (x *Index) Save(dir string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return ErrEmptyIndex
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	dbPath := filepath.Join(dir, VectorsFile)
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	if err := x.writeVectors(dbPath); err != nil {
		return err
	}
	return x.writeMetadata(filepath.Join(dir, MetadataFile))
}

func (x *Index) writeVectors(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO vectors (slot, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for slot, v := range x.vectors {
		blob, err := sqlite_vec.SerializeFloat32(v)
		if err != nil {
			return fmt.Errorf("serialize vector %d: %w", slot, err)
		}
		if _, err := stmt.Exec(slot, blob); err != nil {
			return fmt.Errorf("insert vector %d: %w", slot, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('dim', ?), ('count', ?)",
		strconv.Itoa(x.dim), strconv.Itoa(len(x.vectors))); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if x.root != "" {
		if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('root', ?)", x.root); err != nil {
			return fmt.Errorf("write meta: %w", err)
		}
	}
	return tx.Commit()
}

func (x *Index) writeMetadata(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range x.records {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads an index written by Save.
func Load(dir string) (*Index, error) {
	dbPath := filepath.Join(dir, VectorsFile)
	metaPath := filepath.Join(dir, MetadataFile)
	for _, p := range []string{dbPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("load index: %w", err)
		}
	}

	dim, root, vectors, err := readVectors(dbPath)
	if err != nil {
		return nil, err
	}
	records, err := readMetadata(metaPath)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadata records", ErrMisaligned, len(vectors), len(records))
	}
	return &Index{dim: dim, root: root, vectors: vectors, records: records}, nil
}

func readVectors(dbPath string) (int, string, [][]float32, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return 0, "", nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	var dimStr string
	if err := db.QueryRow("SELECT value FROM meta WHERE key = 'dim'").Scan(&dimStr); err != nil {
		return 0, "", nil, fmt.Errorf("read dim: %w", err)
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil || dim <= 0 {
		return 0, "", nil, fmt.Errorf("%w: bad dim %q", ErrDimensionMismatch, dimStr)
	}

	var bad int
	if err := db.QueryRow("SELECT count(*) FROM vectors WHERE vec_length(embedding) != ?", dim).Scan(&bad); err != nil {
		return 0, "", nil, fmt.Errorf("check dims: %w", err)
	}
	if bad > 0 {
		return 0, "", nil, fmt.Errorf("%w: %d stored vectors differ from dim %d", ErrDimensionMismatch, bad, dim)
	}

	rows, err := db.Query("SELECT slot, embedding FROM vectors ORDER BY slot")
	if err != nil {
		return 0, "", nil, fmt.Errorf("read vectors: %w", err)
	}
	defer rows.Close()

	var vectors [][]float32
	for rows.Next() {
		var (
			slot int
			blob []byte
		)
		if err := rows.Scan(&slot, &blob); err != nil {
			return 0, "", nil, err
		}
		if slot != len(vectors) {
			return 0, "", nil, fmt.Errorf("%w: expected slot %d, found %d", ErrMisaligned, len(vectors), slot)
		}
		vectors = append(vectors, deserializeFloat32(blob))
	}
	if err := rows.Err(); err != nil {
		return 0, "", nil, err
	}

	var root string
	err = db.QueryRow("SELECT value FROM meta WHERE key = 'root'").Scan(&root)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil, fmt.Errorf("read root: %w", err)
	}
	return dim, root, vectors, nil
}

// deserializeFloat32 is the inverse of sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}

func readMetadata(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, line, err)
		}
		if r.ID == "" || r.FilePath == "" {
			return nil, fmt.Errorf("%w: line %d: id and file_path are required", ErrInvalidRecord, line)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return records, nil
}
