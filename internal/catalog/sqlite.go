package catalog

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS sku_embeddings (
	sku_id     TEXT PRIMARY KEY,
	dim        INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

func openStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening embedding store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embedding schema: %w", err)
	}
	return db, nil
}

func readIndexSQLite(path string) (map[string][]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open embedding store: %w", err)
	}
	db, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT sku_id, dim, vector FROM sku_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	entries := make(map[string][]float64)
	for rows.Next() {
		var (
			id   string
			dim  int
			blob []byte
		)
		if err := rows.Scan(&id, &dim, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("sku %q: %w", id, err)
		}
		entries[id] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return entries, nil
}

// SaveIndex upserts embeddings into a SQLite store, creating it if needed.
// Existing SKUs not present in entries are left untouched.
func SaveIndex(path string, entries map[string][]float64) error {
	db, err := openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO sku_embeddings (sku_id, dim, vector, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku_id) DO UPDATE SET dim = excluded.dim, vector = excluded.vector, updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().Unix()
	for _, id := range ids {
		vec := entries[id]
		if _, err := stmt.Exec(id, len(vec), encodeVector(vec), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("storing sku %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing embeddings: %w", err)
	}
	return nil
}

// Vectors are stored as little-endian float32.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(f)))
	}
	return buf
}

func decodeVector(blob []byte, dim int) ([]float64, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("vector blob is %d bytes, expected %d", len(blob), 4*dim)
	}
	v := make([]float64, dim)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:])))
	}
	return v, nil
}
