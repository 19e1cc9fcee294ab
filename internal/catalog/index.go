// Package catalog loads the known-product assets: the SKU embedding index
// and the SKU display mapping. Both are read-only once loaded.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// Index is an immutable set of L2-normalised reference embeddings keyed by
// SKU id. Entries are kept sorted by id so ranking ties are deterministic.
type Index struct {
	ids     []string
	vectors [][]float64
	dim     int
}

// NewIndex normalises and copies entries. All vectors must share one
// dimension; zero or non-finite vectors cannot be normalised and are skipped.
func NewIndex(entries map[string][]float64) (*Index, error) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := &Index{}
	for _, id := range ids {
		vec := entries[id]
		if len(vec) == 0 {
			return nil, fmt.Errorf("sku %q: empty embedding", id)
		}
		if idx.dim == 0 {
			idx.dim = len(vec)
		} else if len(vec) != idx.dim {
			return nil, fmt.Errorf("sku %q: embedding dimension %d, expected %d", id, len(vec), idx.dim)
		}
		norm, ok := Normalize(vec)
		if !ok {
			log.Warn().Str("sku", id).Msg("skipping unusable embedding")
			continue
		}
		idx.ids = append(idx.ids, id)
		idx.vectors = append(idx.vectors, norm)
	}
	return idx, nil
}

// Len returns the number of indexed SKUs.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// Dim returns the embedding dimension, or 0 for an empty index.
func (ix *Index) Dim() int {
	if ix == nil {
		return 0
	}
	return ix.dim
}

// Entry returns the SKU id and normalised vector at position i. The vector
// is shared and must not be modified.
func (ix *Index) Entry(i int) (string, []float64) {
	return ix.ids[i], ix.vectors[i]
}

// IDs returns a copy of the indexed SKU ids in sorted order.
func (ix *Index) IDs() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.ids...)
}

// Normalize returns a unit-length copy of v. The second result is false
// when v has zero norm or a NaN or infinite element.
func Normalize(v []float64) ([]float64, bool) {
	if len(v) == 0 || floats.HasNaN(v) {
		return nil, false
	}
	n := floats.Norm(v, 2)
	if n == 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, false
	}
	return floats.ScaleTo(make([]float64, len(v)), 1/n, v), true
}

// LoadIndex loads an embedding store, choosing the format by extension:
// .json holds an object of sku id -> number array; .db, .sqlite and
// .sqlite3 are SQLite stores written by SaveIndex.
func LoadIndex(path string) (*Index, error) {
	var (
		entries map[string][]float64
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		entries, err = readIndexJSON(path)
	case ".db", ".sqlite", ".sqlite3":
		entries, err = readIndexSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported embedding store format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	idx, err := NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Int("skus", idx.Len()).Int("dim", idx.Dim()).Str("path", path).Msg("loaded embedding index")
	return idx, nil
}

func readIndexJSON(path string) (map[string][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read embedding store: %w", err)
	}
	var entries map[string][]float64
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("cannot parse embedding store: %w", err)
	}
	return entries, nil
}

// Mean averages the unit-normalised forms of vectors, the reference
// embedding for a SKU photographed several times. Zero vectors are ignored.
func Mean(vectors [][]float64) ([]float64, error) {
	var sum []float64
	n := 0
	for _, v := range vectors {
		unit, ok := Normalize(v)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(unit))
		} else if len(unit) != len(sum) {
			return nil, fmt.Errorf("embedding dimension %d, expected %d", len(unit), len(sum))
		}
		floats.Add(sum, unit)
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no usable embeddings")
	}
	floats.Scale(1/float64(n), sum)
	return sum, nil
}
