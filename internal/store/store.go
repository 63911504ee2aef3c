package store

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/cockroachdb/pebble"

	"github.com/korjavin/tienda/internal/catalog"
)

const (
	pebbleDir = "pebble"
	bleveDir  = "bleve"
)

// bleveDoc is the document structure indexed into Bleve.
type bleveDoc struct {
	NameFolded string `json:"name_folded"`
}

// foldForIndex lowercases the normalized name; the simple analyzer lowercases
// tokens, so query terms must match that.
func foldForIndex(name string) string {
	return strings.ToLower(catalog.Normalize(name))
}

// Store holds the catalog snapshot: rows in Pebble keyed by load order, and a
// Bleve index of folded names for fuzzy suggestions.
type Store struct {
	db    *pebble.DB
	index bleve.Index
}

// OpenReadOnly opens an existing data directory in read-only mode (for the server).
func OpenReadOnly(dataDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(dataDir, pebbleDir), &pebble.Options{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble (read-only): %w", err)
	}

	idx, err := bleve.Open(filepath.Join(dataDir, bleveDir))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &Store{db: db, index: idx}, nil
}

// Create initialises a fresh data directory for the importer.
// The pebble and bleve sub-directories must not already exist.
func Create(dataDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(dataDir, pebbleDir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("create pebble: %w", err)
	}

	idx, err := bleve.New(filepath.Join(dataDir, bleveDir), newBleveMapping())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bleve index: %w", err)
	}

	return &Store{db: db, index: idx}, nil
}

// Close releases all resources held by the store.
func (s *Store) Close() error {
	var errs []string
	if err := s.index.Close(); err != nil {
		errs = append(errs, "bleve: "+err.Error())
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, "pebble: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("store close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Put writes a single record to Pebble and indexes its folded name in Bleve.
func (s *Store) Put(r Record) error {
	if r.Name == "" {
		return fmt.Errorf("record %d has empty name", r.Seq)
	}
	if err := s.db.Set(Key(r.Seq), r.Encode(), pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	if err := s.index.Index(docID(r.Seq), bleveDoc{NameFolded: foldForIndex(r.Name)}); err != nil {
		return fmt.Errorf("bleve index: %w", err)
	}
	return nil
}

// WriteBatch accumulates records for batched writes to Pebble and Bleve.
type WriteBatch struct {
	s     *Store
	pb    *pebble.Batch
	bb    *bleve.Batch
	count int
}

// NewWriteBatch creates a new WriteBatch backed by the given store.
func (s *Store) NewWriteBatch() *WriteBatch {
	return &WriteBatch{
		s:  s,
		pb: s.db.NewBatch(),
		bb: s.index.NewBatch(),
	}
}

// Put accumulates a record in the batch without flushing.
func (b *WriteBatch) Put(r Record) {
	_ = b.pb.Set(Key(r.Seq), r.Encode(), nil)
	_ = b.bb.Index(docID(r.Seq), bleveDoc{NameFolded: foldForIndex(r.Name)})
	b.count++
}

// Flush commits both batches to the underlying stores and resets accumulators.
func (b *WriteBatch) Flush() error {
	if err := b.pb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble batch commit: %w", err)
	}
	if err := b.s.index.Batch(b.bb); err != nil {
		return fmt.Errorf("bleve batch commit: %w", err)
	}
	b.pb.Reset()
	b.bb = b.s.index.NewBatch()
	b.count = 0
	return nil
}

// Close flushes any pending data and releases the pebble batch memory.
func (b *WriteBatch) Close() error {
	if b.count > 0 {
		if err := b.Flush(); err != nil {
			b.pb.Close()
			return err
		}
	}
	b.pb.Close()
	return nil
}

// Len returns the number of records accumulated since the last flush.
func (b *WriteBatch) Len() int {
	return b.count
}

// Get retrieves a record by sequence number.
// Returns (Record{}, false, nil) when there is no such row.
func (s *Store) Get(seq uint64) (Record, bool, error) {
	val, closer, err := s.db.Get(Key(seq))
	if err == pebble.ErrNotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	// val is only valid until closer.Close(); Decode copies what it keeps.
	var r Record
	if err := r.Decode(val); err != nil {
		return Record{}, false, fmt.Errorf("decode record %d: %w", seq, err)
	}
	r.Seq = seq
	return r, true, nil
}

// Rows returns every stored record as catalog rows, in load order.
func (s *Store) Rows() ([]catalog.Row, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}

	var rows []catalog.Row
	for iter.First(); iter.Valid(); iter.Next() {
		var r Record
		if err := r.Decode(iter.Value()); err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(iter.Key()), err)
		}
		rows = append(rows, catalog.Row{Name: r.Name, Price: r.Price})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("pebble iter close: %w", err)
	}
	return rows, nil
}

// Suggest runs a fuzzy Bleve query, for misspelled searches the substring
// index cannot answer, and fetches the matching records from Pebble.
// limit caps the number of results (max 50).
func (s *Store) Suggest(q string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	folded := foldForIndex(strings.TrimSpace(q))
	if folded == "" {
		return nil, nil
	}

	boolQ := bleve.NewBooleanQuery()

	// exact phrase and prefix rank first
	phraseQ := bleve.NewMatchPhraseQuery(folded)
	phraseQ.SetField("name_folded")
	phraseQ.SetBoost(10)
	boolQ.AddShould(phraseQ)

	prefixQ := bleve.NewPrefixQuery(folded)
	prefixQ.SetField("name_folded")
	prefixQ.SetBoost(5)
	boolQ.AddShould(prefixQ)

	// per-token fuzzy, only for tokens of 4+ characters
	for _, token := range strings.Fields(folded) {
		if len([]rune(token)) < 4 {
			continue
		}
		fuzz := 1
		if len([]rune(token)) >= 8 {
			fuzz = 2
		}
		fuzzyQ := bleve.NewFuzzyQuery(token)
		fuzzyQ.SetField("name_folded")
		fuzzyQ.Fuzziness = fuzz
		boolQ.AddShould(fuzzyQ)
	}

	req := bleve.NewSearchRequestOptions(boolQ, limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	records := make([]Record, 0, len(res.Hits))
	for _, hit := range res.Hits {
		seq, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		r, found, err := s.Get(seq)
		if err != nil || !found {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// newBleveMapping builds the index mapping used when creating a fresh index.
func newBleveMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = simple.Name
	textField.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name_folded", textField)

	im.DefaultMapping = docMapping
	return im
}
