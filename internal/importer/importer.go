package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/korjavin/tienda/internal/store"
)

const batchSize = 5_000

// Options control how the export is decoded.
type Options struct {
	Encoding  string // EncodingLatin1 or EncodingUTF8
	Delimiter rune
	Verbose   bool
}

// DefaultOptions matches the store's product export: Latin-1, ';'-delimited.
func DefaultOptions() Options {
	return Options{Encoding: EncodingLatin1, Delimiter: ';'}
}

// Import reads a product export, builds a Pebble snapshot and Bleve index
// inside outputDir, and returns the resulting manifest.
//
// Rows keep their position in the file as sequence number, so the server
// rebuilds the catalog in the same order. Rows without a name or a price
// after trimming are skipped and counted, like unreadable records.
func Import(csvPath, outputDir string, opts Options) (*store.Manifest, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	rd, err := NewReader(f, opts.Encoding, opts.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", csvPath, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s, err := store.Create(outputDir)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer s.Close()

	var (
		rowCount     int64
		storedCount  int64
		skippedCount int64
		skipReasons  = make(map[string]int64)
		startTime    = time.Now()
		seq          uint64
	)

	skip := func(reason string) {
		skippedCount++
		skipReasons[reason]++
	}

	batch := s.NewWriteBatch()

	for {
		row, err := rd.Next()
		if err == io.EOF {
			break
		}
		rowCount++

		var pe *csv.ParseError
		switch {
		case errors.As(err, &pe):
			skip("parse_error")
			slog.Debug("csv parse error, skipping record", "line", pe.Line, "error", pe.Err)
			continue
		case errors.Is(err, errShortRecord):
			skip("short_record")
			continue
		case err != nil:
			return nil, fmt.Errorf("read export: %w", err)
		}

		name := strings.TrimSpace(row.Name)
		price := strings.TrimSpace(row.Price)
		if name == "" {
			skip("empty_name")
			continue
		}
		if price == "" {
			skip("empty_price")
			continue
		}

		batch.Put(store.Record{Seq: seq, Name: name, Price: price})
		seq++
		storedCount++

		if batch.Len() >= batchSize {
			if err := batch.Flush(); err != nil {
				return nil, fmt.Errorf("batch flush: %w", err)
			}
		}

		if opts.Verbose && storedCount%10_000 == 0 {
			elapsed := time.Since(startTime)
			slog.Info("import progress",
				"rows", rowCount,
				"stored", storedCount,
				"skipped", skippedCount,
				"elapsed", elapsed.Round(time.Millisecond),
			)
		}
	}

	if err := batch.Close(); err != nil {
		return nil, fmt.Errorf("final batch flush: %w", err)
	}

	m := &store.Manifest{
		BuildTime:    time.Now().UTC(),
		Source:       csvPath,
		Encoding:     opts.Encoding,
		RowCount:     rowCount,
		StoredCount:  storedCount,
		SkippedCount: skippedCount,
		SkipReasons:  skipReasons,
	}

	if err := store.WriteManifest(outputDir, m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return m, nil
}
