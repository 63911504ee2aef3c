package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/korjavin/tienda/internal/importer"
)

func main() {
	csvPath := flag.String("csv", "", "path to the product export, Nombre/Precio columns (required)")
	out := flag.String("out", "", "output data directory (required)")
	encoding := flag.String("encoding", importer.EncodingLatin1, "export encoding: latin-1 or utf-8")
	delimiter := flag.String("delimiter", ";", "field delimiter, one character")
	verbose := flag.Bool("v", false, "print progress every 10k products")
	flag.Parse()

	if *csvPath == "" || *out == "" || utf8.RuneCountInString(*delimiter) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tienda-importer -csv <path> -out <dir> [-encoding latin-1|utf-8] [-delimiter ;] [-v]")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting import", "csv", *csvPath, "out", *out, "encoding", *encoding)

	delim, _ := utf8.DecodeRuneInString(*delimiter)
	m, err := importer.Import(*csvPath, *out, importer.Options{
		Encoding:  *encoding,
		Delimiter: delim,
		Verbose:   *verbose,
	})
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	slog.Info("import complete",
		"rows", m.RowCount,
		"stored", m.StoredCount,
		"skipped", m.SkippedCount,
		"build_time", m.BuildTime,
	)
	fmt.Printf("Output: %s\n  Rows read       : %d\n  Products stored : %d\n  Skipped         : %d\n",
		*out, m.RowCount, m.StoredCount, m.SkippedCount)

	if len(m.SkipReasons) > 0 {
		fmt.Println("  Skip reasons:")
		keys := make([]string, 0, len(m.SkipReasons))
		for k := range m.SkipReasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %-20s: %d\n", k, m.SkipReasons[k])
		}
	}
}
