package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Column names in the store's product export.
const (
	ColumnName  = "Nombre"
	ColumnPrice = "Precio"
)

// Encodings understood by NewReader.
const (
	EncodingLatin1 = "latin-1"
	EncodingUTF8   = "utf-8"
)

// Reader streams product rows out of a delimited export. Columns are located
// by header name, so their position and any extra columns do not matter.
type Reader struct {
	cr       *csv.Reader
	nameCol  int
	priceCol int
}

// Row is one decoded record. Fields are returned exactly as found.
type Row struct {
	Line  int
	Name  string
	Price string
}

// ErrMissingColumns is returned when the header lacks Nombre or Precio.
var ErrMissingColumns = errors.New("header must contain " + ColumnName + " and " + ColumnPrice)

// errShortRecord marks a record with fewer fields than the columns we need.
var errShortRecord = errors.New("record shorter than header")

// NewReader decodes r with the given encoding and reads the header line.
func NewReader(r io.Reader, encoding string, delimiter rune) (*Reader, error) {
	var decoded io.Reader
	switch strings.ToLower(encoding) {
	case EncodingLatin1, "iso-8859-1", "latin1":
		decoded = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case EncodingUTF8, "utf8", "":
		decoded = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rd := &Reader{cr: cr, nameCol: -1, priceCol: -1}
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case ColumnName:
			rd.nameCol = i
		case ColumnPrice:
			rd.priceCol = i
		}
	}
	if rd.nameCol < 0 || rd.priceCol < 0 {
		return nil, fmt.Errorf("%w (got %q)", ErrMissingColumns, header)
	}
	return rd, nil
}

// Next returns the next row. It returns io.EOF at the end of input, and a
// *csv.ParseError or errShortRecord for a bad record, after which reading
// may continue.
func (rd *Reader) Next() (Row, error) {
	rec, err := rd.cr.Read()
	if err != nil {
		return Row{}, err
	}
	line, _ := rd.cr.FieldPos(0)
	if rd.nameCol >= len(rec) || rd.priceCol >= len(rec) {
		return Row{Line: line}, errShortRecord
	}
	return Row{
		Line:  line,
		Name:  rec[rd.nameCol],
		Price: rec[rd.priceCol],
	}, nil
}
