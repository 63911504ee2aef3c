package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Record is one catalog row as the importer accepted it. Seq is the row's
// position in the source file and doubles as the Pebble key.
type Record struct {
	Seq   uint64
	Name  string
	Price string
}

const schemaVersion = 2

// Key returns the Pebble key for seq. Big-endian keeps iteration in load order.
func Key(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// docID is the Bleve document id for seq.
func docID(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}

// Encode serialises a Record (without Seq) into a compact binary format:
//
//	version   uvarint  (=2)
//	nameLen   uvarint
//	name      []byte (UTF-8)
//	priceLen  uvarint
//	price     []byte (UTF-8, as found in the source)
func (r Record) Encode() []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, schemaVersion)
	writeString(&buf, r.Name)
	writeString(&buf, r.Price)
	return buf.Bytes()
}

// Decode parses a blob produced by Encode. Seq is not part of the blob; the
// caller sets it from the key.
func (r *Record) Decode(data []byte) error {
	rd := bytes.NewReader(data)

	ver, err := binary.ReadUvarint(rd)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if ver != schemaVersion {
		return fmt.Errorf("unsupported schema version %d", ver)
	}

	if r.Name, err = readString(rd); err != nil {
		return fmt.Errorf("read name: %w", err)
	}
	if r.Price, err = readString(rd); err != nil {
		return fmt.Errorf("read price: %w", err)
	}
	return nil
}

func writeUvarint(w *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

func writeString(w *bytes.Buffer, s string) {
	writeUvarint(w, uint64(len(s)))
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
