package util

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Entry is one key-value pair of a snapshot
type Entry struct {
	Key   string
	Value []byte
}

// WriteSnapshot writes entries in the binary snapshot format:
//
//  1. magic (engine specific, e.g. "MAPLEDB\x00")
//  2. version (uint8)
//  3. number of entries (uint64)
//  4. per entry: key length (uint32), key, value length (uint32), value
//
// All integers are little endian.
func WriteSnapshot(w io.Writer, magic string, version uint8, entries []Entry) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.Key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(e.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSnapshot reads a snapshot written by WriteSnapshot and calls fn for every entry.
// The magic and version must match exactly.
func ReadSnapshot(r io.Reader, magic string, version uint8, fn func(e Entry) error) error {
	br := bufio.NewReaderSize(r, 1024*1024)

	magicBytes := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magic {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var v uint8
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return err
	}
	if v != version {
		return fmt.Errorf("unsupported version: %d (expected %d)", v, version)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		if err := fn(Entry{Key: string(key), Value: value}); err != nil {
			return err
		}
	}
	return nil
}
