// Package snapshot implements QuineDB's coordinated point-in-time dump:
// every worker encodes its own shard while otherwise idle, the driver
// concatenates the partitions and writes one file, and Load re-routes
// every restored key through the currently running router.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/quinedb/quinedb/internal/store"
)

const (
	magic         = "QUINEDB"
	formatVersion = uint32(1)

	entryTypeString byte = 0x00
	entryTypeList   byte = 0x01
	entryTypeSet    byte = 0x02
	entryTypeHash   byte = 0x03
	entryTypeZSet   byte = 0x04

	expirePrefix byte = 0xFC
	terminator   byte = 0xFF
)

// EncodePartition serializes every live, unexpired key in shard as of now
// into the entry-stream format Driver.Save concatenates across shards.
func EncodePartition(shard *store.Shard, now time.Time) []byte {
	var buf bytes.Buffer
	for _, key := range shard.Keys(now) {
		v, ok := shard.Get(key, now)
		if !ok {
			continue
		}
		if at, hasTTL := shard.ExpiresAt(key); hasTTL {
			buf.WriteByte(expirePrefix)
			writeI64(&buf, at)
		}
		writeEntry(&buf, key, v)
	}
	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, key string, v store.Value) {
	switch v.Kind {
	case store.KindString:
		buf.WriteByte(entryTypeString)
		writeBytes(buf, []byte(key))
		writeBytes(buf, v.Str)

	case store.KindList:
		buf.WriteByte(entryTypeList)
		writeBytes(buf, []byte(key))
		items := v.List.Range(0, v.List.Len()-1)
		writeU32(buf, uint32(len(items)))
		for _, it := range items {
			writeBytes(buf, it)
		}

	case store.KindSet:
		buf.WriteByte(entryTypeSet)
		writeBytes(buf, []byte(key))
		writeU32(buf, uint32(len(v.Set)))
		for m := range v.Set {
			writeBytes(buf, []byte(m))
		}

	case store.KindHash:
		buf.WriteByte(entryTypeHash)
		writeBytes(buf, []byte(key))
		writeU32(buf, uint32(len(v.Hash)))
		for f, val := range v.Hash {
			writeBytes(buf, []byte(f))
			writeBytes(buf, val)
		}

	case store.KindZSet:
		buf.WriteByte(entryTypeZSet)
		writeBytes(buf, []byte(key))
		ranked := v.ZSet.RangeByRank(0, v.ZSet.Len()-1)
		writeU32(buf, uint32(len(ranked)))
		for _, r := range ranked {
			writeF64(buf, r.Score)
			writeBytes(buf, []byte(r.Member))
		}
	}
}

// EntryFunc receives one decoded entry. Returning an error aborts the scan.
type EntryFunc func(key string, v store.Value, expiresAt int64, hasExpiry bool) error

// DecodeStream reads entries from r until the terminator byte, invoking fn
// for each one. r must be positioned just past the file header (magic,
// version, algorithm tag, generation id).
func DecodeStream(r io.Reader, fn EntryFunc) error {
	for {
		typeByte, err := readByte(r)
		if err != nil {
			return fmt.Errorf("snapshot: truncated stream, missing terminator: %w", err)
		}

		var expiresAt int64
		hasExpiry := false
		if typeByte == expirePrefix {
			hasExpiry = true
			expiresAt, err = readI64(r)
			if err != nil {
				return err
			}
			typeByte, err = readByte(r)
			if err != nil {
				return err
			}
		}

		if typeByte == terminator {
			return nil
		}

		key, err := readBytes(r)
		if err != nil {
			return err
		}

		v, err := readValue(r, typeByte)
		if err != nil {
			return err
		}

		if err := fn(string(key), v, expiresAt, hasExpiry); err != nil {
			return err
		}
	}
}

func readValue(r io.Reader, typeByte byte) (store.Value, error) {
	switch typeByte {
	case entryTypeString:
		s, err := readBytes(r)
		if err != nil {
			return store.Value{}, err
		}
		return store.StringValue(s), nil

	case entryTypeList:
		count, err := readU32(r)
		if err != nil {
			return store.Value{}, err
		}
		l := store.NewList()
		for i := uint32(0); i < count; i++ {
			item, err := readBytes(r)
			if err != nil {
				return store.Value{}, err
			}
			l.PushBack(item)
		}
		return store.Value{Kind: store.KindList, List: l}, nil

	case entryTypeSet:
		count, err := readU32(r)
		if err != nil {
			return store.Value{}, err
		}
		s := make(map[string]struct{}, count)
		for i := uint32(0); i < count; i++ {
			m, err := readBytes(r)
			if err != nil {
				return store.Value{}, err
			}
			s[string(m)] = struct{}{}
		}
		return store.Value{Kind: store.KindSet, Set: s}, nil

	case entryTypeHash:
		count, err := readU32(r)
		if err != nil {
			return store.Value{}, err
		}
		h := make(map[string][]byte, count)
		for i := uint32(0); i < count; i++ {
			f, err := readBytes(r)
			if err != nil {
				return store.Value{}, err
			}
			val, err := readBytes(r)
			if err != nil {
				return store.Value{}, err
			}
			h[string(f)] = val
		}
		return store.Value{Kind: store.KindHash, Hash: h}, nil

	case entryTypeZSet:
		count, err := readU32(r)
		if err != nil {
			return store.Value{}, err
		}
		z := store.NewSortedSet()
		for i := uint32(0); i < count; i++ {
			score, err := readF64(r)
			if err != nil {
				return store.Value{}, err
			}
			member, err := readBytes(r)
			if err != nil {
				return store.Value{}, err
			}
			z.Add(string(member), score)
		}
		return store.Value{Kind: store.KindZSet, ZSet: z}, nil

	default:
		return store.Value{}, fmt.Errorf("snapshot: unknown entry type byte 0x%02x", typeByte)
	}
}

func writeU32(w *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	w.Write(b[:])
}

func writeI64(w *bytes.Buffer, n int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	w.Write(b[:])
}

func writeF64(w *bytes.Buffer, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	w.Write(b[:])
}

func writeBytes(w *bytes.Buffer, b []byte) {
	writeU32(w, uint32(len(b)))
	w.Write(b)
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readI64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func readF64(r io.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
