package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/store"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Driver owns the on-disk snapshot file and the coordinated fan-out that
// produces it.
type Driver struct {
	cfg    config.RDBConfig
	fs     afero.Fs
	logger *zap.Logger
}

// NewDriver returns a Driver writing under cfg's configured directory and
// filename, through fs (a real OS filesystem in production, an in-memory
// one in tests).
func NewDriver(cfg config.RDBConfig, fs afero.Fs, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, fs: fs, logger: logger}
}

func (d *Driver) path() string {
	return filepath.Join(d.cfg.Dir, d.cfg.Filename)
}

// Save asks every worker in tp to encode its own shard, concatenates the
// partitions in shard order, and writes the result to disk with an atomic
// rename. It never touches shard state directly — only the owning workers
// do, in response to a SnapshotJob — so no locking is needed here.
func (d *Driver) Save(tp *topology.Topology) error {
	start := time.Now()
	n := tp.NumWorkers()
	replies := make([]chan []byte, n)
	for i := 0; i < n; i++ {
		replies[i] = make(chan []byte, 1)
		tp.RequestSnapshot(i, replies[i])
	}

	var buf bytes.Buffer
	buf.WriteString(magic)
	writeU32(&buf, formatVersion)
	buf.WriteByte(byte(tp.Router().Algorithm()))

	genID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("snapshot: generating id: %w", err)
	}
	genBytes, err := genID.MarshalBinary()
	if err != nil {
		return fmt.Errorf("snapshot: marshaling id: %w", err)
	}
	buf.Write(genBytes)

	for i := 0; i < n; i++ {
		buf.Write(<-replies[i])
	}
	buf.WriteByte(terminator)

	sum := xxhash.Sum64(buf.Bytes())
	var sumBytes [8]byte
	binary.LittleEndian.PutUint64(sumBytes[:], sum)
	buf.Write(sumBytes[:])

	if err := d.writeAtomic(buf.Bytes()); err != nil {
		return err
	}

	d.logger.Info("snapshot saved",
		zap.String("file", d.path()),
		zap.String("generation", genID.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (d *Driver) writeAtomic(data []byte) error {
	if err := d.fs.MkdirAll(d.cfg.Dir, 0o755); err != nil {
		return err
	}
	tmp := d.path() + ".tmp"
	if err := afero.WriteFile(d.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return d.fs.Rename(tmp, d.path())
}

// Load reads the snapshot file, if any, and installs every entry into tp
// by re-routing it through tp's currently running router — not by the
// partition it happened to be written under. Refuses to load a file whose
// router-algorithm tag disagrees with the running configuration, since
// keys placed by a different algorithm would land on the wrong shards.
func (d *Driver) Load(tp *topology.Topology) error {
	exists, err := afero.Exists(d.fs, d.path())
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	data, err := afero.ReadFile(d.fs, d.path())
	if err != nil {
		return err
	}
	const headerLen = len(magic) + 4 + 1 + 16
	if len(data) < headerLen+1+8 {
		return errors.New("snapshot: file too short to be valid")
	}

	body := data[:len(data)-8]
	trailer := data[len(data)-8:]
	want := binary.LittleEndian.Uint64(trailer)
	if got := xxhash.Sum64(body); got != want {
		return errors.New("snapshot: checksum mismatch, file is corrupt")
	}

	r := bytes.NewReader(body)

	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return err
	}
	if string(hdr) != magic {
		return fmt.Errorf("snapshot: bad magic %q", hdr)
	}

	version, err := readU32(r)
	if err != nil {
		return err
	}
	if version != formatVersion {
		return fmt.Errorf("snapshot: unsupported version %d", version)
	}

	algoByte, err := readByte(r)
	if err != nil {
		return err
	}
	fileAlgo := hashing.Algorithm(algoByte)
	if fileAlgo != tp.Router().Algorithm() {
		return fmt.Errorf("snapshot: file was written with router %q, running router is %q",
			fileAlgo, tp.Router().Algorithm())
	}

	genID := make([]byte, 16)
	if _, err := io.ReadFull(r, genID); err != nil {
		return err
	}

	start := time.Now()
	now := time.Now()
	var count int
	err = DecodeStream(r, func(key string, v store.Value, expiresAt int64, hasExpiry bool) error {
		owner := tp.Router().ShardOf(key)
		shard := tp.ShardOf(owner)
		shard.Set(key, v)
		if hasExpiry {
			shard.Expire(key, time.UnixMilli(expiresAt), now)
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot: decoding %s: %w", d.path(), err)
	}

	d.logger.Info("snapshot loaded",
		zap.String("file", d.path()),
		zap.Int("keys", count),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
