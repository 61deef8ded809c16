package snapshot_test

import (
	"testing"
	"time"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/snapshot"
	"github.com/quinedb/quinedb/internal/store"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDriver(t *testing.T) (*snapshot.Driver, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg := config.RDBConfig{Dir: "/data", Filename: "dump.rdb"}
	return snapshot.NewDriver(cfg, fs, zap.NewNop()), fs
}

func newTestTopology(t *testing.T, n int) *topology.Topology {
	t.Helper()
	router, err := hashing.New(hashing.AlgorithmCRC16, n)
	require.NoError(t, err)
	return topology.New(n, router)
}

// serveOneSnapshotRound answers every worker's pending SnapshotJob with its
// shard's current contents, standing in for the workers' own event loops.
func serveOneSnapshotRound(tp *topology.Topology, now time.Time) {
	for i := 0; i < tp.NumWorkers(); i++ {
		job := <-tp.SnapshotJobsOf(i)
		job.Reply <- snapshot.EncodePartition(tp.ShardOf(i), now)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	driver, fs := newTestDriver(t)
	tp := newTestTopology(t, 2)
	now := time.Now()

	tp.ShardOf(0).Set("a", store.StringValue([]byte("1")))
	tp.ShardOf(1).Set("x", store.StringValue([]byte("2")))
	tp.ShardOf(0).Expire("a", now.Add(time.Hour), now)

	done := make(chan error, 1)
	go func() { done <- driver.Save(tp) }()
	serveOneSnapshotRound(tp, now)
	require.NoError(t, <-done)

	exists, err := afero.Exists(fs, "/data/dump.rdb")
	require.NoError(t, err)
	assert.True(t, exists)

	fresh := newTestTopology(t, 2)
	require.NoError(t, driver.Load(fresh))

	// Load places each key on the shard the router picks, not the shard it
	// was saved from.
	ownerA := fresh.ShardOf(fresh.Router().ShardOf("a"))
	ownerX := fresh.ShardOf(fresh.Router().ShardOf("x"))

	v, ok := ownerA.Get("a", now)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v.Str)

	v, ok = ownerX.Get("x", now)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v.Str)

	_, hasTTL := ownerA.TTL("a", now)
	assert.True(t, hasTTL)
}

func TestLoadMissingFileIsNoOp(t *testing.T) {
	driver, _ := newTestDriver(t)
	tp := newTestTopology(t, 1)
	assert.NoError(t, driver.Load(tp))
}

func TestLoadRejectsMismatchedAlgorithm(t *testing.T) {
	driver, _ := newTestDriver(t)
	tp := newTestTopology(t, 1)
	now := time.Now()

	done := make(chan error, 1)
	go func() { done <- driver.Save(tp) }()
	serveOneSnapshotRound(tp, now)
	require.NoError(t, <-done)

	ringRouter, err := hashing.New(hashing.AlgorithmRing, 1)
	require.NoError(t, err)
	mismatched := topology.New(1, ringRouter)

	err = driver.Load(mismatched)
	assert.Error(t, err)
}
