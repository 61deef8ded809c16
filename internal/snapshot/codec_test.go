package snapshot_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/quinedb/quinedb/internal/snapshot"
	"github.com/quinedb/quinedb/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePartitionRoundTrip(t *testing.T) {
	now := time.Now()
	shard := store.NewShard(0)

	shard.Set("str", store.StringValue([]byte("hello")))

	l := store.NewList()
	l.PushBack([]byte("a"))
	l.PushBack([]byte("b"))
	shard.Set("list", store.Value{Kind: store.KindList, List: l})

	set := map[string]struct{}{"x": {}, "y": {}}
	shard.Set("set", store.Value{Kind: store.KindSet, Set: set})

	hash := map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}
	shard.Set("hash", store.Value{Kind: store.KindHash, Hash: hash})

	z := store.NewSortedSet()
	z.Add("m1", 1.5)
	z.Add("m2", 2.0)
	shard.Set("zset", store.Value{Kind: store.KindZSet, ZSet: z})

	shard.Expire("str", now.Add(time.Hour), now)

	data := snapshot.EncodePartition(shard, now)
	data = append(data, 0xFF) // synthetic terminator for a standalone decode

	got := make(map[string]store.Value)
	expiries := make(map[string]int64)
	err := snapshot.DecodeStream(bytes.NewReader(data), func(key string, v store.Value, expiresAt int64, hasExpiry bool) error {
		got[key] = v
		if hasExpiry {
			expiries[key] = expiresAt
		}
		return nil
	})
	require.NoError(t, err)

	require.Contains(t, got, "str")
	assert.Equal(t, []byte("hello"), got["str"].Str)
	assert.Contains(t, expiries, "str")

	require.Contains(t, got, "list")
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, got["list"].List.Range(0, 1))

	require.Contains(t, got, "set")
	assert.Len(t, got["set"].Set, 2)

	require.Contains(t, got, "hash")
	assert.Equal(t, []byte("v1"), got["hash"].Hash["f1"])

	require.Contains(t, got, "zset")
	score, ok := got["zset"].ZSet.Score("m1")
	require.True(t, ok)
	assert.Equal(t, 1.5, score)
}

func TestDecodeStreamStopsAtTerminator(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFF)

	calls := 0
	err := snapshot.DecodeStream(&buf, func(string, store.Value, int64, bool) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}
