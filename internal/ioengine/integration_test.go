package ioengine_test

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/dispatch"
	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/ioengine"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startCluster boots n workers sharing one topology and one connection-id
// allocator, each listening on its own loopback port, and returns their
// addresses plus a stop func. Real net.Listen is used instead of
// ioengine.Listen (SO_REUSEPORT) so the test doesn't depend on kernel
// socket-sharing behavior: correctness here is about the event loop, not
// the accept fan-out.
func startCluster(t *testing.T, n int) ([]string, func()) {
	t.Helper()
	router, err := hashing.New(hashing.AlgorithmCRC16, n)
	require.NoError(t, err)
	tp := topology.New(n, router)
	registry := dispatch.NewRegistry(nil)
	connIDs := &ioengine.ConnIDAllocator{}
	logger := zap.NewNop()

	addrs := make([]string, n)
	stops := make([]chan struct{}, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = ln.Addr().String()

		l := ioengine.NewListener(ln, logger)
		w := ioengine.NewWorker(i, tp, registry, l, connIDs, config.GCConfig{}, logger)
		stop := make(chan struct{})
		stops[i] = stop
		go w.Run(stop)
	}

	return addrs, func() {
		for _, s := range stops {
			close(s)
		}
	}
}

func TestWorkerLocalSetGet(t *testing.T) {
	addrs, stop := startCluster(t, 1)
	defer stop()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	require.NoError(t, client.Set(ctx, "foo", "bar", 0).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	require.Equal(t, "bar", val)
}

func TestWorkerCrossShardForward(t *testing.T) {
	addrs, stop := startCluster(t, 4)
	defer stop()

	router, err := hashing.New(hashing.AlgorithmCRC16, 4)
	require.NoError(t, err)

	var key string
	for i := 0; ; i++ {
		k := fmt.Sprintf("k%d", i)
		if router.ShardOf(k) != 0 {
			key = k
			break
		}
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	require.NoError(t, client.Set(ctx, key, "v", 0).Err())
	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	require.Equal(t, "v", val)
}

func TestWorkerPipelinedForwardPreservesOrder(t *testing.T) {
	addrs, stop := startCluster(t, 4)
	defer stop()

	router, err := hashing.New(hashing.AlgorithmCRC16, 4)
	require.NoError(t, err)

	var remote, local string
	for i := 0; ; i++ {
		k := fmt.Sprintf("k%d", i)
		shard := router.ShardOf(k)
		if shard != 0 && remote == "" {
			remote = k
		}
		if shard == 0 && local == "" {
			local = k
		}
		if remote != "" && local != "" {
			break
		}
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	pipe := client.Pipeline()
	pipe.Set(ctx, remote, "r", 0)
	pipe.Set(ctx, local, "l", 0)
	getRemote := pipe.Get(ctx, remote)
	getLocal := pipe.Get(ctx, local)
	_, err = pipe.Exec(ctx)
	require.NoError(t, err)

	require.Equal(t, "r", getRemote.Val())
	require.Equal(t, "l", getLocal.Val())
}

func TestWorkerWrongTypeError(t *testing.T) {
	addrs, stop := startCluster(t, 1)
	defer stop()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	require.NoError(t, client.LPush(ctx, "alist", "a").Err())
	_, err := client.Get(ctx, "alist").Result()
	require.Error(t, err)
	require.Contains(t, err.Error(), "WRONGTYPE")
}

func TestWorkerExpireZeroLeavesNoPositiveTTL(t *testing.T) {
	addrs, stop := startCluster(t, 1)
	defer stop()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	require.NoError(t, client.Set(ctx, "temp", "v", 0).Err())
	require.NoError(t, client.Expire(ctx, "temp", 0).Err())

	ttl, err := client.TTL(ctx, "temp").Result()
	require.NoError(t, err)
	require.LessOrEqual(t, ttl.Seconds(), float64(0))
}

func TestWorkerSortedSetRangeWithScores(t *testing.T) {
	addrs, stop := startCluster(t, 1)
	defer stop()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer client.Close()

	require.NoError(t, client.ZAdd(ctx, "z",
		redis.Z{Score: 2, Member: "b"},
		redis.Z{Score: 1, Member: "a"},
	).Err())

	got, err := client.ZRangeWithScores(ctx, "z", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Member)
	require.Equal(t, float64(1), got[0].Score)
	require.Equal(t, "b", got[1].Member)
	require.Equal(t, float64(2), got[1].Score)
}
