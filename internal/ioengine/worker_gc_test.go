package ioengine

import (
	"testing"
	"time"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/dispatch"
	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/store"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorkerRunExpireCycleSweepsUntilBelowThreshold(t *testing.T) {
	router, err := hashing.New(hashing.AlgorithmCRC16, 1)
	require.NoError(t, err)
	tp := topology.New(1, router)
	shard := tp.ShardOf(0)

	past := time.Now().Add(-time.Hour)
	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		shard.Set(key, store.StringValue([]byte("v")))
		shard.Expire(key, past, time.Now())
	}

	w := NewWorker(0, tp, dispatch.NewRegistry(nil), nil, &ConnIDAllocator{}, config.GCConfig{
		Enabled:         true,
		SamplesPerCheck: 5,
		MatchThreshold:  0.5,
	}, zap.NewNop())

	w.runExpireCycle()

	require.Equal(t, 0, shard.Len())
}
