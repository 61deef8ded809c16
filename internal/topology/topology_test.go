package topology_test

import (
	"sync"
	"testing"
	"time"

	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTopology(t *testing.T, n int) *topology.Topology {
	t.Helper()
	router, err := hashing.New(hashing.AlgorithmCRC16, n)
	require.NoError(t, err)
	return topology.New(n, router)
}

func TestTopologyAllocatesFixedSizeStructures(t *testing.T) {
	tp := newTestTopology(t, 4)

	assert.Equal(t, 4, tp.NumWorkers())
	for i := 0; i < 4; i++ {
		assert.NotNil(t, tp.ShardOf(i))
		assert.NotNil(t, tp.MailboxOf(i))
		assert.NotNil(t, tp.WakeOf(i))
	}
}

func TestTopologySendPushesAndNotifies(t *testing.T) {
	tp := newTestTopology(t, 2)

	tp.Send(1, topology.Message{Kind: topology.Request, ConnID: 42})

	select {
	case <-tp.WakeOf(1):
	default:
		t.Fatal("expected worker 1 to be woken")
	}

	drained := tp.MailboxOf(1).Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, uint32(42), drained[0].ConnID)
}

func TestTopologyNotifyCoalesces(t *testing.T) {
	tp := newTestTopology(t, 1)

	tp.Notify(0)
	tp.Notify(0)
	tp.Notify(0)

	select {
	case <-tp.WakeOf(0):
	default:
		t.Fatal("expected exactly one pending wake")
	}
	select {
	case <-tp.WakeOf(0):
		t.Fatal("multiple notifies before a drain must coalesce into one wake-up")
	default:
	}
}

func TestBarrierBlocksUntilAllArrive(t *testing.T) {
	b := topology.NewBarrier(3)

	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Arrive()
		}()
	}
	wg.Wait()

	select {
	case <-done:
		t.Fatal("barrier released before all workers arrived")
	case <-time.After(20 * time.Millisecond):
	}

	b.Arrive()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("barrier did not release after all workers arrived")
	}
}
