package topology_test

import (
	"sync"
	"testing"

	"github.com/quinedb/quinedb/internal/topology"
	"github.com/stretchr/testify/assert"
)

func TestMailboxDrainReturnsAllPushedInOrder(t *testing.T) {
	m := topology.NewMailbox()

	for i := 0; i < 5; i++ {
		m.Push(topology.Message{ConnID: uint32(i)})
	}

	drained := m.Drain()
	assert.Len(t, drained, 5)
	for i, msg := range drained {
		assert.Equal(t, uint32(i), msg.ConnID)
	}

	assert.Empty(t, m.Drain(), "a second drain with nothing pushed since is empty")
}

func TestMailboxConcurrentPushIsSafe(t *testing.T) {
	m := topology.NewMailbox()
	const producers = 20
	const perProducer = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Push(topology.Message{})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, m.Drain(), producers*perProducer)
}
