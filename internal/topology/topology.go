package topology

import (
	"sync"

	"github.com/quinedb/quinedb/internal/hashing"
	"github.com/quinedb/quinedb/internal/store"
)

// Topology is the fixed set of shards, mailboxes and wake channels built
// once at startup. Nothing about its shape changes for the life of the
// process: worker count and routing algorithm are immutable topology
// invariants, exactly as spec.md requires.
type Topology struct {
	router       hashing.Router
	shards       []*store.Shard
	boxes        []*Mailbox
	wakes        []chan struct{}
	snapshotJobs []chan SnapshotJob
	barrier      *Barrier
}

// SnapshotJob asks a worker to encode its own shard's contents and send the
// result on Reply. It travels on a dedicated per-worker channel rather than
// through a Mailbox, since it carries a live channel value, not wire data —
// the coordinated-snapshot driver's direct line to each worker, alongside
// the Mailbox/wake pair command forwarding uses.
type SnapshotJob struct {
	Reply chan<- []byte
}

// New allocates n shards, n mailboxes and n wake channels, all routed by
// router. router.NumShards() must equal n.
func New(n int, router hashing.Router) *Topology {
	if router.NumShards() != n {
		panic("topology: router shard count does not match worker count")
	}
	t := &Topology{
		router:       router,
		shards:       make([]*store.Shard, n),
		boxes:        make([]*Mailbox, n),
		wakes:        make([]chan struct{}, n),
		snapshotJobs: make([]chan SnapshotJob, n),
		barrier:      NewBarrier(n),
	}
	for i := 0; i < n; i++ {
		t.shards[i] = store.NewShard(i)
		t.boxes[i] = NewMailbox()
		t.wakes[i] = make(chan struct{}, 1)
		t.snapshotJobs[i] = make(chan SnapshotJob, 1)
	}
	return t
}

// NumWorkers returns the number of shards/workers in this topology.
func (t *Topology) NumWorkers() int {
	return len(t.shards)
}

// Router returns the key→shard router this topology was built with.
func (t *Topology) Router() hashing.Router {
	return t.router
}

// ShardOf returns worker id's shard.
func (t *Topology) ShardOf(id int) *store.Shard {
	return t.shards[id]
}

// MailboxOf returns worker id's mailbox.
func (t *Topology) MailboxOf(id int) *Mailbox {
	return t.boxes[id]
}

// WakeOf returns worker id's wake channel, receive-only from the worker's
// own event loop.
func (t *Topology) WakeOf(id int) <-chan struct{} {
	return t.wakes[id]
}

// SnapshotJobsOf returns worker id's snapshot-job channel, received on by
// the worker's own event loop only.
func (t *Topology) SnapshotJobsOf(id int) <-chan SnapshotJob {
	return t.snapshotJobs[id]
}

// RequestSnapshot asks worker id to encode its shard and deliver the
// result on reply. Safe to call from any goroutine, including a goroutine
// that is not itself a worker (the snapshot driver).
func (t *Topology) RequestSnapshot(id int, reply chan<- []byte) {
	t.snapshotJobs[id] <- SnapshotJob{Reply: reply}
}

// Barrier returns the shared startup barrier.
func (t *Topology) Barrier() *Barrier {
	return t.barrier
}

// Send pushes msg onto the destination worker's mailbox and wakes it.
// Callers include cross-shard command forwarding and SAVE's delivery of its
// result; the snapshot fan-out itself goes through RequestSnapshot.
func (t *Topology) Send(dest int, msg Message) {
	t.boxes[dest].Push(msg)
	t.Notify(dest)
}

// Notify wakes worker id's event loop with idempotent-coalescing
// semantics: any number of notifies before the worker's next drain
// collapse into a single wake-up, since the channel has capacity one and
// the send is non-blocking.
func (t *Topology) Notify(id int) {
	select {
	case t.wakes[id] <- struct{}{}:
	default:
	}
}

// Barrier is a one-shot gate: every worker calls Arrive once after it has
// registered its wake channel and is ready to receive cross-shard traffic;
// Wait blocks until all workers have arrived. This is the direct
// translation of the original runtime's wait_for_all_cores() — no worker
// may forward a request to another shard before every shard is listening.
type Barrier struct {
	wg sync.WaitGroup
}

// NewBarrier returns a Barrier expecting n arrivals.
func NewBarrier(n int) *Barrier {
	b := &Barrier{}
	b.wg.Add(n)
	return b
}

// Arrive marks one worker as ready. Call exactly once per worker.
func (b *Barrier) Arrive() {
	b.wg.Done()
}

// Wait blocks until every worker has called Arrive.
func (b *Barrier) Wait() {
	b.wg.Wait()
}
