// Package consensus declares the interface a future multi-node deployment
// would replicate commands through. Single-node QuineDB never calls it;
// it exists so the dispatch and topology layers have a stable seam to
// integrate a real consensus module (e.g. one Raft group per shard, a
// "multi-Raft" layout) without reshaping the command path later.
package consensus

// Module is a consensus group backing one or more shards. Start/Stop
// manage its background goroutines (election timers, log replication);
// Replicate proposes a command to the group; IsLeader reports whether this
// node may currently accept writes for it.
type Module interface {
	Start()
	Stop()
	Replicate(command []byte) (committed bool)
	IsLeader() bool
}

// NoopModule is the single-node stand-in: it is always the leader and
// commits everything locally without replicating anywhere.
type NoopModule struct{}

// Start is a no-op.
func (NoopModule) Start() {}

// Stop is a no-op.
func (NoopModule) Stop() {}

// Replicate always reports success, since there is no follower to lag or
// reject the write.
func (NoopModule) Replicate([]byte) bool { return true }

// IsLeader always reports true: a single node has no one to lose an
// election to.
func (NoopModule) IsLeader() bool { return true }
