package topology

import "sync"

// Mailbox is a multiple-producer, single-consumer queue of Messages. Any
// worker may Push into another worker's Mailbox; only the owning worker
// ever calls Drain. The lock only ever guards a slice append and an
// occasional swap, so contention is brief even under heavy cross-shard
// traffic.
type Mailbox struct {
	mu       sync.Mutex
	messages []Message
}

// NewMailbox returns an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Push enqueues msg. Safe to call from any goroutine. Push does not wake
// the owning worker — callers must also call Topology.Notify so that push
// and notify stay two independent steps, leaving room for a future
// batched-signalling optimization that pushes many messages before a
// single notify.
func (m *Mailbox) Push(msg Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
}

// Drain atomically swaps out and returns every queued message. Must only
// be called by the mailbox's owning worker.
func (m *Mailbox) Drain() []Message {
	m.mu.Lock()
	drained := m.messages
	m.messages = nil
	m.mu.Unlock()
	return drained
}
