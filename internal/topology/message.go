// Package topology owns the fixed, never-mutated-after-boot structures that
// bind shards to workers: the shard slice itself, one mailbox per worker,
// one wake channel per worker, and the startup barrier that keeps any
// worker from forwarding cross-shard traffic before every worker is ready
// to receive it.
package topology

// Kind discriminates a Message as an outbound command to execute or an
// inbound reply to deliver.
type Kind byte

const (
	// Request carries a parsed command to run against the destination
	// worker's shard.
	Request Kind = iota
	// Response carries the encoded wire reply to hand back to ConnID on
	// OriginWorker.
	Response
)

// Message is the unit of cross-worker communication, matching the wire
// contract routers and dispatch agree on: a Request travels from the
// worker that received a command to the worker owning the target key; the
// matching Response travels back to the connection that asked for it.
type Message struct {
	Kind         Kind
	OriginWorker int
	ConnID       uint32
	Args         [][]byte
	Payload      []byte
	Success      bool
}
