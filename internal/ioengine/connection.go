package ioengine

import (
	"net"

	"github.com/quinedb/quinedb/internal/resp"
)

// readBufferSize bounds a single Read call. Partial commands spanning
// reads are handled by the decoder's own restartability, not by growing
// this buffer.
const readBufferSize = 64 * 1024

// Connection tracks everything the owning worker needs to drive one
// client socket. Every field is touched only from the worker's own event
// loop goroutine; the two per-connection I/O goroutines (readLoop,
// writeLoop) communicate with it exclusively through the completions
// channel and the resumeRead/writeSubmit channels, never by touching
// Connection fields directly.
type Connection struct {
	id   uint32
	conn net.Conn

	decoder *resp.Decoder

	writeQueue [][]byte
	isWriting  bool

	// forwardOutstanding is set while a command this connection issued has
	// been forwarded to another shard and is awaiting its Response. While
	// true, no further bytes from pending are decoded, so a second
	// pipelined command that would execute locally can never queue its
	// reply ahead of the forwarded command's eventual answer.
	forwardOutstanding bool
	// pending holds bytes read but not yet handed to the decoder, held
	// back while forwardOutstanding is true.
	pending []byte

	closed bool

	resumeRead  chan struct{}
	writeSubmit chan []byte
}

// NewConnection wraps conn under id, ready for its owning worker to start
// reading. The read loop is armed with one token so the very first read
// begins immediately.
func NewConnection(id uint32, conn net.Conn) *Connection {
	c := &Connection{
		id:          id,
		conn:        conn,
		decoder:     resp.NewDecoder(),
		resumeRead:  make(chan struct{}, 1),
		writeSubmit: make(chan []byte, 1),
	}
	c.resumeRead <- struct{}{}
	return c
}

// ID returns the connection's stable identifier.
func (c *Connection) ID() uint32 { return c.id }

// readLoop enforces "at most one outstanding read": it blocks on
// resumeRead, performs exactly one Read, reports the result, and only then
// waits for the next token. The worker's event loop supplies that token
// once it has finished processing everything the previous read produced.
func (c *Connection) readLoop(completions chan<- Completion) {
	buf := make([]byte, readBufferSize)
	for range c.resumeRead {
		n, err := c.conn.Read(buf)
		data := make([]byte, n)
		copy(data, buf[:n])
		completions <- Completion{Kind: CompletionRead, ConnID: c.id, Data: data, N: n, Err: err}
		if err != nil {
			return
		}
	}
}

// writeLoop enforces "at most one outstanding write" symmetrically: it
// waits for the worker to submit the next buffer, writes it in full, and
// reports completion before accepting another submission.
func (c *Connection) writeLoop(completions chan<- Completion) {
	for data := range c.writeSubmit {
		n, err := c.conn.Write(data)
		completions <- Completion{Kind: CompletionWrite, ConnID: c.id, N: n, Err: err}
		if err != nil {
			return
		}
	}
}

// maxWriteQueueDepth bounds how many replies may back up behind a slow
// reader before the worker treats it as a stuck connection rather than a
// merely slow one. A well-behaved client with the single-outstanding-
// forward rule in place never gets close to this: it exists to catch a
// future bug, not a real client.
const maxWriteQueueDepth = 8192

// queueWrite appends data to the write queue and, if nothing is already
// being written, submits it immediately. Reports overflow if the queue
// has grown past maxWriteQueueDepth instead of enforcing it directly,
// since only the worker holds the logger needed to report it.
func (c *Connection) queueWrite(data []byte) (overflowed bool) {
	if len(data) == 0 {
		return false
	}
	c.writeQueue = append(c.writeQueue, data)
	if !c.isWriting {
		c.submitFrontWrite()
	}
	return len(c.writeQueue) > maxWriteQueueDepth
}

func (c *Connection) submitFrontWrite() {
	c.isWriting = true
	c.writeSubmit <- c.writeQueue[0]
}

// onWriteDone advances past the buffer that just finished and submits the
// next queued one, if any.
func (c *Connection) onWriteDone() {
	c.writeQueue = c.writeQueue[1:]
	if len(c.writeQueue) > 0 {
		c.submitFrontWrite()
		return
	}
	c.isWriting = false
}

// postNextRead re-arms the read loop for another Read call. Only called
// once the worker has fully drained the previous read's bytes (or parked
// the remainder in pending behind a forward).
func (c *Connection) postNextRead() {
	select {
	case c.resumeRead <- struct{}{}:
	default:
	}
}

// close tears down both I/O goroutines by closing the socket, which
// unblocks their Read/Write calls with an error, and closes writeSubmit so
// writeLoop exits even if it was idle.
func (c *Connection) close() {
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
	close(c.writeSubmit)
}
