package ioengine

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quinedb/quinedb/internal/config"
	"github.com/quinedb/quinedb/internal/dispatch"
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/snapshot"
	"github.com/quinedb/quinedb/internal/topology"
	"go.uber.org/zap"
)

// ConnIDAllocator is the one piece of state legitimately shared, read and
// written, across every worker goroutine: a single atomic counter handing
// out connection ids regardless of which worker's listener accepted the
// socket.
type ConnIDAllocator struct {
	counter atomic.Uint32
}

// Next returns the next connection id. Safe for concurrent use.
func (a *ConnIDAllocator) Next() uint32 {
	return a.counter.Add(1)
}

const completionQueueSize = 1024

// Worker runs one shard's entire lifecycle: its own listener, its own
// connections, and the cross-shard mailbox and snapshot-job channel bound
// to its worker id. Every field below is touched only by Run's goroutine
// (or by the connection I/O goroutines it spawns, which never touch
// anything but their own Connection's channels).
type Worker struct {
	id       int
	topology *topology.Topology
	logger   *zap.Logger
	registry *dispatch.Registry

	listener *Listener
	connIDs  *ConnIDAllocator
	gc       config.GCConfig

	// reloadGC carries hot-reloaded GC settings from config.Loader's
	// OnChange callback (which runs on viper's fsnotify goroutine, not
	// this worker's own) into Run's select loop, where it's safe to
	// touch gc and the ticker. Buffered one deep with a drain-then-send
	// so only the latest reload survives if several land before Run gets
	// around to applying one.
	reloadGC chan config.GCConfig

	completions chan Completion
	conns       map[uint32]*Connection

	wg sync.WaitGroup
}

// NewWorker builds a Worker for shard id, ready to Run.
func NewWorker(id int, tp *topology.Topology, registry *dispatch.Registry, listener *Listener, connIDs *ConnIDAllocator, gc config.GCConfig, logger *zap.Logger) *Worker {
	return &Worker{
		id:          id,
		topology:    tp,
		registry:    registry,
		listener:    listener,
		connIDs:     connIDs,
		gc:          gc,
		reloadGC:    make(chan config.GCConfig, 1),
		logger:      logger.With(zap.Int("worker", id)),
		completions: make(chan Completion, completionQueueSize),
		conns:       make(map[uint32]*Connection),
	}
}

// ReloadGC hands this worker a freshly reloaded GC config, applied the next
// time its event loop is free to service the reloadGC channel. Safe to call
// from any goroutine, including config.Loader's watch callback.
func (w *Worker) ReloadGC(gc config.GCConfig) {
	select {
	case w.reloadGC <- gc:
	default:
		select {
		case <-w.reloadGC:
		default:
		}
		select {
		case w.reloadGC <- gc:
		default:
		}
	}
}

// Run blocks servicing this worker's listener, mailbox, snapshot jobs, and
// connection I/O until stop is closed. It arrives at the topology's
// startup barrier before accepting any cross-shard traffic, matching the
// original runtime's rule that no shard may forward to another before
// every shard is listening.
func (w *Worker) Run(stop <-chan struct{}) {
	go w.listener.Serve(w.completions)

	w.topology.Barrier().Arrive()
	w.topology.Barrier().Wait()

	wake := w.topology.WakeOf(w.id)
	jobs := w.topology.SnapshotJobsOf(w.id)

	ticker := w.newGCTicker()
	defer stopGCTicker(ticker)

	for {
		select {
		case <-stop:
			w.shutdown()
			return
		case <-wake:
			w.drainMailbox()
		case job := <-jobs:
			w.handleSnapshotJob(job)
		case comp := <-w.completions:
			w.handleCompletion(comp)
		case <-gcTickerChan(ticker):
			w.runExpireCycle()
		case gc := <-w.reloadGC:
			stopGCTicker(ticker)
			w.gc = gc
			ticker = w.newGCTicker()
			if w.logger.Core().Enabled(zap.DebugLevel) {
				w.logger.Debug("gc config reloaded", zap.Bool("enabled", gc.Enabled), zap.Duration("interval", gc.Interval))
			}
		}
	}
}

// newGCTicker starts a ticker at w.gc.Interval, or returns nil if the
// active-expire sweep is disabled.
func (w *Worker) newGCTicker() *time.Ticker {
	if !w.gc.Enabled {
		return nil
	}
	return time.NewTicker(w.gc.Interval)
}

func stopGCTicker(t *time.Ticker) {
	if t != nil {
		t.Stop()
	}
}

// gcTickerChan returns t's tick channel, or nil if t is nil (GC disabled).
// A nil channel blocks forever in a select, which is exactly "this case
// never fires."
func gcTickerChan(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// runExpireCycle samples this shard's own TTL-bearing keys for expiry,
// repeating immediately while the expired ratio stays above the
// configured threshold, entirely within this call so no other event on
// the select loop starves. Local to the worker goroutine, unlike the
// teacher's engine-wide GC loop, since a shard may only ever be touched by
// its owning worker.
func (w *Worker) runExpireCycle() {
	for {
		result := w.topology.ShardOf(w.id).ActiveExpireCycle(w.gc.SamplesPerCheck, time.Now())
		if result.Sampled == 0 {
			return
		}
		ratio := result.Ratio()
		if w.logger.Core().Enabled(zap.DebugLevel) {
			w.logger.Debug("active expire cycle", zap.Int("sampled", result.Sampled), zap.Int("expired", result.Expired), zap.Float64("ratio", ratio))
		}
		if ratio <= w.gc.MatchThreshold {
			return
		}
	}
}

func (w *Worker) shutdown() {
	_ = w.listener.Close()
	for _, c := range w.conns {
		c.close()
	}
	w.wg.Wait()
}

func (w *Worker) handleSnapshotJob(job topology.SnapshotJob) {
	data := snapshot.EncodePartition(w.topology.ShardOf(w.id), time.Now())
	job.Reply <- data
}

func (w *Worker) drainMailbox() {
	for _, msg := range w.topology.MailboxOf(w.id).Drain() {
		switch msg.Kind {
		case topology.Request:
			w.handleRequest(msg)
		case topology.Response:
			w.handleResponse(msg)
		}
	}
}

// handleRequest executes a command forwarded here because this worker
// owns the key. It always replies, even on error, so the originating
// connection's single outstanding forward is always eventually cleared.
func (w *Worker) handleRequest(msg topology.Message) {
	name := strings.ToUpper(string(msg.Args[0]))
	ctx := &dispatch.Context{
		Topology: w.topology,
		WorkerID: w.id,
		ConnID:   msg.ConnID,
		Name:     name,
		Args:     msg.Args[1:],
		Now:      time.Now(),
	}
	payload, forwarded := w.registry.Execute(ctx)
	if forwarded {
		// A command routed here specifically because this worker owns its
		// key can never forward again; every worker shares the same
		// Router built once at startup, so a second forward means the
		// routing table itself disagreed with the one that sent the
		// request here in the first place.
		w.logger.Panic("routing invariant violated: forwarded command forwarded again",
			zap.String("command", name), zap.Uint32("conn", msg.ConnID))
	}
	w.topology.Send(msg.OriginWorker, topology.Message{
		Kind:    topology.Response,
		ConnID:  msg.ConnID,
		Payload: payload,
		Success: true,
	})
}

// handleResponse delivers a forwarded command's result, or a coordinated
// snapshot's result, back to the connection that's waiting on it. A
// Response addressed to a connection id this worker no longer knows about
// is dropped silently: the connection closed while its forward was still
// in flight.
func (w *Worker) handleResponse(msg topology.Message) {
	c, ok := w.conns[msg.ConnID]
	if !ok {
		return
	}
	c.forwardOutstanding = false
	w.queueWrite(c, msg.Payload)

	pending := c.pending
	c.pending = nil
	if len(pending) > 0 {
		w.processInbound(c, pending)
		return
	}
	c.postNextRead()
}

func (w *Worker) handleCompletion(comp Completion) {
	switch comp.Kind {
	case CompletionAccept:
		w.handleAccept(comp)
	case CompletionRead:
		w.handleRead(comp)
	case CompletionWrite:
		w.handleWrite(comp)
	}
}

func (w *Worker) handleAccept(comp Completion) {
	id := w.connIDs.Next()
	c := NewConnection(id, comp.Conn)
	w.conns[id] = c
	w.wg.Add(2)
	go func() { defer w.wg.Done(); c.readLoop(w.completions) }()
	go func() { defer w.wg.Done(); c.writeLoop(w.completions) }()

	if w.logger.Core().Enabled(zap.DebugLevel) {
		w.logger.Debug("client connected", zap.Uint32("conn", id), zap.String("addr", comp.Conn.RemoteAddr().String()))
	}
}

func (w *Worker) handleRead(comp Completion) {
	c, ok := w.conns[comp.ConnID]
	if !ok {
		return
	}
	if comp.Err != nil {
		w.dropConnection(c)
		return
	}
	data := comp.Data
	if len(c.pending) > 0 {
		data = append(c.pending, data...)
		c.pending = nil
	}
	w.processInbound(c, data)
}

// processInbound decodes as many complete commands from data as possible.
// It stops the instant a command forwards to another shard, stashing the
// unconsumed remainder in pending: decoding ahead would let a later
// pipelined command's local reply race the forwarded command's eventual
// Response, breaking reply ordering on the wire. It's also the resume
// point for bytes the decoder needed but hadn't yet seen when a previous
// read returned Partial.
func (w *Worker) processInbound(c *Connection, data []byte) {
	for len(data) > 0 {
		result, n := c.decoder.Consume(data)
		data = data[n:]

		switch result {
		case resp.Partial:
			c.pending = data
			c.postNextRead()
			return

		case resp.Error:
			w.queueWrite(c, reply(resp.MakeProtocolError()))
			c.decoder.Reset()
			continue

		case resp.Complete:
			args := c.decoder.Args()
			c.decoder.Reset()
			if len(args) == 0 {
				continue
			}
			payload, forwarded := w.execute(c, args)
			if forwarded {
				c.forwardOutstanding = true
				c.pending = data
				return
			}
			w.queueWrite(c, payload)
		}
	}
	c.postNextRead()
}

func (w *Worker) execute(c *Connection, args [][]byte) (respBytes []byte, forwarded bool) {
	ctx := &dispatch.Context{
		Topology: w.topology,
		WorkerID: w.id,
		ConnID:   c.id,
		Name:     strings.ToUpper(string(args[0])),
		Args:     args[1:],
		Now:      time.Now(),
	}
	return w.registry.Execute(ctx)
}

func (w *Worker) handleWrite(comp Completion) {
	c, ok := w.conns[comp.ConnID]
	if !ok {
		return
	}
	if comp.Err != nil {
		w.dropConnection(c)
		return
	}
	c.onWriteDone()
}

// queueWrite queues data on c's write queue, escalating to a panic if the
// queue has grown past the point a well-behaved client could ever reach
// under the single-outstanding-forward rule, which points at a bug rather
// than a slow reader.
func (w *Worker) queueWrite(c *Connection, data []byte) {
	if c.queueWrite(data) {
		w.logger.Panic("write queue overflow", zap.Uint32("conn", c.id), zap.Int("depth", len(c.writeQueue)))
	}
}

func (w *Worker) dropConnection(c *Connection) {
	c.close()
	delete(w.conns, c.id)
	if w.logger.Core().Enabled(zap.DebugLevel) {
		w.logger.Debug("client disconnected", zap.Uint32("conn", c.id))
	}
}

func reply(v resp.Value) []byte {
	b, err := resp.Encode(v)
	if err != nil {
		return []byte("-ERR internal encoding error\r\n")
	}
	return b
}
