// Package dispatch implements the process-wide command registry: a
// name→handler table built once at startup, read-only afterward, whose
// handlers either mutate the local shard directly or forward the command
// to the worker that owns the target key.
package dispatch

import (
	"time"

	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
	"github.com/quinedb/quinedb/internal/topology"
)

// Context carries everything a Handler needs to execute one command:
// where it's running, who asked, and what was asked.
type Context struct {
	Topology *topology.Topology
	WorkerID int
	ConnID   uint32
	Name     string   // uppercased command name
	Args     [][]byte // arguments after the command name
	Now      time.Time
}

// Handler implements one command's dispatch contract: extract the routing
// key, execute locally if this worker owns it, or forward and report
// forwarded=true so the connection FSM queues no immediate reply.
type Handler interface {
	Execute(ctx *Context) (reply []byte, forwarded bool)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx *Context) (reply []byte, forwarded bool)

// Execute calls f.
func (f HandlerFunc) Execute(ctx *Context) (reply []byte, forwarded bool) {
	return f(ctx)
}

// reply encodes v to its wire form. resp.Encode only fails if the
// underlying writer errors, which the bytes.Buffer it uses internally
// never does, so the error path here is unreachable in practice.
func reply(v resp.Value) []byte {
	b, err := resp.Encode(v)
	if err != nil {
		return []byte("-ERR internal encoding error\r\n")
	}
	return b
}

// RouteOrExecute is the shared three-step contract every keyed handler
// follows: resolve key's owning shard; if this worker owns it, run and
// reply now; otherwise forward the raw command to the owner's mailbox and
// report forwarded so the caller queues nothing.
func RouteOrExecute(ctx *Context, key string, run func(shard *store.Shard) resp.Value) (respBytes []byte, forwarded bool) {
	owner := ctx.Topology.Router().ShardOf(key)
	if owner == ctx.WorkerID {
		shard := ctx.Topology.ShardOf(ctx.WorkerID)
		return reply(run(shard)), false
	}

	forwardArgs := make([][]byte, 0, len(ctx.Args)+1)
	forwardArgs = append(forwardArgs, []byte(ctx.Name))
	forwardArgs = append(forwardArgs, ctx.Args...)
	ctx.Topology.Send(owner, topology.Message{
		Kind:         topology.Request,
		OriginWorker: ctx.WorkerID,
		ConnID:       ctx.ConnID,
		Args:         forwardArgs,
	})
	return nil, true
}
