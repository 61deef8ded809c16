package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/topology"
)

func (r *Registry) registerAdminCommands() {
	r.register("SAVE", HandlerFunc(r.cmdSave))
	r.register("BGSAVE", HandlerFunc(r.cmdBGSave))
}

// cmdSave has no routing key: the snapshot spans every shard. It kicks off
// the coordinated fan-out on a background goroutine and reports forwarded
// so the connection FSM's existing single-outstanding-forward machinery
// holds the read until the driver's completion arrives as a Response —
// exactly the same path a cross-shard command forward takes.
func (r *Registry) cmdSave(ctx *Context) ([]byte, bool) {
	if r.snapshot == nil {
		return reply(resp.MakeError("ERR RDB disabled")), false
	}
	go r.runSave(ctx, false)
	return nil, true
}

// cmdBGSave starts the same fan-out but replies immediately; the eventual
// save result is not delivered to any connection, matching Redis's
// BGSAVE semantics.
func (r *Registry) cmdBGSave(ctx *Context) ([]byte, bool) {
	if r.snapshot == nil {
		return reply(resp.MakeError("ERR RDB disabled")), false
	}
	go r.runSave(ctx, true)
	return reply(resp.MakeSimpleString("Background saving started")), false
}

func (r *Registry) runSave(ctx *Context, background bool) {
	err := r.snapshot.Save(ctx.Topology)
	if background {
		return
	}

	var payload []byte
	if err != nil {
		payload = reply(resp.MakeErrorf("ERR failed to save: %v", err))
	} else {
		payload = reply(resp.MakeSimpleString("OK"))
	}

	ctx.Topology.Send(ctx.WorkerID, topology.Message{
		Kind:    topology.Response,
		ConnID:  ctx.ConnID,
		Payload: payload,
		Success: err == nil,
	})
}
