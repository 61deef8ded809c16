package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/snapshot"
)

// Registry is the process-wide name→Handler table. Built once via
// NewRegistry before any worker starts, never mutated afterward, so
// lookups need no locking.
type Registry struct {
	handlers map[string]Handler
	snapshot *snapshot.Driver
}

// NewRegistry builds a Registry with every supported command wired in.
// snap may be nil, in which case SAVE/BGSAVE reply with an error instead
// of panicking — useful for tests that don't exercise persistence.
func NewRegistry(snap *snapshot.Driver) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		snapshot: snap,
	}
	r.registerAll()
	return r
}

func (r *Registry) register(name string, h Handler) {
	r.handlers[name] = h
}

// Execute looks up name, already uppercased, and runs it against ctx.
func (r *Registry) Execute(ctx *Context) (respBytes []byte, forwarded bool) {
	h, ok := r.handlers[ctx.Name]
	if !ok {
		return reply(resp.MakeErrorf("ERR unknown command '%s'", ctx.Name)), false
	}
	return h.Execute(ctx)
}

// Has reports whether name is registered, without executing it.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

func arityError(name string) []byte {
	return reply(resp.MakeErrorWrongNumberOfArguments(name))
}
