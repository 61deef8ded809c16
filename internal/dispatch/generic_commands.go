package dispatch

import (
	"time"

	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerGenericCommands() {
	r.register("EXPIRE", HandlerFunc(cmdExpire))
	r.register("TTL", HandlerFunc(cmdTTL))
	r.register("PERSIST", HandlerFunc(cmdPersist))
	r.register("PTTL", HandlerFunc(cmdPTTL))
}

func cmdExpire(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 2 {
		return arityError("expire"), false
	}
	key := string(ctx.Args[0])
	seconds, errVal, ok := parseInt(ctx.Args[1])
	if !ok {
		return reply(errVal), false
	}

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		at := ctx.Now.Add(time.Duration(seconds) * time.Second)
		if shard.Expire(key, at, ctx.Now) {
			return resp.MakeInteger(1)
		}
		return resp.MakeInteger(0)
	})
}

// cmdTTL returns remaining seconds rounded to the nearest second (the way
// Redis itself does, since a truncating division would report one second
// less than what was just set the instant any time at all has elapsed
// since the EXPIRE that set it), -1 if the key exists with no expiry, -2
// if the key is absent or already expired.
func cmdTTL(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("ttl"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		if !shard.Exists(key, ctx.Now) {
			return resp.MakeInteger(-2)
		}
		ttl, hasTTL := shard.TTL(key, ctx.Now)
		if !hasTTL {
			return resp.MakeInteger(-1)
		}
		return resp.MakeInteger(int64(ttl.Round(time.Second) / time.Second))
	})
}

// cmdPTTL is TTL's millisecond-resolution twin.
func cmdPTTL(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("pttl"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		if !shard.Exists(key, ctx.Now) {
			return resp.MakeInteger(-2)
		}
		ttl, hasTTL := shard.TTL(key, ctx.Now)
		if !hasTTL {
			return resp.MakeInteger(-1)
		}
		return resp.MakeInteger(int64(ttl / time.Millisecond))
	})
}

func cmdPersist(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("persist"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		if shard.Persist(key) {
			return resp.MakeInteger(1)
		}
		return resp.MakeInteger(0)
	})
}
