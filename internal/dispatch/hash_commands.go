package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerHashCommands() {
	r.register("HSET", HandlerFunc(cmdHSet))
	r.register("HGET", HandlerFunc(cmdHGet))
	r.register("HGETALL", HandlerFunc(cmdHGetAll))
	r.register("HDEL", HandlerFunc(cmdHDel))
	r.register("HLEN", HandlerFunc(cmdHLen))
}

func cmdHSet(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 3 || len(ctx.Args)%2 != 1 {
		return arityError("hset"), false
	}
	key := string(ctx.Args[0])
	pairs := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		var h map[string][]byte
		if !ok {
			h = make(map[string][]byte)
		} else if v.Kind != store.KindHash {
			return resp.MakeWrongTypeError()
		} else {
			h = v.Hash
		}
		var created int64
		for i := 0; i < len(pairs); i += 2 {
			field := string(pairs[i])
			if _, exists := h[field]; !exists {
				created++
			}
			h[field] = append([]byte(nil), pairs[i+1]...)
		}
		shard.Set(key, store.Value{Kind: store.KindHash, Hash: h})
		return resp.MakeInteger(created)
	})
}

func cmdHGet(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 2 {
		return arityError("hget"), false
	}
	key := string(ctx.Args[0])
	field := string(ctx.Args[1])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.Kind != store.KindHash {
			return resp.MakeWrongTypeError()
		}
		val, ok := v.Hash[field]
		if !ok {
			return resp.MakeNilBulkString()
		}
		return resp.MakeBulkString(val)
	})
}

func cmdHGetAll(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("hgetall"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeArray(nil)
		}
		if v.Kind != store.KindHash {
			return resp.MakeWrongTypeError()
		}
		values := make([]resp.Value, 0, len(v.Hash)*2)
		for field, val := range v.Hash {
			values = append(values, resp.MakeBulkStringFromString(field), resp.MakeBulkString(val))
		}
		return resp.MakeArray(values)
	})
}

func cmdHDel(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("hdel"), false
	}
	key := string(ctx.Args[0])
	fields := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindHash {
			return resp.MakeWrongTypeError()
		}
		var removed int64
		for _, f := range fields {
			field := string(f)
			if _, exists := v.Hash[field]; exists {
				delete(v.Hash, field)
				removed++
			}
		}
		if len(v.Hash) == 0 {
			shard.Delete(key, ctx.Now)
		}
		return resp.MakeInteger(removed)
	})
}

func cmdHLen(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("hlen"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindHash {
			return resp.MakeWrongTypeError()
		}
		return resp.MakeInteger(int64(len(v.Hash)))
	})
}
