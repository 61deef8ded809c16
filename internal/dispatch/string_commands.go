package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerStringCommands() {
	r.register("SET", HandlerFunc(cmdSet))
	r.register("GET", HandlerFunc(cmdGet))
	r.register("DEL", HandlerFunc(cmdDel))
}

func cmdSet(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 2 {
		return arityError("set"), false
	}
	key := string(ctx.Args[0])
	value := append([]byte(nil), ctx.Args[1]...)

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		shard.Set(key, store.StringValue(value))
		return resp.MakeSimpleString("OK")
	})
}

func cmdGet(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("get"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.Kind != store.KindString {
			return resp.MakeWrongTypeError()
		}
		return resp.MakeBulkString(v.Str)
	})
}

func cmdDel(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("del"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		if shard.Delete(key, ctx.Now) {
			return resp.MakeInteger(1)
		}
		return resp.MakeInteger(0)
	})
}
