package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerListCommands() {
	r.register("LPUSH", HandlerFunc(cmdLPush))
	r.register("RPUSH", HandlerFunc(cmdRPush))
	r.register("LPOP", HandlerFunc(cmdLPop))
	r.register("RPOP", HandlerFunc(cmdRPop))
	r.register("LLEN", HandlerFunc(cmdLLen))
	r.register("LRANGE", HandlerFunc(cmdLRange))
}

func cmdLPush(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("lpush"), false
	}
	key := string(ctx.Args[0])
	values := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		var l *store.List
		if !ok {
			l = store.NewList()
		} else if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		} else {
			l = v.List
		}
		var n int
		for _, val := range values {
			n = l.PushFront(append([]byte(nil), val...))
		}
		shard.Set(key, store.Value{Kind: store.KindList, List: l})
		return resp.MakeInteger(int64(n))
	})
}

func cmdRPush(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("rpush"), false
	}
	key := string(ctx.Args[0])
	values := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		var l *store.List
		if !ok {
			l = store.NewList()
		} else if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		} else {
			l = v.List
		}
		var n int
		for _, val := range values {
			n = l.PushBack(append([]byte(nil), val...))
		}
		shard.Set(key, store.Value{Kind: store.KindList, List: l})
		return resp.MakeInteger(int64(n))
	})
}

func cmdLPop(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("lpop"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		}
		val, ok := v.List.PopFront()
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.List.Len() == 0 {
			shard.Delete(key, ctx.Now)
		}
		return resp.MakeBulkString(val)
	})
}

func cmdRPop(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("rpop"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		}
		val, ok := v.List.PopBack()
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.List.Len() == 0 {
			shard.Delete(key, ctx.Now)
		}
		return resp.MakeBulkString(val)
	})
}

func cmdLLen(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("llen"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		}
		return resp.MakeInteger(int64(v.List.Len()))
	})
}

func cmdLRange(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 3 {
		return arityError("lrange"), false
	}
	key := string(ctx.Args[0])
	start, errVal, ok := parseInt(ctx.Args[1])
	if !ok {
		return reply(errVal), false
	}
	stop, errVal, ok := parseInt(ctx.Args[2])
	if !ok {
		return reply(errVal), false
	}

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeArray(nil)
		}
		if v.Kind != store.KindList {
			return resp.MakeWrongTypeError()
		}
		lo, hi := NormalizeRange(int(start), int(stop), v.List.Len())
		if lo > hi {
			return resp.MakeArray(nil)
		}
		items := v.List.Range(lo, hi)
		values := make([]resp.Value, len(items))
		for i, it := range items {
			values[i] = resp.MakeBulkString(it)
		}
		return resp.MakeArray(values)
	})
}
