package dispatch

import (
	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerSetCommands() {
	r.register("SADD", HandlerFunc(cmdSAdd))
	r.register("SMEMBERS", HandlerFunc(cmdSMembers))
	r.register("SREM", HandlerFunc(cmdSRem))
	r.register("SCARD", HandlerFunc(cmdSCard))
}

func cmdSAdd(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("sadd"), false
	}
	key := string(ctx.Args[0])
	members := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		var s map[string]struct{}
		if !ok {
			s = make(map[string]struct{})
		} else if v.Kind != store.KindSet {
			return resp.MakeWrongTypeError()
		} else {
			s = v.Set
		}
		var added int64
		for _, m := range members {
			member := string(m)
			if _, exists := s[member]; !exists {
				s[member] = struct{}{}
				added++
			}
		}
		shard.Set(key, store.Value{Kind: store.KindSet, Set: s})
		return resp.MakeInteger(added)
	})
}

func cmdSMembers(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("smembers"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeArray(nil)
		}
		if v.Kind != store.KindSet {
			return resp.MakeWrongTypeError()
		}
		values := make([]resp.Value, 0, len(v.Set))
		for member := range v.Set {
			values = append(values, resp.MakeBulkStringFromString(member))
		}
		return resp.MakeArray(values)
	})
}

func cmdSRem(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("srem"), false
	}
	key := string(ctx.Args[0])
	members := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindSet {
			return resp.MakeWrongTypeError()
		}
		var removed int64
		for _, m := range members {
			member := string(m)
			if _, exists := v.Set[member]; exists {
				delete(v.Set, member)
				removed++
			}
		}
		if len(v.Set) == 0 {
			shard.Delete(key, ctx.Now)
		}
		return resp.MakeInteger(removed)
	})
}

func cmdSCard(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("scard"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindSet {
			return resp.MakeWrongTypeError()
		}
		return resp.MakeInteger(int64(len(v.Set)))
	})
}
