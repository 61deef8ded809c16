package dispatch

import (
	"strings"

	"github.com/quinedb/quinedb/internal/resp"
	"github.com/quinedb/quinedb/internal/store"
)

func (r *Registry) registerZSetCommands() {
	r.register("ZADD", HandlerFunc(cmdZAdd))
	r.register("ZRANGE", HandlerFunc(cmdZRange))
	r.register("ZREM", HandlerFunc(cmdZRem))
	r.register("ZCARD", HandlerFunc(cmdZCard))
	r.register("ZSCORE", HandlerFunc(cmdZScore))
}

func cmdZAdd(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 3 || len(ctx.Args)%2 != 1 {
		return arityError("zadd"), false
	}
	key := string(ctx.Args[0])
	pairs := ctx.Args[1:]

	scores := make([]float64, len(pairs)/2)
	members := make([]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		f, errVal, ok := parseFloat(pairs[i])
		if !ok {
			return reply(errVal), false
		}
		scores[i/2] = f
		members[i/2] = string(pairs[i+1])
	}

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		var z *store.SortedSet
		if !ok {
			z = store.NewSortedSet()
		} else if v.Kind != store.KindZSet {
			return resp.MakeWrongTypeError()
		} else {
			z = v.ZSet
		}
		var added int64
		for i, member := range members {
			if z.Add(member, scores[i]) {
				added++
			}
		}
		shard.Set(key, store.Value{Kind: store.KindZSet, ZSet: z})
		return resp.MakeInteger(added)
	})
}

func cmdZRange(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 3 && len(ctx.Args) != 4 {
		return arityError("zrange"), false
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
	withScores := false
	if len(ctx.Args) == 4 {
		if !strings.EqualFold(string(ctx.Args[3]), "WITHSCORES") {
			return reply(resp.MakeError("ERR syntax error")), false
		}
		withScores = true
	}

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeArray(nil)
		}
		if v.Kind != store.KindZSet {
			return resp.MakeWrongTypeError()
		}
		lo, hi := NormalizeRange(int(start), int(stop), v.ZSet.Len())
		if lo > hi {
			return resp.MakeArray(nil)
		}
		ranked := v.ZSet.RangeByRank(lo, hi)
		size := len(ranked)
		if withScores {
			size *= 2
		}
		values := make([]resp.Value, 0, size)
		for _, r := range ranked {
			values = append(values, resp.MakeBulkStringFromString(r.Member))
			if withScores {
				values = append(values, resp.MakeBulkStringFromString(FormatFloat(r.Score)))
			}
		}
		return resp.MakeArray(values)
	})
}

func cmdZRem(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) < 2 {
		return arityError("zrem"), false
	}
	key := string(ctx.Args[0])
	members := ctx.Args[1:]

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindZSet {
			return resp.MakeWrongTypeError()
		}
		var removed int64
		for _, m := range members {
			if v.ZSet.Remove(string(m)) {
				removed++
			}
		}
		if v.ZSet.Len() == 0 {
			shard.Delete(key, ctx.Now)
		}
		return resp.MakeInteger(removed)
	})
}

func cmdZCard(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 1 {
		return arityError("zcard"), false
	}
	key := string(ctx.Args[0])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeInteger(0)
		}
		if v.Kind != store.KindZSet {
			return resp.MakeWrongTypeError()
		}
		return resp.MakeInteger(int64(v.ZSet.Len()))
	})
}

func cmdZScore(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) != 2 {
		return arityError("zscore"), false
	}
	key := string(ctx.Args[0])
	member := string(ctx.Args[1])

	return RouteOrExecute(ctx, key, func(shard *store.Shard) resp.Value {
		v, ok := shard.Get(key, ctx.Now)
		if !ok {
			return resp.MakeNilBulkString()
		}
		if v.Kind != store.KindZSet {
			return resp.MakeWrongTypeError()
		}
		score, ok := v.ZSet.Score(member)
		if !ok {
			return resp.MakeNilBulkString()
		}
		return resp.MakeBulkStringFromString(FormatFloat(score))
	})
}
