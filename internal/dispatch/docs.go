package dispatch

import (
	"strings"

	"github.com/quinedb/quinedb/internal/resp"
)

// commandMeta is the per-command introspection record COMMAND reports,
// adapted from Redis's own COMMAND output shape: arity (negative means "at
// least |arity|"), flags, and the 1-based first/last key argument index
// with its step (most of ours touch exactly one key, so step is 1 and
// first==last).
type commandMeta struct {
	arity    int
	flags    []string
	firstKey int
	lastKey  int
	step     int
}

var commandRegistry = map[string]commandMeta{
	"PING":    {-1, []string{"fast", "stale"}, 0, 0, 0},
	"COMMAND": {-1, []string{"random", "loading", "stale"}, 0, 0, 0},

	"SET": {3, []string{"write", "denyoom"}, 1, 1, 1},
	"GET": {2, []string{"readonly", "fast"}, 1, 1, 1},
	"DEL": {2, []string{"write"}, 1, 1, 1},

	"LPUSH":  {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
	"RPUSH":  {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
	"LPOP":   {2, []string{"write", "fast"}, 1, 1, 1},
	"RPOP":   {2, []string{"write", "fast"}, 1, 1, 1},
	"LLEN":   {2, []string{"readonly", "fast"}, 1, 1, 1},
	"LRANGE": {4, []string{"readonly"}, 1, 1, 1},

	"HSET":    {-4, []string{"write", "denyoom", "fast"}, 1, 1, 1},
	"HGET":    {3, []string{"readonly", "fast"}, 1, 1, 1},
	"HGETALL": {2, []string{"readonly"}, 1, 1, 1},
	"HDEL":    {-3, []string{"write", "fast"}, 1, 1, 1},
	"HLEN":    {2, []string{"readonly", "fast"}, 1, 1, 1},

	"SADD":     {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
	"SMEMBERS": {2, []string{"readonly"}, 1, 1, 1},
	"SREM":     {-3, []string{"write", "fast"}, 1, 1, 1},
	"SCARD":    {2, []string{"readonly", "fast"}, 1, 1, 1},

	"ZADD":   {-4, []string{"write", "denyoom", "fast"}, 1, 1, 1},
	"ZRANGE": {-4, []string{"readonly"}, 1, 1, 1},
	"ZREM":   {-3, []string{"write", "fast"}, 1, 1, 1},
	"ZCARD":  {2, []string{"readonly", "fast"}, 1, 1, 1},
	"ZSCORE": {3, []string{"readonly", "fast"}, 1, 1, 1},

	"EXPIRE":  {3, []string{"write", "fast"}, 1, 1, 1},
	"TTL":     {2, []string{"readonly", "fast"}, 1, 1, 1},
	"PTTL":    {2, []string{"readonly", "fast"}, 1, 1, 1},
	"PERSIST": {2, []string{"write", "fast"}, 1, 1, 1},

	"SAVE":   {1, []string{"admin", "noscript"}, 0, 0, 0},
	"BGSAVE": {-1, []string{"admin", "noscript"}, 0, 0, 0},
}

type commandDoc struct {
	summary    string
	complexity string
	group      string
	since      string
}

var commandDocsRegistry = map[string]commandDoc{
	"PING":    {"Ping the server.", "O(1)", "connection", "1.0.0"},
	"COMMAND": {"Get array of command details.", "O(N)", "server", "1.0.0"},

	"SET": {"Set the string value of a key.", "O(1)", "string", "1.0.0"},
	"GET": {"Get the value of a key.", "O(1)", "string", "1.0.0"},
	"DEL": {"Delete a key.", "O(1)", "generic", "1.0.0"},

	"LPUSH":  {"Prepend values to a list.", "O(1) per value", "list", "1.0.0"},
	"RPUSH":  {"Append values to a list.", "O(1) per value", "list", "1.0.0"},
	"LPOP":   {"Remove and return the first element of a list.", "O(1)", "list", "1.0.0"},
	"RPOP":   {"Remove and return the last element of a list.", "O(1)", "list", "1.0.0"},
	"LLEN":   {"Return the length of a list.", "O(1)", "list", "1.0.0"},
	"LRANGE": {"Return a range of elements from a list.", "O(N)", "list", "1.0.0"},

	"HSET":    {"Set fields in a hash.", "O(N)", "hash", "1.0.0"},
	"HGET":    {"Get the value of a hash field.", "O(1)", "hash", "1.0.0"},
	"HGETALL": {"Get all fields and values of a hash.", "O(N)", "hash", "1.0.0"},
	"HDEL":    {"Delete fields from a hash.", "O(N)", "hash", "1.0.0"},
	"HLEN":    {"Get the number of fields in a hash.", "O(1)", "hash", "1.0.0"},

	"SADD":     {"Add members to a set.", "O(N)", "set", "1.0.0"},
	"SMEMBERS": {"Get all members of a set.", "O(N)", "set", "1.0.0"},
	"SREM":     {"Remove members from a set.", "O(N)", "set", "1.0.0"},
	"SCARD":    {"Get the number of members in a set.", "O(1)", "set", "1.0.0"},

	"ZADD":   {"Add members to a sorted set.", "O(log(N)) per member", "sorted-set", "1.0.0"},
	"ZRANGE": {"Return a range of members from a sorted set by rank.", "O(log(N)+M)", "sorted-set", "1.0.0"},
	"ZREM":   {"Remove members from a sorted set.", "O(log(N)) per member", "sorted-set", "1.0.0"},
	"ZCARD":  {"Get the number of members in a sorted set.", "O(1)", "sorted-set", "1.0.0"},
	"ZSCORE": {"Get the score of a member in a sorted set.", "O(1)", "sorted-set", "1.0.0"},

	"EXPIRE":  {"Set a key's time to live in seconds.", "O(1)", "generic", "1.0.0"},
	"TTL":     {"Get the time to live for a key in seconds.", "O(1)", "generic", "1.0.0"},
	"PTTL":    {"Get the time to live for a key in milliseconds.", "O(1)", "generic", "1.0.0"},
	"PERSIST": {"Remove the expiration from a key.", "O(1)", "generic", "1.0.0"},

	"SAVE":   {"Synchronously save the dataset to disk.", "O(N)", "server", "1.0.0"},
	"BGSAVE": {"Asynchronously save the dataset to disk.", "O(N)", "server", "1.0.0"},
}

func (r *Registry) registerConnectionCommands() {
	r.register("PING", HandlerFunc(cmdPing))
	r.register("COMMAND", HandlerFunc(cmdCommand))
}

func cmdPing(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) == 0 {
		return reply(resp.MakeSimpleString("PONG")), false
	}
	if len(ctx.Args) == 1 {
		return reply(resp.MakeBulkString(ctx.Args[0])), false
	}
	return arityError("ping"), false
}

func cmdCommand(ctx *Context) ([]byte, bool) {
	if len(ctx.Args) >= 1 && strings.EqualFold(string(ctx.Args[0]), "DOCS") {
		return reply(commandDocs(ctx.Args[1:])), false
	}
	return reply(allCommands()), false
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeArray(vals)
}

func makeInfoArray(name string) resp.Value {
	meta := commandRegistry[name]
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkStringFromString(name),
		resp.MakeInteger(int64(meta.arity)),
		makeFlagsArray(meta.flags),
		resp.MakeInteger(int64(meta.firstKey)),
		resp.MakeInteger(int64(meta.lastKey)),
		resp.MakeInteger(int64(meta.step)),
	})
}

func allCommands() resp.Value {
	out := make([]resp.Value, 0, len(commandRegistry))
	for name := range commandRegistry {
		out = append(out, makeInfoArray(name))
	}
	return resp.MakeArray(out)
}

// commandDocs implements COMMAND DOCS [name ...], returning documentation
// for the named commands, or every registered command if none are named.
func commandDocs(args [][]byte) resp.Value {
	var targets []string
	if len(args) == 0 {
		targets = make([]string, 0, len(commandDocsRegistry))
		for name := range commandDocsRegistry {
			targets = append(targets, name)
		}
	} else {
		targets = make([]string, 0, len(args))
		for _, a := range args {
			targets = append(targets, strings.ToUpper(string(a)))
		}
	}

	result := make([]resp.Value, 0, len(targets)*2)
	for _, name := range targets {
		doc, ok := commandDocsRegistry[name]
		if !ok {
			continue
		}
		result = append(result,
			resp.MakeBulkStringFromString(name),
			resp.MakeArray([]resp.Value{
				resp.MakeBulkStringFromString("summary"),
				resp.MakeBulkStringFromString(doc.summary),
				resp.MakeBulkStringFromString("since"),
				resp.MakeBulkStringFromString(doc.since),
				resp.MakeBulkStringFromString("group"),
				resp.MakeBulkStringFromString(doc.group),
				resp.MakeBulkStringFromString("complexity"),
				resp.MakeBulkStringFromString(doc.complexity),
			}),
		)
	}
	return resp.MakeArray(result)
}

func (r *Registry) registerAll() {
	r.registerConnectionCommands()
	r.registerStringCommands()
	r.registerListCommands()
	r.registerHashCommands()
	r.registerSetCommands()
	r.registerZSetCommands()
	r.registerGenericCommands()
	r.registerAdminCommands()
}
