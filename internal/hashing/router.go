// Package hashing implements QuineDB's key→shard routing. The chosen
// algorithm is a cluster-wide invariant: it must be stable across process
// restarts so a reloaded snapshot places every key on the same shard it
// held when saved.
package hashing

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// Algorithm names the routing strategy, persisted in the RDB header so a
// snapshot can refuse to load under a mismatched router.
type Algorithm byte

const (
	AlgorithmCRC16 Algorithm = iota
	AlgorithmRing
)

// String renders the algorithm the way config files and RDB headers name
// it ("crc16", "ring").
func (a Algorithm) String() string {
	switch a {
	case AlgorithmCRC16:
		return "crc16"
	case AlgorithmRing:
		return "ring"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "crc16", "":
		return AlgorithmCRC16, nil
	case "ring":
		return AlgorithmRing, nil
	default:
		return 0, fmt.Errorf("hashing: unknown sharding algorithm %q", s)
	}
}

// Router maps keys to shard ids in [0, N). Implementations are pure and
// must be deterministic: the same key always maps to the same shard for a
// given N and algorithm, across process restarts.
type Router interface {
	ShardOf(key string) int
	NumShards() int
	Algorithm() Algorithm
}

// New builds the Router named by algo over numShards shards.
func New(algo Algorithm, numShards int) (Router, error) {
	if numShards <= 0 {
		return nil, fmt.Errorf("hashing: numShards must be positive, got %d", numShards)
	}
	switch algo {
	case AlgorithmCRC16:
		return &crc16Router{numShards: numShards}, nil
	case AlgorithmRing:
		return newRingRouter(numShards), nil
	default:
		return nil, fmt.Errorf("hashing: unknown algorithm %v", algo)
	}
}

// crc16Router is the Redis-style "CRC16 of key modulo N" strategy.
type crc16Router struct {
	numShards int
}

func (r *crc16Router) ShardOf(key string) int {
	return int(CRC16([]byte(key))) % r.numShards
}

func (r *crc16Router) NumShards() int       { return r.numShards }
func (r *crc16Router) Algorithm() Algorithm { return AlgorithmCRC16 }

// CRC16 computes the XMODEM CRC16 of key, matching the original C++
// Router::crc16 bit for bit.
func CRC16(key []byte) uint16 {
	var crc uint16
	for _, c := range key {
		crc ^= uint16(c) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// virtualNodesPerShard matches the original's VIRTUAL_NODES_PER_SHARD.
const virtualNodesPerShard = 100

// ringRouter is the consistent-hash-ring strategy: each shard owns
// virtualNodesPerShard points on an FNV-1a hash ring; a key routes to the
// first ring point at or after its own hash, wrapping around to the first
// point if the key hashes past the last one.
type ringRouter struct {
	numShards int
	hashes    []uint32 // sorted ascending
	owners    []int    // owners[i] is the shard owning hashes[i]
}

func newRingRouter(numShards int) *ringRouter {
	type point struct {
		hash  uint32
		shard int
	}
	points := make([]point, 0, numShards*virtualNodesPerShard)
	for shard := 0; shard < numShards; shard++ {
		for v := 0; v < virtualNodesPerShard; v++ {
			vnodeKey := fmt.Sprintf("SHARD-%d-VN-%d", shard, v)
			points = append(points, point{hash: fnv1a(vnodeKey), shard: shard})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].hash < points[j].hash })

	r := &ringRouter{
		numShards: numShards,
		hashes:    make([]uint32, len(points)),
		owners:    make([]int, len(points)),
	}
	for i, p := range points {
		r.hashes[i] = p.hash
		r.owners[i] = p.shard
	}
	return r
}

func (r *ringRouter) ShardOf(key string) int {
	h := fnv1a(key)
	// lower_bound: first index whose hash is >= h, wrapping to 0 past the end.
	idx := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= h })
	if idx == len(r.hashes) {
		idx = 0
	}
	return r.owners[idx]
}

func (r *ringRouter) NumShards() int       { return r.numShards }
func (r *ringRouter) Algorithm() Algorithm { return AlgorithmRing }

func fnv1a(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
