package graph

import (
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/strudel-graph/strudel/utils"
)

// RawType is the external (loader-supplied) identity of a vertex. Raw ids are
// stable for the lifetime of the graph; the dense internal uint32 indices the
// engine assigns are an implementation detail and differ between graphs built
// in a different order.
type RawType uint32

func AsRawType(i int) RawType {
	return RawType(i)
}

// Defines an outgoing edge. Immutable for the duration of a run.
type Edge[E any] struct {
	Didx     uint32 // Internal index of the target vertex.
	Property E
}

// Defines a vertex in a graph. The property is the algorithm's value; it is
// only ever rewritten by the engine, at a superstep boundary.
type Vertex[V any, E any] struct {
	Property V
	OutEdges []Edge[E] // Main outgoing edgelist.
}

// Graph holds the vertex set and all run-scoped state. V is the per-vertex
// property type, E the per-edge property type, M the mail (message payload)
// type shuffled between supersteps.
type Graph[V any, E any, M any] struct {
	Options   RunOptions
	VertexMap map[RawType]uint32 // Raw to internal.
	Vertices  []Vertex[V, E]
	MsgSend   []uint64 // Per-thread message counters.
	Watch     utils.Watch

	rawIds []RawType // Internal to raw.

	// Superstep-scoped buffers. The router owns these for exactly one
	// superstep: outboxes are filled during scatter, drained into inboxes
	// during routing, and inboxes are cleared when staged properties are
	// applied at the superstep boundary.
	inboxes  [][]M
	outboxes [][][]envelope[M] // [source thread][target thread].
	nextProp []V
	dirty    []bool
	chunk    uint32
}

// An envelope pairs mail with its target, for the inter-thread shuffle.
type envelope[M any] struct {
	didx uint32
	mail M
}

func New[V any, E any, M any](options RunOptions) *Graph[V, E, M] {
	return &Graph[V, E, M]{
		Options:   options,
		VertexMap: make(map[RawType]uint32),
	}
}

// AddVertex ensures the raw id exists, returning its internal index.
// Idempotent; the loader may declare vertices before or alongside edges.
func (g *Graph[V, E, M]) AddVertex(rawId RawType) uint32 {
	if internalId, ok := g.VertexMap[rawId]; ok {
		return internalId
	}
	internalId := uint32(len(g.Vertices))
	g.VertexMap[rawId] = internalId
	g.rawIds = append(g.rawIds, rawId)
	g.Vertices = append(g.Vertices, Vertex[V, E]{})
	return internalId
}

// AddEdge appends a directed edge, creating either endpoint as needed.
// Must only be called before a run; edges are read-only inputs to scatter.
func (g *Graph[V, E, M]) AddEdge(srcRaw RawType, dstRaw RawType, property E) {
	sidx := g.AddVertex(srcRaw)
	didx := g.AddVertex(dstRaw)
	g.Vertices[sidx].OutEdges = append(g.Vertices[sidx].OutEdges, Edge[E]{Didx: didx, Property: property})
}

// NodeVertexFromRaw gives the internal index and vertex for a raw id, or nil
// if the graph never saw the id.
func (g *Graph[V, E, M]) NodeVertexFromRaw(rawId RawType) (uint32, *Vertex[V, E]) {
	if internalId, ok := g.VertexMap[rawId]; ok {
		return internalId, &g.Vertices[internalId]
	}
	return 0, nil
}

func (g *Graph[V, E, M]) NodeVertexRawID(internalId uint32) RawType {
	return g.rawIds[internalId]
}

func (g *Graph[V, E, M]) NodeVertexCount() int {
	return len(g.Vertices)
}

// NodeForEachVertex is a basic serial iteration over all vertices.
func (g *Graph[V, E, M]) NodeForEachVertex(applicator func(internalId uint32, vertex *Vertex[V, E])) {
	for i := uint32(0); i < uint32(len(g.Vertices)); i++ {
		applicator(i, &g.Vertices[i])
	}
}

// NodeParallelFor performs an applicator on each vertex shard; all threads run
// in parallel. The applicator sees its thread index and the half-open internal
// index range [start, end) it owns. Sums the return values.
func (g *Graph[V, E, M]) NodeParallelFor(applicator func(tidx uint32, start uint32, end uint32) (accumulated int)) (accumulator int) {
	threads := g.threads()
	g.shardSize() // Warm the shard cache before fanning out.
	res := make(chan int, threads)
	for t := uint32(0); t < threads; t++ {
		go func(tidx uint32) {
			start, end := g.shard(tidx)
			res <- applicator(tidx, start, end)
		}(t)
	}
	for t := uint32(0); t < threads; t++ {
		accumulator += <-res
	}
	return accumulator
}

func (g *Graph[V, E, M]) threads() uint32 {
	if g.Options.NumThreads == 0 {
		g.Options.NumThreads = uint32(runtime.NumCPU())
	}
	return g.Options.NumThreads
}

// Contiguous equal shards; the last thread's may be short (or empty).
func (g *Graph[V, E, M]) shard(tidx uint32) (start, end uint32) {
	n := uint32(len(g.Vertices))
	start = utils.Min(tidx*g.shardSize(), n)
	end = utils.Min(start+g.shardSize(), n)
	return start, end
}

func (g *Graph[V, E, M]) shardSize() uint32 {
	if g.chunk == 0 {
		n := uint32(len(g.Vertices))
		threads := g.threads()
		g.chunk = utils.Max((n+threads-1)/threads, 1)
	}
	return g.chunk
}

// threadOf maps an internal index to the thread that owns its shard.
func (g *Graph[V, E, M]) threadOf(internalId uint32) uint32 {
	return internalId / g.shardSize()
}

// ComputeGraphStats logs basic shape information about the graph.
func (g *Graph[V, E, M]) ComputeGraphStats() {
	numEdges := uint64(0)
	numSinks := uint64(0)
	maxOutDegree := 0
	for vidx := range g.Vertices {
		if len(g.Vertices[vidx].OutEdges) == 0 {
			numSinks++
		}
		numEdges += uint64(len(g.Vertices[vidx].OutEdges))
		maxOutDegree = utils.Max(maxOutDegree, len(g.Vertices[vidx].OutEdges))
	}
	log.Info().Msg("Vertices: " + utils.V(len(g.Vertices)) + " Edges: " + utils.V(numEdges) +
		" Sinks: " + utils.V(numSinks) + " MaxOutDeg: " + utils.V(maxOutDegree))
}
