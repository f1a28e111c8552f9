package graph

import (
	"github.com/rs/zerolog/log"

	"github.com/strudel-graph/strudel/utils"
)

// SendFunc queues mail for the target vertex; it is delivered in the gather
// phase of the same superstep. Only valid inside the scatter call it was
// handed to.
type SendFunc[M any] func(didx uint32, mail M)

// Algorithm is the contract a scatter-gather algorithm supplies to the engine.
// See the sssp and pagerank packages for reference implementations.
type Algorithm[V any, E any, M any] interface {
	// OnInitVertex assigns the starting property of each vertex. Runs once,
	// before superstep 1, so no vertex is ever uninitialized at a superstep
	// boundary.
	OnInitVertex(g *Graph[V, E, M], v *Vertex[V, E], internalId uint32, rawId RawType)

	// OnScatter emits mail along the vertex's outgoing edges. It must not
	// mutate the vertex; it may emit nothing (algorithm-level filtering).
	OnScatter(g *Graph[V, E, M], v *Vertex[V, E], internalId uint32, superstep int, send SendFunc[M])

	// OnGather folds the superstep's inbound mail into a new property, or
	// signals no change. The fold must be commutative and associative over
	// the mail set; the engine gives no ordering guarantee within it.
	// The property seen here is the one from the previous superstep
	// boundary; updates from the current superstep are never visible.
	OnGather(g *Graph[V, E, M], v *Vertex[V, E], internalId uint32, superstep int, mail []M) (newProp V, changed bool)
}

// Optional hook, invoked after the run terminates.
type AlgorithmOnFinish[V any, E any, M any] interface {
	OnFinish(g *Graph[V, E, M])
}

// Run executes the algorithm on the given graph until no vertex changes value
// or Options.MaxSupersteps is reached. Returns the number of supersteps that
// ran, and whether the run converged before the cap; when it did not, the
// properties hold the best result found so far.
func Run[V any, E any, M any, A Algorithm[V, E, M]](alg A, g *Graph[V, E, M]) (supersteps int, converged bool, err error) {
	if err = g.Options.Validate(); err != nil {
		return 0, false, err
	}
	g.Watch.Start()
	if g.Options.DebugLevel >= 1 {
		g.ComputeGraphStats()
	}
	g.initRun(alg)

	supersteps, converged = ConvergeSync(alg, g)

	msgSend := utils.Sum(g.MsgSend)
	log.Info().Msg("Termination: " + utils.V(g.Watch.Elapsed().Milliseconds()) + "ms" +
		" Supersteps: " + utils.V(supersteps) + " Messages: " + utils.V(msgSend))

	if a, ok := any(alg).(AlgorithmOnFinish[V, E, M]); ok {
		a.OnFinish(g)
	}
	return supersteps, converged, nil
}

// initRun sizes the superstep buffers and runs the initialization phase.
func (g *Graph[V, E, M]) initRun(alg Algorithm[V, E, M]) {
	n := len(g.Vertices)
	threads := g.threads()
	g.chunk = 0 // Recompute shards; the vertex set is now final.

	g.inboxes = make([][]M, n)
	g.nextProp = make([]V, n)
	g.dirty = make([]bool, n)
	g.MsgSend = make([]uint64, threads)
	g.outboxes = make([][][]envelope[M], threads)
	for t := range g.outboxes {
		g.outboxes[t] = make([][]envelope[M], threads)
	}

	g.NodeParallelFor(func(tidx, start, end uint32) int {
		for i := start; i < end; i++ {
			alg.OnInitVertex(g, &g.Vertices[i], i, g.rawIds[i])
		}
		return 0
	})
}
