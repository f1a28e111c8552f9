// Package pagerank computes stationary vertex ranks with the damped
// random-surfer model, running a fixed number of supersteps.
package pagerank

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/strudel-graph/strudel/graph"
	"github.com/strudel-graph/strudel/utils"
)

const DefaultDampingFactor = 0.85

type VertexProperty struct {
	Rank float64
}

type EdgeProperty struct {
	Transition float64 // Probability of following this edge: 1/outdegree of the source.
}

type Graph = graph.Graph[VertexProperty, EdgeProperty, float64]
type Vertex = graph.Vertex[VertexProperty, EdgeProperty]

type PageRank struct {
	Beta float64 // Damping factor, in (0,1).
	N    float64 // Vertex count, fixed for the run.
}

func (alg *PageRank) OnInitVertex(g *Graph, v *Vertex, internalId uint32, rawId graph.RawType) {
	v.Property.Rank = 1.0 / alg.N
}

// OnScatter distributes the vertex's rank along its transition probabilities.
// A dangling vertex has nothing to distribute over; its mass leaks (see Run).
func (alg *PageRank) OnScatter(g *Graph, v *Vertex, internalId uint32, superstep int, send graph.SendFunc[float64]) {
	for eidx := range v.OutEdges {
		send(v.OutEdges[eidx].Didx, v.Property.Rank*v.OutEdges[eidx].Property.Transition)
	}
}

// OnGather sums the inbound partial ranks and applies the dampening formula.
// Every superstep is a change: the run length is the iteration cap, there is
// no early convergence.
func (alg *PageRank) OnGather(g *Graph, v *Vertex, internalId uint32, superstep int, mail []float64) (VertexProperty, bool) {
	rankSum := 0.0
	for i := range mail {
		rankSum += mail[i]
	}
	return VertexProperty{Rank: alg.Beta*rankSum + (1.0-alg.Beta)/alg.N}, true
}

func (alg *PageRank) OnFinish(g *Graph) {
	mass := 0.0
	g.NodeForEachVertex(func(internalId uint32, v *Vertex) {
		mass += v.Property.Rank
	})
	log.Debug().Msg("Total rank mass: " + utils.F("%.6f", mass))
}

// Run computes ranks over g with damping factor beta for exactly iterations
// supersteps. Every vertex recomputes its rank each superstep, whether or not
// it received mail.
func Run(g *Graph, beta float64, iterations int) (ranks map[graph.RawType]float64, err error) {
	if beta <= 0.0 || beta >= 1.0 {
		return nil, fmt.Errorf("pagerank: damping factor must be in (0,1), got %v", beta)
	}
	if iterations < 1 {
		return nil, fmt.Errorf("pagerank: iterations must be positive, got %d", iterations)
	}
	if g.NodeVertexCount() == 0 {
		return nil, fmt.Errorf("pagerank: graph has no vertices")
	}

	sinks := normalizeTransitions(g)
	if sinks > 0 {
		log.Warn().Msg(utils.V(sinks) + " dangling vertices; their rank mass leaks, totals will sum below 1.")
	}

	g.Options.MaxSupersteps = iterations
	g.Options.GatherAll = true

	alg := &PageRank{Beta: beta, N: float64(g.NodeVertexCount())}
	if _, _, err = graph.Run[VertexProperty, EdgeProperty, float64](alg, g); err != nil {
		return nil, err
	}

	ranks = make(map[graph.RawType]float64, g.NodeVertexCount())
	g.NodeForEachVertex(func(internalId uint32, v *Vertex) {
		ranks[g.NodeVertexRawID(internalId)] = v.Property.Rank
	})
	return ranks, nil
}

// normalizeTransitions turns each edge into a transition probability:
// 1/outdegree of its source. Returns the number of sinks (out-degree 0),
// which have nothing to normalize and contribute zero outflow.
func normalizeTransitions(g *Graph) (sinks int) {
	g.NodeForEachVertex(func(internalId uint32, v *Vertex) {
		degree := len(v.OutEdges)
		if degree == 0 {
			sinks++
			return
		}
		for eidx := range v.OutEdges {
			v.OutEdges[eidx].Property.Transition = 1.0 / float64(degree)
		}
	})
	return sinks
}
