// Package sssp computes single-source shortest paths over a directed,
// non-negatively weighted graph by iterative edge relaxation.
package sssp

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/strudel-graph/strudel/graph"
)

// EmptyVal marks a vertex not yet reached from the source. A valid terminal
// state for disconnected vertices, not an error.
var EmptyVal = math.Inf(1)

// The reference cap; distances converge in at most |V|-1 supersteps anyway
// for non-negative weights.
const DefaultMaxSupersteps = 100

type VertexProperty struct {
	Distance float64
}

type EdgeProperty struct {
	Weight float64
}

type Graph = graph.Graph[VertexProperty, EdgeProperty, float64]
type Vertex = graph.Vertex[VertexProperty, EdgeProperty]

type SSSP struct {
	Source graph.RawType
}

func (alg *SSSP) OnInitVertex(g *Graph, v *Vertex, internalId uint32, rawId graph.RawType) {
	if rawId == alg.Source {
		v.Property.Distance = 0.0
	} else {
		v.Property.Distance = EmptyVal
	}
}

// OnScatter offers a relaxation along every out edge. Unreached vertices stay
// silent; no useful relaxation can come from an infinite distance.
func (alg *SSSP) OnScatter(g *Graph, v *Vertex, internalId uint32, superstep int, send graph.SendFunc[float64]) {
	if v.Property.Distance == EmptyVal {
		return
	}
	for eidx := range v.OutEdges {
		send(v.OutEdges[eidx].Didx, v.Property.Distance+v.OutEdges[eidx].Property.Weight)
	}
}

// OnGather keeps the minimum of the current distance and all inbound offers.
// Only a strict improvement counts as a change; an equal-length path through
// another route carries no new distance information.
func (alg *SSSP) OnGather(g *Graph, v *Vertex, internalId uint32, superstep int, mail []float64) (VertexProperty, bool) {
	minDistance := v.Property.Distance
	for i := range mail {
		if mail[i] < minDistance {
			minDistance = mail[i]
		}
	}
	if minDistance < v.Property.Distance {
		return VertexProperty{Distance: minDistance}, true
	}
	return v.Property, false
}

// Run computes shortest distances from source over g. maxSupersteps of 0
// takes the default cap. Unreachable vertices report EmptyVal. converged is
// false when the cap cut the run short; the distances are then the best found
// so far, which may not be optimal.
func Run(g *Graph, source graph.RawType, maxSupersteps int) (distances map[graph.RawType]float64, converged bool, err error) {
	if maxSupersteps == 0 {
		maxSupersteps = DefaultMaxSupersteps
	}
	if _, v := g.NodeVertexFromRaw(source); v == nil {
		return nil, false, fmt.Errorf("sssp: source vertex %v does not exist", source)
	}
	g.Options.MaxSupersteps = maxSupersteps

	_, converged, err = graph.Run[VertexProperty, EdgeProperty, float64](&SSSP{Source: source}, g)
	if err != nil {
		return nil, false, err
	}
	if !converged {
		log.Warn().Msg("Hit the superstep cap before convergence; distances are an approximation.")
	}

	distances = make(map[graph.RawType]float64, g.NodeVertexCount())
	g.NodeForEachVertex(func(internalId uint32, v *Vertex) {
		distances[g.NodeVertexRawID(internalId)] = v.Property.Distance
	})
	return distances, converged, nil
}
