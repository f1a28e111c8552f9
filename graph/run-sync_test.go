package graph

import (
	"math/rand"
	"testing"
)

type testProp struct {
	Val float64
}

type testEdge struct{}

// Floods the largest seeded value through the graph, one hop per superstep.
type maxPropagate struct {
	seeds map[RawType]float64
}

func (alg *maxPropagate) OnInitVertex(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, rawId RawType) {
	v.Property.Val = alg.seeds[rawId]
}

func (alg *maxPropagate) OnScatter(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, superstep int, send SendFunc[float64]) {
	for eidx := range v.OutEdges {
		send(v.OutEdges[eidx].Didx, v.Property.Val)
	}
}

func (alg *maxPropagate) OnGather(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, superstep int, mail []float64) (testProp, bool) {
	best := v.Property.Val
	for i := range mail {
		if mail[i] > best {
			best = mail[i]
		}
	}
	if best > v.Property.Val {
		return testProp{Val: best}, true
	}
	return v.Property, false
}

// Counts inbound mail; always reports a change, so runs are cap-bound.
type mailCounter struct{}

func (alg *mailCounter) OnInitVertex(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, rawId RawType) {
	v.Property.Val = 0
}

func (alg *mailCounter) OnScatter(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, superstep int, send SendFunc[float64]) {
	for eidx := range v.OutEdges {
		send(v.OutEdges[eidx].Didx, 1.0)
	}
}

func (alg *mailCounter) OnGather(g *Graph[testProp, testEdge, float64], v *Vertex[testProp, testEdge], internalId uint32, superstep int, mail []float64) (testProp, bool) {
	return testProp{Val: v.Property.Val + float64(len(mail))}, true
}

func chainGraph(threads uint32, n int) *Graph[testProp, testEdge, float64] {
	g := New[testProp, testEdge, float64](RunOptions{NumThreads: threads, MaxSupersteps: 100})
	for i := 0; i < n-1; i++ {
		g.AddEdge(AsRawType(i), AsRawType(i+1), testEdge{})
	}
	return g
}

func randThreads() uint32 {
	return uint32(rand.Intn(8-1) + 1)
}

func TestFixedPointTerminatesInOneSuperstep(t *testing.T) {
	for tCount := 0; tCount < 10; tCount++ {
		g := chainGraph(randThreads(), 5)
		seeds := map[RawType]float64{}
		for i := 0; i < 5; i++ {
			seeds[AsRawType(i)] = 1.0 // Already at the fixed point.
		}
		supersteps, converged, err := Run[testProp, testEdge, float64](&maxPropagate{seeds: seeds}, g)
		if err != nil {
			t.Fatal(err)
		}
		if !converged || supersteps != 1 {
			t.Fatalf("expected convergence in exactly 1 superstep, got %v (converged %v)", supersteps, converged)
		}
	}
}

func TestOneHopPerSuperstep(t *testing.T) {
	for tCount := 0; tCount < 10; tCount++ {
		g := chainGraph(randThreads(), 4)
		seeds := map[RawType]float64{AsRawType(0): 5.0}
		supersteps, converged, err := Run[testProp, testEdge, float64](&maxPropagate{seeds: seeds}, g)
		if err != nil {
			t.Fatal(err)
		}
		// 3 propagation supersteps plus the no-change superstep that detects it.
		if !converged || supersteps != 4 {
			t.Fatalf("expected convergence in 4 supersteps, got %v (converged %v)", supersteps, converged)
		}
		for i := 0; i < 4; i++ {
			_, v := g.NodeVertexFromRaw(AsRawType(i))
			if v.Property.Val != 5.0 {
				t.Fatalf("vertex %v is %v, expected 5.0", i, v.Property.Val)
			}
		}
	}
}

func TestSuperstepCap(t *testing.T) {
	g := chainGraph(randThreads(), 4)
	g.Options.MaxSupersteps = 2
	seeds := map[RawType]float64{AsRawType(0): 5.0}
	supersteps, converged, err := Run[testProp, testEdge, float64](&maxPropagate{seeds: seeds}, g)
	if err != nil {
		t.Fatal(err)
	}
	if converged || supersteps != 2 {
		t.Fatalf("expected a capped run of 2 supersteps, got %v (converged %v)", supersteps, converged)
	}
	// Two hops made it, the third did not.
	_, v2 := g.NodeVertexFromRaw(AsRawType(2))
	_, v3 := g.NodeVertexFromRaw(AsRawType(3))
	if v2.Property.Val != 5.0 || v3.Property.Val != 0.0 {
		t.Fatalf("partial result mismatch: v2 %v v3 %v", v2.Property.Val, v3.Property.Val)
	}
}

func TestRouterFanIn(t *testing.T) {
	for tCount := 0; tCount < 10; tCount++ {
		fan := 17
		g := New[testProp, testEdge, float64](RunOptions{NumThreads: randThreads(), MaxSupersteps: 1})
		for i := 1; i <= fan; i++ {
			g.AddEdge(AsRawType(i), AsRawType(0), testEdge{})
		}
		if _, _, err := Run[testProp, testEdge, float64](new(mailCounter), g); err != nil {
			t.Fatal(err)
		}
		_, hub := g.NodeVertexFromRaw(AsRawType(0))
		if hub.Property.Val != float64(fan) {
			t.Fatalf("hub received %v messages, expected %v", hub.Property.Val, fan)
		}
	}
}

func TestEmptyGraph(t *testing.T) {
	g := New[testProp, testEdge, float64](RunOptions{MaxSupersteps: 10})
	supersteps, converged, err := Run[testProp, testEdge, float64](new(mailCounter), g)
	if err != nil {
		t.Fatal(err)
	}
	if !converged || supersteps != 1 {
		t.Fatalf("empty graph should converge in 1 superstep, got %v (converged %v)", supersteps, converged)
	}
}

func TestOptionsRejected(t *testing.T) {
	g := chainGraph(1, 3)
	g.Options.MaxSupersteps = 0
	if _, _, err := Run[testProp, testEdge, float64](new(mailCounter), g); err == nil {
		t.Fatal("expected a configuration error for MaxSupersteps 0")
	}
}
