package graph

import (
	"github.com/rs/zerolog/log"

	"github.com/strudel-graph/strudel/utils"
)

// ConvergeSync drives the bulk-synchronous loop: scatter over all vertices,
// route the produced mail, gather on the recipients, apply staged updates.
// Each phase is a global barrier; within a phase, threads only touch state
// they own (scatter reads properties and appends to their own outboxes,
// routing and gather write only to the thread's own vertex range), which is
// what permits lock-free parallelism.
func ConvergeSync[V any, E any, M any, A Algorithm[V, E, M]](alg A, g *Graph[V, E, M]) (superstep int, converged bool) {
	vertexUpdates := make([]int, g.threads())

	for superstep = 1; ; superstep++ {
		// Scatter. Mail is bucketed per (source thread, target thread) so the
		// shuffle needs no locks.
		g.NodeParallelFor(func(tidx, start, end uint32) int {
			sent := uint64(0)
			send := SendFunc[M](func(didx uint32, mail M) {
				target := g.threadOf(didx)
				g.outboxes[tidx][target] = append(g.outboxes[tidx][target], envelope[M]{didx: didx, mail: mail})
				sent++
			})
			for i := start; i < end; i++ {
				alg.OnScatter(g, &g.Vertices[i], i, superstep, send)
			}
			g.MsgSend[tidx] += sent
			return int(sent)
		})

		// Route. Each thread drains every source thread's bucket for it into
		// its own vertices' inboxes; mail order within an inbox is
		// unspecified, which is fine given the gather contract.
		g.NodeParallelFor(func(tidx, _, _ uint32) int {
			for s := range g.outboxes {
				for _, env := range g.outboxes[s][tidx] {
					g.inboxes[env.didx] = append(g.inboxes[env.didx], env.mail)
				}
				g.outboxes[s][tidx] = g.outboxes[s][tidx][:0]
			}
			return 0
		})

		// Gather. New properties are staged, never applied mid-phase, so
		// every gather in this superstep observes the previous boundary.
		changes := g.NodeParallelFor(func(tidx, start, end uint32) (tChanges int) {
			for i := start; i < end; i++ {
				mail := g.inboxes[i]
				if len(mail) == 0 && !g.Options.GatherAll {
					continue
				}
				if newProp, changed := alg.OnGather(g, &g.Vertices[i], i, superstep, mail); changed {
					g.nextProp[i] = newProp
					g.dirty[i] = true
					tChanges++
				}
			}
			vertexUpdates[tidx] += tChanges
			return tChanges
		})

		// Superstep boundary: apply staged properties, discard this
		// superstep's mail.
		g.NodeParallelFor(func(tidx, start, end uint32) int {
			for i := start; i < end; i++ {
				if g.dirty[i] {
					g.Vertices[i].Property = g.nextProp[i]
					g.dirty[i] = false
				}
				g.inboxes[i] = g.inboxes[i][:0]
			}
			return 0
		})

		if g.Options.DebugLevel >= 1 {
			log.Debug().Msg("Superstep: " + utils.V(superstep) + " Updates: " + utils.V(changes))
		}
		if changes == 0 {
			converged = true
			break
		}
		if superstep == g.Options.MaxSupersteps {
			break
		}
	}

	log.Debug().Msg("Iterations: " + utils.V(superstep) + " Updates: " + utils.V(utils.Sum(vertexUpdates)))
	return superstep, converged
}
