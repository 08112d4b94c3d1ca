package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/notify"
	"github.com/vk/mediaflowgo/internal/topology"
)

// RunNode executes one target node plus the minimal upstream closure whose
// outputs are stale. Dependencies carrying fresh outputs are skipped, which
// avoids redundant external calls when a user repeatedly re-triggers a
// downstream node; the target itself always re-executes. The replay happens
// on its own RunState, so a concurrent full-graph run is unaffected.
func (s *Scheduler) RunNode(ctx context.Context, g *graph.Graph, targetID string) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	runID := uuid.NewString()
	logger = logger.With("runID", runID, "targetID", targetID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if g.NodeByID(targetID) == nil {
		return nil, fmt.Errorf("node %q not found", targetID)
	}

	analysis, err := topology.Analyze(g)
	if err != nil {
		s.notifier.Toast(notify.ToastError, err.Error())
		return nil, err
	}

	closure := upstreamClosure(g, targetID)
	state := NewRunState(g)

	// Walk the upstream closure in topological order so each dependency sees
	// settled predecessors, executing only the stale ones.
	var plan []string
	for _, id := range analysis.Order {
		if id == targetID || !closure[id] {
			continue
		}
		desc, _ := s.registry.Lookup(g.NodeByID(id).Type)
		if state.Fresh(id, desc) {
			logger.Debug("Skipping fresh dependency.", "nodeID", id)
			continue
		}
		plan = append(plan, id)
	}
	plan = append(plan, targetID)
	logger.Debug("Single-node plan computed.", "nodes", len(plan))

	report := &Report{RunID: runID}
	for _, id := range plan {
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}
		s.executeNode(ctx, g, state, id, Options{}, len(plan))
		if id != targetID && state.Status(id) == graph.StatusError {
			// A failed dependency starves everything downstream of required
			// input; stop replaying rather than cascade the same failure.
			logger.Warn("Dependency failed, stopping single-node replay.", "nodeID", id)
			break
		}
	}

	state.Apply(g)
	report.Completed, report.Failed = state.Counts()
	return report, nil
}

// upstreamClosure returns every node reachable backward from target.
func upstreamClosure(g *graph.Graph, targetID string) map[string]bool {
	closure := make(map[string]bool)
	stack := []string{targetID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.IncomingEdges(id) {
			if !closure[e.Source] {
				closure[e.Source] = true
				stack = append(stack, e.Source)
			}
		}
	}
	return closure
}
