package scheduler

import (
	"sync"

	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
)

// RunState is the live, in-memory snapshot of node outputs and statuses for
// exactly one run. It is created when a run starts, passed by reference
// through the scheduling call chain, and applied back to the run's graph
// copy when the run settles. It is the only mutable shared resource during a
// run; the mutex serializes folds from concurrent-group nodes.
type RunState struct {
	mu      sync.RWMutex
	outputs map[string]map[string]any
	status  map[string]graph.NodeStatus
	errs    map[string]string
	skipped map[string]bool

	// completed and failed count only nodes this run settled, so a run over
	// a partial schedule never counts statuses seeded from an earlier run.
	completed int
	failed    int
}

// NewRunState seeds a state from the graph's current node data, so constant
// source nodes supplied by the editor are visible to the first level.
func NewRunState(g *graph.Graph) *RunState {
	s := &RunState{
		outputs: make(map[string]map[string]any, len(g.Nodes)),
		status:  make(map[string]graph.NodeStatus, len(g.Nodes)),
		errs:    make(map[string]string, len(g.Nodes)),
		skipped: make(map[string]bool),
	}
	for _, n := range g.Nodes {
		if n.Outputs != nil {
			s.outputs[n.ID] = n.Outputs
		}
		status := n.Status
		if status == "" {
			status = graph.StatusReady
		}
		s.status[n.ID] = status
	}
	return s
}

// NodeOutputs implements inputs.OutputReader.
func (s *RunState) NodeOutputs(id string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs[id]
}

// Status returns a node's current status.
func (s *RunState) Status(id string) graph.NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[id]
}

// NodeError returns a node's recorded failure message.
func (s *RunState) NodeError(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[id]
}

// SetExecuting marks a node as running.
func (s *RunState) SetExecuting(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = graph.StatusExecuting
}

// Fold merges a successful execution result into the snapshot: explicit
// Outputs win over a flat Data result. Later nodes, including serial
// siblings in the same level, read through this state and therefore see the
// fresh values immediately.
func (s *RunState) Fold(id string, res *registry.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[id] = res.Values()
	s.status[id] = graph.StatusCompleted
	s.skipped[id] = res.Skipped
	s.completed++
	delete(s.errs, id)
}

// SetError records a node failure.
func (s *RunState) SetError(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = graph.StatusError
	s.errs[id] = message
	s.failed++
}

// Fresh reports whether a node carries non-empty outputs from a successful
// execution or a constant source. Source types count as fresh regardless of
// status because they have no execution body to re-run.
func (s *RunState) Fresh(id string, desc *registry.Descriptor) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.outputs[id]) == 0 {
		return false
	}
	return s.status[id] == graph.StatusCompleted || (desc != nil && desc.Source)
}

// Skipped reports whether the node completed by passing its inputs through
// (disabled node) rather than by running its executor body.
func (s *RunState) Skipped(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped[id]
}

// Counts returns how many nodes this run completed and failed. Statuses
// seeded from the graph at run start do not count.
func (s *RunState) Counts() (completed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed, s.failed
}

// Apply writes the snapshot back onto the graph copy owned by this run.
func (s *RunState) Apply(g *graph.Graph) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range g.Nodes {
		if outputs, ok := s.outputs[n.ID]; ok {
			n.Outputs = outputs
		}
		n.Status = s.status[n.ID]
		n.Error = s.errs[n.ID]
	}
}
