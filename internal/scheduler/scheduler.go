// Package scheduler executes a workflow graph level by level. Within a
// level, locally-cheap nodes run concurrently while nodes that call external
// rate-limited services run strictly one after another; every node's result
// is folded into the run state before the next serial node reads its inputs.
// The package also hosts the single-node resolver, which replays a target
// node's minimal stale upstream closure.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/inputs"
	"github.com/vk/mediaflowgo/internal/notify"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/internal/topology"
)

// DefaultMaxConcurrent bounds the concurrent group when the caller does not.
const DefaultMaxConcurrent = 8

// Scheduler runs graphs against a registry of node types. A Scheduler is
// stateless across runs; each run owns its own RunState.
type Scheduler struct {
	registry      *registry.Registry
	notifier      notify.Notifier
	maxConcurrent int
}

// New creates a Scheduler. A nil notifier disables UI feedback.
func New(reg *registry.Registry, notifier notify.Notifier, maxConcurrent int) *Scheduler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Scheduler{registry: reg, notifier: notifier, maxConcurrent: maxConcurrent}
}

// Report summarizes one run.
type Report struct {
	RunID     string
	Completed int
	Failed    int
	Aborted   bool
	// Skipped holds the nodes that completed by passing their inputs
	// through instead of executing (disabled nodes).
	Skipped map[string]bool
}

// Options tune one run. Skip removes nodes from scheduling entirely (the
// batch controller uses it to withhold aggregators); InputOverrides injects
// values into a node's gathered input bag before validation (the post-batch
// phase uses it to feed an aggregator the collected artifact list).
type Options struct {
	Skip           map[string]bool
	InputOverrides map[string]map[string]any
}

// RunGraph validates and executes the whole graph once, mutating the given
// graph copy's node data as results settle. Structural errors are fatal: no
// node executes and the error is returned after a toast.
func (s *Scheduler) RunGraph(ctx context.Context, g *graph.Graph) (*Report, error) {
	return s.RunGraphWithOptions(ctx, g, Options{})
}

// RunGraphWithOptions is RunGraph with batch-controller hooks.
func (s *Scheduler) RunGraphWithOptions(ctx context.Context, g *graph.Graph, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	runID := uuid.NewString()
	logger = logger.With("runID", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	analysis, err := topology.Analyze(g)
	if err != nil {
		s.notifier.Toast(notify.ToastError, err.Error())
		return nil, err
	}
	logger.Debug("Topology analysis complete.",
		"nodes", len(analysis.Order), "levels", len(analysis.Levels))

	state := NewRunState(g)
	total := 0
	for _, level := range analysis.Levels {
		for _, id := range level {
			if !opts.Skip[id] {
				total++
			}
		}
	}

	report := &Report{RunID: runID}
	for i, level := range analysis.Levels {
		// Cancellation is cooperative with level granularity: an in-flight
		// node is never preempted, only further levels are skipped.
		if ctx.Err() != nil {
			logger.Warn("Run aborted at level boundary.", "level", i)
			report.Aborted = true
			break
		}
		s.runLevel(ctx, g, state, level, opts, total)
	}

	state.Apply(g)
	report.Completed, report.Failed = state.Counts()
	report.Skipped = make(map[string]bool)
	for _, n := range g.Nodes {
		if state.Skipped(n.ID) {
			report.Skipped[n.ID] = true
		}
	}
	s.summarize(report)
	return report, nil
}

func (s *Scheduler) summarize(report *Report) {
	message := fmt.Sprintf("Run finished: %d succeeded, %d failed", report.Completed, report.Failed)
	level := notify.ToastInfo
	if report.Aborted {
		message = fmt.Sprintf("Run aborted: %d succeeded, %d failed", report.Completed, report.Failed)
		level = notify.ToastWarn
	} else if report.Failed > 0 {
		level = notify.ToastWarn
	}
	s.notifier.Toast(level, message)
}

// runLevel partitions the level into the concurrent and serial groups and
// executes both. Concurrent nodes run as independent goroutines bounded by
// maxConcurrent; serial nodes run one after another, in level order, with no
// artificial delay between them. A node failure never cancels its level
// siblings.
func (s *Scheduler) runLevel(ctx context.Context, g *graph.Graph, state *RunState, level []string, opts Options, total int) {
	var concurrent, serial []string
	for _, id := range level {
		if opts.Skip[id] {
			continue
		}
		desc, ok := s.registry.Lookup(g.NodeByID(id).Type)
		if ok && desc.Serial {
			serial = append(serial, id)
		} else {
			concurrent = append(concurrent, id)
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)
	for _, id := range concurrent {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s.executeNode(ctx, g, state, id, opts, total)
		}(id)
	}

	for _, id := range serial {
		s.executeNode(ctx, g, state, id, opts, total)
	}

	wg.Wait()
}

// executeNode gathers and validates inputs, invokes the node's runner (or
// short-circuits for disabled nodes), and folds the result into the run
// state before notifying.
func (s *Scheduler) executeNode(ctx context.Context, g *graph.Graph, state *RunState, id string, opts Options, total int) {
	logger := ctxlog.FromContext(ctx).With("nodeID", id)
	node := g.NodeByID(id)
	desc, ok := s.registry.Lookup(node.Type)
	if !ok {
		err := fmt.Errorf("unknown node type %q", node.Type)
		logger.Warn("Node type not registered.", "type", node.Type)
		state.SetError(id, err.Error())
		s.notifier.NodeStatus(id, graph.StatusError, err)
		return
	}

	state.SetExecuting(id)
	s.notifier.NodeStatus(id, graph.StatusExecuting, nil)
	incoming := g.IncomingEdges(id)
	for _, e := range incoming {
		s.notifier.EdgeActive(e, true)
	}
	defer func() {
		for _, e := range incoming {
			s.notifier.EdgeActive(e, false)
		}
	}()

	bag := inputs.Gather(g, id, desc.Inputs, state)
	for handle, value := range opts.InputOverrides[id] {
		bag[handle] = value
	}

	// Disabled nodes pass their inputs through unchanged and never invoke
	// the runner, so a user can park a step without rewiring the graph.
	if !node.Enabled {
		logger.Debug("Node disabled, passing inputs through.")
		state.Fold(id, &registry.Result{Data: bag, Skipped: true})
		s.finishNode(id, state, total)
		return
	}

	if err := inputs.Validate(id, bag, desc.Inputs); err != nil {
		logger.Warn("Node input validation failed.", "error", err)
		state.SetError(id, err.Error())
		s.notifier.NodeStatus(id, graph.StatusError, err)
		s.notifier.Toast(notify.ToastError, err.Error())
		return
	}

	logger.Debug("Executing node.", "type", node.Type)
	result, err := desc.Runner.Run(ctx, &registry.Request{Node: node, Inputs: bag})
	if err != nil {
		logger.Error("Node execution failed.", "error", err)
		state.SetError(id, err.Error())
		s.notifier.NodeStatus(id, graph.StatusError, err)
		s.notifier.Toast(notify.ToastError, fmt.Sprintf("node %q failed: %s", id, err.Error()))
		return
	}

	state.Fold(id, result)
	s.finishNode(id, state, total)
}

func (s *Scheduler) finishNode(id string, state *RunState, total int) {
	s.notifier.NodeStatus(id, graph.StatusCompleted, nil)
	completed, _ := state.Counts()
	s.notifier.Progress(completed, total)
}
