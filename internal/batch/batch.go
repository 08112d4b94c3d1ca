// Package batch re-runs a whole workflow once per variant of a designated
// multi-variant source node, withholding aggregator nodes from every
// per-variant run and feeding them the collected per-variant artifacts once
// all iterations finish.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/notify"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/internal/scheduler"
	"github.com/vk/mediaflowgo/internal/topology"
)

// VariantSource is implemented by the config of a batch-source node type: an
// ordered list of input variants with an engine-driven active index.
type VariantSource interface {
	VariantCount() int
	SetActiveVariant(index int)
}

// State is the controller's phase, reported for observability.
type State string

const (
	Idle                 State = "idle"
	Iterating            State = "iterating"
	PostBatchAggregation State = "post_batch_aggregation"
	Aborted              State = "aborted"
	CircuitBroken        State = "circuit_broken"
)

const (
	// DefaultIterationDelay spaces batch iterations apart to stay under
	// upstream rate limits. Scheduling policy, not a correctness need.
	DefaultIterationDelay = 2 * time.Second
	// DefaultCircuitThreshold is how many consecutive iteration failures
	// halt the batch.
	DefaultCircuitThreshold = 3
)

// IterationResult records one variant's outcome. Results are created when an
// iteration starts, appended in order, and discarded with the batch report.
type IterationResult struct {
	Index   int
	Success bool
	Output  any
	Error   string
}

// Report is the outcome of one controller entry.
type Report struct {
	State      State
	Batched    bool
	Iterations []IterationResult
	Collected  int
	Run        *scheduler.Report
}

// Controller is the top-level execution entry point. When the graph has no
// multi-variant source it delegates to a single scheduler run.
type Controller struct {
	sched            *scheduler.Scheduler
	registry         *registry.Registry
	notifier         notify.Notifier
	iterationDelay   time.Duration
	circuitThreshold int
}

// New creates a Controller. Pass a negative delay to disable the
// inter-iteration pause (tests); zero selects the default.
func New(sched *scheduler.Scheduler, reg *registry.Registry, notifier notify.Notifier, delay time.Duration, circuitThreshold int) *Controller {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if delay == 0 {
		delay = DefaultIterationDelay
	} else if delay < 0 {
		delay = 0
	}
	if circuitThreshold <= 0 {
		circuitThreshold = DefaultCircuitThreshold
	}
	return &Controller{
		sched:            sched,
		registry:         reg,
		notifier:         notifier,
		iterationDelay:   delay,
		circuitThreshold: circuitThreshold,
	}
}

// Run executes the graph, in batch mode when a multi-variant source is
// present, otherwise as one plain scheduler run.
func (c *Controller) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	sourceID, variants := c.findBatchSource(g)
	if sourceID == "" || variants < 2 {
		run, err := c.sched.RunGraph(ctx, g)
		return &Report{State: Idle, Batched: false, Run: run}, err
	}

	analysis, err := topology.Analyze(g)
	if err != nil {
		c.notifier.Toast(notify.ToastError, err.Error())
		return nil, err
	}

	artifactID := c.findArtifactNode(g, analysis, sourceID)
	if artifactID == "" {
		logger.Warn("Batch source present but no artifact-producing node downstream; running once.",
			"sourceID", sourceID)
		c.notifier.Toast(notify.ToastWarn,
			"batch input found but no downstream artifact node; running a single pass")
		run, err := c.sched.RunGraph(ctx, g)
		return &Report{State: Idle, Batched: false, Run: run}, err
	}

	deferred := c.deferredSet(g, analysis, artifactID)
	logger.Info("Batch mode engaged.",
		"sourceID", sourceID, "artifactID", artifactID,
		"variants", variants, "deferredNodes", len(deferred))

	report := &Report{State: Iterating, Batched: true}
	consecutiveFailures := 0

	for i := 0; i < variants; i++ {
		if ctx.Err() != nil {
			report.State = Aborted
			c.notifier.Toast(notify.ToastWarn,
				fmt.Sprintf("batch aborted after %d of %d iterations", i, variants))
			break
		}
		if i > 0 && c.iterationDelay > 0 {
			select {
			case <-time.After(c.iterationDelay):
			case <-ctx.Done():
				report.State = Aborted
				break
			}
			if report.State == Aborted {
				break
			}
		}

		c.notifier.BatchProgress(i, variants)
		result := c.runIteration(ctx, g, sourceID, artifactID, deferred, i)
		report.Iterations = append(report.Iterations, result)

		if result.Success {
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
			if consecutiveFailures >= c.circuitThreshold {
				logger.Error("Batch circuit breaker tripped.",
					"consecutiveFailures", consecutiveFailures, "iteration", i)
				c.notifier.Toast(notify.ToastError,
					fmt.Sprintf("batch halted after %d consecutive failures", consecutiveFailures))
				report.State = CircuitBroken
				break
			}
		}
	}

	// Aggregation still runs over whatever succeeded, even after a circuit
	// break; an abort skips it.
	if report.State == Aborted {
		return report, nil
	}
	finalState := report.State
	report.State = PostBatchAggregation
	c.aggregate(ctx, g, analysis, deferred, report)
	if finalState == CircuitBroken {
		report.State = CircuitBroken
	} else {
		report.State = Idle
	}
	return report, nil
}

// findBatchSource returns the first node in declaration order whose config
// exposes an ordered variant list, along with its variant count.
func (c *Controller) findBatchSource(g *graph.Graph) (string, int) {
	for _, n := range g.Nodes {
		if src, ok := n.Config.(VariantSource); ok && n.Enabled {
			return n.ID, src.VariantCount()
		}
	}
	return "", 0
}

// findArtifactNode traces forward from the batch source and returns the
// first artifact-producing node in topological order.
func (c *Controller) findArtifactNode(g *graph.Graph, analysis *topology.Result, sourceID string) string {
	reachable := downstreamClosure(g, sourceID)
	for _, id := range analysis.Order {
		if !reachable[id] {
			continue
		}
		desc, ok := c.registry.Lookup(g.NodeByID(id).Type)
		if ok && desc.ArtifactProducer {
			return id
		}
	}
	return ""
}

// deferredSet collects every aggregator node downstream of the artifact node
// plus everything transitively downstream of those aggregators. The whole
// set is excluded from per-variant runs.
func (c *Controller) deferredSet(g *graph.Graph, analysis *topology.Result, artifactID string) map[string]bool {
	afterArtifact := downstreamClosure(g, artifactID)
	deferred := make(map[string]bool)
	for _, id := range analysis.Order {
		if !afterArtifact[id] {
			continue
		}
		desc, ok := c.registry.Lookup(g.NodeByID(id).Type)
		if !ok || !desc.Aggregator {
			continue
		}
		deferred[id] = true
		for down := range downstreamClosure(g, id) {
			deferred[down] = true
		}
	}
	return deferred
}

// runIteration resets transient node state, selects the variant, runs the
// leveled schedule minus the deferred set, and reads the artifact output.
func (c *Controller) runIteration(ctx context.Context, g *graph.Graph, sourceID, artifactID string, deferred map[string]bool, index int) IterationResult {
	logger := ctxlog.FromContext(ctx).With("iteration", index)

	// Constant sources keep their outputs across iterations; everything else
	// starts clean so no iteration sees another iteration's stale data.
	for _, n := range g.Nodes {
		desc, ok := c.registry.Lookup(n.Type)
		if ok && desc.Source {
			continue
		}
		n.Outputs = nil
		n.Status = graph.StatusReady
		n.Error = ""
	}

	source := g.NodeByID(sourceID)
	source.Config.(VariantSource).SetActiveVariant(index)
	source.Outputs = nil
	source.Status = graph.StatusReady

	_, err := c.sched.RunGraphWithOptions(ctx, g, scheduler.Options{Skip: deferred})
	if err != nil {
		return IterationResult{Index: index, Error: err.Error()}
	}

	artifact := g.NodeByID(artifactID)
	if artifact.Status != graph.StatusCompleted || len(artifact.Outputs) == 0 {
		message := artifact.Error
		if message == "" {
			message = "artifact node produced no output"
		}
		logger.Warn("Iteration failed.", "error", message)
		return IterationResult{Index: index, Error: message}
	}

	desc, _ := c.registry.Lookup(artifact.Type)
	return IterationResult{
		Index:   index,
		Success: true,
		Output:  artifact.Outputs[desc.PrimaryOutput()],
	}
}

// aggregate feeds the deferred nodes once. The first aggregator in
// dependency order receives the full collected artifact list on its
// multi-input handle; every other deferred node resolves its inputs
// normally, which now include the prior aggregator's fresh output.
func (c *Controller) aggregate(ctx context.Context, g *graph.Graph, analysis *topology.Result, deferred map[string]bool, report *Report) {
	logger := ctxlog.FromContext(ctx)

	var collected []any
	for _, it := range report.Iterations {
		if it.Success {
			collected = append(collected, it.Output)
		}
	}
	report.Collected = len(collected)

	var aggregators []string
	for _, id := range analysis.Order {
		if !deferred[id] {
			continue
		}
		desc, ok := c.registry.Lookup(g.NodeByID(id).Type)
		if ok && desc.Aggregator {
			aggregators = append(aggregators, id)
		}
	}
	if len(aggregators) == 0 {
		return
	}

	firstDesc, _ := c.registry.Lookup(g.NodeByID(aggregators[0]).Type)
	minArity := firstDesc.MinArity()
	if len(collected) < minArity {
		message := fmt.Sprintf(
			"aggregation skipped: collected %d artifact(s) from %d iteration(s), need at least %d",
			len(collected), len(report.Iterations), minArity)
		logger.Error("Post-batch aggregation impossible.", "error", message)
		for _, id := range aggregators {
			n := g.NodeByID(id)
			n.Status = graph.StatusError
			n.Error = message
			c.notifier.NodeStatus(id, graph.StatusError, fmt.Errorf("%s", message))
		}
		c.notifier.Toast(notify.ToastError, message)
		return
	}

	// Run only the deferred set; everything else keeps the last iteration's
	// settled outputs and is skipped.
	skip := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if !deferred[n.ID] {
			skip[n.ID] = true
		}
	}
	overrides := map[string]map[string]any{
		aggregators[0]: {multiInputHandle(firstDesc): collected},
	}

	run, err := c.sched.RunGraphWithOptions(ctx, g, scheduler.Options{
		Skip:           skip,
		InputOverrides: overrides,
	})
	report.Run = run
	if err != nil {
		c.notifier.Toast(notify.ToastError, err.Error())
	}
}

// multiInputHandle picks the connector an aggregator collects artifacts on:
// its first multi-input, falling back to its first input.
func multiInputHandle(desc *registry.Descriptor) string {
	for _, in := range desc.Inputs {
		if in.AcceptsMultiple {
			return in.Handle
		}
	}
	if len(desc.Inputs) > 0 {
		return desc.Inputs[0].Handle
	}
	return "items"
}

// downstreamClosure returns every node strictly downstream of start.
func downstreamClosure(g *graph.Graph, start string) map[string]bool {
	closure := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.OutgoingEdges(id) {
			if !closure[e.Target] {
				closure[e.Target] = true
				stack = append(stack, e.Target)
			}
		}
	}
	return closure
}
