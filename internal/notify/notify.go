// Package notify defines the status notifier surface the engine drives for
// live UI feedback: per-node status transitions, edge activity, aggregate
// and batch progress, and user-facing toasts. All notifier calls are made
// synchronously by the scheduler after it folds a node's outputs, so
// consumers observe state in exactly the order the engine produced it.
package notify

import (
	"log/slog"

	"github.com/vk/mediaflowgo/internal/graph"
)

// ToastLevel grades a user-facing notification.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastWarn  ToastLevel = "warn"
	ToastError ToastLevel = "error"
)

// Notifier receives engine events. Implementations must be fast: calls run
// on the scheduling path.
type Notifier interface {
	// NodeStatus is called on every status transition of a node. err is
	// non-nil only for the error status.
	NodeStatus(nodeID string, status graph.NodeStatus, err error)
	// EdgeActive mirrors node activity onto the node's incoming edges for
	// live highlight rendering.
	EdgeActive(edge graph.Edge, active bool)
	// Progress reports aggregate run progress.
	Progress(completed, total int)
	// BatchProgress reports batch iteration progress.
	BatchProgress(iteration, total int)
	// Toast delivers a user-facing notification.
	Toast(level ToastLevel, message string)
}

// Nop is a Notifier that discards everything.
type Nop struct{}

func (Nop) NodeStatus(string, graph.NodeStatus, error) {}
func (Nop) EdgeActive(graph.Edge, bool)                {}
func (Nop) Progress(int, int)                          {}
func (Nop) BatchProgress(int, int)                     {}
func (Nop) Toast(ToastLevel, string)                   {}

// Slog adapts a structured logger into a Notifier. It is the default
// notifier for CLI runs.
type Slog struct {
	Logger *slog.Logger
}

// NewSlog returns a logger-backed notifier.
func NewSlog(logger *slog.Logger) *Slog {
	return &Slog{Logger: logger}
}

func (s *Slog) NodeStatus(nodeID string, status graph.NodeStatus, err error) {
	if err != nil {
		s.Logger.Error("Node failed.", "nodeID", nodeID, "status", status, "error", err)
		return
	}
	s.Logger.Info("Node status changed.", "nodeID", nodeID, "status", status)
}

func (s *Slog) EdgeActive(edge graph.Edge, active bool) {
	s.Logger.Debug("Edge activity changed.",
		"source", edge.Source, "target", edge.Target, "active", active)
}

func (s *Slog) Progress(completed, total int) {
	s.Logger.Info("Run progress.", "completed", completed, "total", total)
}

func (s *Slog) BatchProgress(iteration, total int) {
	s.Logger.Info("Batch progress.", "iteration", iteration, "total", total)
}

func (s *Slog) Toast(level ToastLevel, message string) {
	switch level {
	case ToastError:
		s.Logger.Error(message)
	case ToastWarn:
		s.Logger.Warn(message)
	default:
		s.Logger.Info(message)
	}
}

// Multi fans every event out to each wrapped notifier in order.
type Multi []Notifier

func (m Multi) NodeStatus(nodeID string, status graph.NodeStatus, err error) {
	for _, n := range m {
		n.NodeStatus(nodeID, status, err)
	}
}

func (m Multi) EdgeActive(edge graph.Edge, active bool) {
	for _, n := range m {
		n.EdgeActive(edge, active)
	}
}

func (m Multi) Progress(completed, total int) {
	for _, n := range m {
		n.Progress(completed, total)
	}
}

func (m Multi) BatchProgress(iteration, total int) {
	for _, n := range m {
		n.BatchProgress(iteration, total)
	}
}

func (m Multi) Toast(level ToastLevel, message string) {
	for _, n := range m {
		n.Toast(level, message)
	}
}
