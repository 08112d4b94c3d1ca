package testutil

import (
	"sync"

	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/notify"
)

// StatusEvent is one recorded NodeStatus call.
type StatusEvent struct {
	NodeID string
	Status graph.NodeStatus
	Err    error
}

// ToastEvent is one recorded Toast call.
type ToastEvent struct {
	Level   notify.ToastLevel
	Message string
}

// ProgressEvent is one recorded Progress or BatchProgress call.
type ProgressEvent struct {
	Current int
	Total   int
}

// EdgeEvent is one recorded EdgeActive call.
type EdgeEvent struct {
	Edge   graph.Edge
	Active bool
}

// Recorder is a Notifier that captures every event for assertions. The
// scheduler calls notifiers synchronously, so recorded order matches
// engine order.
type Recorder struct {
	mu       sync.Mutex
	statuses []StatusEvent
	toasts   []ToastEvent
	progress []ProgressEvent
	batch    []ProgressEvent
	edges    []EdgeEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) NodeStatus(nodeID string, status graph.NodeStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, StatusEvent{NodeID: nodeID, Status: status, Err: err})
}

func (r *Recorder) EdgeActive(edge graph.Edge, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, EdgeEvent{Edge: edge, Active: active})
}

func (r *Recorder) Progress(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ProgressEvent{Current: completed, Total: total})
}

func (r *Recorder) BatchProgress(iteration, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = append(r.batch, ProgressEvent{Current: iteration, Total: total})
}

func (r *Recorder) Toast(level notify.ToastLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, ToastEvent{Level: level, Message: message})
}

// Statuses returns the recorded status transitions for one node, in order.
func (r *Recorder) Statuses(nodeID string) []graph.NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []graph.NodeStatus
	for _, e := range r.statuses {
		if e.NodeID == nodeID {
			out = append(out, e.Status)
		}
	}
	return out
}

// Toasts returns every recorded toast.
func (r *Recorder) Toasts() []ToastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ToastEvent, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// EdgeEvents returns every recorded edge activity change, in order.
func (r *Recorder) EdgeEvents() []EdgeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EdgeEvent, len(r.edges))
	copy(out, r.edges)
	return out
}

// BatchEvents returns every recorded batch progress event.
func (r *Recorder) BatchEvents() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProgressEvent, len(r.batch))
	copy(out, r.batch)
	return out
}

// LastProgress returns the most recent aggregate progress event.
func (r *Recorder) LastProgress() (ProgressEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return ProgressEvent{}, false
	}
	return r.progress[len(r.progress)-1], true
}
