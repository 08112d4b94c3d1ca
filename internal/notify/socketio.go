package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIO pushes engine events to an editor UI over a socket.io connection.
// Emission is fire-and-forget at the transport level; ordering of emitted
// events still matches the engine's synchronous notifier calls.
type SocketIO struct {
	io *socket.Socket
}

// DialSocketIO connects to the given socket.io URL (namespace taken from the
// URL path) and waits for the initial connection up to timeout.
func DialSocketIO(ctx context.Context, rawURL string, timeout time.Duration) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notifier URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	namespace := parsed.Path
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Notifier connected.", "url", rawURL, "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		var cause error
		if len(errs) > 0 {
			cause, _ = errs[0].(error)
		}
		select {
		case connected <- fmt.Errorf("notifier connection failed: %v", cause):
		default:
		}
	})

	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, err
		}
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out waiting for notifier connection to %s", rawURL)
	}

	return &SocketIO{io: io}, nil
}

// Close disconnects the underlying socket.
func (s *SocketIO) Close() {
	s.io.Disconnect()
}

func (s *SocketIO) emit(event string, payload map[string]any) {
	s.io.Emit(event, payload)
}

func (s *SocketIO) NodeStatus(nodeID string, status graph.NodeStatus, err error) {
	payload := map[string]any{"nodeId": nodeID, "status": string(status)}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.emit("node:status", payload)
}

func (s *SocketIO) EdgeActive(edge graph.Edge, active bool) {
	s.emit("edge:active", map[string]any{
		"source":       edge.Source,
		"target":       edge.Target,
		"sourceHandle": edge.SourceHandle,
		"targetHandle": edge.TargetHandle,
		"active":       active,
	})
}

func (s *SocketIO) Progress(completed, total int) {
	s.emit("run:progress", map[string]any{"completed": completed, "total": total})
}

func (s *SocketIO) BatchProgress(iteration, total int) {
	s.emit("batch:progress", map[string]any{"iteration": iteration, "total": total})
}

func (s *SocketIO) Toast(level ToastLevel, message string) {
	s.emit("toast", map[string]any{"level": string(level), "message": message})
}
