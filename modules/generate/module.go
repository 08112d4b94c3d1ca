// Package generate provides the external media generation node. It posts the
// resolved prompt to a generation HTTP API through a shared client behind a
// rate limiter. The node type is classified serial: within a level, generate
// nodes run one at a time so quota-limited providers see no request bursts.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/registry"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout           = 120 * time.Second
	defaultRequestsPerMinute = 10
)

// Module implements the registry.Module interface. It owns the HTTP client
// and rate limiter shared by every generate node in the process.
type Module struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewModule builds a Module with its own client. requestsPerMinute <= 0
// selects the default quota.
func NewModule(requestsPerMinute float64) *Module {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(0) // the engine never retries a failed node within a run
	return &Module{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

// Config holds the per-node call parameters.
type Config struct {
	Endpoint string `hcl:"endpoint" json:"endpoint"`
	Model    string `hcl:"model" json:"model"`
	// TimeoutSeconds overrides the default request timeout when positive.
	TimeoutSeconds int `hcl:"timeout_seconds,optional" json:"timeoutSeconds,omitempty"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Artifact string `json:"artifact"`
	Error    string `json:"error"`
}

func (m *Module) run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.Node.ID, "type", "generate")
	cfg := req.Node.Config.(*Config)

	prompt, _ := req.Inputs["prompt"].(string)

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for generation quota: %w", err)
	}

	callCtx := ctx
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	logger.Info("Calling generation API.", "endpoint", cfg.Endpoint, "model", cfg.Model)
	var parsed generateResponse
	resp, err := m.client.R().
		SetContext(callCtx).
		SetBody(&generateRequest{Model: cfg.Model, Prompt: prompt}).
		SetResult(&parsed).
		Post(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("generation API returned %s: %s", resp.Status(), resp.String())
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("generation failed: %s", parsed.Error)
	}
	if parsed.Artifact == "" {
		return nil, fmt.Errorf("generation API returned no artifact")
	}

	logger.Info("Generation finished.", "id", parsed.ID)
	return &registry.Result{Outputs: map[string]any{
		"artifact": parsed.Artifact,
		"id":       parsed.ID,
	}}, nil
}

// Register registers the generate node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type: "generate",
		Inputs: []registry.ConnectorSpec{
			{Handle: "prompt", Label: "Prompt", Required: true},
		},
		Outputs:          []string{"artifact", "id"},
		Serial:           true,
		ArtifactProducer: true,
		NewConfig:        func() any { return new(Config) },
		Runner:           registry.RunnerFunc(m.run),
	})
}
