package control

import (
	"context"

	"github.com/tmuxwire/tmuxwire/internal/engine"
)

// ControlEngine adapts a Client to the engine.Engine contract, so
// higher layers can run against either a control-mode connection or
// one-shot subprocesses without caring which.
type ControlEngine struct {
	client *Client
}

var _ engine.Engine = (*ControlEngine)(nil)

// NewEngine returns an Engine backed by a control-mode Client built
// from cfg.
func NewEngine(cfg Config) *ControlEngine {
	return &ControlEngine{client: NewClient(cfg)}
}

// Execute runs argv over the control connection. Server-level flag
// filtering, identity-change restarts, and reply matching all happen
// inside the Client.
func (e *ControlEngine) Execute(ctx context.Context, argv ...string) (*engine.Result, error) {
	return e.client.Execute(ctx, argv...)
}

// Close detaches the underlying connection.
func (e *ControlEngine) Close() error {
	return e.client.Close()
}

// Client exposes the underlying control client for callers that need
// notifications or stats on top of the Engine surface.
func (e *ControlEngine) Client() *Client {
	return e.client
}
