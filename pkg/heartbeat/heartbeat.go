// Package heartbeat emits the periodic device heartbeat.
package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"masssim/pkg/protocol"
	"masssim/pkg/transport"
)

// Emitter ticks at the configured period and sends a heartbeat through
// the protocol engine. While the bus is disconnected the tick is
// skipped silently; a failed send is logged and the next tick retries
// naturally.
type Emitter struct {
	engine   *protocol.Engine
	interval time.Duration
}

// NewEmitter creates a heartbeat emitter.
func NewEmitter(engine *protocol.Engine, interval time.Duration) *Emitter {
	return &Emitter{engine: engine, interval: interval}
}

// Run starts the main loop.
func (e *Emitter) Run(ctx context.Context) {
	slog.Info("Starting heartbeat emitter", "component", "Heartbeat", "interval", e.interval.String())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping heartbeat emitter", "component", "Heartbeat")
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick emits one heartbeat if the bus is up.
func (e *Emitter) tick() {
	if !e.engine.Connected() {
		return
	}
	if err := e.engine.TriggerHeartbeat(); err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			// Link dropped between the check and the send.
			return
		}
		slog.Error("Heartbeat send failed", "component", "Heartbeat", "error", err)
		return
	}
	slog.Debug("Heartbeat sent", "component", "Heartbeat")
}
