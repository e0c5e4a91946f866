// Package protocol implements the MASS protocol engine: response
// builders, request dispatch, acknowledgment correlation and the
// trigger entry points the control surface calls into.
package protocol

import (
	"encoding/json"
	"log/slog"
	"time"

	"masssim/pkg/codec"
	"masssim/pkg/models"
	"masssim/pkg/state"
	"masssim/pkg/transport"
)

// Engine is the protocol state machine. It receives decoded envelopes,
// acknowledges them, dispatches to the per-function handlers and derives
// replies from the device state store.
//
// Handling is re-entrant across reference IDs: every inbound message
// runs on its own goroutine, so a simulated read delay never blocks an
// unrelated request. Within one reference ID the ACK is always sent
// before the function-specific reply.
type Engine struct {
	identity models.DeviceIdentity
	store    *state.Store
	codec    codec.Codec
	bus      transport.Transport

	// Simulated hardware latency. Zero in tests.
	readDelay   time.Duration
	notifyDelay time.Duration
}

// NewEngine creates the engine. Bind must be called with the transport
// before any message can arrive.
func NewEngine(identity models.DeviceIdentity, store *state.Store, c codec.Codec, readDelay, notifyDelay time.Duration) *Engine {
	return &Engine{
		identity:    identity,
		store:       store,
		codec:       c,
		readDelay:   readDelay,
		notifyDelay: notifyDelay,
	}
}

// Bind attaches the transport. Startup wiring only: the engine and the
// transport reference each other, so one side has to be attached late.
func (e *Engine) Bind(bus transport.Transport) { e.bus = bus }

// Identity returns the fixed device identity.
func (e *Engine) Identity() models.DeviceIdentity { return e.identity }

// Connected reports whether the bus link is up.
func (e *Engine) Connected() bool { return e.bus != nil && e.bus.IsConnected() }

// Receive is the transport's inbound callback. Decode failures are
// logged and the message dropped; a well-formed envelope is handled on
// its own goroutine.
func (e *Engine) Receive(msg codec.Message) {
	env, err := e.codec.Decode(msg)
	if err != nil {
		slog.Error("Dropping undecodable message", "component", "ProtocolEngine", "error", err)
		return
	}
	go e.HandleEnvelope(env)
}

// HandleEnvelope processes one inbound envelope: anti-loop check,
// unconditional ACK, then the function handler. Handler failures are
// contained here; the ACK already sent stands as the only observable
// response.
func (e *Engine) HandleEnvelope(env models.Envelope) {
	// Each envelope runs on its own goroutine; a handler panic must
	// never take the process down with it.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Handler panic recovered", "component", "ProtocolEngine", "function", env.Function, "reference_id", env.ReferenceID, "panic", r)
		}
	}()

	// Never ACK an ACK, that would ping-pong forever.
	if env.Function == models.FuncAck {
		slog.Debug("ACK received", "component", "ProtocolEngine", "reference_id", env.ReferenceID)
		return
	}

	slog.Info("Handling request", "component", "ProtocolEngine", "function", env.Function, "reference_id", env.ReferenceID)

	// ACK before any handler side effect, so a handler failure never
	// suppresses acknowledgment.
	if err := e.send(BuildAck(e.identity, env.ReferenceID)); err != nil {
		slog.Error("ACK send failed", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
	}

	switch env.Function {
	case models.FuncIdentification:
		e.sendBuilt(BuildIdentification(e.identity, e.store.Snapshot(), env.ReferenceID))
	case models.FuncRead:
		e.handleRead(env)
	case models.FuncConfiguration:
		e.handleConfiguration(env)
	case models.FuncSchedule:
		e.handleSchedule(env)
	case models.FuncNotification:
		e.handleNotification(env)
	case models.FuncLog:
		e.handleLog(env)
	case models.FuncWrite:
		e.notifyAfterDelay("Write completed")
	case models.FuncReset:
		e.handleReset(env)
	case models.FuncFirmwareUpdate:
		e.notifyAfterDelay("Firmware update completed")
	case models.FuncProfile:
		e.sendBuilt(BuildProfile(e.identity, env.ReferenceID))
	case models.FuncDirective:
		e.handleDirective(env)
	case models.FuncRelay:
		e.handleRelay(env)
	default:
		// Unrecognized functions get the ACK above and nothing else.
		slog.Warn("Unhandled function", "component", "ProtocolEngine", "function", env.Function)
	}
}

// handleRead simulates meter-read latency, then replies with the fixed
// readout.
func (e *Engine) handleRead(env models.Envelope) {
	var req models.ReadRequest
	if len(env.Request) > 0 {
		if err := json.Unmarshal(env.Request, &req); err != nil {
			slog.Error("Malformed read request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
			return
		}
	}

	time.Sleep(e.readDelay)
	e.sendBuilt(BuildRead(e.identity, env.ReferenceID))
	slog.Info("Read response sent", "component", "ProtocolEngine", "directive", req.Directive)
}

// handleConfiguration applies the request to the state store and always
// follows with a fire-and-forget notification. A deviceDate key means
// "apply now": the stored date becomes current wall-clock, not the
// requested value.
func (e *Engine) handleConfiguration(env models.Envelope) {
	// An absent request member means "change nothing"; the notification
	// still goes out.
	var req models.ConfigurationRequest
	if len(env.Request) > 0 {
		if err := json.Unmarshal(env.Request, &req); err != nil {
			slog.Error("Malformed configuration request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
			return
		}
	}

	if req.Registered != nil {
		e.store.SetRegistered(*req.Registered)
	}
	if req.DeviceDate != nil {
		e.store.SetDeviceDate(time.Now())
	}

	e.notifyAfterDelay("Configuration updated")
	slog.Info("Configuration updated", "component", "ProtocolEngine", "reference_id", env.ReferenceID)
}

// handleSchedule dispatches the add/list/remove schedule operations.
func (e *Engine) handleSchedule(env models.Envelope) {
	var req models.ScheduleRequest
	if err := json.Unmarshal(env.Request, &req); err != nil {
		slog.Error("Malformed schedule request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
		return
	}

	switch req.Operation {
	case models.OpAdd:
		e.store.AppendSchedules(req.Schedules)
		slog.Info("Schedules added", "component", "ProtocolEngine", "count", len(req.Schedules))
	case models.OpList:
		e.sendBuilt(BuildScheduleList(e.identity, e.store.Snapshot(), env.ReferenceID))
	case models.OpRemove:
		e.store.RemoveScheduleByID(req.Filter.ID)
		slog.Info("Schedules removed", "component", "ProtocolEngine", "id", req.Filter.ID)
	default:
		slog.Warn("Unknown schedule operation", "component", "ProtocolEngine", "operation", req.Operation)
	}
}

// handleNotification dispatches the add/list/remove notification
// operations. Remove clears the entire sequence: the request's filter is
// accepted but not applied selectively, the protocol never specified
// filter semantics here.
func (e *Engine) handleNotification(env models.Envelope) {
	var req models.NotificationRequest
	if err := json.Unmarshal(env.Request, &req); err != nil {
		slog.Error("Malformed notification request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
		return
	}

	switch req.Operation {
	case models.OpAdd:
		e.store.AppendNotifications(req.Notifications)
		slog.Info("Notifications added", "component", "ProtocolEngine", "count", len(req.Notifications))
	case models.OpList:
		e.sendBuilt(BuildNotificationList(e.identity, e.store.Snapshot(), env.ReferenceID))
	case models.OpRemove:
		e.store.ClearNotifications()
		slog.Info("Notifications cleared", "component", "ProtocolEngine")
	default:
		slog.Warn("Unknown notification operation", "component", "ProtocolEngine", "operation", req.Operation)
	}
}

// handleLog answers with the incident log. The requested date range is
// parsed but not used for filtering, the fixture is returned whole.
func (e *Engine) handleLog(env models.Envelope) {
	var req models.LogRequest
	if len(env.Request) > 0 {
		if err := json.Unmarshal(env.Request, &req); err != nil {
			slog.Error("Malformed log request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
			return
		}
	}
	e.sendBuilt(BuildLog(e.identity, env.ReferenceID))
	slog.Info("Log response sent", "component", "ProtocolEngine", "start_date", req.StartDate, "end_date", req.EndDate)
}

// handleReset pretends to restart and reports completion.
func (e *Engine) handleReset(env models.Envelope) {
	var req models.ResetRequest
	if len(env.Request) > 0 {
		if err := json.Unmarshal(env.Request, &req); err != nil {
			slog.Error("Malformed reset request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
			return
		}
	}
	slog.Info("Reset requested", "component", "ProtocolEngine", "factory_default", req.FactoryDefault)
	e.notifyAfterDelay("Reset completed")
}

// handleDirective accepts add/remove without persisting anything and
// answers list with an empty sequence.
func (e *Engine) handleDirective(env models.Envelope) {
	var req models.DirectiveRequest
	if err := json.Unmarshal(env.Request, &req); err != nil {
		slog.Error("Malformed directive request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
		return
	}

	switch req.Operation {
	case models.OpAdd, models.OpRemove:
		slog.Info("Directive operation accepted (not persisted)", "component", "ProtocolEngine", "operation", req.Operation, "count", len(req.Directives))
	case models.OpList:
		e.sendBuilt(BuildDirectiveList(e.identity, env.ReferenceID))
	default:
		slog.Warn("Unknown directive operation", "component", "ProtocolEngine", "operation", req.Operation)
	}
}

// handleRelay answers with the requested relay state.
func (e *Engine) handleRelay(env models.Envelope) {
	var req models.RelayRequest
	if err := json.Unmarshal(env.Request, &req); err != nil {
		slog.Error("Malformed relay request", "component", "ProtocolEngine", "reference_id", env.ReferenceID, "error", err)
		return
	}
	e.sendBuilt(BuildRelay(e.identity, env.ReferenceID, req))
	slog.Info("Relay switched", "component", "ProtocolEngine", "relay", req.Name, "state", req.State)
}

// notifyAfterDelay emits a fire-and-forget info notification after the
// simulated processing delay.
func (e *Engine) notifyAfterDelay(message string) {
	time.Sleep(e.notifyDelay)
	e.sendBuilt(BuildInfoNotification(e.identity, message))
}

// AnnounceIdentification sends an unprompted identification, as the
// device does right after the bus connection comes up.
func (e *Engine) AnnounceIdentification() error {
	env, err := BuildIdentification(e.identity, e.store.Snapshot(), "")
	if err != nil {
		return err
	}
	return e.send(env)
}

// TriggerHeartbeat emits one heartbeat now.
func (e *Engine) TriggerHeartbeat() error {
	env, err := BuildHeartbeat(e.identity, e.store.Snapshot())
	if err != nil {
		return err
	}
	return e.send(env)
}

// TriggerAlarm emits a self-initiated alarm.
func (e *Engine) TriggerAlarm(incident models.AlarmIncident) error {
	env, err := BuildAlarm(e.identity, incident)
	if err != nil {
		return err
	}
	return e.send(env)
}

// TriggerWrite emits a device-initiated write report.
func (e *Engine) TriggerWrite(req models.WriteRequest) error {
	env, err := BuildWriteResult(e.identity, req)
	if err != nil {
		return err
	}
	return e.send(env)
}

// TriggerReset emits a device-initiated reset report.
func (e *Engine) TriggerReset(factoryDefault bool) error {
	env, err := BuildResetResult(e.identity, factoryDefault)
	if err != nil {
		return err
	}
	return e.send(env)
}

// TriggerRelay emits a relay state report with a fresh reference ID.
func (e *Engine) TriggerRelay(name, relayState string) error {
	env, err := BuildRelay(e.identity, "", models.RelayRequest{Name: name, State: relayState})
	if err != nil {
		return err
	}
	return e.send(env)
}

// send encodes and publishes one envelope. Disconnected or failed sends
// are reported to the caller; responders log and carry on, the control
// surface maps the error to its caller.
func (e *Engine) send(env models.Envelope) error {
	if !e.Connected() {
		return transport.ErrNotConnected
	}

	msg, err := e.codec.Encode(env)
	if err != nil {
		return err
	}
	if err := e.bus.Send(msg); err != nil {
		return err
	}
	slog.Info("Sent", "component", "ProtocolEngine", "function", env.Function, "reference_id", env.ReferenceID)
	return nil
}

// sendBuilt sends a builder result, logging instead of propagating:
// inbound handlers have no caller to report to.
func (e *Engine) sendBuilt(env models.Envelope, err error) {
	if err != nil {
		slog.Error("Building response failed", "component", "ProtocolEngine", "error", err)
		return
	}
	if err := e.send(env); err != nil {
		slog.Error("Send failed", "component", "ProtocolEngine", "function", env.Function, "error", err)
	}
}
