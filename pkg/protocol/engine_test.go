package protocol

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"masssim/pkg/codec"
	"masssim/pkg/models"
	"masssim/pkg/state"
	"masssim/pkg/transport"
)

// fakeBus captures everything the engine sends.
type fakeBus struct {
	mu        sync.Mutex
	connected bool
	failSend  bool
	sent      []codec.Message
}

func (f *fakeBus) Send(msg codec.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return errors.New("bus rejected message")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeBus) IsConnected() bool { return f.connected }

func (f *fakeBus) envelopes(t *testing.T, c codec.Codec) []models.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Envelope, 0, len(f.sent))
	for _, msg := range f.sent {
		env, err := c.Decode(msg)
		if err != nil {
			t.Fatalf("sent message does not decode: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func newTestEngine() (*Engine, *fakeBus, *state.Store, codec.Codec) {
	c := codec.NewAttributeCodec()
	store := state.NewStore()
	bus := &fakeBus{connected: true}
	engine := NewEngine(testIdentity, store, c, 0, 0) // zero delays in tests
	engine.Bind(bus)
	return engine, bus, store, c
}

func inbound(fn models.Function, referenceID, request string) models.Envelope {
	env := models.Envelope{
		Device:      models.DeviceRef{Flag: "SRV", SerialNumber: "SERVER"},
		Function:    fn,
		ReferenceID: referenceID,
	}
	if request != "" {
		env.Request = json.RawMessage(request)
	}
	return env
}

// Feeding an ACK into the engine must produce nothing, or two peers
// would ping-pong ACKs forever.
func TestAckAntiLoop(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncAck, "ref-1", ""))

	if got := bus.envelopes(t, c); len(got) != 0 {
		t.Fatalf("expected no outbound envelopes for an inbound ACK, got %d", len(got))
	}
}

// The first outbound envelope for any non-ack request is its ACK.
func TestAckBeforeReply(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncIdentification, "ref-2", ""))

	got := bus.envelopes(t, c)
	if len(got) != 2 {
		t.Fatalf("expected ACK + identification, got %d envelopes", len(got))
	}
	if got[0].Function != models.FuncAck || got[0].ReferenceID != "ref-2" {
		t.Errorf("first envelope must be the ACK for ref-2, got %s/%s", got[0].Function, got[0].ReferenceID)
	}
	if got[1].Function != models.FuncIdentification || got[1].ReferenceID != "ref-2" {
		t.Errorf("second envelope must be the identification reply, got %s/%s", got[1].Function, got[1].ReferenceID)
	}
}

func TestUnknownFunctionOnlyAcked(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.Function("banana"), "ref-3", ""))

	got := bus.envelopes(t, c)
	if len(got) != 1 || got[0].Function != models.FuncAck {
		t.Fatalf("expected exactly one ACK, got %+v", got)
	}
}

func TestScheduleAddListRemove(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-a",
		`{"operation":"add","schedules":[{"id":1,"name":"daily readout"}]}`))
	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-b", `{"operation":"list"}`))

	got := bus.envelopes(t, c)
	// add: ACK only; list: ACK + reply
	if len(got) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(got))
	}
	var list models.ScheduleListResponse
	if err := json.Unmarshal(got[2].Response, &list); err != nil {
		t.Fatalf("bad list response: %v", err)
	}
	if len(list.Schedules) != 1 || list.Schedules[0].ID() != float64(1) {
		t.Fatalf("expected one schedule with id 1, got %+v", list.Schedules)
	}

	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-c", `{"operation":"remove","filter":{"id":1}}`))
	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-d", `{"operation":"list"}`))

	got = bus.envelopes(t, c)
	var after models.ScheduleListResponse
	if err := json.Unmarshal(got[len(got)-1].Response, &after); err != nil {
		t.Fatalf("bad list response: %v", err)
	}
	if len(after.Schedules) != 0 {
		t.Fatalf("expected empty schedule list after remove, got %+v", after.Schedules)
	}
}

// A slice-valued id is valid JSON; removing by it must select the
// record, not crash the handler goroutine.
func TestScheduleRemoveCompositeID(t *testing.T) {
	engine, _, store, _ := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-a",
		`{"operation":"add","schedules":[{"id":[1],"name":"composite"},{"id":2,"name":"plain"}]}`))
	engine.HandleEnvelope(inbound(models.FuncSchedule, "ref-b",
		`{"operation":"remove","filter":{"id":[1]}}`))

	if _, schedules, _ := store.Counts(); schedules != 1 {
		t.Fatalf("expected the composite-id schedule removed, got %d left", schedules)
	}
}

// Notification remove clears everything regardless of the filter.
func TestNotificationRemoveClearsAll(t *testing.T) {
	engine, _, store, _ := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncNotification, "ref-a",
		`{"operation":"add","notifications":[{"id":1},{"id":2}]}`))
	engine.HandleEnvelope(inbound(models.FuncNotification, "ref-b",
		`{"operation":"remove","filter":[{"id":1}]}`))

	if _, _, n := store.Counts(); n != 0 {
		t.Fatalf("expected all notifications cleared, got %d", n)
	}
}

func TestConfigurationAppliesAndNotifies(t *testing.T) {
	engine, bus, store, c := newTestEngine()

	before := time.Now()
	engine.HandleEnvelope(inbound(models.FuncConfiguration, "ref-cfg",
		`{"registered":true,"deviceDate":"2001-01-01 00:00:00"}`))

	snap := store.Snapshot()
	if !snap.Registered {
		t.Error("expected registered to be applied")
	}
	// deviceDate means "apply now", never the requested value
	if snap.DeviceDate.Before(before) {
		t.Errorf("expected device date reset to wall clock, got %v", snap.DeviceDate)
	}

	got := bus.envelopes(t, c)
	if len(got) != 2 {
		t.Fatalf("expected ACK + notification, got %d", len(got))
	}
	var note models.InfoNotification
	if err := json.Unmarshal(got[1].Response, &note); err != nil {
		t.Fatalf("bad notification body: %v", err)
	}
	if note.Type != "info" || note.Message != "Configuration updated" {
		t.Errorf("unexpected notification: %+v", note)
	}
}

// Configuration without a request member changes nothing but still
// gets the completion notification.
func TestConfigurationWithoutRequestNotifies(t *testing.T) {
	engine, bus, store, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncConfiguration, "ref-empty", ""))

	if store.Snapshot().Registered {
		t.Error("expected state untouched by an empty configuration")
	}
	got := bus.envelopes(t, c)
	if len(got) != 2 || got[1].Function != models.FuncNotification {
		t.Fatalf("expected ACK + notification, got %+v", got)
	}
}

// A malformed request body must not crash the engine; the ACK already
// sent stands as the only response.
func TestMalformedRequestStillAcked(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncConfiguration, "ref-bad", `"not an object"`))

	got := bus.envelopes(t, c)
	if len(got) != 1 || got[0].Function != models.FuncAck {
		t.Fatalf("expected exactly the ACK, got %+v", got)
	}
}

func TestRelayReply(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncRelay, "ref-r", `{"name":"relay-1","state":"off"}`))

	got := bus.envelopes(t, c)
	if len(got) != 2 {
		t.Fatalf("expected ACK + relay reply, got %d", len(got))
	}
	var resp models.RelayResponse
	if err := json.Unmarshal(got[1].Response, &resp); err != nil {
		t.Fatalf("bad relay response: %v", err)
	}
	if resp.Status != "success" || resp.RelayState != "off" {
		t.Errorf("unexpected relay response: %+v", resp)
	}
}

func TestLogReplyWithDateRange(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncLog, "ref-l",
		`{"startDate":"2021-06-01 00:00:00","endDate":"2021-06-30 00:00:00"}`))

	got := bus.envelopes(t, c)
	if len(got) != 2 || got[1].Function != models.FuncLog {
		t.Fatalf("expected ACK + log reply, got %+v", got)
	}
	var incidents []models.LogIncident
	if err := json.Unmarshal(got[1].Response, &incidents); err != nil {
		t.Fatalf("bad log response: %v", err)
	}
	if len(incidents) == 0 {
		t.Fatal("expected incident records in the log reply")
	}
}

func TestResetEmitsCompletionNotification(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncReset, "ref-rst", `{"factoryDefault":true}`))

	got := bus.envelopes(t, c)
	if len(got) != 2 || got[1].Function != models.FuncNotification {
		t.Fatalf("expected ACK + notification, got %+v", got)
	}
}

func TestWriteEmitsSuccessNotification(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	engine.HandleEnvelope(inbound(models.FuncWrite, "ref-w", `{"obisCode":"0.9.2","value":"2024-10-21"}`))

	got := bus.envelopes(t, c)
	if len(got) != 2 || got[1].Function != models.FuncNotification {
		t.Fatalf("expected ACK + notification, got %+v", got)
	}
}

func TestTriggerWhileDisconnected(t *testing.T) {
	engine, bus, _, _ := newTestEngine()
	bus.connected = false

	if err := engine.TriggerHeartbeat(); !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(bus.sent) != 0 {
		t.Fatalf("expected no send attempt while disconnected")
	}
}

func TestTriggerAlarmSends(t *testing.T) {
	engine, bus, _, c := newTestEngine()

	err := engine.TriggerAlarm(models.AlarmIncident{
		Type: "danger", Level: "critical", IncidentCode: 500, Description: "mains lost",
	})
	if err != nil {
		t.Fatalf("trigger alarm failed: %v", err)
	}

	got := bus.envelopes(t, c)
	if len(got) != 1 || got[0].Function != models.FuncAlarm {
		t.Fatalf("expected one alarm envelope, got %+v", got)
	}
	if got[0].MessageStatus != "success" {
		t.Errorf("alarm must carry messageStatus success")
	}
	if got[0].ReferenceID == "" {
		t.Errorf("self-initiated alarm must generate a reference id")
	}
}

// An undecodable inbound message is dropped without output or panic.
func TestReceiveDropsUndecodable(t *testing.T) {
	engine, bus, _, _ := newTestEngine()

	engine.Receive(codec.Message{Payload: []byte("garbage")})

	if len(bus.sent) != 0 {
		t.Fatalf("expected nothing sent for garbage input")
	}
}
