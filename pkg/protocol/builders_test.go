package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"masssim/pkg/models"
	"masssim/pkg/state"
)

var testIdentity = models.DeviceIdentity{
	Flag:            "XYZ",
	SerialNumber:    "0123456789ABCDE",
	Brand:           "SimulatorBrand",
	Model:           "SimV1.0",
	ProtocolVersion: "1.0.0",
	Firmware:        "1.01",
}

func TestNewEnvelopeGeneratesReferenceID(t *testing.T) {
	a := NewEnvelope(testIdentity, models.FuncHeartbeat, "")
	b := NewEnvelope(testIdentity, models.FuncHeartbeat, "")

	assert.NotEmpty(t, a.ReferenceID)
	assert.NotEqual(t, a.ReferenceID, b.ReferenceID)
	assert.Equal(t, testIdentity.Ref(), a.Device)
}

func TestNewEnvelopeEchoesReferenceID(t *testing.T) {
	env := NewEnvelope(testIdentity, models.FuncAck, "ref-7")
	assert.Equal(t, "ref-7", env.ReferenceID)
}

func TestBuildAckHasNoBody(t *testing.T) {
	env := BuildAck(testIdentity, "ref-1")
	assert.Equal(t, models.FuncAck, env.Function)
	assert.Nil(t, env.Response)
}

// The failure description key must keep the protocol document's typo on
// the wire.
func TestFailureAckMisspelledKey(t *testing.T) {
	env, err := BuildFailureAck(testIdentity, "ref-1", 42, "meter unreachable")
	assert.NoError(t, err)

	raw, err := json.Marshal(env)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"failDescrition":"meter unreachable"`)
	assert.False(t, strings.Contains(string(raw), "failDescription"))
}

func TestBuildIdentification(t *testing.T) {
	store := state.NewStore()
	store.SetRegistered(true)
	store.AppendMeter(models.Meter{SerialNumber: "23660088", Type: "electricity"})
	store.AppendSchedules([]models.Schedule{{"id": float64(1)}})

	env, err := BuildIdentification(testIdentity, store.Snapshot(), "ref-9")
	assert.NoError(t, err)
	assert.Equal(t, "ref-9", env.ReferenceID)

	var resp models.IdentificationResponse
	assert.NoError(t, json.Unmarshal(env.Response, &resp))
	assert.True(t, resp.Registered)
	assert.Equal(t, "SimulatorBrand", resp.Brand)
	assert.Equal(t, "1.01", resp.Firmware)
	assert.Equal(t, 13, resp.Signal)
	assert.Len(t, resp.Meters, 1)
	assert.Len(t, resp.Schedules, 1)
	assert.NotEmpty(t, resp.Servers)
	assert.NotEmpty(t, resp.SerialPorts)
	assert.NotEmpty(t, resp.IOInterfaces)
}

func TestBuildHeartbeat(t *testing.T) {
	store := state.NewStore()
	store.SetSignal(21)
	store.SetCPUTemp(33)

	env, err := BuildHeartbeat(testIdentity, store.Snapshot())
	assert.NoError(t, err)
	assert.Equal(t, models.FuncHeartbeat, env.Function)

	var resp models.HeartbeatResponse
	assert.NoError(t, json.Unmarshal(env.Response, &resp))
	assert.Equal(t, 21, resp.Signal)
	assert.Equal(t, 33, resp.CPUTemp)
	assert.NotEmpty(t, resp.DeviceDate)
}

func TestBuildAlarm(t *testing.T) {
	env, err := BuildAlarm(testIdentity, models.AlarmIncident{
		Type:         "alarm",
		Level:        "critical",
		IncidentCode: 278,
		Description:  "cover opened",
		Meter:        &models.MeterInfo{Brand: "EMH", SerialNumber: "12345678"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "success", env.MessageStatus)

	var incidents []models.AlarmIncident
	assert.NoError(t, json.Unmarshal(env.Response, &incidents))
	assert.Len(t, incidents, 1)
	assert.Equal(t, 278, incidents[0].IncidentCode)
	assert.NotEmpty(t, incidents[0].Date)
	assert.Equal(t, "EMH", incidents[0].Meter.Brand)
}

func TestBuildRead(t *testing.T) {
	env, err := BuildRead(testIdentity, "ref-3")
	assert.NoError(t, err)

	var resp models.ReadResponse
	assert.NoError(t, json.Unmarshal(env.Response, &resp))
	assert.NotEmpty(t, resp.ReadDate)
	assert.Contains(t, resp.Data.RawData, "1.8.0")
}

func TestBuildDirectiveListAlwaysEmpty(t *testing.T) {
	env, err := BuildDirectiveList(testIdentity, "ref-4")
	assert.NoError(t, err)
	assert.JSONEq(t, `{"directives":[]}`, string(env.Response))
}

func TestBuildScheduleListEmptyIsArray(t *testing.T) {
	env, err := BuildScheduleList(testIdentity, state.NewStore().Snapshot(), "ref-5")
	assert.NoError(t, err)
	assert.JSONEq(t, `{"schedules":[]}`, string(env.Response))
}
