package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"masssim/pkg/models"
	"masssim/pkg/state"
)

// Fixed readout the simulator returns for every read request, IEC
// 62056-21 style.
const (
	readoutID  = "/LGZ5\\2ZMG405000b.P07"
	readoutRaw = "0.0.0(23660088)\r\n0.9.2(2021-06-22)\r\n0.9.1(10:18:42)\r\n1.8.0(0000004891.722)\r\n"
)

// NewEnvelope builds the protocol header. An empty referenceID means
// this device originates the exchange and a fresh one is generated.
func NewEnvelope(identity models.DeviceIdentity, fn models.Function, referenceID string) models.Envelope {
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	return models.Envelope{
		Device:      identity.Ref(),
		Function:    fn,
		ReferenceID: referenceID,
	}
}

// build attaches a marshalled response payload to a fresh envelope.
func build(identity models.DeviceIdentity, fn models.Function, referenceID string, payload any) (models.Envelope, error) {
	env := NewEnvelope(identity, fn, referenceID)
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return models.Envelope{}, fmt.Errorf("protocol: marshal %s response: %w", fn, err)
		}
		env.Response = raw
	}
	return env, nil
}

// BuildAck builds the success ACK for the given reference ID. Success
// ACKs carry no response body.
func BuildAck(identity models.DeviceIdentity, referenceID string) models.Envelope {
	return NewEnvelope(identity, models.FuncAck, referenceID)
}

// BuildFailureAck builds an explicit failure ACK. There is no automatic
// production path for these; the dispatcher only ever sends success
// ACKs, so this exists for manual use.
func BuildFailureAck(identity models.DeviceIdentity, referenceID string, failCode int, failDescription string) (models.Envelope, error) {
	return build(identity, models.FuncAck, referenceID, models.AckFailure{
		FailCode:        failCode,
		FailDescription: failDescription,
	})
}

// BuildIdentification builds the full device descriptor. The topology
// blocks are constants of the simulated hardware; registered, signal,
// device date, meters and schedules come from the snapshot.
func BuildIdentification(identity models.DeviceIdentity, snap state.Snapshot, referenceID string) (models.Envelope, error) {
	resp := models.IdentificationResponse{
		Registered:      snap.Registered,
		Brand:           identity.Brand,
		Model:           identity.Model,
		ProtocolVersion: identity.ProtocolVersion,
		ManufactureDate: "2023-05-23",
		Firmware:        identity.Firmware,
		Signal:          snap.Signal,
		DeviceDate:      snap.DeviceDate.Format(models.DateTimeLayout),
		DaylightSaving:  true,
		Timezone:        "+03:00",
		RestartPeriod:   8,
		NetworkID:       "",
		Servers: []models.Server{
			{IP: "123.45.68.10", TCPPort: 1234, UDPPort: 4567, Primary: true},
		},
		NTP:           models.NTP{},
		IPWhiteList:   []string{"123.45.68.10"},
		RetryInterval: 10,
		RetryCount:    3,
		CommunicationInterfaces: []models.CommunicationInterface{
			{
				ID:          1,
				Type:        "gsm",
				IMEI:        "123456789012345",
				PhoneNumber: "5012345678",
				IP:          "123.45.68.9",
				Port:        3030,
				APN:         models.APN{User: "osos"},
			},
		},
		SerialPorts: []models.SerialPort{
			{ID: 1, Type: "rs485", Name: "rs485-1", Port: 7000},
			{ID: 2, Type: "rs485", Name: "rs485-2", Port: 7001},
			{ID: 3, Type: "rs232", Name: "rs232", Port: 7002},
		},
		IOInterfaces: []models.IOInterface{
			{ID: 1, Type: "relay", Name: "relay-1"},
			{ID: 2, Type: "relay", Name: "relay-2"},
			{ID: 3, Type: "dryContact", Name: "dry-1"},
			{ID: 4, Type: "digitalInput", Name: "panoKapagi"},
			{ID: 5, Type: "digitalInput", Name: "digitalInput-2"},
		},
		Modules:   []any{},
		Meters:    snap.Meters,
		Schedules: snap.Schedules,
	}
	if resp.Meters == nil {
		resp.Meters = []models.Meter{}
	}
	if resp.Schedules == nil {
		resp.Schedules = []models.Schedule{}
	}
	return build(identity, models.FuncIdentification, referenceID, resp)
}

// BuildHeartbeat builds a heartbeat. Its deviceDate is wall-clock now,
// not the stored device date.
func BuildHeartbeat(identity models.DeviceIdentity, snap state.Snapshot) (models.Envelope, error) {
	return build(identity, models.FuncHeartbeat, "", models.HeartbeatResponse{
		Signal:     snap.Signal,
		DeviceDate: time.Now().Format(models.DateTimeLayout),
		CPUTemp:    snap.CPUTemp,
	})
}

// BuildAlarm builds a self-initiated alarm envelope. The incident date
// is stamped here; the response is always a single-entry array.
func BuildAlarm(identity models.DeviceIdentity, incident models.AlarmIncident) (models.Envelope, error) {
	incident.Date = time.Now().Format(models.DateTimeLayout)
	env, err := build(identity, models.FuncAlarm, "", []models.AlarmIncident{incident})
	if err != nil {
		return models.Envelope{}, err
	}
	env.MessageStatus = "success"
	return env, nil
}

// BuildRead builds the readout reply.
func BuildRead(identity models.DeviceIdentity, referenceID string) (models.Envelope, error) {
	return build(identity, models.FuncRead, referenceID, models.ReadResponse{
		ReadDate: time.Now().Format(models.DateTimeLayout),
		Data:     models.ReadData{ID: readoutID, RawData: readoutRaw},
	})
}

// BuildScheduleList builds the schedule list reply.
func BuildScheduleList(identity models.DeviceIdentity, snap state.Snapshot, referenceID string) (models.Envelope, error) {
	schedules := snap.Schedules
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	return build(identity, models.FuncSchedule, referenceID, models.ScheduleListResponse{Schedules: schedules})
}

// BuildNotificationList builds the notification list reply.
func BuildNotificationList(identity models.DeviceIdentity, snap state.Snapshot, referenceID string) (models.Envelope, error) {
	notifications := snap.Notifications
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return build(identity, models.FuncNotification, referenceID, models.NotificationListResponse{Notifications: notifications})
}

// BuildInfoNotification builds the fire-and-forget info notification
// sent after configuration updates, writes, resets and firmware updates.
func BuildInfoNotification(identity models.DeviceIdentity, message string) (models.Envelope, error) {
	return build(identity, models.FuncNotification, "", models.InfoNotification{
		Type:    "info",
		Message: message,
		Date:    time.Now().Format(models.DateTimeLayout),
	})
}

// BuildLog builds the mock incident-log reply.
func BuildLog(identity models.DeviceIdentity, referenceID string) (models.Envelope, error) {
	return build(identity, models.FuncLog, referenceID, []models.LogIncident{
		{
			IncidentCode: 278,
			Description:  "cover opened",
			Date:         "2021-06-28 13:55:00",
			Meter:        &models.MeterInfo{Brand: "EMH", SerialNumber: "12345678"},
		},
		{
			IncidentCode: 439,
			Description:  "relay removed",
			Date:         "2021-06-28 13:55:00",
		},
	})
}

// BuildProfile builds the mock load-profile reply.
func BuildProfile(identity models.DeviceIdentity, referenceID string) (models.Envelope, error) {
	return build(identity, models.FuncProfile, referenceID, []models.ProfileSample{
		{Date: "2021-06-28 13:00:00", Obis: "1.8.0", Value: 4891.722, Unit: "kWh", Status: "valid"},
		{Date: "2021-06-28 13:15:00", Obis: "1.8.0", Value: 4891.851, Unit: "kWh", Status: "valid"},
		{Date: "2021-06-28 13:30:00", Obis: "1.8.0", Value: 4891.997, Unit: "kWh", Status: "valid"},
		{Date: "2021-06-28 13:45:00", Obis: "1.8.0", Value: 4892.103, Unit: "kWh", Status: "valid"},
	})
}

// BuildRelay builds the relay reply: the requested state is always
// reached.
func BuildRelay(identity models.DeviceIdentity, referenceID string, req models.RelayRequest) (models.Envelope, error) {
	return build(identity, models.FuncRelay, referenceID, models.RelayResponse{
		Status:     "success",
		RelayState: req.State,
	})
}

// BuildDirectiveList builds the directive list reply, always empty.
func BuildDirectiveList(identity models.DeviceIdentity, referenceID string) (models.Envelope, error) {
	return build(identity, models.FuncDirective, referenceID, models.DirectiveListResponse{Directives: []any{}})
}

// BuildWriteResult builds a device-initiated write report.
func BuildWriteResult(identity models.DeviceIdentity, req models.WriteRequest) (models.Envelope, error) {
	env, err := build(identity, models.FuncWrite, "", models.WriteResult{
		Meter:     req.Meter,
		ObisCode:  req.ObisCode,
		Value:     req.Value,
		Status:    "success",
		WriteDate: time.Now().Format(models.DateTimeLayout),
	})
	if err != nil {
		return models.Envelope{}, err
	}
	env.MessageStatus = "success"
	return env, nil
}

// BuildResetResult builds a device-initiated reset report.
func BuildResetResult(identity models.DeviceIdentity, factoryDefault bool) (models.Envelope, error) {
	env, err := build(identity, models.FuncReset, "", models.ResetResult{
		Status:         "success",
		FactoryDefault: factoryDefault,
		ResetDate:      time.Now().Format(models.DateTimeLayout),
	})
	if err != nil {
		return models.Envelope{}, err
	}
	env.MessageStatus = "success"
	return env, nil
}
