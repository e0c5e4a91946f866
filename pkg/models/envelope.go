package models

import "encoding/json"

// Function is the envelope discriminant selecting message semantics.
type Function string

// The closed set of protocol functions. Anything outside this set is
// acknowledged but produces no secondary behavior.
const (
	FuncAck            Function = "ack"
	FuncIdentification Function = "identification"
	FuncHeartbeat      Function = "heartbeat"
	FuncAlarm          Function = "alarm"
	FuncRead           Function = "read"
	FuncConfiguration  Function = "configuration"
	FuncSchedule       Function = "schedule"
	FuncNotification   Function = "notification"
	FuncLog            Function = "log"
	FuncWrite          Function = "write"
	FuncReset          Function = "reset"
	FuncFirmwareUpdate Function = "firmwareUpdate"
	FuncProfile        Function = "profile"
	FuncDirective      Function = "directive"
	FuncRelay          Function = "relay"
)

// DeviceRef identifies the sending device in an envelope header.
type DeviceRef struct {
	Flag         string `json:"flag"`
	SerialNumber string `json:"serialNumber"`
}

// Envelope is one complete protocol message. Request and Response are
// kept raw because their shape depends on Function; handlers unmarshal
// into the matching payload type from payloads.go.
type Envelope struct {
	Device        DeviceRef       `json:"device"`
	Function      Function        `json:"function"`
	ReferenceID   string          `json:"referenceId"`
	Streaming     bool            `json:"streaming,omitempty"` // reserved
	Request       json.RawMessage `json:"request,omitempty"`
	Response      json.RawMessage `json:"response,omitempty"`
	MessageStatus string          `json:"messageStatus,omitempty"`
}

// Schedule operation values shared by schedule, notification and
// directive requests.
const (
	OpAdd    = "add"
	OpList   = "list"
	OpRemove = "remove"
)
