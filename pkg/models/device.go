package models

// DateTimeLayout is the timestamp format the protocol uses everywhere.
const DateTimeLayout = "2006-01-02 15:04:05"

// DeviceIdentity is the fixed flag/serial/brand/model/firmware tuple
// identifying the simulated unit. Immutable for the process lifetime.
type DeviceIdentity struct {
	Flag            string `json:"flag"`
	SerialNumber    string `json:"serialNumber"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	ProtocolVersion string `json:"protocolVersion"`
	Firmware        string `json:"firmware"`
}

// Ref returns the envelope header form of the identity.
func (d DeviceIdentity) Ref() DeviceRef {
	return DeviceRef{Flag: d.Flag, SerialNumber: d.SerialNumber}
}

// Meter describes one meter attached to the communication unit.
type Meter struct {
	Protocol     string `json:"protocol" binding:"required"`
	Type         string `json:"type" binding:"required,oneof=electricity water gas"`
	Brand        string `json:"brand" binding:"required"`
	SerialNumber string `json:"serialNumber" binding:"required"`
	SerialPort   string `json:"serialPort" binding:"required"`
	InitBaud     int    `json:"initBaud" binding:"required"`
	FixBaud      bool   `json:"fixBaud"`
	Frame        string `json:"frame" binding:"required"`
}

// Schedule and Notification records are free-form: the server owns their
// shape and list operations must echo them back verbatim, so they stay
// as decoded JSON objects.
type Schedule map[string]any

// Notification is a free-form notification record, see Schedule.
type Notification map[string]any

// ID returns the record's removal key (nil when absent).
func (s Schedule) ID() any { return s["id"] }
