package models

// AckFailure is the response body of a failure ACK. The description key
// is intentionally misspelled on the wire: real peers expect the typo
// from the published protocol document, so transmitting the corrected
// spelling would break correlation on their side.
type AckFailure struct {
	FailCode        int    `json:"failCode"`
	FailDescription string `json:"failDescrition"`
}

// Server is one server entry of the identification descriptor.
type Server struct {
	IP      string `json:"ip"`
	TCPPort int    `json:"tcpPort"`
	UDPPort int    `json:"udpPort"`
	Primary bool   `json:"primary"`
}

// NTP is the time-server block of the identification descriptor.
type NTP struct {
	Server string `json:"server"`
	Port   int    `json:"port"`
}

// APN holds the GSM access point credentials.
type APN struct {
	User string `json:"user"`
	Pwd  string `json:"pwd"`
}

// CommunicationInterface describes one uplink (GSM, ethernet, ...).
type CommunicationInterface struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	IMEI        string `json:"imei"`
	PhoneNumber string `json:"phoneNumber"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	APN         APN    `json:"apn"`
	SimID       string `json:"simId"`
	IMSI        string `json:"imsi"`
}

// SerialPort describes one physical meter port.
type SerialPort struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Port int    `json:"port"`
}

// IOInterface describes one relay / dry-contact / digital input.
type IOInterface struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// IdentificationResponse is the full device descriptor. The topology
// fields (servers, interfaces, ports) are configuration-derived
// constants; only registered/signal/deviceDate/meters/schedules come
// from mutable state.
type IdentificationResponse struct {
	Registered              bool                     `json:"registered"`
	Brand                   string                   `json:"brand"`
	Model                   string                   `json:"model"`
	ProtocolVersion         string                   `json:"protocolVersion"`
	ManufactureDate         string                   `json:"manufactureDate"`
	Firmware                string                   `json:"firmware"`
	Signal                  int                      `json:"signal"`
	DeviceDate              string                   `json:"deviceDate"`
	DaylightSaving          bool                     `json:"daylightSaving"`
	Timezone                string                   `json:"timezone"`
	RestartPeriod           int                      `json:"restartPeriod"`
	NetworkID               string                   `json:"networkId"`
	Servers                 []Server                 `json:"servers"`
	NTP                     NTP                      `json:"ntp"`
	IPWhiteList             []string                 `json:"ipWhiteList"`
	RetryInterval           int                      `json:"retryInterval"`
	RetryCount              int                      `json:"retryCount"`
	CommunicationInterfaces []CommunicationInterface `json:"communicationInterfaces"`
	SerialPorts             []SerialPort             `json:"serialPorts"`
	IOInterfaces            []IOInterface            `json:"ioInterfaces"`
	Modules                 []any                    `json:"modules"`
	Meters                  []Meter                  `json:"meters"`
	Schedules               []Schedule               `json:"schedules"`
}

// HeartbeatResponse carries current health. DeviceDate here is
// wall-clock "now", not the stored device date.
type HeartbeatResponse struct {
	Signal     int    `json:"signal"`
	DeviceDate string `json:"deviceDate"`
	CPUTemp    int    `json:"cpuTemp"`
}

// AlarmIncident is one entry of a self-initiated alarm response.
type AlarmIncident struct {
	Type         string     `json:"type"`
	Level        string     `json:"level"`
	IncidentCode int        `json:"incidentCode"`
	Description  string     `json:"description"`
	Date         string     `json:"date"`
	Meter        *MeterInfo `json:"meter,omitempty"`
}

// MeterInfo identifies the meter an alarm or log incident refers to.
type MeterInfo struct {
	Brand        string `json:"brand"`
	SerialNumber string `json:"serialNumber"`
}

// ReadRequest asks for a meter readout.
type ReadRequest struct {
	Directive string `json:"directive"`
}

// ReadData is the raw readout inside a read response.
type ReadData struct {
	ID      string `json:"id"`
	RawData string `json:"rawData"`
}

// ReadResponse is the read reply body.
type ReadResponse struct {
	ReadDate string   `json:"readDate"`
	Data     ReadData `json:"data"`
}

// ConfigurationRequest mutates device configuration. Pointer fields
// distinguish "absent" from zero values: only keys present in the
// request are applied.
type ConfigurationRequest struct {
	Registered *bool   `json:"registered"`
	DeviceDate *string `json:"deviceDate"`
}

// RecordFilter selects records for removal operations.
type RecordFilter struct {
	ID any `json:"id"`
}

// ScheduleRequest carries a schedule add/list/remove operation.
type ScheduleRequest struct {
	Operation string       `json:"operation"`
	Schedules []Schedule   `json:"schedules"`
	Filter    RecordFilter `json:"filter"`
}

// ScheduleListResponse is the schedule list reply body.
type ScheduleListResponse struct {
	Schedules []Schedule `json:"schedules"`
}

// NotificationRequest carries a notification add/list/remove operation.
// Remove accepts a filter but clears the whole sequence; the protocol
// document never specified filter semantics for notifications.
type NotificationRequest struct {
	Operation     string         `json:"operation"`
	Notifications []Notification `json:"notifications"`
	Filter        []RecordFilter `json:"filter"`
}

// NotificationListResponse is the notification list reply body.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
}

// InfoNotification is the fire-and-forget body sent after configuration
// updates, writes, resets and firmware updates.
type InfoNotification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// LogRequest asks for incident records in a date range.
type LogRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// LogIncident is one incident record of a log response.
type LogIncident struct {
	IncidentCode int        `json:"incidentCode"`
	Description  string     `json:"description"`
	Date         string     `json:"date"`
	Meter        *MeterInfo `json:"meter,omitempty"`
}

// WriteRequest asks for a register write on a meter.
type WriteRequest struct {
	Meter    MeterInfo `json:"meter"`
	ObisCode string    `json:"obisCode"`
	Value    string    `json:"value"`
}

// ResetRequest asks for a device restart.
type ResetRequest struct {
	FactoryDefault bool `json:"factoryDefault"`
}

// WriteResult is the body of a device-initiated write report.
type WriteResult struct {
	Meter     MeterInfo `json:"meter"`
	ObisCode  string    `json:"obisCode"`
	Value     string    `json:"value"`
	Status    string    `json:"status"`
	WriteDate string    `json:"writeDate"`
}

// ResetResult is the body of a device-initiated reset report.
type ResetResult struct {
	Status         string `json:"status"`
	FactoryDefault bool   `json:"factoryDefault"`
	ResetDate      string `json:"resetDate"`
}

// ProfileSample is one time-series sample of a profile response.
type ProfileSample struct {
	Date   string  `json:"date"`
	Obis   string  `json:"obis"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Status string  `json:"status"`
}

// RelayRequest asks for a relay switch.
type RelayRequest struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// RelayResponse is the relay reply body.
type RelayResponse struct {
	Status     string `json:"status"`
	RelayState string `json:"relayState"`
}

// DirectiveRequest carries a directive add/list/remove operation.
type DirectiveRequest struct {
	Operation  string `json:"operation"`
	Directives []any  `json:"directives"`
}

// DirectiveListResponse is always empty: the simulator accepts directive
// operations but never persists them.
type DirectiveListResponse struct {
	Directives []any `json:"directives"`
}
