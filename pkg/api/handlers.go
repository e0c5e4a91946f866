// Package api is the HTTP control surface test harnesses use to drive
// the simulator: trigger alarms, heartbeats, writes, resets and relay
// actions, and inspect or mutate device state. It sits outside the
// protocol engine's own state machine.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"masssim/pkg/models"
	"masssim/pkg/protocol"
	"masssim/pkg/state"
	"masssim/pkg/transport"
)

// AlarmRequest is the body of POST /trigger/alarm.
type AlarmRequest struct {
	AlarmType    string `json:"alarm_type" binding:"omitempty,oneof=alarm info danger"`
	Level        string `json:"level" binding:"omitempty,oneof=critical warning info"`
	IncidentCode int    `json:"incident_code" binding:"required"`
	Description  string `json:"description" binding:"required"`
	MeterSerial  string `json:"meter_serial"`
	MeterBrand   string `json:"meter_brand"`
}

// WriteTriggerRequest is the body of POST /trigger/write.
type WriteTriggerRequest struct {
	MeterSerial string `json:"meter_serial" binding:"required"`
	MeterBrand  string `json:"meter_brand"`
	ObisCode    string `json:"obis_code" binding:"required"`
	Value       string `json:"value" binding:"required"`
}

// ResetTriggerRequest is the body of POST /trigger/reset.
type ResetTriggerRequest struct {
	FactoryDefault bool `json:"factory_default"`
}

// RelayTriggerRequest is the body of POST /trigger/relay.
type RelayTriggerRequest struct {
	Name  string `json:"name" binding:"required"`
	State string `json:"state" binding:"required,oneof=on off"`
}

// ConfigUpdateRequest is the body of POST /device/config. Pointer
// fields so absent keys leave the state untouched.
type ConfigUpdateRequest struct {
	Signal  *int `json:"signal"`
	CPUTemp *int `json:"cpu_temp"`
}

// respondError sends a structured JSON error response
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": message,
			"status":  code,
		},
	})
	c.Abort()
}

// respondSendResult maps an engine trigger result to HTTP: 503 while
// the bus is down, 500 for anything else.
func respondSendResult(c *gin.Context, err error) {
	if err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			respondError(c, http.StatusServiceUnavailable, "MQTT not connected")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// HealthHandler reports link state and identity.
func HealthHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := engine.Identity()
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"mqtt_connected": engine.Connected(),
			"device":         identity.Flag + "/" + identity.SerialNumber,
		})
	}
}

// TriggerAlarmHandler makes the device raise an alarm.
func TriggerAlarmHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AlarmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		if req.AlarmType == "" {
			req.AlarmType = "alarm"
		}
		if req.Level == "" {
			req.Level = "warning"
		}

		incident := models.AlarmIncident{
			Type:         req.AlarmType,
			Level:        req.Level,
			IncidentCode: req.IncidentCode,
			Description:  req.Description,
		}
		if req.MeterSerial != "" {
			brand := req.MeterBrand
			if brand == "" {
				brand = "Unknown"
			}
			incident.Meter = &models.MeterInfo{Brand: brand, SerialNumber: req.MeterSerial}
		}

		respondSendResult(c, engine.TriggerAlarm(incident))
	}
}

// TriggerHeartbeatHandler makes the device emit an immediate heartbeat.
func TriggerHeartbeatHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondSendResult(c, engine.TriggerHeartbeat())
	}
}

// TriggerWriteHandler makes the device report a register write.
func TriggerWriteHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WriteTriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondSendResult(c, engine.TriggerWrite(models.WriteRequest{
			Meter:    models.MeterInfo{Brand: req.MeterBrand, SerialNumber: req.MeterSerial},
			ObisCode: req.ObisCode,
			Value:    req.Value,
		}))
	}
}

// TriggerResetHandler makes the device report a reset.
func TriggerResetHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetTriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondSendResult(c, engine.TriggerReset(req.FactoryDefault))
	}
}

// TriggerRelayHandler makes the device report a relay switch.
func TriggerRelayHandler(engine *protocol.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RelayTriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondSendResult(c, engine.TriggerRelay(req.Name, req.State))
	}
}

// AddMeterHandler appends a meter descriptor to the device state.
func AddMeterHandler(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var meter models.Meter
		if err := c.ShouldBindJSON(&meter); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		store.AppendMeter(meter)
		c.JSON(http.StatusOK, gin.H{"status": "added", "meter": meter})
	}
}

// GetStateHandler reports the current device state summary.
func GetStateHandler(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"registered":    snap.Registered,
			"signal":        snap.Signal,
			"cpu_temp":      snap.CPUTemp,
			"meters":        len(snap.Meters),
			"schedules":     len(snap.Schedules),
			"notifications": len(snap.Notifications),
		})
	}
}

// UpdateConfigHandler mutates signal and CPU temperature.
func UpdateConfigHandler(store *state.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfigUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		if req.Signal != nil {
			store.SetSignal(*req.Signal)
		}
		if req.CPUTemp != nil {
			store.SetCPUTemp(*req.CPUTemp)
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	}
}
