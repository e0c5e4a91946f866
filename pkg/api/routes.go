package api

import (
	"github.com/gin-gonic/gin"

	"masssim/pkg/protocol"
	"masssim/pkg/state"
)

// RegisterRoutes wires the control-surface endpoints onto the router.
func RegisterRoutes(router *gin.Engine, engine *protocol.Engine, store *state.Store) {
	router.GET("/health", HealthHandler(engine))

	trigger := router.Group("/trigger")
	{
		trigger.POST("/alarm", TriggerAlarmHandler(engine))
		trigger.POST("/heartbeat", TriggerHeartbeatHandler(engine))
		trigger.POST("/write", TriggerWriteHandler(engine))
		trigger.POST("/reset", TriggerResetHandler(engine))
		trigger.POST("/relay", TriggerRelayHandler(engine))
	}

	device := router.Group("/device")
	{
		device.POST("/meter/add", AddMeterHandler(store))
		device.GET("/state", GetStateHandler(store))
		device.POST("/config", UpdateConfigHandler(store))
	}
}
