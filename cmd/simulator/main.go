package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"masssim/pkg/api"
	"masssim/pkg/codec"
	"masssim/pkg/config"
	"masssim/pkg/heartbeat"
	"masssim/pkg/models"
	"masssim/pkg/protocol"
	"masssim/pkg/state"
	"masssim/pkg/transport"
)

func main() {
	// ══════════════════════════════════════════════════════════════
	// STRUCTURED LOGGING
	// ══════════════════════════════════════════════════════════════
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ══════════════════════════════════════════════════════════════
	// CONFIGURATION
	// ══════════════════════════════════════════════════════════════
	conf, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load conf", "error", err)
		os.Exit(1)
	}

	identity := models.DeviceIdentity{
		Flag:            conf.DeviceFlag,
		SerialNumber:    conf.DeviceSerial,
		Brand:           conf.DeviceBrand,
		Model:           conf.DeviceModel,
		ProtocolVersion: conf.ProtocolVersion,
		Firmware:        conf.Firmware,
	}
	slog.Info("Config loaded",
		"device", identity.Flag+"/"+identity.SerialNumber,
		"broker", conf.BrokerURL,
		"wire_format", conf.WireFormat,
		"heartbeat_interval", conf.HeartbeatInterval().String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ══════════════════════════════════════════════════════════════
	// PROTOCOL ENGINE
	// ══════════════════════════════════════════════════════════════
	var wire codec.Codec
	switch conf.WireFormat {
	case "attribute":
		wire = codec.NewAttributeCodec()
	case "framed":
		wire = codec.NewFramedCodec()
	default:
		slog.Error("Unknown wire format", "wire_format", conf.WireFormat)
		os.Exit(1)
	}

	store := state.NewStore()
	engine := protocol.NewEngine(identity, store, wire, conf.ReadDelay(), conf.NotifyDelay())

	// ══════════════════════════════════════════════════════════════
	// TRANSPORT
	// ══════════════════════════════════════════════════════════════
	bus, err := transport.NewMQTT(ctx, transport.MQTTOptions{
		BrokerURL:      conf.BrokerURL,
		ClientID:       "mass_sim_" + conf.DeviceSerial,
		Username:       conf.MQTTUsername,
		Password:       conf.MQTTPassword,
		KeepAlive:      uint16(conf.MQTTKeepAlive),
		QoS:            byte(conf.MQTTQoS),
		PublishTopic:   conf.TopicToServer,
		SubscribeTopic: conf.TopicFromServer,
		OnReceive:      engine.Receive,
		OnConnect: func() {
			if err := engine.AnnounceIdentification(); err != nil {
				slog.Error("Identification announce failed", "error", err)
			}
		},
	})
	if err != nil {
		slog.Error("Failed to connect transport", "error", err)
		os.Exit(1)
	}
	engine.Bind(bus)

	// ══════════════════════════════════════════════════════════════
	// START SERVICES
	// ══════════════════════════════════════════════════════════════
	hb := heartbeat.NewEmitter(engine, conf.HeartbeatInterval())
	go hb.Run(ctx)

	// ══════════════════════════════════════════════════════════════
	// ROUTER SETUP
	// ══════════════════════════════════════════════════════════════
	router := gin.Default()
	api.RegisterRoutes(router, engine, store)

	// ══════════════════════════════════════════════════════════════
	// START SERVER
	// ══════════════════════════════════════════════════════════════
	slog.Info("Starting control API", "address", conf.APIAddress)
	if err := router.Run(conf.APIAddress); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
