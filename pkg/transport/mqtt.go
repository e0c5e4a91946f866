package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"masssim/pkg/codec"
)

const publishTimeout = 5 * time.Second

// MQTTOptions configures the MQTT adapter.
type MQTTOptions struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      uint16
	QoS            byte
	PublishTopic   string
	SubscribeTopic string

	// OnReceive is invoked for every inbound publish. Registered once
	// here; there is no way to swap it later.
	OnReceive func(msg codec.Message)

	// OnConnect is invoked after each successful (re)connect and
	// subscribe, e.g. to announce identification.
	OnConnect func()
}

// MQTT is the bus adapter backed by an MQTT v5 connection manager.
// User properties carry the attribute-routed variant's routing metadata
// in both directions.
type MQTT struct {
	cm        *autopaho.ConnectionManager
	topic     string
	qos       byte
	connected atomic.Bool
}

// NewMQTT connects to the broker and starts the receive path. The
// connection manager reconnects on its own; the connected flag tracks
// the current link state for IsConnected.
func NewMQTT(ctx context.Context, opts MQTTOptions) (*MQTT, error) {
	u, err := url.Parse(opts.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid broker url %q: %w", opts.BrokerURL, err)
	}

	t := &MQTT{topic: opts.PublishTopic, qos: opts.QoS}

	cfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{u},
		KeepAlive:  opts.KeepAlive,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			slog.Info("Connected to MQTT broker", "component", "MQTT", "broker", opts.BrokerURL)

			subCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			_, err := cm.Subscribe(subCtx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: opts.SubscribeTopic, QoS: opts.QoS},
				},
			})
			if err != nil {
				slog.Error("Subscribe failed", "component", "MQTT", "topic", opts.SubscribeTopic, "error", err)
				return
			}
			slog.Info("Subscribed", "component", "MQTT", "topic", opts.SubscribeTopic)

			t.connected.Store(true)
			if opts.OnConnect != nil {
				go opts.OnConnect()
			}
		},
		OnConnectError: func(err error) {
			t.connected.Store(false)
			slog.Error("MQTT connection error", "component", "MQTT", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: opts.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					if opts.OnReceive != nil {
						opts.OnReceive(toMessage(pr.Packet))
					}
					return true, nil
				},
			},
			OnClientError: func(err error) {
				t.connected.Store(false)
				slog.Error("MQTT client error", "component", "MQTT", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				t.connected.Store(false)
				slog.Warn("Disconnected by broker", "component", "MQTT", "reason_code", d.ReasonCode)
			},
		},
	}
	if opts.Username != "" {
		cfg.ConnectUsername = opts.Username
		cfg.ConnectPassword = []byte(opts.Password)
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: connect: %w", err)
	}
	t.cm = cm
	return t, nil
}

// Send publishes one message to the device-to-server topic, mirroring
// any codec attributes into user properties.
func (t *MQTT) Send(msg codec.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	pub := &paho.Publish{
		Topic:   t.topic,
		QoS:     t.qos,
		Payload: msg.Payload,
	}
	if len(msg.Attributes) > 0 {
		props := &paho.PublishProperties{}
		for k, v := range msg.Attributes {
			props.User.Add(k, v)
		}
		pub.Properties = props
	}

	if _, err := t.cm.Publish(ctx, pub); err != nil {
		return fmt.Errorf("transport: publish: %w", err)
	}
	return nil
}

// IsConnected reports the current link state.
func (t *MQTT) IsConnected() bool { return t.connected.Load() }

// Close disconnects from the broker.
func (t *MQTT) Close(ctx context.Context) error {
	t.connected.Store(false)
	return t.cm.Disconnect(ctx)
}

// toMessage converts an inbound publish to the codec's message form.
func toMessage(p *paho.Publish) codec.Message {
	msg := codec.Message{Payload: p.Payload}
	if p.Properties != nil && len(p.Properties.User) > 0 {
		msg.Attributes = make(map[string]string, len(p.Properties.User))
		for _, up := range p.Properties.User {
			msg.Attributes[up.Key] = up.Value
		}
	}
	return msg
}
