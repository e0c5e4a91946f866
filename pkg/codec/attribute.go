package codec

import (
	"encoding/json"
	"fmt"

	"masssim/pkg/models"
)

// AttributeCodec implements the attribute-routed encoding: the JSON body
// travels unframed, and the routing header is duplicated into transport
// attributes so a broker-side router can dispatch without parsing JSON.
type AttributeCodec struct{}

// NewAttributeCodec creates the attribute-routed codec.
func NewAttributeCodec() *AttributeCodec { return &AttributeCodec{} }

// Encode serializes the envelope and mirrors its routing fields into
// message attributes.
func (c *AttributeCodec) Encode(env models.Envelope) (Message, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return Message{}, fmt.Errorf("codec: marshal envelope: %w", err)
	}

	return Message{
		Payload: body,
		Attributes: map[string]string{
			AttrDeviceFlag:   env.Device.Flag,
			AttrDeviceSerial: env.Device.SerialNumber,
			AttrFunction:     string(env.Function),
			AttrReferenceID:  env.ReferenceID,
		},
	}, nil
}

// Decode parses the JSON body. Inbound attributes are ignored: the body
// is the source of truth.
func (c *AttributeCodec) Decode(msg Message) (models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return models.Envelope{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return env, nil
}
