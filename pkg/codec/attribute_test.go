package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"masssim/pkg/models"
)

func TestAttributeRoundTrip(t *testing.T) {
	c := NewAttributeCodec()
	env := sampleEnvelope()

	msg, err := c.Encode(env)
	assert.NoError(t, err)

	decoded, err := c.Decode(msg)
	assert.NoError(t, err)
	assert.Equal(t, env.Device, decoded.Device)
	assert.Equal(t, env.Function, decoded.Function)
	assert.Equal(t, env.ReferenceID, decoded.ReferenceID)
	assert.JSONEq(t, string(env.Response), string(decoded.Response))
}

func TestAttributeRoutingMetadata(t *testing.T) {
	c := NewAttributeCodec()
	msg, err := c.Encode(sampleEnvelope())
	assert.NoError(t, err)

	assert.Equal(t, "XYZ", msg.Attributes[AttrDeviceFlag])
	assert.Equal(t, "0123456789ABCDE", msg.Attributes[AttrDeviceSerial])
	assert.Equal(t, "heartbeat", msg.Attributes[AttrFunction])
	assert.Equal(t, "ref-42", msg.Attributes[AttrReferenceID])
}

// The body is authoritative: attributes that contradict it are ignored.
func TestAttributeBodyWinsOverAttributes(t *testing.T) {
	c := NewAttributeCodec()
	msg := Message{
		Payload: []byte(`{"device":{"flag":"XYZ","serialNumber":"1"},"function":"read","referenceId":"body-ref"}`),
		Attributes: map[string]string{
			AttrFunction:    "configuration",
			AttrReferenceID: "attr-ref",
		},
	}

	env, err := c.Decode(msg)
	assert.NoError(t, err)
	assert.Equal(t, models.FuncRead, env.Function)
	assert.Equal(t, "body-ref", env.ReferenceID)
}

func TestAttributeDecodeInvalidBody(t *testing.T) {
	c := NewAttributeCodec()
	_, err := c.Decode(Message{Payload: []byte("not json")})
	assert.True(t, errors.Is(err, ErrInvalidBody))
}
