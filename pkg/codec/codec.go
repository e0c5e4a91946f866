// Package codec owns the two historical wire encodings of the MASS
// protocol. Both are implementations of the same Codec contract and are
// selected once at construction time, never branched on in handlers.
package codec

import (
	"errors"

	"masssim/pkg/models"
)

// Message is the transport-neutral unit the codecs produce and consume:
// a payload plus optional transport-level key/value attributes (MQTT v5
// user properties in practice).
type Message struct {
	Payload    []byte
	Attributes map[string]string
}

// Codec turns envelopes into wire messages and back.
// Decode(Encode(e)) must be structurally equal to e for any well-formed
// envelope e.
type Codec interface {
	Encode(env models.Envelope) (Message, error)
	Decode(msg Message) (models.Envelope, error)
}

// Framing and decode failures. All of them mean "log and drop": a
// malformed inbound message must never crash the simulator, and without
// a recoverable referenceId no ACK is possible either.
var (
	ErrMissingPrefix    = errors.New("codec: framed message does not start with '#'")
	ErrMissingSeparator = errors.New("codec: framed message has no '$' separator")
	ErrBadLengthField   = errors.New("codec: framed length field is not an integer")
	ErrInvalidBody      = errors.New("codec: invalid JSON body")
)

// Attribute keys of the attribute-routed variant. The duplicated values
// are advisory routing hints; the JSON body stays authoritative.
const (
	AttrDeviceFlag   = "device.flag"
	AttrDeviceSerial = "device.serialNumber"
	AttrFunction     = "function"
	AttrReferenceID  = "referenceId"
)
