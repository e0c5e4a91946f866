package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"masssim/pkg/models"
)

// FramedCodec implements the legacy framed-text encoding:
// "#" + decimal body length + "$" + compact JSON body.
type FramedCodec struct{}

// NewFramedCodec creates the legacy framed-text codec.
func NewFramedCodec() *FramedCodec { return &FramedCodec{} }

// Encode wraps the envelope's compact JSON form in the length-prefixed
// frame. No attributes travel in this variant.
func (c *FramedCodec) Encode(env models.Envelope) (Message, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return Message{}, fmt.Errorf("codec: marshal envelope: %w", err)
	}

	framed := make([]byte, 0, len(body)+12)
	framed = append(framed, '#')
	framed = strconv.AppendInt(framed, int64(len(body)), 10)
	framed = append(framed, '$')
	framed = append(framed, body...)

	return Message{Payload: framed}, nil
}

// Decode parses a framed message. A declared length that disagrees with
// the actual body length is a warning, not a failure: peers in the field
// are known to miscount and the body is still usable.
func (c *FramedCodec) Decode(msg Message) (models.Envelope, error) {
	raw := msg.Payload
	if len(raw) == 0 || raw[0] != '#' {
		return models.Envelope{}, ErrMissingPrefix
	}

	sep := bytes.IndexByte(raw, '$')
	if sep < 0 {
		return models.Envelope{}, ErrMissingSeparator
	}

	declared, err := strconv.Atoi(string(raw[1:sep]))
	if err != nil {
		return models.Envelope{}, fmt.Errorf("%w: %q", ErrBadLengthField, raw[1:sep])
	}

	body := raw[sep+1:]
	if declared != len(body) {
		slog.Warn("Framed message length mismatch",
			"component", "FramedCodec",
			"declared", declared,
			"actual", len(body),
		)
	}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.Envelope{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return env, nil
}
