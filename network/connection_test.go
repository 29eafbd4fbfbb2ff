package network

import (
	"bytes"
	"testing"
)

func TestEncodeDecodePacket(t *testing.T) {
	payload := []byte(`{"guess":42}`)
	raw := EncodePacket(MsgTypeGuess, payload)

	packet, err := DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeGuess {
		t.Errorf("Expected msg id %d, got %d", MsgTypeGuess, packet.MsgID)
	}
	if !bytes.Equal(packet.Data, payload) {
		t.Errorf("Payload mismatch: %q", packet.Data)
	}
	if packet.Length != uint16(len(payload)) {
		t.Errorf("Expected length %d, got %d", len(payload), packet.Length)
	}
}

func TestDecodePacket_TruncatedHeader(t *testing.T) {
	if _, err := DecodePacket([]byte{0, 1, 0}); err != ErrMalformedPacket {
		t.Errorf("Expected ErrMalformedPacket, got: %v", err)
	}
}

func TestDecodePacket_LengthExceedsPayload(t *testing.T) {
	raw := EncodePacket(MsgTypeGuess, []byte(`{"guess":42}`))
	if _, err := DecodePacket(raw[:len(raw)-3]); err != ErrMalformedPacket {
		t.Errorf("Expected ErrMalformedPacket, got: %v", err)
	}
}

func TestDecodePacket_EmptyPayload(t *testing.T) {
	packet, err := DecodePacket(EncodePacket(MsgTypeHeartbeat, nil))
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeHeartbeat || packet.Length != 0 || len(packet.Data) != 0 {
		t.Errorf("Unexpected packet: %+v", packet)
	}
}
