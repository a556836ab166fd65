package pwm

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	req, err := Decode([]byte{0x01, 0x03, 0x00, 0x64, 0x32, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := Request{Pin: 3, FrequencyHz: 100, DutyPercent: 50, PulseCount: 0}
	if req != want {
		t.Errorf("Expected %+v, got %+v", want, req)
	}
}

func TestDecodeBigEndian(t *testing.T) {
	req, err := Decode([]byte{OpConfigure, 0xFE, 0x12, 0x34, 0xC8, 0xAB, 0xCD})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.FrequencyHz != 0x1234 {
		t.Errorf("Expected frequency 0x1234, got 0x%04X", req.FrequencyHz)
	}
	if req.PulseCount != 0xABCD {
		t.Errorf("Expected pulse count 0xABCD, got 0x%04X", req.PulseCount)
	}
	if req.Pin != 0xFE {
		t.Errorf("Expected pin 254, got %d", req.Pin)
	}
	// Duty is not range checked
	if req.DutyPercent != 200 {
		t.Errorf("Expected duty 200, got %d", req.DutyPercent)
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrMalformedCommand},
		{"short", []byte{OpConfigure, 3, 0, 100, 50}, ErrMalformedCommand},
		{"one short", []byte{OpConfigure, 3, 0, 100, 50, 0}, ErrMalformedCommand},
		// Length is checked before the opcode
		{"short unknown opcode", []byte{0x42, 3}, ErrMalformedCommand},
		{"unknown opcode", []byte{0x02, 3, 0, 100, 50, 0, 0}, ErrUnknownOpcode},
		{"zero opcode", make([]byte, CommandLength), ErrUnknownOpcode},
	}

	for _, tc := range testCases {
		_, err := Decode(tc.data)
		if err != tc.err {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	data := []byte{OpConfigure, 7, 0x03, 0xE8, 25, 0x00, 0x0A, 0xFF, 0xFF}
	req, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := Request{Pin: 7, FrequencyHz: 1000, DutyPercent: 25, PulseCount: 10}
	if req != want {
		t.Errorf("Expected %+v, got %+v", want, req)
	}
}

func TestEncodeRequest(t *testing.T) {
	req := Request{Pin: 3, FrequencyHz: 100, DutyPercent: 50, PulseCount: 0x0102}
	got := EncodeRequest(req)
	want := []byte{OpConfigure, 3, 0x00, 0x64, 50, 0x01, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected % X, got % X", want, got)
	}

	// Frequency and pulse count must land in separate fields
	back, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if back != req {
		t.Errorf("Expected %+v after decode, got %+v", req, back)
	}
}

func TestEncodeReply(t *testing.T) {
	ok := EncodeReply(StatusOK)
	if !bytes.Equal(ok, []byte{ModuleID, StatusOK}) {
		t.Errorf("Unexpected OK reply % X", ok)
	}

	fail := EncodeReply(StatusFail)
	if !bytes.Equal(fail, []byte{ModuleID, StatusFail}) {
		t.Errorf("Unexpected fail reply % X", fail)
	}

	if bytes.Equal(ok, fail) {
		t.Error("OK and fail replies must differ")
	}

	if got := AppendReply([]byte{0xAA}, StatusOK); !bytes.Equal(got, []byte{0xAA, ModuleID, StatusOK}) {
		t.Errorf("Unexpected appended reply % X", got)
	}
}

func TestDecodeReply(t *testing.T) {
	r, ok := DecodeReply([]byte{ModuleID, StatusOK})
	if !ok {
		t.Fatal("DecodeReply rejected a valid reply")
	}
	if r.Status != StatusOK || r.Status.String() != "ok" {
		t.Errorf("Expected ok status, got %v", r.Status)
	}

	if _, ok := DecodeReply([]byte{ModuleID}); ok {
		t.Error("Expected short reply to be rejected")
	}
	if _, ok := DecodeReply([]byte{ModuleID + 1, StatusOK}); ok {
		t.Error("Expected reply from another module to be rejected")
	}
}
