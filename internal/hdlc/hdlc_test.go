package hdlc

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var enc Encoder
	payload := []byte{0xc0, 0x21, 0x01, 0x01, 0x00, 0x04}

	frame := enc.Encode(nil, payload)
	if frame[0] != frameFlag {
		t.Fatalf("first frame should start with FLAG, got 0x%02x", frame[0])
	}
	if frame[len(frame)-1] != frameFlag {
		t.Fatalf("frame should end with FLAG, got 0x%02x", frame[len(frame)-1])
	}

	got, err := Decode(frame, Mode{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = % x, want % x", got, payload)
	}
}

// TestEncodeOnlyFirstFrameGetsLeadingFlag mirrors encode_ppp's static "first"
// flag: the second and later frames from the same Encoder omit the leading
// FLAG, relying on the previous frame's trailing FLAG.
func TestEncodeOnlyFirstFrameGetsLeadingFlag(t *testing.T) {
	var enc Encoder
	payload := []byte{0x00, 0x21, 0xff}

	first := enc.Encode(nil, payload)
	second := enc.Encode(nil, payload)

	if first[0] != frameFlag {
		t.Errorf("first frame should start with FLAG")
	}
	if second[0] == frameFlag {
		t.Errorf("second frame should not start with FLAG, got 0x%02x", second[0])
	}

	// Concatenating the two streams and decoding the frame that starts at
	// the shared FLAG boundary must still recover the second payload.
	stream := append(append([]byte{}, first...), second...)
	boundary := len(first) - 1 // the trailing FLAG of `first` is the leading FLAG of `second`
	got, err := Decode(stream[boundary:], Mode{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = % x, want % x", got, payload)
	}
}

func TestEncodeEscapesControlAndSpecialBytes(t *testing.T) {
	var enc Encoder
	payload := []byte{frameFlag, frameEsc, 0x01, 0x7f}
	frame := enc.Encode(nil, payload)

	// None of the escaped special bytes may appear unescaped in the body
	// (between the leading and trailing FLAG).
	body := frame[1 : len(frame)-1]
	for i := 0; i < len(body); i++ {
		if body[i] == frameEsc {
			i++
			continue
		}
		if body[i] == frameFlag {
			t.Errorf("unescaped FLAG byte found in frame body at %d", i)
		}
	}

	got, err := Decode(frame, Mode{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = % x, want % x", got, payload)
	}
}

// TestDecodeDoesNotVerifyFCS mirrors create_sess in the original source,
// which strips the trailing two FCS octets with a bare "ignore fcs" and
// never recomputes pppfcs16 on the way in. Decode must do the same: a
// corrupted FCS trailer must not cause the payload to be rejected.
func TestDecodeDoesNotVerifyFCS(t *testing.T) {
	var enc Encoder
	payload := []byte{0xc0, 0x21}
	frame := enc.Encode(nil, payload)
	frame[len(frame)-2] ^= 0xff // corrupt a stuffed trailer byte

	got, err := Decode(frame, Mode{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = % x, want % x", got, payload)
	}
}

func TestDecodeInvalidLeadWithoutTolerance(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	if _, err := Decode(buf, Mode{}); err != ErrInvalidLead {
		t.Errorf("Decode: err = %v, want ErrInvalidLead", err)
	}
}

func TestDecodeSearchForFlag(t *testing.T) {
	var enc Encoder
	payload := []byte{0x00, 0x21, 0xaa}
	frame := enc.Encode(nil, payload)

	garbage := append([]byte{0x01, 0x02, 0x03}, frame...)
	got, err := Decode(garbage, Mode{SearchForFlag: true})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Decode = % x, want % x", got, payload)
	}
}

// TestFCSResidual checks property 2 directly: running the FCS over
// ADDR||CTL||payload||transmitted_FCS always yields the 0xF0B8 residual,
// independent of the HDLC byte-stuffing layer.
func TestFCSResidual(t *testing.T) {
	for _, payload := range [][]byte{
		{},
		{0x00},
		{0xc0, 0x21, 0x01, 0x01, 0x00, 0x04},
		bytes.Repeat([]byte{0xAB}, 64),
	} {
		header := [2]byte{frameAddr, frameCtl}
		fcs := updateFCS(initFCS16, header[:])
		fcs = updateFCS(fcs, payload) ^ 0xffff
		tail := [2]byte{byte(fcs & 0xff), byte(fcs >> 8)}

		residual := updateFCS(initFCS16, header[:])
		residual = updateFCS(residual, payload)
		residual = updateFCS(residual, tail[:])

		if residual != goodFCS16 {
			t.Errorf("payload % x: residual = 0x%04x, want 0x%04x", payload, residual, goodFCS16)
		}
	}
}

func TestDecodeAlwaysForward(t *testing.T) {
	// AlwaysForward decodes from offset 0 even though the leading byte is
	// neither FLAG nor ADDR, mirroring opt_fwd's unconditional path.
	buf := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	if _, err := Decode(buf, Mode{}); err != ErrInvalidLead {
		t.Fatalf("sanity check: Decode without tolerance = %v, want ErrInvalidLead", err)
	}

	// AlwaysForward must not reject on the leading-byte check; whatever
	// comes out (garbage in this case) is the caller's problem, not ours.
	if _, err := Decode(buf, Mode{AlwaysForward: true}); err == ErrInvalidLead {
		t.Errorf("Decode with AlwaysForward still returned ErrInvalidLead")
	}
}
