package relay

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/KarpelesLab/pppoeclient/internal/events"
	"github.com/KarpelesLab/pppoeclient/internal/hdlc"
	"github.com/KarpelesLab/pppoeclient/internal/pppoe"
)

type fakeLink struct {
	sent  [][]byte
	inbox [][]byte
	pos   int
}

func (f *fakeLink) Recv(buf []byte) (int, error) {
	if f.pos >= len(f.inbox) {
		return 0, errors.New("fakeLink: inbox exhausted")
	}
	frame := f.inbox[f.pos]
	f.pos++
	return copy(buf, frame), nil
}

func (f *fakeLink) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, cp)
	return nil
}

func sessionFrame(t *testing.T, ac, local pppoe.MAC, sessionID uint16, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, 1500)
	n, err := pppoe.BuildSession(buf, ac, local, sessionID, payload)
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	return buf[:n]
}

// S4-style pass-through with a "buggy AC": the payload reaches the local
// endpoint HDLC-framed once, and the verbatim resend within the dup window
// is suppressed.
func TestACToLocalSuppressesDuplicates(t *testing.T) {
	ac := pppoe.MAC{0x02, 0, 0, 0, 0, 2}
	local := pppoe.MAC{0x02, 0, 0, 0, 0, 1}
	payload := []byte{0xc0, 0x21, 0x09, 0x01, 0x00, 0x04}

	frame := sessionFrame(t, ac, local, 0x10, payload)
	fl := &fakeLink{inbox: [][]byte{frame, frame}} // sent twice by a "buggy AC"

	var out bytes.Buffer
	id := Identity{LocalMAC: local, ACMAC: ac, SessionID: 0x10}

	err := ACToLocal(fl, &out, id, nil, DefaultDupFilterConfig())
	if err == nil {
		t.Fatal("expected error once inbox is exhausted")
	}

	// Only the first copy should have reached the local writer.
	dec, decErr := hdlc.Decode(out.Bytes(), hdlc.Mode{})
	if decErr != nil {
		t.Fatalf("Decode: %v", decErr)
	}
	if !bytes.Equal(dec, payload) {
		t.Errorf("decoded payload = % x, want % x", dec, payload)
	}
	if out.Len() == 0 {
		t.Fatal("expected some output from the first frame")
	}

	var enc hdlc.Encoder
	expectFirst := enc.Encode(nil, payload)
	if !bytes.Equal(out.Bytes(), expectFirst) {
		t.Errorf("output should contain exactly one encoded frame; got % x, want % x", out.Bytes(), expectFirst)
	}
}

// S5: frames from a different session ID or a different AC MAC are
// discarded without affecting the accepted stream.
func TestACToLocalFiltersBySessionAndSource(t *testing.T) {
	ac := pppoe.MAC{0x02, 0, 0, 0, 0, 2}
	other := pppoe.MAC{0x02, 0, 0, 0, 0, 9}
	local := pppoe.MAC{0x02, 0, 0, 0, 0, 1}

	wrongSession := sessionFrame(t, ac, local, 0x99, []byte{0xc0, 0x21})
	wrongSource := sessionFrame(t, other, local, 0x10, []byte{0xc0, 0x21})
	good := sessionFrame(t, ac, local, 0x10, []byte{0xc0, 0x21, 0x01})

	fl := &fakeLink{inbox: [][]byte{wrongSession, wrongSource, good}}

	var out bytes.Buffer
	var dropped, passed int
	bus := events.New()
	bus.OnRelay(func(ev events.RelayEvent) {
		if ev.Dropped {
			dropped++
		} else {
			passed++
		}
	})

	id := Identity{LocalMAC: local, ACMAC: ac, SessionID: 0x10}
	err := ACToLocal(fl, &out, id, bus, DefaultDupFilterConfig())
	if err == nil {
		t.Fatal("expected error once inbox is exhausted")
	}

	if passed != 1 {
		t.Errorf("passed = %d, want 1", passed)
	}
	// wrongSession and wrongSource are each dropped and reported as a drop
	// event.
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
}

// S6: LocalToAC round-trips an HDLC-framed PPP payload from pppd's stdout
// into a Session frame sent to the AC.
func TestLocalToACBuildsSessionFrame(t *testing.T) {
	local := pppoe.MAC{0x02, 0, 0, 0, 0, 1}
	ac := pppoe.MAC{0x02, 0, 0, 0, 0, 2}
	payload := []byte{0xc0, 0x21, 0x01, 0x01, 0x00, 0x04}

	var enc hdlc.Encoder
	stuffed := enc.Encode(nil, payload)

	fl := &fakeLink{}
	id := Identity{LocalMAC: local, ACMAC: ac, SessionID: 0x55}

	r := &onceThenErrReader{data: stuffed, errAfter: io.EOF}
	err := LocalToAC(fl, r, id, nil, hdlc.Mode{})
	if err == nil {
		t.Fatal("expected LocalToAC to eventually return the reader's fatal error")
	}

	if len(fl.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(fl.sent))
	}
	f, perr := pppoe.Parse(fl.sent[0])
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	if f.SessionID != 0x55 || f.Dst != ac || f.Src != local {
		t.Errorf("unexpected frame: session=0x%04x dst=%v src=%v", f.SessionID, f.Dst, f.Src)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("payload = % x, want % x", f.Payload, payload)
	}
}

// onceThenErrReader returns data once, then n=0 with errAfter on the next
// two reads, mirroring a pipe that delivered one frame and is now at EOF —
// the zero-length-read case LocalToAC must retry on without exiting — and
// then a fatal error.
type onceThenErrReader struct {
	data     []byte
	errAfter error
	done     bool
	reads    int
}

func (r *onceThenErrReader) Read(p []byte) (int, error) {
	r.reads++
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	if r.reads > 3 {
		// Stop the test's busy-retry loop with a real fatal error after a
		// few zero-length reads, so the test terminates.
		return 0, errors.New("onceThenErrReader: giving up")
	}
	return 0, r.errAfter
}
