// Package relay moves PPP frames between the AC's Session socket and the
// local PPP endpoint (pppd's stdin/stdout) once discovery has established a
// session (§4.5, §4.6). Grounded on sess_handler and pppd_handler in the
// original pppoe.c.
package relay

import (
	"fmt"
	"io"

	"github.com/KarpelesLab/pppoeclient/internal/events"
	"github.com/KarpelesLab/pppoeclient/internal/hdlc"
	"github.com/KarpelesLab/pppoeclient/internal/pppoe"
)

// Link is the subset of *link.Handle the relay needs for one direction.
type Link interface {
	Recv(buf []byte) (int, error)
	Send(frame []byte) error
}

// Identity is the session established by discovery, needed to validate and
// build Session frames.
type Identity struct {
	LocalMAC  pppoe.MAC
	ACMAC     pppoe.MAC
	SessionID uint16
}

// DupFilterConfig configures the sliding-window duplicate suppression for
// ACToLocal, grounded on the original's BUGGY_AC workaround: some access
// concentrators resend the same Session frame, and pppd must never see the
// duplicate.
type DupFilterConfig struct {
	Enabled bool
	Count   int // number of recent frames remembered (DUP_COUNT)
	Length  int // octets compared per frame (DUP_LENGTH)
}

// DefaultDupFilterConfig returns the original's constants: a 10-frame
// window comparing the first 20 octets of each frame.
func DefaultDupFilterConfig() DupFilterConfig {
	return DupFilterConfig{Enabled: true, Count: 10, Length: 20}
}

// dupFilter is a fixed-size ring of recently seen frame prefixes.
type dupFilter struct {
	cfg     DupFilterConfig
	history [][]byte
	next    int
}

func newDupFilter(cfg DupFilterConfig) *dupFilter {
	return &dupFilter{cfg: cfg, history: make([][]byte, cfg.Count)}
}

func (d *dupFilter) prefix(frame []byte) []byte {
	if len(frame) < d.cfg.Length {
		return frame
	}
	return frame[:d.cfg.Length]
}

// seen reports whether frame matches an entry already in the window, and
// records it regardless (mirroring the original: the slot is always
// overwritten after the check, whether or not a match was found).
func (d *dupFilter) seen(frame []byte) bool {
	p := d.prefix(frame)
	dup := false
	for _, h := range d.history {
		if h != nil && string(h) == string(p) {
			dup = true
			break
		}
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	d.history[d.next] = cp
	d.next = (d.next + 1) % d.cfg.Count
	return dup
}

func emitRelay(bus *events.Bus, direction string, dropped bool, reason string, n int) {
	if bus == nil {
		return
	}
	bus.EmitRelay(events.RelayEvent{Direction: direction, Dropped: dropped, Reason: reason, Bytes: n})
}

const recvBufSize = 4096

// ACToLocal reads Session frames from link, validates them against id,
// filters AC-side duplicates per dup, and writes the unwrapped PPP payload
// (HDLC-framed) to local. It runs until link.Recv returns an error.
func ACToLocal(link Link, local io.Writer, id Identity, bus *events.Bus, dup DupFilterConfig) error {
	buf := make([]byte, recvBufSize)
	var enc hdlc.Encoder
	var filter *dupFilter
	if dup.Enabled {
		filter = newDupFilter(dup)
	}

	for {
		n, err := link.Recv(buf)
		if err != nil {
			return fmt.Errorf("relay: ac recv: %w", err)
		}
		frame := buf[:n]

		f, err := pppoe.Parse(frame)
		if err != nil {
			emitRelay(bus, "ac-to-local", true, "unparseable frame", n)
			continue
		}
		if f.Src != id.ACMAC {
			emitRelay(bus, "ac-to-local", true, "not from our AC", n)
			continue
		}
		if f.SessionID != id.SessionID {
			emitRelay(bus, "ac-to-local", true, "session mismatch", n)
			continue
		}
		if f.EtherType != pppoe.EtherTypeSession {
			emitRelay(bus, "ac-to-local", true, "invalid session ethertype", n)
			continue
		}
		if f.Code != pppoe.CodeSession {
			emitRelay(bus, "ac-to-local", true, "invalid session code", n)
			continue
		}

		if filter != nil && filter.seen(frame) {
			emitRelay(bus, "ac-to-local", true, "duplicate from AC", n)
			continue
		}

		out := enc.Encode(nil, f.Payload)
		if _, err := local.Write(out); err != nil {
			return fmt.Errorf("relay: write to local endpoint: %w", err)
		}
		emitRelay(bus, "ac-to-local", false, "", len(f.Payload))
	}
}

// LocalToAC reads HDLC-framed PPP output from local (pppd's stdout),
// unstuffs it, and sends it to the AC as a Session frame. It runs until
// local.Read returns a non-EOF error.
//
// A zero-length read is treated as "try again," matching pppd_handler's
// `if (len == 0) continue;` — the original's read(2) convention for "no
// data right now" rather than end-of-stream, which does not map cleanly
// onto Go's io.Reader EOF-via-error convention (see SPEC_FULL.md §9).
func LocalToAC(link Link, local io.Reader, id Identity, bus *events.Bus, mode hdlc.Mode) error {
	buf := make([]byte, recvBufSize)
	out := make([]byte, recvBufSize)

	for {
		n, err := local.Read(buf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return fmt.Errorf("relay: read from local endpoint: %w", err)
			}
			continue
		}

		payload, decErr := hdlc.Decode(buf[:n], mode)
		if decErr != nil {
			emitRelay(bus, "local-to-ac", true, decErr.Error(), n)
			continue
		}

		sz, buildErr := pppoe.BuildSession(out, id.LocalMAC, id.ACMAC, id.SessionID, payload)
		if buildErr != nil {
			emitRelay(bus, "local-to-ac", true, buildErr.Error(), n)
			continue
		}
		if sendErr := link.Send(out[:sz]); sendErr != nil {
			return fmt.Errorf("relay: send to AC: %w", sendErr)
		}
		emitRelay(bus, "local-to-ac", false, "", len(payload))

		if err != nil && err != io.EOF {
			return fmt.Errorf("relay: read from local endpoint: %w", err)
		}
	}
}
