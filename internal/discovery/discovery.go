// Package discovery drives the PPPoE Discovery handshake: PADI, PADO,
// PADR, PADS (§4.4). Grounded on main()'s discovery loop in the original
// pppoe.c, replacing its blocking while/continue polling with explicit
// state transitions and error returns.
package discovery

import (
	"errors"
	"fmt"

	"github.com/KarpelesLab/pppoeclient/internal/events"
	"github.com/KarpelesLab/pppoeclient/internal/pppoe"
)

// Link is the subset of *link.Handle the discovery handshake needs. Taking
// an interface keeps the state machine testable without a real socket.
type Link interface {
	LocalMAC() pppoe.MAC
	Recv(buf []byte) (int, error)
	Send(frame []byte) error
}

// ErrTerminated is returned when the AC sends a PADT before the handshake
// completes (§4.4 "early termination"). The caller should treat this as a
// clean shutdown, not a failure.
var ErrTerminated = errors.New("discovery: terminated by AC before session established")

// Result holds everything the session relay needs once discovery succeeds.
type Result struct {
	ACMAC     pppoe.MAC
	SessionID uint16
	ACName    string
}

const recvBufSize = 2048

// Run performs the full PADI→PADO→PADR→PADS handshake over link and returns
// the resulting session identity. serviceName is sent in every Discovery
// request's Service-Name tag (possibly empty, matching a tag-less request
// for "any service").
func Run(link Link, serviceName string, bus *events.Bus) (Result, error) {
	src := link.LocalMAC()
	buf := make([]byte, recvBufSize)

	emit := func(from, to string, sessionID uint16, acName, reason string) {
		if bus == nil {
			return
		}
		bus.EmitDiscoveryTransition(events.DiscoveryTransition{
			From: from, To: to, SessionID: sessionID, ACName: acName, Reason: reason,
		})
	}

	emit("", "INIT", 0, "", "starting discovery")

	n, err := pppoe.BuildPADI(buf, src, serviceName)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: build PADI: %w", err)
	}
	if err := link.Send(buf[:n]); err != nil {
		return Result{}, fmt.Errorf("discovery: send PADI: %w", err)
	}
	emit("INIT", "WAIT_PADO", 0, "", "PADI sent")

	acMAC, acName, err := waitForPADO(link, buf, func(c pppoe.Code) {
		emit("WAIT_PADO", "WAIT_PADO", 0, "", "ignored unexpected "+c.String())
	})
	if err != nil {
		emit("WAIT_PADO", "FAILED", 0, "", err.Error())
		return Result{}, err
	}
	emit("WAIT_PADO", "WAIT_PADS", 0, acName, "PADO received")

	rn, err := pppoe.BuildPADR(buf, src, acMAC, serviceName, true)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: build PADR: %w", err)
	}
	if err := link.Send(buf[:rn]); err != nil {
		return Result{}, fmt.Errorf("discovery: send PADR: %w", err)
	}

	sessionID, terminated, err := waitForPADS(link, buf, acMAC, func(c pppoe.Code) {
		emit("WAIT_PADS", "WAIT_PADS", 0, acName, "ignored unexpected "+c.String())
	})
	if err != nil {
		emit("WAIT_PADS", "FAILED", 0, acName, err.Error())
		return Result{}, err
	}
	if terminated {
		emit("WAIT_PADS", "TERMINATED", 0, acName, "PADT received during WAIT_PADS")
		return Result{}, ErrTerminated
	}

	emit("WAIT_PADS", "RUN", sessionID, acName, "PADS received")
	return Result{ACMAC: acMAC, SessionID: sessionID, ACName: acName}, nil
}

// waitForPADO reads Discovery frames until a PADO (success) or a PADT
// (treated as failure at this stage, since no session was ever offered).
// Any other code is discarded and reported through ignored, which the
// caller turns into an event, mirroring the original's "unexpected packet"
// diagnostic.
func waitForPADO(link Link, buf []byte, ignored func(pppoe.Code)) (acMAC pppoe.MAC, acName string, err error) {
	for {
		n, err := link.Recv(buf)
		if err != nil {
			return pppoe.MAC{}, "", fmt.Errorf("discovery: recv: %w", err)
		}
		f, err := pppoe.Parse(buf[:n])
		if err != nil || f.EtherType != pppoe.EtherTypeDiscovery {
			continue
		}
		switch f.Code {
		case pppoe.CodePADT:
			return pppoe.MAC{}, "", fmt.Errorf("discovery: received PADT while waiting for PADO")
		case pppoe.CodePADO:
			name := ""
			if tag, ok, _ := f.Tag(pppoe.TagACName); ok {
				name = string(tag.Value)
			}
			return f.Src, name, nil
		default:
			ignored(f.Code)
			continue
		}
	}
}

// waitForPADS reads Discovery frames from acMAC until a PADS (success,
// returns sessionID) or a PADT (clean early termination, terminated=true).
// Frames from other sources are skipped silently; any other code from acMAC
// is discarded and reported through ignored.
func waitForPADS(link Link, buf []byte, acMAC pppoe.MAC, ignored func(pppoe.Code)) (sessionID uint16, terminated bool, err error) {
	for {
		n, err := link.Recv(buf)
		if err != nil {
			return 0, false, fmt.Errorf("discovery: recv: %w", err)
		}
		f, err := pppoe.Parse(buf[:n])
		if err != nil || f.EtherType != pppoe.EtherTypeDiscovery {
			continue
		}
		if f.Src != acMAC {
			continue
		}
		switch f.Code {
		case pppoe.CodePADS:
			return f.SessionID, false, nil
		case pppoe.CodePADT:
			return 0, true, nil
		default:
			ignored(f.Code)
			continue
		}
	}
}
