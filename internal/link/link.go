// Package link opens raw AF_PACKET sockets on an Ethernet interface for
// PPPoE Discovery or Session traffic. Grounded on NewDiscoveryHandler in the
// original proxy's discovery.go: same socket/bind sequence, generalized to
// serve both EtherTypes and to expose blocking Recv/Send instead of an
// internal goroutine loop, since callers here own their own read loops.
package link

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/KarpelesLab/pppoeclient/internal/pppoe"
)

// Handle is a bound raw Ethernet socket filtered to one EtherType.
type Handle struct {
	fd        int
	ifIndex   int
	etherType uint16
	localMAC  pppoe.MAC
}

// Open binds a raw socket on ifaceName that only sees frames of the given
// EtherType (pppoe.EtherTypeDiscovery or pppoe.EtherTypeSession).
func Open(ifaceName string, etherType uint16) (*Handle, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("link: interface %q not found: %w", ifaceName, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("link: interface %q has no Ethernet hardware address", ifaceName)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(etherType)))
	if err != nil {
		return nil, fmt.Errorf("link: socket: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(etherType),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("link: bind to %q: %w", ifaceName, err)
	}

	var mac pppoe.MAC
	copy(mac[:], iface.HardwareAddr)

	return &Handle{
		fd:        fd,
		ifIndex:   iface.Index,
		etherType: etherType,
		localMAC:  mac,
	}, nil
}

// LocalMAC returns the interface's own hardware address.
func (h *Handle) LocalMAC() pppoe.MAC {
	return h.localMAC
}

// Close releases the underlying socket.
func (h *Handle) Close() error {
	return unix.Close(h.fd)
}

// Recv reads one frame into buf, retrying on EINTR, and returns the number
// of bytes read. AF_PACKET sockets echo back our own transmissions and can
// return frames the interface is merely promiscuous-listening to, so two
// kinds of frames are silently skipped (§4.3): those we sent ourselves
// (source MAC == local MAC) and those addressed to neither us nor the
// broadcast address.
func (h *Handle) Recv(buf []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(h.fd, buf, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, fmt.Errorf("link: recvfrom: %w", err)
		}
		if n < 12 {
			continue
		}
		var dst, src pppoe.MAC
		copy(dst[:], buf[:6])
		copy(src[:], buf[6:12])
		if src == h.localMAC {
			continue
		}
		if dst != pppoe.Broadcast && dst != h.localMAC {
			continue
		}
		return n, nil
	}
}

// Send transmits frame as-is onto the bound interface.
func (h *Handle) Send(frame []byte) error {
	sa := unix.SockaddrLinklayer{
		Protocol: htons(h.etherType),
		Ifindex:  h.ifIndex,
	}
	if err := unix.Sendto(h.fd, frame, 0, &sa); err != nil {
		return fmt.Errorf("link: sendto: %w", err)
	}
	return nil
}
