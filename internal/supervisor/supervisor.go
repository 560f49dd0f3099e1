// Package supervisor owns process lifetime: it opens the Discovery and
// Session links, drives the handshake, launches the two relay directions,
// and watches for a mid-session PADT — replacing main()'s
// fork/SIGCHLD/waitpid loop in the original pppoe.c with goroutines and a
// single select, and graceful shutdown via shutdown.SetupSignals instead of
// signal(SIGINT, sigint).
package supervisor

import (
	"fmt"
	"io"
	"log"

	"github.com/KarpelesLab/shutdown"

	"github.com/KarpelesLab/pppoeclient/internal/discovery"
	"github.com/KarpelesLab/pppoeclient/internal/events"
	"github.com/KarpelesLab/pppoeclient/internal/hdlc"
	"github.com/KarpelesLab/pppoeclient/internal/link"
	"github.com/KarpelesLab/pppoeclient/internal/pppoe"
	"github.com/KarpelesLab/pppoeclient/internal/relay"
)

// Config bundles everything Run needs to bring up one PPPoE session.
type Config struct {
	Interface   string
	ServiceName string
	HDLCMode    hdlc.Mode
	DupFilter   relay.DupFilterConfig
	Bus         *events.Bus
}

// Run performs discovery, relays traffic between the AC and local, and
// returns the process exit code to use (§7): 0 when the AC sends a PADT
// before the session is established, 1 on a mid-session PADT, a
// signal-driven shutdown, or any I/O or protocol failure.
func Run(cfg Config, local io.ReadWriter) int {
	shutdown.SetupSignals()
	defer shutdown.Wait()

	discLink, err := link.Open(cfg.Interface, pppoe.EtherTypeDiscovery)
	if err != nil {
		log.Printf("pppoeclient: %v", err)
		return 1
	}
	defer discLink.Close()

	res, err := discovery.Run(discLink, cfg.ServiceName, cfg.Bus)
	if err != nil {
		if err == discovery.ErrTerminated {
			log.Printf("pppoeclient: AC terminated before session established")
			return 0
		}
		log.Printf("pppoeclient: discovery failed: %v", err)
		return 1
	}
	log.Printf("pppoeclient: session 0x%04x established with %s (%s)", res.SessionID, res.ACMAC, res.ACName)

	sessLink, err := link.Open(cfg.Interface, pppoe.EtherTypeSession)
	if err != nil {
		log.Printf("pppoeclient: %v", err)
		return 1
	}
	defer sessLink.Close()

	id := relay.Identity{LocalMAC: discLink.LocalMAC(), ACMAC: res.ACMAC, SessionID: res.SessionID}

	errCh := make(chan error, 3)
	shutdownCh := make(chan struct{})
	shutdown.Defer(func() { close(shutdownCh) })

	go func() { errCh <- relay.ACToLocal(sessLink, local, id, cfg.Bus, cfg.DupFilter) }()
	go func() { errCh <- relay.LocalToAC(sessLink, local, id, cfg.Bus, cfg.HDLCMode) }()
	go func() { errCh <- watchForTermination(discLink, res.ACMAC) }()

	select {
	case err := <-errCh:
		if err == errTerminated {
			// A PADT arriving mid-session is a protocol-terminate during
			// an established session, not during discovery (§7): exit 1,
			// matching cleanup_and_exit(1) in the original's main() loop.
			log.Printf("pppoeclient: AC terminated the session")
			return 1
		}
		log.Printf("pppoeclient: %v", err)
		return 1
	case <-shutdownCh:
		return 1
	}
}

var errTerminated = fmt.Errorf("supervisor: session terminated by AC")

// watchForTermination keeps reading Discovery frames on discLink for the
// duration of the session and returns errTerminated if the AC sends a
// PADT, mirroring main()'s post-fork read_packet loop that watches for
// CODE_PADT on disc_sock.
func watchForTermination(discLink *link.Handle, acMAC pppoe.MAC) error {
	buf := make([]byte, 2048)
	for {
		n, err := discLink.Recv(buf)
		if err != nil {
			return fmt.Errorf("supervisor: discovery watch: %w", err)
		}
		f, err := pppoe.Parse(buf[:n])
		if err != nil || f.EtherType != pppoe.EtherTypeDiscovery {
			continue
		}
		if f.Code == pppoe.CodePADT && f.Src == acMAC {
			return errTerminated
		}
	}
}
