// Command pppoeclient is a user-space PPPoE client: it performs the
// Discovery handshake on an Ethernet interface and relays the resulting
// session to a local PPP implementation (e.g. pppd) over stdin/stdout.
//
// Flags follow the original pppoe tool's getopt layout (-I, -L, -V, -E, -F),
// generalized from C's getopt to the standard flag package.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/KarpelesLab/goupd"

	"github.com/KarpelesLab/pppoeclient/internal/events"
	"github.com/KarpelesLab/pppoeclient/internal/hdlc"
	"github.com/KarpelesLab/pppoeclient/internal/relay"
	"github.com/KarpelesLab/pppoeclient/internal/supervisor"
	"github.com/KarpelesLab/pppoeclient/internal/verboselog"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		iface       = flag.String("I", "eth0", "Ethernet interface to bind to")
		logPath     = flag.String("L", "", "verbose log file (JSON-lines)")
		errPath     = flag.String("E", "", "error log file (defaults to stderr)")
		showVersion = flag.Bool("V", false, "print version and exit")
		forwardMode = flag.String("F", "", "invalid-frame tolerance: 'a' (always forward) or 's' (search for flag)")
		serviceName = flag.String("service", "", "PPPoE Service-Name to request")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pppoeclient version %s (%s)\n", goupd.GIT_TAG, goupd.DATE_TAG)
		return 0
	}

	if *errPath != "" {
		f, err := os.OpenFile(*errPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pppoeclient: opening error log: %v\n", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(f)
	}

	bus := events.New()

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			log.Printf("pppoeclient: opening verbose log: %v", err)
			return 1
		}
		defer f.Close()
		verboselog.New(f).Attach(bus)
	}

	mode := hdlc.Mode{}
	switch *forwardMode {
	case "a":
		mode.AlwaysForward = true
	case "s":
		mode.SearchForFlag = true
	case "":
		// strict mode, matching neither opt_fwd nor opt_fwd_search
	default:
		log.Printf("pppoeclient: invalid -F option %q", *forwardMode)
		return 1
	}

	cfg := supervisor.Config{
		Interface:   *iface,
		ServiceName: *serviceName,
		HDLCMode:    mode,
		DupFilter:   relay.DefaultDupFilterConfig(),
		Bus:         bus,
	}

	return supervisor.Run(cfg, stdioReadWriter{})
}

// stdioReadWriter adapts os.Stdin/os.Stdout to the io.ReadWriter the
// supervisor expects to speak to the local PPP endpoint, matching the
// original's use of fd 0/1 directly in pppd_handler/encode_ppp.
type stdioReadWriter struct{}

func (stdioReadWriter) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
