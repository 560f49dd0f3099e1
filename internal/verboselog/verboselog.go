// Package verboselog implements the client's -L verbose log: one JSON
// record per discovery transition or relay decision, written with
// pjson so the format matches the rest of the KarpelesLab stack's
// structured-logging convention instead of the original's raw hex dump
// (print_hex in pppoe.c).
package verboselog

import (
	"io"
	"sync"

	"github.com/KarpelesLab/pjson"

	"github.com/KarpelesLab/pppoeclient/internal/events"
)

// Logger writes one JSON-lines record per event to an underlying writer.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

type record struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

func (l *Logger) write(kind string, data interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf, err := pjson.Marshal(record{Kind: kind, Data: data})
	if err != nil {
		return
	}
	l.w.Write(buf)
	l.w.Write([]byte("\n"))
}

// Attach subscribes the logger to every event on bus.
func (l *Logger) Attach(bus *events.Bus) {
	bus.OnDiscoveryTransition(func(ev events.DiscoveryTransition) {
		l.write("discovery", ev)
	})
	bus.OnRelay(func(ev events.RelayEvent) {
		l.write("relay", ev)
	})
}
