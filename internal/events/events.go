// Package events wires the client's lifecycle notifications (discovery
// state transitions, relay drop/pass decisions) through an emitter.Emitter,
// promoting it from an unused indirect dependency in the original proxy to
// the client's actual eventing backbone.
package events

import "github.com/KarpelesLab/emitter"

// Topic names used on the Bus.
const (
	TopicDiscovery = "discovery"
	TopicRelay     = "relay"
)

// DiscoveryTransition records one state-machine transition made by the
// discovery handshake (§4.4).
type DiscoveryTransition struct {
	From      string
	To        string
	SessionID uint16
	ACName    string
	Reason    string
}

// RelayEvent records one decision the session relay made about a frame
// crossing between the AC and the local PPP endpoint (§4.5, §4.6).
type RelayEvent struct {
	Direction string // "ac-to-local" or "local-to-ac"
	Dropped   bool
	Reason    string
	Bytes     int
}

// Bus is a thin, typed wrapper around an emitter.Emitter.
type Bus struct {
	e *emitter.Emitter
}

// New creates a Bus ready to use.
func New() *Bus {
	return &Bus{e: &emitter.Emitter{}}
}

// EmitDiscoveryTransition publishes a discovery state transition.
func (b *Bus) EmitDiscoveryTransition(ev DiscoveryTransition) {
	b.e.Emit(TopicDiscovery, ev)
}

// EmitRelay publishes a relay drop/pass decision.
func (b *Bus) EmitRelay(ev RelayEvent) {
	b.e.Emit(TopicRelay, ev)
}

// OnDiscoveryTransition registers fn to be called for every discovery
// transition emitted after this call.
func (b *Bus) OnDiscoveryTransition(fn func(DiscoveryTransition)) {
	b.e.On(TopicDiscovery, func(v interface{}) {
		if ev, ok := v.(DiscoveryTransition); ok {
			fn(ev)
		}
	})
}

// OnRelay registers fn to be called for every relay event emitted after
// this call.
func (b *Bus) OnRelay(fn func(RelayEvent)) {
	b.e.On(TopicRelay, func(v interface{}) {
		if ev, ok := v.(RelayEvent); ok {
			fn(ev)
		}
	})
}
