// Package esi models latency-insensitive channel signaling around the core
// value types: a channel wraps an inner data type and adds ready/valid
// handshaking at module boundaries.
package esi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jatincse/circt/internal/rtl"
)

// Channel is a data type carried with handshake signaling. It wraps a core
// type rather than extending the core type set: channels appear only at
// interface boundaries, never as operand types inside a body graph.
type Channel struct {
	Inner rtl.Type
}

func (c Channel) String() string { return fmt.Sprintf("channel<%s>", c.Inner) }

// Wrap returns the channel carrying inner.
func Wrap(inner rtl.Type) Channel { return Channel{Inner: inner} }

// ParseChannel reads a channel<T> spelling, interning the inner type through
// tc. Only integer inner types are supported at boundaries.
func ParseChannel(tc *rtl.TypeInterner, s string) (Channel, error) {
	body, ok := strings.CutPrefix(s, "channel<")
	if !ok || !strings.HasSuffix(body, ">") {
		return Channel{}, fmt.Errorf("not a channel type: %q", s)
	}
	inner := strings.TrimSuffix(body, ">")
	digits, ok := strings.CutPrefix(inner, "i")
	if !ok {
		return Channel{}, fmt.Errorf("unsupported channel payload %q", inner)
	}
	width, err := strconv.Atoi(digits)
	if err != nil || width < 1 {
		return Channel{}, fmt.Errorf("unsupported channel payload %q", inner)
	}
	return Channel{Inner: tc.Int(width)}, nil
}

// WrapPorts lifts a module's data ports into channel signaling, as seen by a
// latency-insensitive consumer. Inout ports have no channel form and pass
// through untouched.
func WrapPorts(ports []rtl.Port) []BoundaryPort {
	out := make([]BoundaryPort, 0, len(ports))
	for _, p := range ports {
		bp := BoundaryPort{Port: p}
		if p.Dir != rtl.InOut {
			bp.Channel = Wrap(p.Type)
			bp.Wrapped = true
		}
		out = append(out, bp)
	}
	return out
}

// BoundaryPort is a module port as exposed across a channel boundary.
type BoundaryPort struct {
	Port    rtl.Port
	Channel Channel
	Wrapped bool
}

func (b BoundaryPort) String() string {
	if !b.Wrapped {
		return fmt.Sprintf("%s: %s", b.Port.Name, b.Port.Type)
	}
	return fmt.Sprintf("%s: %s", b.Port.Name, b.Channel)
}
