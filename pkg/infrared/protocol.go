// Package infrared encodes and decodes infrared remote-control waveforms.
//
// A waveform is a sequence of edges: marks (carrier on) and spaces (carrier off)
// with a duration in microseconds. Every supported protocol is described by a
// Descriptor; one generic encoder and one generic decoder serve all of them.
package infrared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownProtocol  = errors.New("infrared: unknown protocol")
	ErrProtocolMismatch = errors.New("infrared: protocol does not match session")
	ErrNoBitLength      = errors.New("infrared: descriptor has no valid bit length")
	ErrBitLength        = errors.New("infrared: invalid bit length")
	ErrRepeats          = errors.New("infrared: repeats out of range")
)

// Protocol identifies a wire protocol variant.
type Protocol int

const (
	Unknown Protocol = iota
	NEC
	NECext
	NEC42
	NEC42ext
	Samsung32
	SIRC
	SIRC15
	SIRC20
	RC5
	RC5X
	RC6
	RCA
	Pioneer
	Kaseikyo
)

var protocolNames = [...]string{
	Unknown:   "Unknown",
	NEC:       "NEC",
	NECext:    "NECext",
	NEC42:     "NEC42",
	NEC42ext:  "NEC42ext",
	Samsung32: "Samsung32",
	SIRC:      "SIRC",
	SIRC15:    "SIRC15",
	SIRC20:    "SIRC20",
	RC5:       "RC5",
	RC5X:      "RC5X",
	RC6:       "RC6",
	RCA:       "RCA",
	Pioneer:   "Pioneer",
	Kaseikyo:  "Kaseikyo",
}

// lookup holds the names accepted by ParseProtocol.
var lookup = map[string]Protocol{
	"nec":       NEC,
	"necext":    NECext,
	"kaseikyo":  Kaseikyo,
	"pioneer":   Pioneer,
	"rca":       RCA,
	"samsung32": Samsung32,
	"samsung":   Samsung32,
	"sirc":      SIRC,
	"sirc15":    SIRC15,
	"sirc20":    SIRC20,
	"rc5":       RC5,
	"rc6":       RC6,
}

func (p Protocol) String() string {
	if p < 0 || int(p) >= len(protocolNames) {
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
	return protocolNames[p]
}

// ParseProtocol looks up a protocol by its user facing name, ignoring case.
func ParseProtocol(name string) (Protocol, error) {
	if p, ok := lookup[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Besides the lookup names it accepts every name produced by String.
func (p *Protocol) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range protocolNames {
		if Protocol(i) != Unknown && strings.EqualFold(n, name) {
			*p = Protocol(i)
			return nil
		}
	}

	v, err := ParseProtocol(name)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Family returns the protocol family sharing one descriptor.
func (p Protocol) Family() Family {
	switch p {
	case NEC, NECext, NEC42, NEC42ext:
		return FamilyNEC
	case Samsung32:
		return FamilySamsung32
	case SIRC, SIRC15, SIRC20:
		return FamilySIRC
	case RC5, RC5X:
		return FamilyRC5
	case RC6:
		return FamilyRC6
	case RCA:
		return FamilyRCA
	case Pioneer:
		return FamilyPioneer
	case Kaseikyo:
		return FamilyKaseikyo
	default:
		return FamilyNone
	}
}

// Protocols returns all protocols an encoder can be created for.
func Protocols() []Protocol {
	l := make([]Protocol, 0, len(protocolNames)-1)
	for p := NEC; int(p) < len(protocolNames); p++ {
		l = append(l, p)
	}
	return l
}

// Message is a decoded or to be encoded remote-control command.
type Message struct {
	Protocol Protocol `json:"protocol"`
	Address  uint32   `json:"address"`
	Command  uint32   `json:"command"`
	Repeat   bool     `json:"repeat"`
}

func (m Message) String() string {
	s := fmt.Sprintf("%v address:0x%X command:0x%X", m.Protocol, m.Address, m.Command)
	if m.Repeat {
		s += " R"
	}
	return s
}

// Edge is one mark (Level true) or space of a waveform.
// A Duration of 0 is the flush sentinel of the decoder.
type Edge struct {
	Level    bool   `json:"level"`
	Duration uint32 `json:"duration"`
}

// Within reports whether x lies strictly inside reference ± delta.
func Within(x, reference, delta uint32) bool {
	return x+delta > reference && x < reference+delta
}
