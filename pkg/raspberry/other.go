//go:build !linux
// +build !linux

package raspberry

import (
	"irkit/pkg/infrared"
	"irkit/pkg/port"
)

type Chip struct{}

type Line struct {
	C chan port.Event
}

// Open fails, gpio character devices exist on linux only.
func Open(string) (*Chip, error) {
	return nil, ErrNotSupported
}

func (c *Chip) NewLine(int, string) (*Line, error) {
	return nil, ErrNotSupported
}

func (c *Chip) Close() error {
	return nil
}

func (l *Line) Close() error {
	return nil
}

type Transmitter struct{}

func OpenTransmitter(int, uint32) (*Transmitter, error) {
	return nil, ErrNotSupported
}

func (t *Transmitter) Send(infrared.Signal) error {
	return ErrNotSupported
}

func (t *Transmitter) Close() error {
	return nil
}
