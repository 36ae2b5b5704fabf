package app

import (
	"io"
	"time"

	"irkit/pkg/app/config"
	"irkit/pkg/infrared"
	"irkit/pkg/raspberry"
	"irkit/pkg/receiver"
	"irkit/pkg/serialir"

	"github.com/womat/debug"
)

// capture is a source of received edges.
type capture struct {
	// C receives the edges, it is closed by Close
	C     <-chan infrared.Edge
	close func() error
}

func (c *capture) Close() error {
	return c.close()
}

// openCapture opens the serial receiver if a device is configured,
// otherwise the gpio line of the receiver module.
func openCapture(c config.ReceiverConfig) (*capture, error) {
	if c.Serial != "" {
		r, err := serialir.Open(c.Serial, c.BaudRate)
		if err != nil {
			return nil, err
		}
		return &capture{C: r.C, close: r.Close}, nil
	}

	chip, err := raspberry.Open(c.Chip)
	if err != nil {
		return nil, err
	}

	line, err := chip.NewLine(c.Gpio, c.Bias)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}

	debug.InfoLog.Printf("reading ir receiver on %s line %d", c.Chip, c.Gpio)
	return &capture{
		C: receiver.FromEvents(line.C, c.ActiveLow),
		close: func() error {
			_ = line.Close()
			return chip.Close()
		},
	}, nil
}

// OpenReceiver opens the capture source of c and decodes its edges. The
// returned closer stops the capture, which ends the receiver.
func OpenReceiver(c config.ReceiverConfig) (*receiver.Receiver, io.Closer, error) {
	src, err := openCapture(c)
	if err != nil {
		return nil, nil, err
	}
	return receiver.New(src.C, c.IdleTimeout), src, nil
}

// openTransmitter opens the IR LED driver of c.
func openTransmitter(c config.TransmitterConfig) (Sender, error) {
	t, err := raspberry.OpenTransmitter(c.Gpio, c.Carrier)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// service publishes the decoded messages until the receiver is closed.
func (app *App) service() {
	for m := range app.receiver.C {
		if err := app.mqtt.Publish(m, time.Now()); err != nil {
			debug.ErrorLog.Printf("publish %v: %v", m, err)
		}
	}
}
