// Package raspberry captures infrared edges from a gpio line and sends
// signals over a gpio pin driving an IR LED.
package raspberry

import (
	"errors"
	"time"

	"irkit/pkg/infrared"

	"github.com/womat/debug"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrNotSupported = errors.New("gpio is not supported on this platform")
)

// eventBuffer is the number of line events buffered for a slow consumer.
const eventBuffer = 512

// carrierTolerance is the accepted difference between the carrier of a
// signal and the carrier of the LED driver in Hz.
const carrierTolerance = 1000

// spinLimit is the remaining time below which waiting busy loops instead of sleeping.
const spinLimit = 2 * time.Millisecond

// clock functions, replaced in tests
var (
	now   = time.Now
	sleep = time.Sleep
)

// output switches the IR LED driver.
type output interface {
	High()
	Low()
}

// matchCarrier reports whether a driver modulating with carrier Hz can send s.
// A zero frequency on either side is unknown and always matches.
func matchCarrier(carrier uint32, s infrared.Signal) bool {
	if carrier == 0 || s.Frequency == 0 {
		return true
	}
	d := int64(s.Frequency) - int64(carrier)
	return d >= -carrierTolerance && d <= carrierTolerance
}

// transmit plays the edges of s on out. The modulation is done by the LED
// driver with its fixed carrier, the frequency and duty cycle of s are only
// checked against it.
func transmit(out output, carrier uint32, s infrared.Signal) {
	if !matchCarrier(carrier, s) {
		debug.DebugLog.Printf("signal carrier %d Hz (duty cycle %.2f) differs from the driver carrier %d Hz",
			s.Frequency, s.DutyCycle, carrier)
	}

	start := now()
	var at time.Duration

	for _, e := range s.Edges {
		if e.Level {
			out.High()
		} else {
			out.Low()
		}

		at += time.Duration(e.Duration) * time.Microsecond
		waitUntil(start.Add(at))
	}

	out.Low()
}

func waitUntil(deadline time.Time) {
	for {
		d := deadline.Sub(now())
		switch {
		case d <= 0:
			return
		case d > spinLimit:
			sleep(d - spinLimit)
		}
	}
}
