// Package serialir reads infrared edges from a serial IR receiver and
// converts edges from and to their text form.
//
// Receivers print one frame per line as signed durations in µs, positive for
// marks and negative for spaces, e.g.
//
//	+9000 -4500 +560 -560 +560 -1690 ... +560
//
// A blank line or a single 0 marks the end of a signal.
package serialir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"irkit/pkg/infrared"

	"github.com/womat/debug"
	"go.bug.st/serial"
)

var (
	ErrInvalidTiming = errors.New("serialir: invalid timing")
	ErrLineTooLong   = errors.New("serialir: line too long")
)

// MaxLine is the longest accepted line in bytes.
const MaxLine = 16 * 1024

// flush is the edge ending a signal.
var flush = infrared.Edge{}

// ParseLine parses the edges of one line. A blank line or a single 0 returns
// the flush edge.
func ParseLine(line string) ([]infrared.Edge, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '\r'
	})
	if len(fields) == 0 || len(fields) == 1 && fields[0] == "0" {
		return []infrared.Edge{flush}, nil
	}

	edges := make([]infrared.Edge, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil || v == 0 || v > 1<<32-1 || v < -(1<<32-1) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTiming, f)
		}

		e := infrared.Edge{Level: v > 0, Duration: uint32(v)}
		if v < 0 {
			e.Duration = uint32(-v)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// Parse parses all lines of r. Every line ends with the flush edge.
func Parse(r io.Reader) ([]infrared.Edge, error) {
	var edges []infrared.Edge

	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := readLine(br)
		if err == io.EOF {
			return edges, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}

		l, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		edges = append(edges, l...)
		if l[len(l)-1] != flush {
			edges = append(edges, flush)
		}
	}
}

// readLine returns the next line of r without the line ending. A line longer
// than MaxLine is consumed up to its newline and returns ErrLineTooLong, so
// the following line can be read.
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	long := false

	for {
		chunk, err := r.ReadSlice('\n')
		if !long && len(line)+len(chunk) > MaxLine+1 {
			long, line = true, nil
		}
		if !long {
			line = append(line, chunk...)
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case long:
			return "", fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, MaxLine)
		case err != nil && len(line) == 0:
			return "", err
		}
		return strings.TrimRight(string(line), "\r\n"), nil
	}
}

// Format returns the edges in text form.
func Format(edges []infrared.Edge) string {
	var b strings.Builder
	for i, e := range edges {
		if i > 0 {
			b.WriteByte(' ')
		}
		if e.Level {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.FormatUint(uint64(e.Duration), 10))
	}
	return b.String()
}

// Reader reads edges from a receiver.
type Reader struct {
	rc io.ReadCloser
	// C receives the edges, the flush edge after every frame
	C chan infrared.Edge
	// quit stops sending on C
	quit chan struct{}
	// done signals that the reader is stopped
	done chan struct{}
}

// Open opens the serial device with the given baud rate and starts reading.
func Open(device string, baudRate int) (*Reader, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	debug.InfoLog.Printf("reading ir receiver on %s (%d baud)", device, baudRate)
	return NewReader(p), nil
}

// NewReader starts reading edges from rc.
func NewReader(rc io.ReadCloser) *Reader {
	r := &Reader{
		rc:   rc,
		C:    make(chan infrared.Edge, 256),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go r.run()
	return r
}

func (r *Reader) run() {
	defer close(r.done)
	defer close(r.C)

	br := bufio.NewReader(r.rc)
	for {
		line, err := readLine(br)
		if err != nil && !errors.Is(err, ErrLineTooLong) {
			if err != io.EOF {
				debug.ErrorLog.Printf("read ir receiver: %v", err)
			}
			return
		}

		var edges []infrared.Edge
		if err == nil {
			edges, err = ParseLine(line)
		}
		if err != nil {
			debug.ErrorLog.Printf("skip line: %v", err)
			edges = nil
		}
		if len(edges) == 0 || edges[len(edges)-1] != flush {
			edges = append(edges, flush)
		}

		for _, e := range edges {
			select {
			case r.C <- e:
			case <-r.quit:
				return
			}
		}
	}
}

// Close stops reading and closes the device.
func (r *Reader) Close() error {
	close(r.quit)
	err := r.rc.Close()
	<-r.done
	return err
}
