package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"irkit/pkg/app"
	"irkit/pkg/app/config"
	"irkit/pkg/infrared"
	"irkit/pkg/receiver"
	"irkit/pkg/remote"
	"irkit/pkg/serialir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type sender struct {
	sent   []infrared.Signal
	closed bool
}

func (s *sender) Send(sig infrared.Signal) error {
	s.sent = append(s.sent, sig)
	return nil
}

func (s *sender) Close() error {
	s.closed = true
	return nil
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	a := &cli.App{
		Name:     "irkit",
		Reader:   strings.NewReader(stdin),
		Writer:   &out,
		Commands: []*cli.Command{
			encodeCommand(), decodeCommand(), protocolsCommand(), sendCommand(), learnCommand(config.NewConfig()),
		},
	}
	err := a.Run(append([]string{"irkit"}, args...))
	return out.String(), err
}

func TestEncodeCommand(t *testing.T) {
	out, err := run(t, "", "encode", "--protocol", "nec", "--address", "0x04", "--command", "0x08")
	require.NoError(t, err)

	s, err := infrared.Burst(infrared.Message{Protocol: infrared.NEC, Address: 4, Command: 8}, 0)
	require.NoError(t, err)
	assert.Equal(t, serialir.Format(s.Edges)+"\n", out)

	out, err = run(t, "", "encode", "--protocol", "RC6", "--command", "12", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"frequency":36000`)

	_, err = run(t, "", "encode", "--protocol", "sony")
	assert.ErrorIs(t, err, infrared.ErrUnknownProtocol)

	_, err = run(t, "", "encode", "--protocol", "nec", "--repeats", "100000")
	assert.ErrorIs(t, err, infrared.ErrRepeats)
}

func TestDecodeCommand(t *testing.T) {
	var text strings.Builder
	for _, m := range []infrared.Message{
		{Protocol: infrared.NEC, Address: 0x04, Command: 0x08},
		{Protocol: infrared.SIRC, Address: 0x01, Command: 0x15},
	} {
		s, err := infrared.Burst(m, 0)
		require.NoError(t, err)
		text.WriteString(serialir.Format(s.Edges) + "\n")
	}

	out, err := run(t, text.String(), "decode")
	require.NoError(t, err)
	assert.Equal(t, "NEC address:0x4 command:0x8\nSIRC address:0x1 command:0x15\n", out)

	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte(text.String()), 0o644))
	out2, err := run(t, "", "decode", path)
	require.NoError(t, err)
	assert.Equal(t, out, out2)

	_, err = run(t, "+9000 -abc\n", "decode")
	assert.ErrorIs(t, err, serialir.ErrInvalidTiming)
}

func TestProtocolsCommand(t *testing.T) {
	out, err := run(t, "", "protocols")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(infrared.Protocols()))
	assert.True(t, strings.HasPrefix(lines[0], "NEC "))
	assert.Contains(t, out, "Kaseikyo")
}

func TestSendCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tv.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[signal]]
name = "power"
type = "parsed"
protocol = "NEC"
address = 4
command = 8

[[signal]]
name = "mute"
type = "parsed"
protocol = "NEC"
address = 4
command = 9
`), 0o644))

	tx := &sender{}
	var delays []time.Duration
	open := openTransmitter
	openTransmitter = func(int, uint32) (app.Sender, error) { return tx, nil }
	sleep = func(d time.Duration) { delays = append(delays, d) }
	defer func() {
		openTransmitter = open
		sleep = time.Sleep
	}()

	out, err := run(t, "", "send", "--remote", path, "--all", "--delay", "2s")
	require.NoError(t, err)
	assert.Equal(t, "sent power (1/2)\nsent mute (2/2)\n", out)
	assert.Len(t, tx.sent, 2)
	assert.Equal(t, []time.Duration{2 * time.Second}, delays)
	assert.True(t, tx.closed)

	tx.sent = nil
	_, err = run(t, "", "send", "--remote", path, "--signal", "mute", "--repeats", "0")
	require.NoError(t, err)
	want, err := infrared.Burst(infrared.Message{Protocol: infrared.NEC, Address: 4, Command: 9}, 0)
	require.NoError(t, err)
	assert.Equal(t, []infrared.Signal{want}, tx.sent)

	_, err = run(t, "", "send", "--remote", path)
	assert.ErrorIs(t, err, errNoSignal)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// receiving makes the receiver replay edges until it is closed.
func receiving(t *testing.T, edges []infrared.Edge) {
	t.Helper()
	open := openReceiver
	t.Cleanup(func() { openReceiver = open })

	openReceiver = func(config.ReceiverConfig) (*receiver.Receiver, io.Closer, error) {
		rx := make(chan infrared.Edge)
		done := make(chan struct{})
		go func() {
			if len(edges) == 0 {
				return
			}
			for {
				for _, e := range edges {
					select {
					case rx <- e:
					case <-done:
						return
					}
				}
			}
		}()
		return receiver.New(rx, 0), closeFunc(func() error { close(done); return nil }), nil
	}
}

func TestLearnCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tv.toml")

	want := infrared.Message{Protocol: infrared.NEC, Address: 4, Command: 8}
	s, err := infrared.Burst(want, 0)
	require.NoError(t, err)
	receiving(t, append(s.Edges, infrared.Edge{}))

	out, err := run(t, "", "learn", "--remote", path, "--name", "power")
	require.NoError(t, err)
	assert.Contains(t, out, "learned power: NEC address:0x4 command:0x8\n")

	out, err = run(t, "", "learn", "--remote", path)
	require.NoError(t, err)
	assert.Contains(t, out, "learned Learned_NEC: ")

	unknown := infrared.RawSignal(38000, 0.33, []uint32{3000, 3000, 1500, 1500, 3000})
	receiving(t, append(unknown.Edges, infrared.Edge{}))
	out, err = run(t, "", "learn", "--remote", path, "--name", "input")
	require.NoError(t, err)
	assert.Contains(t, out, "learned input: 5 raw timings\n")

	r, err := remote.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tv", r.Name)
	assert.Equal(t, []remote.Signal{
		remote.NewParsed("power", want),
		remote.NewParsed("Learned_NEC", want),
		{Name: "input", Type: remote.Raw, Frequency: 38000, DutyCycle: 0.33, Data: []uint32{3000, 3000, 1500, 1500, 3000}},
	}, r.Signals)

	receiving(t, nil)
	_, err = run(t, "", "learn", "--remote", path, "--timeout", "20ms")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
