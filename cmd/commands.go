package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"irkit/pkg/app"
	"irkit/pkg/app/config"
	"irkit/pkg/infrared"
	"irkit/pkg/raspberry"
	"irkit/pkg/remote"
	"irkit/pkg/serialir"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

var errNoSignal = errors.New("either --signal or --all is required")

// sleep waits between brute force signals, replaced in tests
var sleep = time.Sleep

// openTransmitter opens the IR LED driver, replaced in tests
var openTransmitter = func(p int, carrier uint32) (app.Sender, error) {
	t, err := raspberry.OpenTransmitter(p, carrier)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// openReceiver opens the configured ir receiver, replaced in tests
var openReceiver = app.OpenReceiver

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "print the waveform of a message",
		UsageText: "irkit encode --protocol NEC --address 0x04 --command 0x08 [--repeats 1] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "protocol", Aliases: []string{"p"}, Required: true, Usage: "`PROTOCOL` of the message"},
			&cli.UintFlag{Name: "address", Aliases: []string{"a"}, Usage: "`ADDRESS` of the message"},
			&cli.UintFlag{Name: "command", Aliases: []string{"m"}, Usage: "`COMMAND` of the message"},
			&cli.IntFlag{Name: "repeats", Aliases: []string{"r"}, Usage: "number of held key frames"},
			&cli.BoolFlag{Name: "json", Usage: "print the signal as json"},
		},
		Action: func(ctx *cli.Context) error {
			var p infrared.Protocol
			if err := p.UnmarshalText([]byte(ctx.String("protocol"))); err != nil {
				return err
			}

			s, err := infrared.Burst(infrared.Message{
				Protocol: p,
				Address:  uint32(ctx.Uint("address")),
				Command:  uint32(ctx.Uint("command")),
			}, ctx.Int("repeats"))
			if err != nil {
				return err
			}

			if ctx.Bool("json") {
				return json.NewEncoder(ctx.App.Writer).Encode(s)
			}
			_, err = fmt.Fprintln(ctx.App.Writer, serialir.Format(s.Edges))
			return err
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode signed timings, one frame per line",
		UsageText: "irkit decode [FILE]\n\n\treads stdin if no file is given, e.g. +9000 -4500 +560 -560 ...",
		Action: func(ctx *cli.Context) error {
			var r io.Reader = ctx.App.Reader
			if name := ctx.Args().First(); name != "" && name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			edges, err := serialir.Parse(r)
			if err != nil {
				return err
			}

			for _, m := range infrared.NewPool().DecodeAll(edges, true) {
				if _, err = fmt.Fprintln(ctx.App.Writer, m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func protocolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "protocols",
		Usage: "list the supported protocols",
		Action: func(ctx *cli.Context) error {
			for _, p := range infrared.Protocols() {
				d, _ := p.Family().Descriptor()
				if _, err := fmt.Fprintf(ctx.App.Writer, "%-10s %-10v %6d Hz  bits %v\n",
					p, p.Family(), d.Frequency, d.BitLengths); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send signals of a remote file",
		UsageText: "irkit send --remote tv.toml --signal power\n   irkit send --remote tv.toml --all --delay 1s",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote", Aliases: []string{"r"}, Required: true, Usage: "remote `FILE`"},
			&cli.StringFlag{Name: "signal", Aliases: []string{"s"}, Usage: "`NAME` of the signal"},
			&cli.BoolFlag{Name: "all", Usage: "send all signals of the remote"},
			&cli.DurationFlag{Name: "delay", Value: 500 * time.Millisecond, Usage: "`DELAY` between the signals of --all"},
			&cli.IntFlag{Name: "gpio", Value: 18, Usage: "gpio `PIN` of the IR LED driver"},
			&cli.UintFlag{Name: "carrier", Value: 38000, Usage: "carrier `FREQUENCY` of the IR LED driver, 0 if unknown"},
			&cli.IntFlag{Name: "repeats", Value: 1, Usage: "number of held key frames"},
		},
		Action: func(ctx *cli.Context) error {
			r, err := remote.Load(ctx.String("remote"))
			if err != nil {
				return err
			}

			var signals []remote.Signal
			switch {
			case ctx.Bool("all"):
				signals = r.Signals
			case ctx.String("signal") != "":
				s, err := r.Signal(ctx.String("signal"))
				if err != nil {
					return err
				}
				signals = []remote.Signal{s}
			default:
				return errNoSignal
			}

			tx, err := openTransmitter(ctx.Int("gpio"), uint32(ctx.Uint("carrier")))
			if err != nil {
				return err
			}
			defer func() { _ = tx.Close() }()

			return send(ctx.App.Writer, tx, signals, ctx.Int("repeats"), ctx.Duration("delay"))
		},
	}
}

// send transmits the signals with delay between them.
func send(w io.Writer, tx app.Sender, signals []remote.Signal, repeats int, delay time.Duration) error {
	for i, s := range signals {
		if i > 0 {
			sleep(delay)
		}

		wave, err := s.Waveform(repeats)
		if err != nil {
			return err
		}

		debug.DebugLog.Printf("sending %s", s.Name)
		if err = tx.Send(wave); err != nil {
			return fmt.Errorf("send %s: %w", s.Name, err)
		}
		if _, err = fmt.Fprintf(w, "sent %s (%d/%d)\n", s.Name, i+1, len(signals)); err != nil {
			return err
		}
	}
	return nil
}

func learnCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "learn",
		Usage: "store the next received signal in a remote file",
		UsageText: "irkit learn --remote tv.toml [--name power] [--timeout 10s]" +
			"\n\n\tthe receiver is set up by the configuration file, the remote file is created if it doesn't exist",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote", Aliases: []string{"r"}, Required: true, Usage: "remote `FILE`"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "`NAME` of the signal, Learned_<protocol> if empty"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "`TIMEOUT` waiting for a signal"},
		},
		Action: func(ctx *cli.Context) error {
			if _, err := os.Stat(cfg.Flag.ConfigFile); err == nil {
				if err = cfg.LoadConfig(); err != nil {
					return err
				}
				debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			}

			r, err := remote.LoadOrCreate(ctx.String("remote"))
			if err != nil {
				return err
			}

			rx, capture, err := openReceiver(cfg.Receiver)
			if err != nil {
				return err
			}
			defer func() {
				_ = capture.Close()
				_ = rx.Close()
			}()
			go func() {
				for range rx.C {
				}
			}()

			if _, err = fmt.Fprintf(ctx.App.Writer, "press a key of the remote control (%v) ...\n", ctx.Duration("timeout")); err != nil {
				return err
			}

			c, cancel := context.WithTimeout(context.Background(), ctx.Duration("timeout"))
			defer cancel()
			b, err := rx.Learn(c)
			if err != nil {
				return err
			}

			s := remote.Learned(ctx.String("name"), b.Message, b.Edges)
			if err = r.Add(s); err != nil {
				return err
			}
			if err = r.Save(r.Path); err != nil {
				return err
			}

			desc := fmt.Sprintf("%d raw timings", len(s.Data))
			if b.Message != nil {
				desc = b.Message.String()
			}
			_, err = fmt.Fprintf(ctx.App.Writer, "learned %s: %s\n", s.Name, desc)
			return err
		},
	}
}
