package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"irkit/pkg/app"
	"irkit/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Infrared remote control receiver and transmitter",
		Version: app.VERSION,
		Description: "Decode infrared remote controls received by a receiver module and publish them to mqtt," +
			"\n send stored signals over an IR LED and convert between messages and waveforms." +
			"\n Supported protocols: NEC, NECext, NEC42, Samsung32, SIRC, SIRC15, SIRC20, RC5, RC6, RCA, Pioneer, Kaseikyo.",
		UsageText: "irkit [--config <file>] [--log standard|debug|trace] [command]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the service and use the configuration file irkit.yaml" +
			"\n\t\tirkit --config /opt/womat/irkit.yaml" +
			"\n\tprint the waveform of a NEC message" +
			"\n\t\tirkit encode --protocol NEC --address 0x04 --command 0x08" +
			"\n\tstore the next received signal as power in tv.toml" +
			"\n\t\tirkit learn --remote /opt/womat/remotes/tv.toml --name power",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Value: "", Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
		},
		Commands: []*cli.Command{
			encodeCommand(),
			decodeCommand(),
			protocolsCommand(),
			sendCommand(),
			learnCommand(cfg),
		},
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				_ = cfg.Debug.File.Close()
			}()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for am os.Interrupt signal (CTRL C)
			select {
			case sig := <-quit:
				debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			case <-a.Shutdown():
			}

			return nil
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}
