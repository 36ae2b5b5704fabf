package app

import (
	"io"
	"net/url"
	"sync"

	"irkit/pkg/app/config"
	"irkit/pkg/infrared"
	"irkit/pkg/mqtt"
	"irkit/pkg/receiver"
	"irkit/pkg/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// Sender transmits infrared signals.
type Sender interface {
	Send(infrared.Signal) error
	Close() error
}

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// capture is the source of the received edges
	capture io.Closer

	// receiver decodes the captured edges
	receiver *receiver.Receiver

	// transmitter sends signals, nil if disabled
	transmitter Sender

	// remotes holds the loaded remote files
	remotes struct {
		sync.RWMutex
		list []*remote.Remote
	}

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),

		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	if app.receiver != nil {
		go app.service()
	}

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.loadRemotes(); err != nil {
		debug.ErrorLog.Printf("can't load remotes: %v", err)
		return err
	}

	if app.config.Receiver.Enabled {
		if app.receiver, app.capture, err = OpenReceiver(app.config.Receiver); err != nil {
			debug.ErrorLog.Printf("can't open receiver: %v", err)
			return err
		}
	}

	if app.config.Transmitter.Enabled {
		if app.transmitter, err = openTransmitter(app.config.Transmitter); err != nil {
			debug.ErrorLog.Printf("can't open transmitter: %v", err)
			return err
		}
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, app.config.MQTT.Topic); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.api
	// which must be initialized before in initAPI()
	app.initDefaultRoutes()

	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	if app.web != nil {
		_ = app.web.Shutdown()
	}
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	// the capture closes the edge channel, which stops the receiver
	if app.capture != nil {
		_ = app.capture.Close()
	}
	if app.receiver != nil {
		_ = app.receiver.Close()
	}
	if app.transmitter != nil {
		_ = app.transmitter.Close()
	}
	return nil
}
