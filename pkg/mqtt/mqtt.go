// Package mqtt publishes decoded infrared messages to an mqtt broker.
package mqtt

import (
	"encoding/json"
	"time"

	"irkit/pkg/infrared"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce = 250
)

// buffer is the number of messages queued for a slow broker.
const buffer = 16

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// topic is the topic of the decoded infrared messages
	topic string
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// payload is the json form of a decoded infrared message.
type payload struct {
	infrared.Message
	Time time.Time `json:"time"`
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C: make(chan Message, buffer),
	}
}

// Connect connects to the mqtt broker and publishes the decoded messages to topic.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker, topic string) error {
	m.topic = topic
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker).SetClientID("irkit")
	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Publish queues the decoded message msg. The message is dropped if the queue is full.
func (m *Handler) Publish(msg infrared.Message, at time.Time) error {
	b, err := json.Marshal(payload{Message: msg, Time: at})
	if err != nil {
		return err
	}

	select {
	case m.C <- Message{Topic: m.topic, Payload: b}:
	default:
		debug.ErrorLog.Printf("mqtt queue full, %v dropped", msg)
	}
	return nil
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
func (m *Handler) Service() {
	for d := range m.C {
		if m.handler == nil || d.Topic == "" {
			continue
		}

		go func(msg Message) {
			if !m.handler.IsConnected() {
				debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

				if err := m.ReConnect(); err != nil {
					debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
					return
				}
			}

			debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
			t := m.handler.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

			go func() {
				<-t.Done()
				if err := t.Error(); err != nil {
					debug.ErrorLog.Printf("publishing topic %v: %v", msg.Topic, err)
				}
			}()
		}(d)
	}
}
